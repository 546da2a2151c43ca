package models

import "time"

// Student is a member of the graduating cohort, identified by matricule.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Matricule string    `db:"matricule" json:"matricule"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Specialty string    `db:"specialty" json:"specialty"`
	Average   float64   `db:"average" json:"average"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Specialty string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
