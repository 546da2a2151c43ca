package models

import (
	"strings"
	"time"
)

// Subject categories. Anything that does not match the literal 1275
// (case-insensitive) is treated as classique.
const (
	SubjectCategoryClassique = "classique"
	SubjectCategory1275      = "1275"
)

// NormalizeCategory folds a raw catalog category into one of the two
// supported values.
func NormalizeCategory(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), SubjectCategory1275) {
		return SubjectCategory1275
	}
	return SubjectCategoryClassique
}

// Subject is one entry of the graduation-project catalog.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Title       string    `db:"title" json:"title"`
	Specialty   string    `db:"specialty" json:"specialty"`
	Category    string    `db:"category" json:"category"`
	Supervisor  string    `db:"supervisor" json:"supervisor"`
	Description string    `db:"description" json:"description"`
	Available   bool      `db:"available" json:"available"`
	Capacity    int       `db:"capacity" json:"capacity"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveCapacity clamps legacy rows with a missing or invalid quota to 1
// so a bad record never silently blocks a whole allocation pass. New writes
// are validated to capacity >= 1 at the service boundary.
func (s Subject) EffectiveCapacity() int {
	if s.Capacity < 1 {
		return 1
	}
	return s.Capacity
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Specialty string
	Category  string
	Available *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
