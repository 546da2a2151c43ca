package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pfe-match/pfe-match-api/internal/models"
)

// StudentRepository handles persistence for the graduating cohort.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new repository instance.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = "id, matricule, first_name, last_name, specialty, average, email, phone, created_at, updated_at"

// List returns students matching filters with pagination metadata.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Specialty != "" {
		conditions = append(conditions, fmt.Sprintf("specialty = $%d", len(args)+1))
		args = append(args, filter.Specialty)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(matricule) LIKE $%d OR LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"matricule":  true,
		"last_name":  true,
		"average":    true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "matricule"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, sortBy, order, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	return students, total, nil
}

// FindByMatricule returns a student by matriculation id.
func (r *StudentRepository) FindByMatricule(ctx context.Context, matricule string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE matricule = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, matricule); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByMatricules resolves students for a set of matricules, keyed by
// matricule.
func (r *StudentRepository) FindByMatricules(ctx context.Context, matricules []string) (map[string]models.Student, error) {
	if len(matricules) == 0 {
		return map[string]models.Student{}, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM students WHERE matricule IN (?)", studentColumns), matricules)
	if err != nil {
		return nil, fmt.Errorf("build student matricule query: %w", err)
	}
	query = r.db.Rebind(query)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("find students by matricules: %w", err)
	}

	result := make(map[string]models.Student, len(students))
	for _, student := range students {
		result[student.Matricule] = student
	}
	return result, nil
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, matricule, first_name, last_name, specialty, average, email, phone, created_at, updated_at)
		VALUES (:id, :matricule, :first_name, :last_name, :specialty, :average, :email, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Upsert inserts a student or refreshes an existing matricule. Used by the
// CSV seeder so re-imports stay idempotent.
func (r *StudentRepository) Upsert(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, matricule, first_name, last_name, specialty, average, email, phone, created_at, updated_at)
		VALUES (:id, :matricule, :first_name, :last_name, :specialty, :average, :email, :phone, :created_at, :updated_at)
		ON CONFLICT (matricule) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			specialty = EXCLUDED.specialty,
			average = EXCLUDED.average,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}

// Update modifies a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET matricule = :matricule, first_name = :first_name, last_name = :last_name,
		specialty = :specialty, average = :average, email = :email, phone = :phone, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student record.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
