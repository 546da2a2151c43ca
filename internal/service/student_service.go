package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pfe-match/pfe-match-api/internal/models"
	appErrors "github.com/pfe-match/pfe-match-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByMatricule(ctx context.Context, matricule string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// CreateStudentRequest captures fields for registering cohort members.
type CreateStudentRequest struct {
	Matricule string  `json:"matricule" validate:"required"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Specialty string  `json:"specialty" validate:"required"`
	Average   float64 `json:"average" validate:"gte=0,lte=20"`
	Email     string  `json:"email" validate:"omitempty,email"`
	Phone     string  `json:"phone"`
}

// StudentService handles cohort administration workflows.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService creates a new student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated cohort records.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// GetByMatricule returns a student by matriculation id. Used by the
// selection frontend to prefill member details.
func (s *StudentService) GetByMatricule(ctx context.Context, matricule string) (*models.Student, error) {
	student, err := s.repo.FindByMatricule(ctx, strings.TrimSpace(matricule))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers one cohort member.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	req.Matricule = strings.TrimSpace(req.Matricule)
	if _, err := s.repo.FindByMatricule(ctx, req.Matricule); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "matricule already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check matricule")
	}

	student := &models.Student{
		Matricule: req.Matricule,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Specialty: req.Specialty,
		Average:   req.Average,
		Email:     req.Email,
		Phone:     req.Phone,
	}

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies a registered student.
func (s *StudentService) Update(ctx context.Context, matricule string, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.GetByMatricule(ctx, matricule)
	if err != nil {
		return nil, err
	}

	student.Matricule = strings.TrimSpace(req.Matricule)
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Specialty = req.Specialty
	student.Average = req.Average
	student.Email = req.Email
	student.Phone = req.Phone

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a cohort record.
func (s *StudentService) Delete(ctx context.Context, matricule string) error {
	student, err := s.GetByMatricule(ctx, matricule)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}
