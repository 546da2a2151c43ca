package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfe-match/pfe-match-api/internal/models"
	appErrors "github.com/pfe-match/pfe-match-api/pkg/errors"
)

type subjectRepoStub struct {
	subjects map[string]*models.Subject
	byCode   map[string]bool
	created  []*models.Subject
	deleted  []string
}

func newSubjectRepoStub() *subjectRepoStub {
	return &subjectRepoStub{
		subjects: make(map[string]*models.Subject),
		byCode:   make(map[string]bool),
	}
}

func (s *subjectRepoStub) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	out := make([]models.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		out = append(out, *subject)
	}
	return out, len(out), nil
}

func (s *subjectRepoStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *subject
	return &copied, nil
}

func (s *subjectRepoStub) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	return s.byCode[code], nil
}

func (s *subjectRepoStub) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = "subject-" + subject.Code
	s.subjects[subject.ID] = subject
	s.byCode[subject.Code] = true
	s.created = append(s.created, subject)
	return nil
}

func (s *subjectRepoStub) Update(ctx context.Context, subject *models.Subject) error {
	s.subjects[subject.ID] = subject
	return nil
}

func (s *subjectRepoStub) Delete(ctx context.Context, id string) error {
	delete(s.subjects, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func TestSubjectServiceCreateNormalizes(t *testing.T) {
	repo := newSubjectRepoStub()
	svc := NewSubjectService(repo, nil, nil)

	subject, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code:      " gl01 ",
		Title:     "Compiler frontend",
		Specialty: "GL",
		Category:  "Classique",
		Capacity:  2,
		Available: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "GL01", subject.Code)
	assert.Equal(t, models.SubjectCategoryClassique, subject.Category)
}

func TestSubjectServiceCreateDuplicateCode(t *testing.T) {
	repo := newSubjectRepoStub()
	repo.byCode["GL01"] = true
	svc := NewSubjectService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code:      "GL01",
		Title:     "Compiler frontend",
		Specialty: "GL",
		Category:  models.SubjectCategoryClassique,
		Capacity:  1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceCreateRejectsZeroCapacity(t *testing.T) {
	svc := NewSubjectService(newSubjectRepoStub(), nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code:      "GL01",
		Title:     "Compiler frontend",
		Specialty: "GL",
		Category:  models.SubjectCategoryClassique,
		Capacity:  0,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceGetNotFound(t *testing.T) {
	svc := NewSubjectService(newSubjectRepoStub(), nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceDelete(t *testing.T) {
	repo := newSubjectRepoStub()
	repo.subjects["subject-1"] = &models.Subject{ID: "subject-1", Code: "GL01"}
	svc := NewSubjectService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "subject-1"))
	assert.Equal(t, []string{"subject-1"}, repo.deleted)
}
