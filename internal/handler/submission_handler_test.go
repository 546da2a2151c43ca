package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfe-match/pfe-match-api/internal/models"
	"github.com/pfe-match/pfe-match-api/internal/service"
)

type fakeStudents struct{}

func (fakeStudents) FindByMatricules(ctx context.Context, matricules []string) (map[string]models.Student, error) {
	found := make(map[string]models.Student, len(matricules))
	for _, matricule := range matricules {
		found[matricule] = models.Student{Matricule: matricule, FirstName: "Test", Specialty: "GL", Average: 14.0}
	}
	return found, nil
}

type fakeSubjects struct{}

func (fakeSubjects) FindByCodes(ctx context.Context, codes []string) (map[string]models.Subject, error) {
	found := make(map[string]models.Subject, len(codes))
	for _, code := range codes {
		found[code] = models.Subject{Code: code, Specialty: "GL", Category: models.SubjectCategoryClassique, Available: true, Capacity: 1}
	}
	return found, nil
}

type fakeTeams struct {
	created []*models.Team
}

func (f *fakeTeams) Create(ctx context.Context, team *models.Team) error {
	team.ID = fmt.Sprintf("team-%d", len(f.created)+1)
	f.created = append(f.created, team)
	return nil
}

func (f *fakeTeams) FindByID(ctx context.Context, id string) (*models.Team, error) {
	for _, team := range f.created {
		if team.ID == id {
			return team, nil
		}
	}
	return nil, fmt.Errorf("team %s not found", id)
}

func (f *fakeTeams) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error) {
	return nil, 0, nil
}

func (f *fakeTeams) ListMembersIndexes(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeTeams) UpdateMentorDecision(ctx context.Context, id, decision string) error {
	return nil
}

func newSubmissionHandlerFixture(open bool) (*SubmissionHandler, *fakeTeams) {
	teams := &fakeTeams{}
	svc := service.NewSubmissionService(fakeStudents{}, fakeSubjects{}, teams, nil, nil, nil,
		service.SubmissionConfig{Open: open})
	return NewSubmissionHandler(svc), teams
}

func submitBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	payload := service.SubmitChoicesRequest{
		Mode:    models.ModeMonome,
		Members: []service.SubmissionMemberRequest{{Matricule: "M100"}},
		Picks: []service.SubmissionPickRequest{
			{SubjectCode: "GL01", Priority: 1},
			{SubjectCode: "GL02", Priority: 2},
			{SubjectCode: "GL03", Priority: 3},
			{SubjectCode: "GL04", Priority: 4},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewBuffer(raw)
}

func TestSubmissionHandlerSubmitCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, teams := newSubmissionHandlerFixture(true)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/choices", submitBody(t))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, teams.created, 1)
}

func TestSubmissionHandlerSubmitClosedWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, teams := newSubmissionHandlerFixture(false)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/choices", submitBody(t))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, teams.created)
}

func TestSubmissionHandlerSubmitInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newSubmissionHandlerFixture(true)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/choices", bytes.NewBufferString("{"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
