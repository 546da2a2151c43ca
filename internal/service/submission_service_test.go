package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfe-match/pfe-match-api/internal/models"
	appErrors "github.com/pfe-match/pfe-match-api/pkg/errors"
)

type studentReaderStub struct {
	students map[string]models.Student
}

func (s studentReaderStub) FindByMatricules(ctx context.Context, matricules []string) (map[string]models.Student, error) {
	found := make(map[string]models.Student)
	for _, matricule := range matricules {
		if student, ok := s.students[matricule]; ok {
			found[matricule] = student
		}
	}
	return found, nil
}

type subjectsByCodeStub struct {
	subjects map[string]models.Subject
}

func (s subjectsByCodeStub) FindByCodes(ctx context.Context, codes []string) (map[string]models.Subject, error) {
	found := make(map[string]models.Subject)
	for _, code := range codes {
		if subject, ok := s.subjects[code]; ok {
			found[code] = subject
		}
	}
	return found, nil
}

type submissionStoreStub struct {
	created []*models.Team
	indexes []string
}

func (s *submissionStoreStub) Create(ctx context.Context, team *models.Team) error {
	team.ID = fmt.Sprintf("team-%d", len(s.created)+1)
	s.created = append(s.created, team)
	return nil
}

func (s *submissionStoreStub) FindByID(ctx context.Context, id string) (*models.Team, error) {
	for _, team := range s.created {
		if team.ID == id {
			return team, nil
		}
	}
	return nil, fmt.Errorf("team %s not found", id)
}

func (s *submissionStoreStub) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error) {
	teams := make([]models.Team, 0, len(s.created))
	for _, team := range s.created {
		teams = append(teams, *team)
	}
	return teams, len(teams), nil
}

func (s *submissionStoreStub) ListMembersIndexes(ctx context.Context) ([]string, error) {
	return s.indexes, nil
}

func (s *submissionStoreStub) UpdateMentorDecision(ctx context.Context, id, decision string) error {
	for _, team := range s.created {
		if team.ID == id {
			team.MentorDecision = decision
			return nil
		}
	}
	return fmt.Errorf("team %s not found", id)
}

type triggerStub struct {
	teamIDs []string
}

func (s *triggerStub) TriggerRecompute(teamID string) error {
	s.teamIDs = append(s.teamIDs, teamID)
	return nil
}

func testCatalog() map[string]models.Subject {
	catalog := make(map[string]models.Subject)
	for i := 1; i <= 5; i++ {
		code := fmt.Sprintf("GL%02d", i)
		catalog[code] = models.Subject{
			ID:        "subject-" + code,
			Code:      code,
			Specialty: "GL",
			Category:  models.SubjectCategoryClassique,
			Available: true,
			Capacity:  1,
		}
	}
	catalog["EX00"] = models.Subject{ID: "subject-EX00", Code: "EX00", Specialty: "GL", Category: models.SubjectCategory1275, Available: true, Capacity: 1}
	catalog["EX01"] = models.Subject{ID: "subject-EX01", Code: "EX01", Specialty: "GL", Category: models.SubjectCategory1275, Available: true, Capacity: 1}
	catalog["EX02"] = models.Subject{ID: "subject-EX02", Code: "EX02", Specialty: "GL", Category: models.SubjectCategory1275, Available: true, Capacity: 1}
	catalog["EX03"] = models.Subject{ID: "subject-EX03", Code: "EX03", Specialty: "SI", Category: models.SubjectCategory1275, Available: true, Capacity: 1}
	catalog["EX04"] = models.Subject{ID: "subject-EX04", Code: "EX04", Specialty: "SI", Category: models.SubjectCategory1275, Available: true, Capacity: 1}
	return catalog
}

func testCohort() map[string]models.Student {
	return map[string]models.Student{
		"M100": {ID: "student-1", Matricule: "M100", FirstName: "Amine", LastName: "B", Specialty: "GL", Average: 14.5},
		"M200": {ID: "student-2", Matricule: "M200", FirstName: "Lina", LastName: "K", Specialty: "GL", Average: 16.0},
		"M300": {ID: "student-3", Matricule: "M300", FirstName: "Yanis", LastName: "T", Specialty: "SI", Average: 12.0},
	}
}

func newSubmissionFixture(store *submissionStoreStub, trigger *triggerStub, open bool) *SubmissionService {
	return NewSubmissionService(
		studentReaderStub{students: testCohort()},
		subjectsByCodeStub{subjects: testCatalog()},
		store,
		trigger,
		nil,
		nil,
		SubmissionConfig{Open: open},
	)
}

func classiquePicks() []SubmissionPickRequest {
	return []SubmissionPickRequest{
		{SubjectCode: "GL01", Priority: 1},
		{SubjectCode: "GL02", Priority: 2},
		{SubjectCode: "GL03", Priority: 3},
		{SubjectCode: "GL04", Priority: 4},
	}
}

func TestSubmissionServiceSubmitSuccess(t *testing.T) {
	store := &submissionStoreStub{}
	trigger := &triggerStub{}
	svc := newSubmissionFixture(store, trigger, true)

	team, err := svc.Submit(context.Background(), SubmitChoicesRequest{
		Mode:    models.ModeBinome,
		Members: []SubmissionMemberRequest{{Matricule: "M200"}, {Matricule: "M100"}},
		Picks:   classiquePicks(),
	})
	require.NoError(t, err)

	assert.Equal(t, models.TeamStatusPending, team.Status)
	assert.Equal(t, models.MentorDecisionPending, team.MentorDecision)
	assert.True(t, team.Locked)
	assert.Equal(t, "M100|M200", team.MembersIndex)
	assert.Equal(t, 15.25, team.PriorityScore)
	assert.Equal(t, "GL", team.Specialty)
	require.Len(t, store.created, 1)
	assert.Equal(t, []string{team.ID}, trigger.teamIDs)
}

func TestSubmissionServiceSubmitClosedWindow(t *testing.T) {
	svc := newSubmissionFixture(&submissionStoreStub{}, &triggerStub{}, false)

	_, err := svc.Submit(context.Background(), SubmitChoicesRequest{
		Mode:    models.ModeMonome,
		Members: []SubmissionMemberRequest{{Matricule: "M100"}},
		Picks:   classiquePicks(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubmissionsClosed.Code, appErrors.FromError(err).Code)
}

func TestSubmissionServiceSubmitUnknownStudent(t *testing.T) {
	svc := newSubmissionFixture(&submissionStoreStub{}, &triggerStub{}, true)

	_, err := svc.Submit(context.Background(), SubmitChoicesRequest{
		Mode:    models.ModeMonome,
		Members: []SubmissionMemberRequest{{Matricule: "M999"}},
		Picks:   classiquePicks(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmissionServiceSubmitDuplicateMember(t *testing.T) {
	store := &submissionStoreStub{indexes: []string{"M100|M300"}}
	svc := newSubmissionFixture(store, &triggerStub{}, true)

	_, err := svc.Submit(context.Background(), SubmitChoicesRequest{
		Mode:    models.ModeBinome,
		Members: []SubmissionMemberRequest{{Matricule: "M100"}, {Matricule: "M200"}},
		Picks:   classiquePicks(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestSubmissionServiceSubmitSimilarMatriculeDoesNotConflict(t *testing.T) {
	// M10 is a prefix of M100; only an exact matricule match is a conflict.
	store := &submissionStoreStub{indexes: []string{"M10|M300"}}
	svc := newSubmissionFixture(store, &triggerStub{}, true)

	_, err := svc.Submit(context.Background(), SubmitChoicesRequest{
		Mode:    models.ModeMonome,
		Members: []SubmissionMemberRequest{{Matricule: "M100"}},
		Picks:   classiquePicks(),
	})
	require.NoError(t, err)
}

func TestSubmissionServiceOutOfSpecialtyFlag(t *testing.T) {
	store := &submissionStoreStub{}
	svc := newSubmissionFixture(store, &triggerStub{}, true)

	team, err := svc.Submit(context.Background(), SubmitChoicesRequest{
		Mode:    models.ModeMonome,
		Members: []SubmissionMemberRequest{{Matricule: "M100"}},
		Picks: []SubmissionPickRequest{
			{SubjectCode: "EX00", Priority: 1},
			{SubjectCode: "EX01", Priority: 2},
			{SubjectCode: "EX02", Priority: 3},
			{SubjectCode: "EX03", Priority: 4},
		},
	})
	require.NoError(t, err)

	flagged := 0
	for _, pick := range team.Picks {
		if pick.OutOfSpecialty {
			flagged++
			assert.Equal(t, "EX03", pick.SubjectCode)
		}
	}
	assert.Equal(t, 1, flagged)
}

func TestSubmissionServiceRejectsMixedCategories(t *testing.T) {
	store := &submissionStoreStub{}
	svc := newSubmissionFixture(store, &triggerStub{}, true)

	_, err := svc.Submit(context.Background(), SubmitChoicesRequest{
		Mode:    models.ModeMonome,
		Members: []SubmissionMemberRequest{{Matricule: "M100"}},
		Picks: []SubmissionPickRequest{
			{SubjectCode: "EX01", Priority: 1},
			{SubjectCode: "EX02", Priority: 2},
			{SubjectCode: "EX03", Priority: 3},
			{SubjectCode: "GL01", Priority: 4},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestSubmissionServiceDecideMentor(t *testing.T) {
	store := &submissionStoreStub{created: []*models.Team{
		{ID: "team-1", NeedsMentorApproval: true, MentorDecision: models.MentorDecisionPending},
		{ID: "team-2", NeedsMentorApproval: false, MentorDecision: models.MentorDecisionPending},
	}}
	svc := newSubmissionFixture(store, &triggerStub{}, true)

	team, err := svc.DecideMentor(context.Background(), "team-1", MentorDecisionRequest{Decision: models.MentorDecisionApproved})
	require.NoError(t, err)
	assert.Equal(t, models.MentorDecisionApproved, team.MentorDecision)

	_, err = svc.DecideMentor(context.Background(), "team-2", MentorDecisionRequest{Decision: models.MentorDecisionApproved})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateChoicePayload(t *testing.T) {
	catalog := testCatalog()
	members := []models.TeamMember{{Matricule: "M100", Specialty: "GL", Average: 14.5}}

	picks := func(codes ...string) []models.Pick {
		out := make([]models.Pick, 0, len(codes))
		for i, code := range codes {
			out = append(out, models.Pick{SubjectCode: code, Priority: i + 1})
		}
		return out
	}

	t.Run("accepts a valid classique set", func(t *testing.T) {
		err := ValidateChoicePayload(models.ModeMonome, members, picks("GL01", "GL02", "GL03", "GL04"), "", catalog)
		assert.NoError(t, err)
	})

	t.Run("rejects wrong pick count", func(t *testing.T) {
		err := ValidateChoicePayload(models.ModeMonome, members, picks("GL01", "GL02"), "", catalog)
		assert.Error(t, err)
	})

	t.Run("rejects duplicate subject", func(t *testing.T) {
		err := ValidateChoicePayload(models.ModeMonome, members, picks("GL01", "GL01", "GL02", "GL03"), "", catalog)
		assert.Error(t, err)
	})

	t.Run("rejects unknown subject", func(t *testing.T) {
		err := ValidateChoicePayload(models.ModeMonome, members, picks("NOPE", "GL02", "GL03", "GL04"), "", catalog)
		assert.Error(t, err)
	})

	t.Run("rejects unavailable subject", func(t *testing.T) {
		closed := testCatalog()
		subject := closed["GL01"]
		subject.Available = false
		closed["GL01"] = subject
		err := ValidateChoicePayload(models.ModeMonome, members, picks("GL01", "GL02", "GL03", "GL04"), "", closed)
		assert.Error(t, err)
	})

	t.Run("rejects classique outside specialty", func(t *testing.T) {
		err := ValidateChoicePayload(models.ModeMonome, members, picks("GL01", "GL02", "GL03", "GL04"), "SI", catalog)
		assert.Error(t, err)
	})

	t.Run("allows a single out-of-specialty 1275", func(t *testing.T) {
		err := ValidateChoicePayload(models.ModeMonome, members, picks("EX00", "EX01", "EX02", "EX03"), "", catalog)
		assert.NoError(t, err)
	})

	t.Run("rejects two out-of-specialty 1275", func(t *testing.T) {
		err := ValidateChoicePayload(models.ModeMonome, members, picks("EX01", "EX02", "EX03", "EX04"), "", catalog)
		assert.Error(t, err)
	})

	t.Run("rejects binome with one member", func(t *testing.T) {
		err := ValidateChoicePayload(models.ModeBinome, members, picks("GL01", "GL02", "GL03", "GL04"), "", catalog)
		assert.Error(t, err)
	})
}

func TestComputePriorityScore(t *testing.T) {
	score := ComputePriorityScore([]models.TeamMember{{Average: 14.5}, {Average: 16.0}})
	assert.Equal(t, 15.25, score)

	score = ComputePriorityScore([]models.TeamMember{{Average: 13.333}})
	assert.Equal(t, 13.33, score)

	score = ComputePriorityScore([]models.TeamMember{{Average: 12.125}, {Average: 12.13}})
	assert.InDelta(t, 12.13, score, 0.001)
}
