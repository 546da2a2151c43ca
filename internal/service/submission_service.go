package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pfe-match/pfe-match-api/internal/models"
	appErrors "github.com/pfe-match/pfe-match-api/pkg/errors"
)

// RequiredPicks is the deployed pick-count policy: a submission carries
// exactly this many ranked subjects.
const RequiredPicks = 4

type submissionStudentReader interface {
	FindByMatricules(ctx context.Context, matricules []string) (map[string]models.Student, error)
}

type submissionSubjectReader interface {
	FindByCodes(ctx context.Context, codes []string) (map[string]models.Subject, error)
}

type submissionTeamStore interface {
	Create(ctx context.Context, team *models.Team) error
	FindByID(ctx context.Context, id string) (*models.Team, error)
	List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error)
	ListMembersIndexes(ctx context.Context) ([]string, error)
	UpdateMentorDecision(ctx context.Context, id, decision string) error
}

type recomputeTrigger interface {
	TriggerRecompute(teamID string) error
}

// SubmissionMemberRequest identifies one member by matriculation id.
type SubmissionMemberRequest struct {
	Matricule string `json:"matricule" validate:"required"`
}

// SubmissionPickRequest is one ranked subject choice in the payload.
type SubmissionPickRequest struct {
	SubjectCode string `json:"subject_code" validate:"required"`
	Priority    int    `json:"priority" validate:"required,min=1"`
}

// SubmitChoicesRequest is the choice-submission payload.
type SubmitChoicesRequest struct {
	Mode      string                    `json:"mode" validate:"required,oneof=monome binome"`
	Members   []SubmissionMemberRequest `json:"members" validate:"required,min=1,max=2,dive"`
	Picks     []SubmissionPickRequest   `json:"picks" validate:"required,min=1,dive"`
	Specialty string                    `json:"specialty"`
}

// MentorDecisionRequest records a mentor's sign-off.
type MentorDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

// SubmissionConfig controls the submission window.
type SubmissionConfig struct {
	Open          bool
	ClosedMessage string
}

// SubmissionService accepts choice submissions: it validates the payload
// against the catalog, scores the team, guards against duplicate
// participation, persists the locked record, and triggers a recomputation.
type SubmissionService struct {
	students  submissionStudentReader
	subjects  submissionSubjectReader
	teams     submissionTeamStore
	trigger   recomputeTrigger
	validator *validator.Validate
	logger    *zap.Logger
	config    SubmissionConfig
}

// NewSubmissionService wires submission dependencies.
func NewSubmissionService(
	students submissionStudentReader,
	subjects submissionSubjectReader,
	teams submissionTeamStore,
	trigger recomputeTrigger,
	validate *validator.Validate,
	logger *zap.Logger,
	config SubmissionConfig,
) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		students:  students,
		subjects:  subjects,
		teams:     teams,
		trigger:   trigger,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Submit processes one candidate submission end to end. A rejected
// submission is never persisted and never reaches the allocation engine.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitChoicesRequest) (*models.Team, error) {
	if !s.config.Open {
		message := s.config.ClosedMessage
		if message == "" {
			message = appErrors.ErrSubmissionsClosed.Message
		}
		return nil, appErrors.Clone(appErrors.ErrSubmissionsClosed, message)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	matricules := make([]string, 0, len(req.Members))
	for _, member := range req.Members {
		matricules = append(matricules, strings.TrimSpace(member.Matricule))
	}

	studentsByMatricule, err := s.students.FindByMatricules(ctx, matricules)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve members")
	}
	members := make([]models.TeamMember, 0, len(matricules))
	for _, matricule := range matricules {
		student, ok := studentsByMatricule[matricule]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student not found: %s", matricule))
		}
		members = append(members, models.TeamMember{
			Matricule: student.Matricule,
			FirstName: student.FirstName,
			LastName:  student.LastName,
			Specialty: student.Specialty,
			Average:   student.Average,
		})
	}

	picks := make([]models.Pick, 0, len(req.Picks))
	codes := make([]string, 0, len(req.Picks))
	for _, pick := range req.Picks {
		code := strings.TrimSpace(pick.SubjectCode)
		picks = append(picks, models.Pick{SubjectCode: code, Priority: pick.Priority})
		codes = append(codes, code)
	}
	subjectsByCode, err := s.subjects.FindByCodes(ctx, codes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subjects")
	}

	specialty := strings.TrimSpace(req.Specialty)
	if err := ValidateChoicePayload(req.Mode, members, picks, specialty, subjectsByCode); err != nil {
		return nil, err
	}

	// Duplicate-participation guard: each student belongs to at most one
	// accepted submission.
	indexes, err := s.teams.ListMembersIndexes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing submissions")
	}
	if conflicting := firstConflictingMatricule(indexes, matricules); conflicting != "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student %s already submitted choices", conflicting))
	}

	effectiveSpecialty := specialty
	if effectiveSpecialty == "" {
		effectiveSpecialty = members[0].Specialty
	}
	for i := range picks {
		subject := subjectsByCode[picks[i].SubjectCode]
		picks[i].OutOfSpecialty = subject.Specialty != effectiveSpecialty
	}

	team := &models.Team{
		Mode:           req.Mode,
		Members:        members,
		MembersIndex:   models.BuildMembersIndex(matricules),
		Specialty:      effectiveSpecialty,
		Picks:          picks,
		PriorityScore:  ComputePriorityScore(members),
		Status:         models.TeamStatusPending,
		MentorDecision: models.MentorDecisionPending,
		QueuePositions: []models.QueuePosition{},
		Locked:         true,
	}

	if err := s.teams.Create(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist submission")
	}

	if s.trigger != nil {
		if err := s.trigger.TriggerRecompute(team.ID); err != nil {
			s.logger.Warn("failed to trigger recompute", zap.String("team_id", team.ID), zap.Error(err))
		}
	}

	return team, nil
}

// Get returns one submission by id.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Team, error) {
	team, err := s.teams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return team, nil
}

// List returns paginated submissions.
func (s *SubmissionService) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, *models.Pagination, error) {
	teams, total, err := s.teams.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
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
	return teams, pagination, nil
}

// DecideMentor records a mentor decision on a 1275 assignment.
func (s *SubmissionService) DecideMentor(ctx context.Context, id string, req MentorDecisionRequest) (*models.Team, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mentor decision payload")
	}

	team, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !team.NeedsMentorApproval {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission does not require mentor approval")
	}

	if err := s.teams.UpdateMentorDecision(ctx, id, req.Decision); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record mentor decision")
	}
	team.MentorDecision = req.Decision
	return team, nil
}

// ValidateChoicePayload checks a candidate submission against the catalog.
// It fails fast with a descriptive error on the first violated rule and has
// no side effects.
func ValidateChoicePayload(mode string, members []models.TeamMember, picks []models.Pick, specialty string, subjects map[string]models.Subject) error {
	if mode == models.ModeMonome && len(members) != 1 {
		return appErrors.Clone(appErrors.ErrValidation, "monome submissions must have exactly one member")
	}
	if mode == models.ModeBinome && len(members) != 2 {
		return appErrors.Clone(appErrors.ErrValidation, "binome submissions must have exactly two members")
	}

	if len(picks) != RequiredPicks {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exactly %d subject picks are required", RequiredPicks))
	}

	effectiveSpecialty := specialty
	if effectiveSpecialty == "" && len(members) > 0 {
		effectiveSpecialty = members[0].Specialty
	}

	seen := make(map[string]bool, len(picks))
	var category string
	outOfSpecialty := 0

	for _, pick := range picks {
		if seen[pick.SubjectCode] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s selected twice", pick.SubjectCode))
		}
		seen[pick.SubjectCode] = true

		subject, ok := subjects[pick.SubjectCode]
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject not found: %s", pick.SubjectCode))
		}
		if !subject.Available {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s is not open for selection", pick.SubjectCode))
		}

		current := models.NormalizeCategory(subject.Category)
		if category == "" {
			category = current
		}
		if category != current {
			return appErrors.Clone(appErrors.ErrValidation, "all picks must share one category (classique or 1275)")
		}

		if current == models.SubjectCategoryClassique && subject.Specialty != effectiveSpecialty {
			return appErrors.Clone(appErrors.ErrValidation, "classique subjects must belong to your specialty")
		}
		if current == models.SubjectCategory1275 && subject.Specialty != effectiveSpecialty {
			outOfSpecialty++
		}
	}

	if outOfSpecialty > 1 {
		return appErrors.Clone(appErrors.ErrValidation, "only one out-of-specialty 1275 subject is allowed")
	}

	return nil
}

// ComputePriorityScore is the team ranking key: the mean of member academic
// averages rounded half-up to two decimals.
func ComputePriorityScore(members []models.TeamMember) float64 {
	total := 0.0
	for _, member := range members {
		total += member.Average
	}
	mean := total / float64(len(members))
	return math.Round(mean*100) / 100
}

func firstConflictingMatricule(indexes []string, matricules []string) string {
	existing := make(map[string]bool)
	for _, index := range indexes {
		for _, matricule := range strings.Split(index, "|") {
			if matricule != "" {
				existing[matricule] = true
			}
		}
	}
	for _, matricule := range matricules {
		if existing[matricule] {
			return matricule
		}
	}
	return ""
}
