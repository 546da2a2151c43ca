package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pfe-match/pfe-match-api/internal/models"
	appErrors "github.com/pfe-match/pfe-match-api/pkg/errors"
)

type allocationSubjectReader interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type allocationTeamStore interface {
	ListAll(ctx context.Context) ([]models.Team, error)
	ApplyAllocationUpdate(ctx context.Context, update models.TeamAllocationUpdate) error
}

type allocationMetricsWriter interface {
	Upsert(ctx context.Context, metrics *models.AllocationMetrics) error
}

type summaryInvalidator interface {
	Invalidate(ctx context.Context)
}

// AllocationConfig tunes one recomputation pass.
type AllocationConfig struct {
	TopSubjects int
}

// AllocationService recomputes the full team-to-subject assignment from
// scratch on every invocation. The computation is a pure function of the
// snapshot it reads; all writes happen only after the complete result is
// known, so a failed run is equivalent to no run.
type AllocationService struct {
	subjects allocationSubjectReader
	teams    allocationTeamStore
	metrics  allocationMetricsWriter
	summary  summaryInvalidator
	instr    *MetricsService
	logger   *zap.Logger
	topN     int
}

// NewAllocationService wires the engine's collaborators.
func NewAllocationService(
	subjects allocationSubjectReader,
	teams allocationTeamStore,
	metrics allocationMetricsWriter,
	summary summaryInvalidator,
	instr *MetricsService,
	logger *zap.Logger,
	cfg AllocationConfig,
) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopSubjects <= 0 {
		cfg.TopSubjects = 5
	}
	return &AllocationService{
		subjects: subjects,
		teams:    teams,
		metrics:  metrics,
		summary:  summary,
		instr:    instr,
		logger:   logger,
		topN:     cfg.TopSubjects,
	}
}

// Recompute reads the full snapshot, derives every team's allocation fields
// and the global metrics, and persists them. Invocations are expected to be
// serialized by the caller (the recompute queue runs a single worker).
func (s *AllocationService) Recompute(ctx context.Context) (*models.AllocationMetrics, error) {
	start := time.Now()

	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		s.observeRun(start, false, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject snapshot")
	}
	teams, err := s.teams.ListAll(ctx)
	if err != nil {
		s.observeRun(start, false, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team snapshot")
	}

	result := computeAllocation(subjects, teams, s.topN)

	for _, update := range result.Updates {
		if err := s.teams.ApplyAllocationUpdate(ctx, update); err != nil {
			s.observeRun(start, false, 0)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist team allocation")
		}
	}

	metrics := &models.AllocationMetrics{
		Slug:            models.MetricsSlugGlobal,
		TopSubjects:     result.TopSubjects,
		UnassignedCount: result.UnassignedCount,
		ComputedAt:      time.Now().UTC(),
	}
	if err := s.metrics.Upsert(ctx, metrics); err != nil {
		s.observeRun(start, false, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist allocation metrics")
	}

	if s.summary != nil {
		s.summary.Invalidate(ctx)
	}

	s.observeRun(start, true, result.UnassignedCount)
	s.logger.Sugar().Infow("allocation recomputed",
		"teams", len(teams),
		"subjects", len(subjects),
		"unassigned", result.UnassignedCount,
		"duration", time.Since(start),
	)
	return metrics, nil
}

func (s *AllocationService) observeRun(start time.Time, success bool, unassigned int) {
	if s.instr == nil {
		return
	}
	s.instr.ObserveRecompute(time.Since(start), success, unassigned)
}

// --- Pure allocation pass ---

type allocationResult struct {
	Updates         []models.TeamAllocationUpdate
	TopSubjects     []models.SubjectDemand
	UnassignedCount int
}

type queueCandidate struct {
	teamID   string
	priority int
	score    float64
}

type subjectState struct {
	code     string
	category string
	capacity int
	queue    []queueCandidate
	assigned int
}

// computeAllocation derives the complete allocation outcome for a snapshot.
// It never mutates its inputs; re-running it on the same snapshot yields the
// same result.
func computeAllocation(subjects []models.Subject, teams []models.Team, topN int) allocationResult {
	states := make(map[string]*subjectState, len(subjects))
	codes := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		code := subject.Code
		if _, exists := states[code]; exists {
			continue
		}
		states[code] = &subjectState{
			code:     code,
			category: models.NormalizeCategory(subject.Category),
			capacity: subject.EffectiveCapacity(),
		}
		codes = append(codes, code)
	}
	sort.Strings(codes)

	// One global allocation order: score descending, earlier submission
	// wins ties, id as the final deterministic fallback.
	ordered := make([]models.Team, len(teams))
	copy(ordered, teams)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PriorityScore != ordered[j].PriorityScore {
			return ordered[i].PriorityScore > ordered[j].PriorityScore
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	// Demand queues collect every pick from every team, regardless of the
	// team's eventual outcome. Picks referencing codes absent from the
	// catalog are skipped.
	for _, team := range ordered {
		for _, pick := range team.Picks {
			state, ok := states[pick.SubjectCode]
			if !ok {
				continue
			}
			state.queue = append(state.queue, queueCandidate{
				teamID:   team.ID,
				priority: pick.Priority,
				score:    team.PriorityScore,
			})
		}
	}

	queuePositions := make(map[string][]models.QueuePosition, len(teams))
	for _, code := range codes {
		state := states[code]
		sort.SliceStable(state.queue, func(i, j int) bool {
			if state.queue[i].score != state.queue[j].score {
				return state.queue[i].score > state.queue[j].score
			}
			return state.queue[i].priority < state.queue[j].priority
		})
		for index, candidate := range state.queue {
			queuePositions[candidate.teamID] = append(queuePositions[candidate.teamID], models.QueuePosition{
				SubjectCode: code,
				Position:    index + 1,
			})
		}
	}

	// Greedy single pass: each team takes its most preferred pick with
	// remaining capacity. Capacity is consumed strictly in global order.
	assignments := make(map[string]*models.Assignment, len(ordered))
	for _, team := range ordered {
		picks := make([]models.Pick, len(team.Picks))
		copy(picks, team.Picks)
		sort.SliceStable(picks, func(i, j int) bool {
			return picks[i].Priority < picks[j].Priority
		})

		for _, pick := range picks {
			state, ok := states[pick.SubjectCode]
			if !ok {
				continue
			}
			if state.assigned < state.capacity {
				state.assigned++
				assignments[team.ID] = &models.Assignment{
					SubjectCode: pick.SubjectCode,
					Priority:    pick.Priority,
				}
				break
			}
		}
	}

	result := allocationResult{Updates: make([]models.TeamAllocationUpdate, 0, len(teams))}
	for _, team := range teams {
		update := models.TeamAllocationUpdate{
			TeamID:         team.ID,
			QueuePositions: queuePositions[team.ID],
		}
		if assignment := assignments[team.ID]; assignment != nil {
			update.Status = models.TeamStatusAssigned
			update.CurrentAssignment = assignment
			update.NeedsMentorApproval = states[assignment.SubjectCode].category == models.SubjectCategory1275
		} else {
			update.Status = models.TeamStatusUnassigned
			update.NeedsAttention = true
			result.UnassignedCount++
		}
		result.Updates = append(result.Updates, update)
	}

	demand := make([]models.SubjectDemand, 0, len(codes))
	for _, code := range codes {
		demand = append(demand, models.SubjectDemand{
			SubjectCode: code,
			ChoiceCount: len(states[code].queue),
		})
	}
	sort.SliceStable(demand, func(i, j int) bool {
		if demand[i].ChoiceCount != demand[j].ChoiceCount {
			return demand[i].ChoiceCount > demand[j].ChoiceCount
		}
		return demand[i].SubjectCode < demand[j].SubjectCode
	})
	if len(demand) > topN {
		demand = demand[:topN]
	}
	result.TopSubjects = demand

	return result
}
