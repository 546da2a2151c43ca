package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pfe-match/pfe-match-api/internal/models"
	appErrors "github.com/pfe-match/pfe-match-api/pkg/errors"
)

const summaryCacheKey = "dashboard:summary"

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type dashboardMetricsReader interface {
	FindBySlug(ctx context.Context, slug string) (*models.AllocationMetrics, error)
}

type dashboardTeamReader interface {
	ListAll(ctx context.Context) ([]models.Team, error)
}

// DashboardSummary aggregates the state of the current selection window.
type DashboardSummary struct {
	TotalTeams      int                    `json:"total_teams"`
	AssignedTeams   int                    `json:"assigned_teams"`
	PendingTeams    int                    `json:"pending_teams"`
	UnassignedTeams int                    `json:"unassigned_teams"`
	AwaitingMentor  int                    `json:"awaiting_mentor"`
	TopSubjects     []models.SubjectDemand `json:"top_subjects"`
	ComputedAt      *time.Time             `json:"computed_at,omitempty"`
}

// DashboardService builds the admin summary, served cache-aside from Redis
// and invalidated after every recomputation.
type DashboardService struct {
	metrics dashboardMetricsReader
	teams   dashboardTeamReader
	cache   summaryCache
	logger  *zap.Logger
	ttl     time.Duration
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(metrics dashboardMetricsReader, teams dashboardTeamReader, cache summaryCache, logger *zap.Logger, ttl time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &DashboardService{metrics: metrics, teams: teams, cache: cache, logger: logger, ttl: ttl}
}

// Summary returns the dashboard aggregate, preferring the cached copy.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	if s.cache != nil {
		cached := &DashboardSummary{}
		err := s.cache.Get(ctx, summaryCacheKey, cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Sugar().Warnw("dashboard cache read failed", "error", err)
		}
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summaryCacheKey, summary, s.ttl); err != nil {
			s.logger.Sugar().Warnw("dashboard cache write failed", "error", err)
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary. Called after each allocation pass.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, summaryCacheKey); err != nil {
		s.logger.Sugar().Warnw("dashboard cache invalidation failed", "error", err)
	}
}

func (s *DashboardService) build(ctx context.Context) (*DashboardSummary, error) {
	teams, err := s.teams.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teams")
	}

	summary := &DashboardSummary{TotalTeams: len(teams), TopSubjects: []models.SubjectDemand{}}
	for _, team := range teams {
		switch team.Status {
		case models.TeamStatusAssigned:
			summary.AssignedTeams++
		case models.TeamStatusUnassigned:
			summary.UnassignedTeams++
		default:
			summary.PendingTeams++
		}
		if team.NeedsMentorApproval && team.MentorDecision == models.MentorDecisionPending {
			summary.AwaitingMentor++
		}
	}

	metrics, err := s.metrics.FindBySlug(ctx, models.MetricsSlugGlobal)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation metrics")
		}
	} else {
		summary.TopSubjects = metrics.TopSubjects
		computedAt := metrics.ComputedAt
		summary.ComputedAt = &computedAt
	}

	return summary, nil
}
