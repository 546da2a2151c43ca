package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/pfe-match/pfe-match-api/internal/models"
)

// MetricsRepository persists the allocation metrics singleton.
type MetricsRepository struct {
	db *sqlx.DB
}

// NewMetricsRepository creates a new repository instance.
func NewMetricsRepository(db *sqlx.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

type metricsRow struct {
	ID              string         `db:"id"`
	Slug            string         `db:"slug"`
	TopSubjects     types.JSONText `db:"top_subjects"`
	UnassignedCount int            `db:"unassigned_count"`
	ComputedAt      time.Time      `db:"computed_at"`
}

// FindBySlug loads a metrics record by its fixed slug.
func (r *MetricsRepository) FindBySlug(ctx context.Context, slug string) (*models.AllocationMetrics, error) {
	const query = `SELECT id, slug, top_subjects, unassigned_count, computed_at FROM allocation_metrics WHERE slug = $1`
	var row metricsRow
	if err := r.db.GetContext(ctx, &row, query, slug); err != nil {
		return nil, err
	}

	metrics := &models.AllocationMetrics{
		ID:              row.ID,
		Slug:            row.Slug,
		UnassignedCount: row.UnassignedCount,
		ComputedAt:      row.ComputedAt,
	}
	if len(row.TopSubjects) > 0 {
		if err := json.Unmarshal(row.TopSubjects, &metrics.TopSubjects); err != nil {
			return nil, fmt.Errorf("decode top subjects: %w", err)
		}
	}
	return metrics, nil
}

// Upsert creates the slug-keyed record if absent, otherwise rewrites it.
func (r *MetricsRepository) Upsert(ctx context.Context, metrics *models.AllocationMetrics) error {
	if metrics.ID == "" {
		metrics.ID = uuid.NewString()
	}
	if metrics.ComputedAt.IsZero() {
		metrics.ComputedAt = time.Now().UTC()
	}
	top := metrics.TopSubjects
	if top == nil {
		top = []models.SubjectDemand{}
	}
	payload, err := json.Marshal(top)
	if err != nil {
		return fmt.Errorf("encode top subjects: %w", err)
	}

	row := metricsRow{
		ID:              metrics.ID,
		Slug:            metrics.Slug,
		TopSubjects:     types.JSONText(payload),
		UnassignedCount: metrics.UnassignedCount,
		ComputedAt:      metrics.ComputedAt,
	}

	const query = `INSERT INTO allocation_metrics (id, slug, top_subjects, unassigned_count, computed_at)
		VALUES (:id, :slug, :top_subjects, :unassigned_count, :computed_at)
		ON CONFLICT (slug) DO UPDATE SET
			top_subjects = EXCLUDED.top_subjects,
			unassigned_count = EXCLUDED.unassigned_count,
			computed_at = EXCLUDED.computed_at`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert allocation metrics: %w", err)
	}
	return nil
}
