package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfe-match/pfe-match-api/internal/models"
)

func newMetricsMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMetricsRepositoryFindBySlug(t *testing.T) {
	db, mock, cleanup := newMetricsMock(t)
	defer cleanup()
	repo := NewMetricsRepository(db)

	top := `[{"subject_code":"GL01","choice_count":3}]`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, slug, top_subjects, unassigned_count, computed_at FROM allocation_metrics WHERE slug = $1")).
		WithArgs(models.MetricsSlugGlobal).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "top_subjects", "unassigned_count", "computed_at"}).
			AddRow("metrics-1", models.MetricsSlugGlobal, []byte(top), 2, time.Now()))

	metrics, err := repo.FindBySlug(context.Background(), models.MetricsSlugGlobal)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.UnassignedCount)
	require.Len(t, metrics.TopSubjects, 1)
	assert.Equal(t, models.SubjectDemand{SubjectCode: "GL01", ChoiceCount: 3}, metrics.TopSubjects[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricsRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMetricsMock(t)
	defer cleanup()
	repo := NewMetricsRepository(db)

	mock.ExpectExec("INSERT INTO allocation_metrics").
		WithArgs(sqlmock.AnyArg(), models.MetricsSlugGlobal, sqlmock.AnyArg(), 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	metrics := &models.AllocationMetrics{
		Slug:            models.MetricsSlugGlobal,
		TopSubjects:     []models.SubjectDemand{{SubjectCode: "GL01", ChoiceCount: 3}},
		UnassignedCount: 1,
	}
	err := repo.Upsert(context.Background(), metrics)
	require.NoError(t, err)
	assert.NotEmpty(t, metrics.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
