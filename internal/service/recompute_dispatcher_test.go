package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfe-match/pfe-match-api/internal/models"
)

func TestRecomputeDispatcherRunsEngine(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	subjects := subjectReaderStub{subjects: []models.Subject{allocSubject("S1", models.SubjectCategoryClassique, 1)}}
	teams := &teamStoreStub{teams: []models.Team{
		allocTeam("team-a", 15.0, base, models.Pick{SubjectCode: "S1", Priority: 1}),
	}}
	metrics := &metricsWriterStub{}

	allocation := NewAllocationService(subjects, teams, metrics, nil, nil, nil, AllocationConfig{})
	dispatcher := NewRecomputeDispatcher(context.Background(), allocation, 4, nil)
	defer dispatcher.Stop()

	require.NoError(t, dispatcher.TriggerRecompute("team-a"))

	assert.Eventually(t, func() bool {
		return metrics.lastSaved() != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecomputeDispatcherStopIsIdempotent(t *testing.T) {
	subjects := subjectReaderStub{}
	teams := &teamStoreStub{}
	metrics := &metricsWriterStub{}

	allocation := NewAllocationService(subjects, teams, metrics, nil, nil, nil, AllocationConfig{})
	dispatcher := NewRecomputeDispatcher(context.Background(), allocation, 1, nil)

	dispatcher.Stop()
	dispatcher.Stop()
}
