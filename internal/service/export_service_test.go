package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfe-match/pfe-match-api/internal/models"
	appErrors "github.com/pfe-match/pfe-match-api/pkg/errors"
)

func exportFixtureTeams() []models.Team {
	return []models.Team{
		{
			ID:            "team-1",
			Members:       []models.TeamMember{{Matricule: "M100", FirstName: "Amine", LastName: "B", Specialty: "GL"}},
			Specialty:     "GL",
			PriorityScore: 15.25,
			Status:        models.TeamStatusAssigned,
			CurrentAssignment: &models.Assignment{
				SubjectCode: "GL01",
				Priority:    1,
			},
		},
		{
			ID:            "team-2",
			Members:       []models.TeamMember{{Matricule: "M200", FirstName: "Lina", LastName: "K", Specialty: "GL"}},
			Specialty:     "GL",
			PriorityScore: 12.0,
			Status:        models.TeamStatusUnassigned,
		},
	}
}

func TestExportServiceAssignmentsCSV(t *testing.T) {
	svc := NewExportService(&teamStoreStub{teams: exportFixtureTeams()}, nil)

	file, err := svc.Assignments(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, "assignments.csv", file.FileName)
	assert.Equal(t, "text/csv", file.ContentType)

	content := string(file.Content)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Subject")
	assert.Contains(t, content, "Amine B (M100)")
	assert.Contains(t, content, "GL01")
	assert.Contains(t, content, "unassigned")
}

func TestExportServiceAssignmentsPDF(t *testing.T) {
	svc := NewExportService(&teamStoreStub{teams: exportFixtureTeams()}, nil)

	file, err := svc.Assignments(context.Background(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "assignments.pdf", file.FileName)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestExportServiceAssignmentsUnknownFormat(t *testing.T) {
	svc := NewExportService(&teamStoreStub{}, nil)

	_, err := svc.Assignments(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
