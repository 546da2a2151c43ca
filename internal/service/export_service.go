package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pfe-match/pfe-match-api/internal/models"
	appErrors "github.com/pfe-match/pfe-match-api/pkg/errors"
	"github.com/pfe-match/pfe-match-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type exportTeamReader interface {
	ListAll(ctx context.Context) ([]models.Team, error)
}

// ExportFile is a rendered export artifact ready to stream.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders the current allocation as downloadable documents.
type ExportService struct {
	teams  exportTeamReader
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(teams exportTeamReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		teams:  teams,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// Assignments renders the full allocation outcome, one row per team, in the
// requested format.
func (s *ExportService) Assignments(ctx context.Context, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	teams, err := s.teams.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teams")
	}

	dataset := buildAssignmentsDataset(teams)

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportFile{FileName: "assignments.csv", ContentType: "text/csv", Content: content}, nil
	default:
		content, err := s.pdf.Render(dataset, "Affectations PFE")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportFile{FileName: "assignments.pdf", ContentType: "application/pdf", Content: content}, nil
	}
}

func buildAssignmentsDataset(teams []models.Team) export.Dataset {
	headers := []string{"Team", "Members", "Specialty", "Score", "Status", "Subject", "Priority", "Mentor"}
	rows := make([]map[string]string, 0, len(teams))
	for _, team := range teams {
		names := make([]string, 0, len(team.Members))
		for _, member := range team.Members {
			names = append(names, fmt.Sprintf("%s %s (%s)", member.FirstName, member.LastName, member.Matricule))
		}

		row := map[string]string{
			"Team":      team.ID,
			"Members":   strings.Join(names, "; "),
			"Specialty": team.EffectiveSpecialty(),
			"Score":     strconv.FormatFloat(team.PriorityScore, 'f', 2, 64),
			"Status":    team.Status,
		}
		if team.CurrentAssignment != nil {
			row["Subject"] = team.CurrentAssignment.SubjectCode
			row["Priority"] = strconv.Itoa(team.CurrentAssignment.Priority)
		}
		if team.NeedsMentorApproval {
			row["Mentor"] = team.MentorDecision
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
