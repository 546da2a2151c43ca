package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/pfe-match/pfe-match-api/internal/models"
)

// TeamRepository handles persistence for accepted choice submissions.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository creates a new repository instance.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = "id, mode, members, members_index, specialty, picks, priority_score, status, current_assignment, needs_mentor_approval, mentor_decision, needs_attention, queue_positions, locked, created_at, updated_at"

// teamRow mirrors the teams table; jsonb columns travel as raw JSON and are
// mapped to the typed model at this boundary.
type teamRow struct {
	ID                  string         `db:"id"`
	Mode                string         `db:"mode"`
	Members             types.JSONText `db:"members"`
	MembersIndex        string         `db:"members_index"`
	Specialty           string         `db:"specialty"`
	Picks               types.JSONText `db:"picks"`
	PriorityScore       float64        `db:"priority_score"`
	Status              string         `db:"status"`
	CurrentAssignment   types.JSONText `db:"current_assignment"`
	NeedsMentorApproval bool           `db:"needs_mentor_approval"`
	MentorDecision      string         `db:"mentor_decision"`
	NeedsAttention      bool           `db:"needs_attention"`
	QueuePositions      types.JSONText `db:"queue_positions"`
	Locked              bool           `db:"locked"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func (row teamRow) toModel() (models.Team, error) {
	team := models.Team{
		ID:                  row.ID,
		Mode:                row.Mode,
		MembersIndex:        row.MembersIndex,
		Specialty:           row.Specialty,
		PriorityScore:       row.PriorityScore,
		Status:              row.Status,
		NeedsMentorApproval: row.NeedsMentorApproval,
		MentorDecision:      row.MentorDecision,
		NeedsAttention:      row.NeedsAttention,
		Locked:              row.Locked,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Members, &team.Members); err != nil {
		return team, fmt.Errorf("decode team %s members: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Picks, &team.Picks); err != nil {
		return team, fmt.Errorf("decode team %s picks: %w", row.ID, err)
	}
	if len(row.CurrentAssignment) > 0 {
		if err := json.Unmarshal(row.CurrentAssignment, &team.CurrentAssignment); err != nil {
			return team, fmt.Errorf("decode team %s assignment: %w", row.ID, err)
		}
	}
	if len(row.QueuePositions) > 0 {
		if err := json.Unmarshal(row.QueuePositions, &team.QueuePositions); err != nil {
			return team, fmt.Errorf("decode team %s queue positions: %w", row.ID, err)
		}
	}
	return team, nil
}

func teamToRow(team *models.Team) (*teamRow, error) {
	members, err := json.Marshal(team.Members)
	if err != nil {
		return nil, fmt.Errorf("encode team members: %w", err)
	}
	picks, err := json.Marshal(team.Picks)
	if err != nil {
		return nil, fmt.Errorf("encode team picks: %w", err)
	}
	assignment, err := json.Marshal(team.CurrentAssignment)
	if err != nil {
		return nil, fmt.Errorf("encode team assignment: %w", err)
	}
	positions := team.QueuePositions
	if positions == nil {
		positions = []models.QueuePosition{}
	}
	queue, err := json.Marshal(positions)
	if err != nil {
		return nil, fmt.Errorf("encode team queue positions: %w", err)
	}

	return &teamRow{
		ID:                  team.ID,
		Mode:                team.Mode,
		Members:             types.JSONText(members),
		MembersIndex:        team.MembersIndex,
		Specialty:           team.Specialty,
		Picks:               types.JSONText(picks),
		PriorityScore:       team.PriorityScore,
		Status:              team.Status,
		CurrentAssignment:   types.JSONText(assignment),
		NeedsMentorApproval: team.NeedsMentorApproval,
		MentorDecision:      team.MentorDecision,
		NeedsAttention:      team.NeedsAttention,
		QueuePositions:      types.JSONText(queue),
		Locked:              team.Locked,
		CreatedAt:           team.CreatedAt,
		UpdatedAt:           team.UpdatedAt,
	}, nil
}

// Create persists a new accepted submission.
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if team.CreatedAt.IsZero() {
		team.CreatedAt = now
	}
	team.UpdatedAt = now

	row, err := teamToRow(team)
	if err != nil {
		return err
	}

	const query = `INSERT INTO teams (id, mode, members, members_index, specialty, picks, priority_score, status,
		current_assignment, needs_mentor_approval, mentor_decision, needs_attention, queue_positions, locked, created_at, updated_at)
		VALUES (:id, :mode, :members, :members_index, :specialty, :picks, :priority_score, :status,
		:current_assignment, :needs_mentor_approval, :mentor_decision, :needs_attention, :queue_positions, :locked, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

// FindByID returns a submission by id.
func (r *TeamRepository) FindByID(ctx context.Context, id string) (*models.Team, error) {
	query := fmt.Sprintf("SELECT %s FROM teams WHERE id = $1", teamColumns)
	var row teamRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	team, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// ListAll returns every accepted submission ordered by creation time.
// This is the allocation snapshot read.
func (r *TeamRepository) ListAll(ctx context.Context) ([]models.Team, error) {
	query := fmt.Sprintf("SELECT %s FROM teams ORDER BY created_at ASC", teamColumns)
	var rows []teamRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all teams: %w", err)
	}

	teams := make([]models.Team, 0, len(rows))
	for _, row := range rows {
		team, err := row.toModel()
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

// List returns submissions matching filters with pagination metadata.
func (r *TeamRepository) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error) {
	base := "FROM teams WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Specialty != "" {
		conditions = append(conditions, fmt.Sprintf("specialty = $%d", len(args)+1))
		args = append(args, filter.Specialty)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY priority_score DESC, created_at ASC LIMIT %d OFFSET %d", teamColumns, base, size, offset)
	var rows []teamRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teams: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teams: %w", err)
	}

	teams := make([]models.Team, 0, len(rows))
	for _, row := range rows {
		team, err := row.toModel()
		if err != nil {
			return nil, 0, err
		}
		teams = append(teams, team)
	}
	return teams, total, nil
}

// ListMembersIndexes returns every accepted submission's duplicate-
// participation key.
func (r *TeamRepository) ListMembersIndexes(ctx context.Context) ([]string, error) {
	var indexes []string
	if err := r.db.SelectContext(ctx, &indexes, `SELECT members_index FROM teams`); err != nil {
		return nil, fmt.Errorf("list members indexes: %w", err)
	}
	return indexes, nil
}

// ApplyAllocationUpdate rewrites the mutable allocation fields of one team.
func (r *TeamRepository) ApplyAllocationUpdate(ctx context.Context, update models.TeamAllocationUpdate) error {
	assignment, err := json.Marshal(update.CurrentAssignment)
	if err != nil {
		return fmt.Errorf("encode assignment update: %w", err)
	}
	positions := update.QueuePositions
	if positions == nil {
		positions = []models.QueuePosition{}
	}
	queue, err := json.Marshal(positions)
	if err != nil {
		return fmt.Errorf("encode queue position update: %w", err)
	}

	const query = `UPDATE teams SET status = $1, current_assignment = $2, needs_mentor_approval = $3,
		needs_attention = $4, queue_positions = $5, updated_at = $6 WHERE id = $7`
	if _, err := r.db.ExecContext(ctx, query, update.Status, types.JSONText(assignment), update.NeedsMentorApproval,
		update.NeedsAttention, types.JSONText(queue), time.Now().UTC(), update.TeamID); err != nil {
		return fmt.Errorf("apply allocation update: %w", err)
	}
	return nil
}

// UpdateMentorDecision records a mentor's sign-off on a 1275 assignment.
func (r *TeamRepository) UpdateMentorDecision(ctx context.Context, id, decision string) error {
	const query = `UPDATE teams SET mentor_decision = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, decision, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update mentor decision: %w", err)
	}
	return nil
}
