package models

import (
	"sort"
	"strings"
	"time"
)

// Submission modes.
const (
	ModeMonome = "monome"
	ModeBinome = "binome"
)

// Team statuses. Waiting exists in the legacy record format; recomputation
// only ever produces assigned or unassigned.
const (
	TeamStatusPending    = "pending"
	TeamStatusAssigned   = "assigned"
	TeamStatusWaiting    = "waiting"
	TeamStatusUnassigned = "unassigned"
)

// Mentor decisions for 1275-category assignments.
const (
	MentorDecisionPending  = "pending"
	MentorDecisionApproved = "approved"
	MentorDecisionRejected = "rejected"
)

// TeamMember is a student snapshot embedded in a submission. Submissions are
// immutable once accepted, so member data is frozen at submission time.
type TeamMember struct {
	Matricule string  `json:"matricule"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Specialty string  `json:"specialty"`
	Average   float64 `json:"average"`
}

// Pick is one ranked subject choice. Lower priority means more preferred.
type Pick struct {
	SubjectCode    string `json:"subject_code"`
	Priority       int    `json:"priority"`
	OutOfSpecialty bool   `json:"out_of_specialty"`
}

// Assignment identifies the subject a team currently holds and the stated
// priority the team gave it.
type Assignment struct {
	SubjectCode string `json:"subject_code"`
	Priority    int    `json:"priority"`
}

// QueuePosition is a team's 1-based rank in one subject's demand queue.
type QueuePosition struct {
	SubjectCode string `json:"subject_code"`
	Position    int    `json:"position"`
}

// Team is one accepted choice submission.
type Team struct {
	ID                  string          `json:"id"`
	Mode                string          `json:"mode"`
	Members             []TeamMember    `json:"members"`
	MembersIndex        string          `json:"members_index"`
	Specialty           string          `json:"specialty"`
	Picks               []Pick          `json:"picks"`
	PriorityScore       float64         `json:"priority_score"`
	Status              string          `json:"status"`
	CurrentAssignment   *Assignment     `json:"current_assignment,omitempty"`
	NeedsMentorApproval bool            `json:"needs_mentor_approval"`
	MentorDecision      string          `json:"mentor_decision"`
	NeedsAttention      bool            `json:"needs_attention"`
	QueuePositions      []QueuePosition `json:"queue_positions"`
	Locked              bool            `json:"locked"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// EffectiveSpecialty is the declared specialty, falling back to the first
// member's when none was declared.
func (t Team) EffectiveSpecialty() string {
	if t.Specialty != "" {
		return t.Specialty
	}
	if len(t.Members) > 0 {
		return t.Members[0].Specialty
	}
	return ""
}

// BuildMembersIndex derives the duplicate-participation key: sorted,
// pipe-joined matriculation ids.
func BuildMembersIndex(matricules []string) string {
	sorted := make([]string, len(matricules))
	copy(sorted, matricules)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// TeamAllocationUpdate is the set of mutable fields one recomputation pass
// rewrites for a team. The engine produces complete field-sets before any
// write happens.
type TeamAllocationUpdate struct {
	TeamID              string
	Status              string
	CurrentAssignment   *Assignment
	NeedsMentorApproval bool
	NeedsAttention      bool
	QueuePositions      []QueuePosition
}

// TeamFilter captures supported list filters for submissions.
type TeamFilter struct {
	Status    string
	Specialty string
	Page      int
	PageSize  int
}
