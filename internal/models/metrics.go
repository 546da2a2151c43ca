package models

import "time"

// MetricsSlugGlobal keys the single process-wide metrics record.
const MetricsSlugGlobal = "global"

// SubjectDemand counts how many teams picked a subject.
type SubjectDemand struct {
	SubjectCode string `json:"subject_code"`
	ChoiceCount int    `json:"choice_count"`
}

// AllocationMetrics is the aggregate record rewritten after every
// recomputation, upserted by slug.
type AllocationMetrics struct {
	ID              string          `json:"id"`
	Slug            string          `json:"slug"`
	TopSubjects     []SubjectDemand `json:"top_subjects"`
	UnassignedCount int             `json:"unassigned_count"`
	ComputedAt      time.Time       `json:"computed_at"`
}
