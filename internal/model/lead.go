package model

import "time"

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusLost      LeadStatus = "lost"
	LeadStatusConverted LeadStatus = "converted"
)

func (s LeadStatus) String() string {
	return string(s)
}

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusLost, LeadStatusConverted:
		return true
	}
	return false
}

// Open reports whether the status still counts for dedup matching.
// lost/converted are terminal.
func (s LeadStatus) Open() bool {
	return s == LeadStatusNew || s == LeadStatusContacted || s == LeadStatusQualified
}

// OpenStatuses is the dedup-eligible status set, in one place for SQL IN clauses.
func OpenStatuses() []string {
	return []string{
		LeadStatusNew.String(),
		LeadStatusContacted.String(),
		LeadStatusQualified.String(),
	}
}

// Lead is the DB entity persisted in the leads table.
type Lead struct {
	ID                string     `db:"id"`
	TenantID          int64      `db:"tenant_id"`
	Phone             *string    `db:"phone"` // normalized digits, nullable
	Name              *string    `db:"name"`
	Email             *string    `db:"email"`
	Objective         *string    `db:"objective"`
	PropertyType      *string    `db:"property_type"`
	Neighborhood      *string    `db:"neighborhood"`
	Budget            *string    `db:"budget"`
	Urgency           *string    `db:"urgency"`
	Score             *int       `db:"score"`
	Summary           *string    `db:"summary"`
	SuggestedResponse *string    `db:"suggested_response"`
	Status            LeadStatus `db:"status"`
	Checklist         Checklist  `db:"checklist"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// Candidate carries the structured fields the analysis step extracted from a
// conversation. Nil means "the conversation said nothing about this field".
type Candidate struct {
	Phone             string   `json:"phone"`
	Name              *string  `json:"name"`
	Email             *string  `json:"email"`
	Objective         *string  `json:"objective"`
	PropertyType      *string  `json:"property_type"`
	Neighborhood      *string  `json:"neighborhood"`
	Budget            *string  `json:"budget"`
	Urgency           *string  `json:"urgency"`
	Score             *int     `json:"score"`
	Summary           *string  `json:"summary"`
	SuggestedResponse *string  `json:"suggested_response"`
	ChecklistItems    []string `json:"checklist_items"`
}
