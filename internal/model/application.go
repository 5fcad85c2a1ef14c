package model

import "time"

// ApplicationStatus represents the current state of a full Application.
type ApplicationStatus string

const (
	AppStatusDraft         ApplicationStatus = "draft"
	AppStatusSubmitted     ApplicationStatus = "submitted"
	AppStatusUnderReview   ApplicationStatus = "under_review"
	AppStatusInfoRequested ApplicationStatus = "info_requested"
	AppStatusApproved      ApplicationStatus = "approved"
	AppStatusDeclined      ApplicationStatus = "declined"
	AppStatusWithdrawn     ApplicationStatus = "withdrawn"
)

// appTransitions is the closed edge set of the Application state machine.
// WITHDRAWN is handled separately: it is reachable from any non-terminal
// state by applicant action.
var appTransitions = map[ApplicationStatus][]ApplicationStatus{
	AppStatusDraft:         {AppStatusSubmitted},
	AppStatusSubmitted:     {AppStatusUnderReview, AppStatusApproved, AppStatusDeclined},
	AppStatusUnderReview:   {AppStatusInfoRequested, AppStatusApproved, AppStatusDeclined},
	AppStatusInfoRequested: {AppStatusUnderReview, AppStatusApproved, AppStatusDeclined},
}

// Valid reports whether s is a known Application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case AppStatusDraft, AppStatusSubmitted, AppStatusUnderReview,
		AppStatusInfoRequested, AppStatusApproved, AppStatusDeclined, AppStatusWithdrawn:
		return true
	}
	return false
}

// Terminal reports whether no pipeline transition leaves s.
func (s ApplicationStatus) Terminal() bool {
	return s == AppStatusApproved || s == AppStatusDeclined || s == AppStatusWithdrawn
}

// CanTransition reports whether the edge s -> to exists.
func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	if to == AppStatusWithdrawn {
		return !s.Terminal()
	}
	for _, next := range appTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Decidable reports whether a reviewer decision is legal from s.
func (s ApplicationStatus) Decidable() bool {
	return s == AppStatusSubmitted || s == AppStatusUnderReview || s == AppStatusInfoRequested
}

// Note is an internal comment attached to an application by staff.
type Note struct {
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Application is a full grant application, one per approved LOI. LOIID is
// empty for applications created directly in the legacy flow.
type Application struct {
	ID                 string            `json:"id"`
	LOIID              string            `json:"loi_id,omitempty"`
	OrganizationID     string            `json:"organization_id"`
	CycleID            string            `json:"cycle_id"`
	Status             ApplicationStatus `json:"status"`
	SubmittedAt        *time.Time        `json:"submitted_at,omitempty"`
	AmountRequested    float64           `json:"amount_requested"`
	TotalProjectBudget float64           `json:"total_project_budget"`
	Notes              []Note            `json:"notes,omitempty"`
	ReviewedAt         *time.Time        `json:"reviewed_at,omitempty"`
	ReviewedByName     string            `json:"reviewed_by_name,omitempty"`
	DecisionReason     string            `json:"decision_reason,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ApplicationDetail is an application hydrated with its review artifacts.
type ApplicationDetail struct {
	Application
	Votes             []Vote               `json:"votes"`
	BudgetAssessments []BudgetAssessment   `json:"budget_assessments"`
	StatusHistory     []StatusHistoryEntry `json:"status_history"`
}
