package model

import "time"

// LOIStatus represents the current state of a Letter of Interest.
type LOIStatus string

const (
	LOIStatusDraft       LOIStatus = "draft"
	LOIStatusSubmitted   LOIStatus = "submitted"
	LOIStatusUnderReview LOIStatus = "under_review"
	LOIStatusApproved    LOIStatus = "approved"
	LOIStatusDeclined    LOIStatus = "declined"
)

// loiTransitions is the closed edge set of the LOI state machine. New
// states or edges are added here and nowhere else.
var loiTransitions = map[LOIStatus][]LOIStatus{
	LOIStatusDraft:       {LOIStatusSubmitted},
	LOIStatusSubmitted:   {LOIStatusUnderReview, LOIStatusApproved, LOIStatusDeclined},
	LOIStatusUnderReview: {LOIStatusApproved, LOIStatusDeclined},
}

// Valid reports whether s is a known LOI status.
func (s LOIStatus) Valid() bool {
	switch s {
	case LOIStatusDraft, LOIStatusSubmitted, LOIStatusUnderReview, LOIStatusApproved, LOIStatusDeclined:
		return true
	}
	return false
}

// Terminal reports whether no pipeline transition leaves s.
func (s LOIStatus) Terminal() bool {
	return s == LOIStatusApproved || s == LOIStatusDeclined
}

// CanTransition reports whether the edge s -> to exists.
func (s LOIStatus) CanTransition(to LOIStatus) bool {
	for _, next := range loiTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Decidable reports whether a reviewer decision is legal from s.
func (s LOIStatus) Decidable() bool {
	return s == LOIStatusSubmitted || s == LOIStatusUnderReview
}

// LOI is a Letter of Interest, the short-form submission gating a full
// Application. One per organization per grant cycle.
type LOI struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	CycleID        string     `json:"cycle_id"`
	Status         LOIStatus  `json:"status"`
	ContactEmail   string     `json:"contact_email"`
	Summary        string     `json:"summary,omitempty"`
	AISummary      string     `json:"ai_summary,omitempty"` // precomputed upstream, opaque here
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ReviewedByName string     `json:"reviewed_by_name,omitempty"`
	DecisionReason string     `json:"decision_reason,omitempty"`
	ApplicationID  string     `json:"application_id,omitempty"` // set exactly once, on approval
	ReleasedAt     *time.Time `json:"released_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Decided reports whether the LOI has reached a terminal decision.
func (l *LOI) Decided() bool {
	return l.Status.Terminal()
}

// PendingRelease reports whether the decision exists but has not been
// disclosed to the applicant.
func (l *LOI) PendingRelease() bool {
	return l.ReviewedAt != nil && l.Status.Terminal() && l.ReleasedAt == nil
}
