package model

import "time"

// VoteChoice is a reviewer's ballot value on an application.
type VoteChoice string

const (
	VoteApprove VoteChoice = "approve"
	VoteDecline VoteChoice = "decline"
	VoteAbstain VoteChoice = "abstain"
)

// Valid reports whether c is a known ballot value.
func (c VoteChoice) Valid() bool {
	return c == VoteApprove || c == VoteDecline || c == VoteAbstain
}

// Vote is one reviewer's ballot on an application, unique per
// (application_id, reviewer_id). Re-submission overwrites in place.
// Votes are advisory input to the decision, never a decision trigger.
type Vote struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"application_id"`
	ReviewerID    string     `json:"reviewer_id"`
	ReviewerName  string     `json:"reviewer_name"`
	Choice        VoteChoice `json:"choice"`
	Reasoning     string     `json:"reasoning,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Reviewer is the identity the external role collaborator supplies with
// every pipeline call. The pipeline trusts but does not resolve it.
type Reviewer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}
