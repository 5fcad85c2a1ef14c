package model

import "time"

// BudgetAssessment is one reviewer's four-category budget rubric for an
// application, unique per (application_id, reviewer_id). Category scores
// are 1-5; CompositeScore is derived server-side and stays nil until all
// four categories are present.
type BudgetAssessment struct {
	ID                   string     `json:"id"`
	ApplicationID        string     `json:"application_id"`
	ReviewerID           string     `json:"reviewer_id"`
	ReviewerName         string     `json:"reviewer_name"`
	BudgetReasonableness *int       `json:"budget_reasonableness,omitempty"`
	CostEfficiency       *int       `json:"cost_efficiency,omitempty"`
	BudgetDetail         *int       `json:"budget_detail,omitempty"`
	Sustainability       *int       `json:"sustainability,omitempty"`
	CompositeScore       *float64   `json:"composite_score,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Complete reports whether all four category scores are present.
func (a *BudgetAssessment) Complete() bool {
	return a.BudgetReasonableness != nil && a.CostEfficiency != nil &&
		a.BudgetDetail != nil && a.Sustainability != nil
}
