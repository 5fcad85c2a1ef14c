// Package scoring collects per-reviewer budget assessments and derives
// composite and aggregate scores. All derived values are recomputed
// server-side from stored category scores; client-submitted composites
// are ignored.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborlight-fund/grantflow/internal/model"
	"github.com/harborlight-fund/grantflow/internal/store"
)

// Category weights for the composite score. Fixed foundation policy.
const (
	weightBudgetReasonableness = 0.30
	weightCostEfficiency       = 0.25
	weightBudgetDetail         = 0.25
	weightSustainability       = 0.20
)

type Service struct {
	store store.Store
}

func New(st store.Store) *Service {
	return &Service{store: st}
}

// Scores is one reviewer's four-category rubric submission. All four
// categories are required; a partial rubric is rejected rather than
// stored incomplete.
type Scores struct {
	BudgetReasonableness int `json:"budget_reasonableness"`
	CostEfficiency       int `json:"cost_efficiency"`
	BudgetDetail         int `json:"budget_detail"`
	Sustainability       int `json:"sustainability"`
}

func (sc Scores) validate() error {
	for _, c := range []struct {
		field string
		value int
	}{
		{"budget_reasonableness", sc.BudgetReasonableness},
		{"cost_efficiency", sc.CostEfficiency},
		{"budget_detail", sc.BudgetDetail},
		{"sustainability", sc.Sustainability},
	} {
		if c.value < 1 || c.value > 5 {
			return &model.ValidationError{Field: c.field, Reason: fmt.Sprintf("must be an integer 1-5, got %d", c.value)}
		}
	}
	return nil
}

// Composite is the weighted category sum rounded to two decimals.
func Composite(sc Scores) float64 {
	raw := weightBudgetReasonableness*float64(sc.BudgetReasonableness) +
		weightCostEfficiency*float64(sc.CostEfficiency) +
		weightBudgetDetail*float64(sc.BudgetDetail) +
		weightSustainability*float64(sc.Sustainability)
	return math.Round(raw*100) / 100
}

// Submit upserts the reviewer's budget assessment and stores the
// recomputed composite alongside the category scores.
func (s *Service) Submit(ctx context.Context, applicationID string, reviewer model.Reviewer, scores Scores, notes string) (*model.BudgetAssessment, error) {
	if strings.TrimSpace(applicationID) == "" {
		return nil, &model.ValidationError{Field: "application_id", Reason: "must not be blank"}
	}
	if strings.TrimSpace(reviewer.ID) == "" {
		return nil, &model.ValidationError{Field: "reviewer_id", Reason: "must not be blank"}
	}
	if err := scores.validate(); err != nil {
		return nil, err
	}

	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status.Terminal() {
		return nil, &model.TerminalStateError{Entity: "application", ID: app.ID, Status: string(app.Status)}
	}

	composite := Composite(scores)
	a := &model.BudgetAssessment{
		ApplicationID:        applicationID,
		ReviewerID:           reviewer.ID,
		ReviewerName:         reviewer.Name,
		BudgetReasonableness: &scores.BudgetReasonableness,
		CostEfficiency:       &scores.CostEfficiency,
		BudgetDetail:         &scores.BudgetDetail,
		Sustainability:       &scores.Sustainability,
		CompositeScore:       &composite,
		Notes:                strings.TrimSpace(notes),
	}
	if err := s.store.UpsertBudgetAssessment(ctx, a); err != nil {
		return nil, eris.Wrap(err, "scoring: submit assessment")
	}

	zap.L().Info("budget assessment recorded",
		zap.String("application_id", applicationID),
		zap.String("reviewer_id", reviewer.ID),
		zap.Float64("composite", composite))
	return a, nil
}

// Aggregate is the cross-reviewer roll-up of complete assessments for
// one application. Count is the number of complete assessments the
// means were taken over; callers distinguish "no aggregate" by the nil
// return, never by a zero mean.
type Aggregate struct {
	ApplicationID            string  `json:"application_id"`
	Count                    int     `json:"count"`
	MeanBudgetReasonableness float64 `json:"mean_budget_reasonableness"`
	MeanCostEfficiency       float64 `json:"mean_cost_efficiency"`
	MeanBudgetDetail         float64 `json:"mean_budget_detail"`
	MeanSustainability       float64 `json:"mean_sustainability"`
	MeanComposite            float64 `json:"mean_composite"`
}

// AggregateScores averages category and composite scores over the
// application's complete assessments. Incomplete assessments are
// excluded; with zero complete assessments it returns (nil, nil).
func (s *Service) AggregateScores(ctx context.Context, applicationID string) (*Aggregate, error) {
	assessments, err := s.store.ListBudgetAssessments(ctx, applicationID)
	if err != nil {
		return nil, eris.Wrap(err, "scoring: aggregate")
	}

	agg := &Aggregate{ApplicationID: applicationID}
	for i := range assessments {
		a := &assessments[i]
		if !a.Complete() {
			continue
		}
		agg.Count++
		agg.MeanBudgetReasonableness += float64(*a.BudgetReasonableness)
		agg.MeanCostEfficiency += float64(*a.CostEfficiency)
		agg.MeanBudgetDetail += float64(*a.BudgetDetail)
		agg.MeanSustainability += float64(*a.Sustainability)
		agg.MeanComposite += Composite(Scores{
			BudgetReasonableness: *a.BudgetReasonableness,
			CostEfficiency:       *a.CostEfficiency,
			BudgetDetail:         *a.BudgetDetail,
			Sustainability:       *a.Sustainability,
		})
	}
	if agg.Count == 0 {
		return nil, nil
	}

	n := float64(agg.Count)
	agg.MeanBudgetReasonableness = round2(agg.MeanBudgetReasonableness / n)
	agg.MeanCostEfficiency = round2(agg.MeanCostEfficiency / n)
	agg.MeanBudgetDetail = round2(agg.MeanBudgetDetail / n)
	agg.MeanSustainability = round2(agg.MeanSustainability / n)
	agg.MeanComposite = round2(agg.MeanComposite / n)
	return agg, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
