package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/harborlight-fund/grantflow/internal/model"
	"github.com/harborlight-fund/grantflow/internal/store"
)

// CreateApplication registers a draft application directly, without an LOI.
// Kept for the legacy intake flow; LOI approval is the normal entry point.
func (s *Service) CreateApplication(ctx context.Context, app *model.Application) error {
	if err := requireField("organization_id", app.OrganizationID); err != nil {
		return err
	}
	if err := requireField("cycle_id", app.CycleID); err != nil {
		return err
	}
	app.Status = model.AppStatusDraft
	return s.store.CreateApplication(ctx, app)
}

// GetApplication returns a single application.
func (s *Service) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	return s.store.GetApplication(ctx, id)
}

// GetApplicationDetail returns an application hydrated with votes, budget
// assessments and the full status ledger.
func (s *Service) GetApplicationDetail(ctx context.Context, id string) (*model.ApplicationDetail, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	votes, err := s.store.ListVotes(ctx, id)
	if err != nil {
		return nil, err
	}
	assessments, err := s.store.ListBudgetAssessments(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.store.StatusHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ApplicationDetail{
		Application:       *app,
		Votes:             votes,
		BudgetAssessments: assessments,
		StatusHistory:     history,
	}, nil
}

// SubmitApplication moves a draft application into the review queue.
func (s *Service) SubmitApplication(ctx context.Context, id, actorName string) (*model.Application, error) {
	return s.store.TransitionApplication(ctx, store.ApplicationTransition{
		ID:          id,
		From:        []model.ApplicationStatus{model.AppStatusDraft},
		To:          model.AppStatusSubmitted,
		ActorName:   actorName,
		StampSubmit: true,
	})
}

// EnterReviewApplication marks a submitted application as under review.
// Idempotent when already under review.
func (s *Service) EnterReviewApplication(ctx context.Context, id string, reviewer model.Reviewer) (*model.Application, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status == model.AppStatusUnderReview {
		return app, nil
	}
	return s.store.TransitionApplication(ctx, store.ApplicationTransition{
		ID:        id,
		From:      []model.ApplicationStatus{model.AppStatusSubmitted},
		To:        model.AppStatusUnderReview,
		ActorName: reviewer.Name,
	})
}

// RequestInfo asks the applicant for additional information. Legal only
// from under_review; the message is recorded as the transition reason.
func (s *Service) RequestInfo(ctx context.Context, id, message string, reviewer model.Reviewer) (*model.Application, error) {
	if err := requireField("message", message); err != nil {
		return nil, err
	}
	return s.store.TransitionApplication(ctx, store.ApplicationTransition{
		ID:        id,
		From:      []model.ApplicationStatus{model.AppStatusUnderReview},
		To:        model.AppStatusInfoRequested,
		Reason:    message,
		ActorName: reviewer.Name,
	})
}

// ResumeReview returns an application to review after the applicant
// responds to an information request. Prior votes and assessments persist
// across the round trip.
func (s *Service) ResumeReview(ctx context.Context, id, actorName string) (*model.Application, error) {
	return s.store.TransitionApplication(ctx, store.ApplicationTransition{
		ID:        id,
		From:      []model.ApplicationStatus{model.AppStatusInfoRequested},
		To:        model.AppStatusUnderReview,
		Reason:    "applicant responded to information request",
		ActorName: actorName,
	})
}

// Withdraw is the applicant pulling the application out of consideration.
// Reachable from any non-terminal state.
func (s *Service) Withdraw(ctx context.Context, id, reason, actorName string) (*model.Application, error) {
	return s.store.TransitionApplication(ctx, store.ApplicationTransition{
		ID: id,
		From: []model.ApplicationStatus{
			model.AppStatusDraft, model.AppStatusSubmitted,
			model.AppStatusUnderReview, model.AppStatusInfoRequested,
		},
		To:        model.AppStatusWithdrawn,
		Reason:    reason,
		ActorName: actorName,
	})
}

// DecideApplicationParams carries a reviewer decision on an application.
type DecideApplicationParams struct {
	ID       string
	Decision model.ApplicationStatus // approved or declined
	Reason   string                  // required when declining
	Reviewer model.Reviewer
	Expected model.ApplicationStatus // optional stale-state guard
}

// DecideApplication records a terminal decision, legal from submitted,
// under_review or info_requested.
func (s *Service) DecideApplication(ctx context.Context, p DecideApplicationParams) (*model.Application, error) {
	if p.Decision != model.AppStatusApproved && p.Decision != model.AppStatusDeclined {
		return nil, &model.ValidationError{Field: "decision", Reason: "must be approved or declined"}
	}
	if p.Decision == model.AppStatusDeclined {
		if err := requireField("reason", p.Reason); err != nil {
			return nil, err
		}
	}

	from := []model.ApplicationStatus{
		model.AppStatusSubmitted, model.AppStatusUnderReview, model.AppStatusInfoRequested,
	}
	if p.Expected != "" {
		if !p.Expected.Decidable() {
			return nil, &model.PreconditionError{
				Entity: "application", ID: p.ID,
				Expected: "submitted|under_review|info_requested", Actual: string(p.Expected),
			}
		}
		from = []model.ApplicationStatus{p.Expected}
	}

	decided, err := s.store.TransitionApplication(ctx, store.ApplicationTransition{
		ID:          p.ID,
		From:        from,
		To:          p.Decision,
		Reason:      p.Reason,
		ActorName:   p.Reviewer.Name,
		StampReview: true,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("application decided",
		zap.String("application_id", decided.ID),
		zap.String("decision", string(decided.Status)),
		zap.String("reviewer", p.Reviewer.Name),
	)
	return decided, nil
}

// AddNote attaches an internal staff note to an application.
func (s *Service) AddNote(ctx context.Context, id string, note model.Note) error {
	if err := requireField("text", note.Text); err != nil {
		return err
	}
	return s.store.AddApplicationNote(ctx, id, note)
}
