package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/harborlight-fund/grantflow/internal/model"
	"github.com/harborlight-fund/grantflow/internal/store"
)

// CreateLOI registers a new draft LOI for an organization and cycle.
func (s *Service) CreateLOI(ctx context.Context, loi *model.LOI) error {
	if err := requireField("organization_id", loi.OrganizationID); err != nil {
		return err
	}
	if err := requireField("cycle_id", loi.CycleID); err != nil {
		return err
	}
	loi.Status = model.LOIStatusDraft
	return s.store.CreateLOI(ctx, loi)
}

// GetLOI returns a single LOI.
func (s *Service) GetLOI(ctx context.Context, id string) (*model.LOI, error) {
	return s.store.GetLOI(ctx, id)
}

// ListLOIs returns LOIs matching the filter.
func (s *Service) ListLOIs(ctx context.Context, f store.LOIFilter) ([]model.LOI, error) {
	return s.store.ListLOIs(ctx, f)
}

// SubmitLOI moves a draft LOI into the review queue.
func (s *Service) SubmitLOI(ctx context.Context, id, actorName string) (*model.LOI, error) {
	return s.store.TransitionLOI(ctx, store.LOITransition{
		ID:          id,
		From:        []model.LOIStatus{model.LOIStatusDraft},
		To:          model.LOIStatusSubmitted,
		ActorName:   actorName,
		StampSubmit: true,
	})
}

// EnterReviewLOI marks a submitted LOI as under review. Triggered by the
// first reviewer opening the item; re-opening an already-under-review LOI
// is a no-op, not an error.
func (s *Service) EnterReviewLOI(ctx context.Context, id string, reviewer model.Reviewer) (*model.LOI, error) {
	loi, err := s.store.GetLOI(ctx, id)
	if err != nil {
		return nil, err
	}
	if loi.Status == model.LOIStatusUnderReview {
		return loi, nil
	}
	return s.store.TransitionLOI(ctx, store.LOITransition{
		ID:        id,
		From:      []model.LOIStatus{model.LOIStatusSubmitted},
		To:        model.LOIStatusUnderReview,
		ActorName: reviewer.Name,
	})
}

// DecideLOIParams carries a reviewer decision on an LOI.
type DecideLOIParams struct {
	ID       string
	Decision model.LOIStatus // approved or declined
	Reason   string          // required when declining
	Note     string          // optional internal note when approving
	Reviewer model.Reviewer
	// Expected, when set, narrows the precondition to that exact status so
	// a caller working from stale state fails instead of clobbering.
	Expected model.LOIStatus
}

// DecideLOI records a terminal decision. Approval spawns exactly one
// Application and links it in the same transaction; deciding an
// already-decided LOI fails with a TerminalStateError.
func (s *Service) DecideLOI(ctx context.Context, p DecideLOIParams) (*model.LOI, error) {
	if p.Decision != model.LOIStatusApproved && p.Decision != model.LOIStatusDeclined {
		return nil, &model.ValidationError{Field: "decision", Reason: "must be approved or declined"}
	}
	if p.Decision == model.LOIStatusDeclined {
		if err := requireField("reason", p.Reason); err != nil {
			return nil, err
		}
	}

	from := []model.LOIStatus{model.LOIStatusSubmitted, model.LOIStatusUnderReview}
	if p.Expected != "" {
		if !p.Expected.Decidable() {
			return nil, &model.PreconditionError{
				Entity: "loi", ID: p.ID,
				Expected: "submitted|under_review", Actual: string(p.Expected),
			}
		}
		from = []model.LOIStatus{p.Expected}
	}

	reason := p.Reason
	if p.Decision == model.LOIStatusApproved {
		reason = p.Note
	}

	t := store.LOITransition{
		ID:          p.ID,
		From:        from,
		To:          p.Decision,
		Reason:      reason,
		ActorName:   p.Reviewer.Name,
		StampReview: true,
	}

	if p.Decision == model.LOIStatusApproved {
		loi, err := s.store.GetLOI(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		t.Spawn = &model.Application{
			LOIID:          p.ID,
			OrganizationID: loi.OrganizationID,
			CycleID:        loi.CycleID,
			Status:         model.AppStatusDraft,
		}
	}

	decided, err := s.store.TransitionLOI(ctx, t)
	if err != nil {
		return nil, err
	}

	zap.L().Info("loi decided",
		zap.String("loi_id", decided.ID),
		zap.String("decision", string(decided.Status)),
		zap.String("reviewer", p.Reviewer.Name),
		zap.String("application_id", decided.ApplicationID),
	)
	return decided, nil
}

// LOIStatusHistory replays the status ledger for an LOI in order.
func (s *Service) LOIStatusHistory(ctx context.Context, id string) ([]model.StatusHistoryEntry, error) {
	if _, err := s.store.GetLOI(ctx, id); err != nil {
		return nil, err
	}
	return s.store.StatusHistory(ctx, id)
}
