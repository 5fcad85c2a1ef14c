package store

import (
	"context"

	"github.com/harborlight-fund/grantflow/internal/model"
)

// LOIFilter specifies criteria for listing LOIs.
type LOIFilter struct {
	Status         model.LOIStatus `json:"status,omitempty"`
	OrganizationID string          `json:"organization_id,omitempty"`
	CycleID        string          `json:"cycle_id,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	Offset         int             `json:"offset,omitempty"`
}

// LOITransition describes one atomic conditional status change for an LOI.
// The update applies only while the stored status is From; the ledger entry
// and any spawned application commit in the same transaction.
type LOITransition struct {
	ID          string
	From        []model.LOIStatus // statuses the caller accepts as current
	To          model.LOIStatus
	Reason      string
	ActorName   string
	StampSubmit bool               // set submitted_at
	StampReview bool               // set reviewed_at / reviewed_by_name / decision_reason
	Spawn       *model.Application // created and linked via application_id, exactly once
}

// ApplicationTransition describes one atomic conditional status change for
// an Application.
type ApplicationTransition struct {
	ID          string
	From        []model.ApplicationStatus
	To          model.ApplicationStatus
	Reason      string
	ActorName   string
	StampSubmit bool
	StampReview bool
}

// Store defines the persistence interface for the review pipeline. All
// status transitions are conditional single-row updates: the loser of a
// concurrent race observes a PreconditionError (or TerminalStateError when
// the entity was already decided), never a silent overwrite.
type Store interface {
	// LOIs
	CreateLOI(ctx context.Context, loi *model.LOI) error
	GetLOI(ctx context.Context, id string) (*model.LOI, error)
	ListLOIs(ctx context.Context, filter LOIFilter) ([]model.LOI, error)
	TransitionLOI(ctx context.Context, t LOITransition) (*model.LOI, error)

	// Applications
	CreateApplication(ctx context.Context, app *model.Application) error
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	TransitionApplication(ctx context.Context, t ApplicationTransition) (*model.Application, error)
	AddApplicationNote(ctx context.Context, applicationID string, note model.Note) error

	// Status ledger (append-only, read in created_at order)
	StatusHistory(ctx context.Context, entityID string) ([]model.StatusHistoryEntry, error)

	// Review artifacts, upsert keyed by (application_id, reviewer_id)
	UpsertVote(ctx context.Context, v *model.Vote) error
	ListVotes(ctx context.Context, applicationID string) ([]model.Vote, error)
	UpsertBudgetAssessment(ctx context.Context, a *model.BudgetAssessment) error
	ListBudgetAssessments(ctx context.Context, applicationID string) ([]model.BudgetAssessment, error)

	// Decision release
	ListPendingReleases(ctx context.Context) ([]model.LOI, error)
	// MarkReleased stamps released_at and appends a ledger note when the LOI
	// is currently pending. Returns the LOI and false when the id was
	// skipped (unknown, undecided, or already released).
	MarkReleased(ctx context.Context, id string, actorName string) (*model.LOI, bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
