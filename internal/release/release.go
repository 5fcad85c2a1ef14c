// Package release batches decided LOIs out to applicants. An LOI is
// pending release once a decision is recorded (reviewed_at set) but
// not yet published (released_at null). Releasing stamps released_at
// and fires a notification; notification failure never rolls the
// release back.
package release

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harborlight-fund/grantflow/internal/model"
	"github.com/harborlight-fund/grantflow/internal/notify"
	"github.com/harborlight-fund/grantflow/internal/store"
)

const defaultWorkers = 4

// Outcome classifies what happened to one LOI in a batch.
type Outcome string

const (
	OutcomeReleased     Outcome = "released"      // stamped and notified
	OutcomeSkipped      Outcome = "skipped"       // not pending (already released, or undecided)
	OutcomeNotifyFailed Outcome = "notify_failed" // stamped, notification failed
	OutcomeError        Outcome = "error"         // release itself failed
)

// Result is the per-item outcome of a batch release.
type Result struct {
	LOIID   string  `json:"loi_id"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

type Service struct {
	store    store.Store
	notifier notify.Notifier
	workers  int
}

func New(st store.Store, n notify.Notifier) *Service {
	return &Service{store: st, notifier: n, workers: defaultWorkers}
}

// ListPending returns the LOIs currently awaiting release.
func (s *Service) ListPending(ctx context.Context) ([]model.LOI, error) {
	lois, err := s.store.ListPendingReleases(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "release: list pending")
	}
	return lois, nil
}

// ReleaseSelected releases the given LOIs. Items that are not pending
// are reported as skipped rather than failing the batch, so the call
// is idempotent per item. Items are processed independently; one
// failure never aborts the rest.
func (s *Service) ReleaseSelected(ctx context.Context, ids []string, actorName string) ([]Result, error) {
	results := make([]Result, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	var mu sync.Mutex
	for i, id := range ids {
		g.Go(func() error {
			r := s.releaseOne(gctx, id, actorName)
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "release: batch")
	}
	return results, nil
}

// ReleaseAll releases every LOI pending at the time of the call. LOIs
// decided after the pending set is snapshotted wait for the next batch.
func (s *Service) ReleaseAll(ctx context.Context, actorName string) ([]Result, error) {
	pending, err := s.store.ListPendingReleases(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "release: list pending")
	}
	ids := make([]string, len(pending))
	for i := range pending {
		ids[i] = pending[i].ID
	}
	return s.ReleaseSelected(ctx, ids, actorName)
}

func (s *Service) releaseOne(ctx context.Context, id, actorName string) Result {
	loi, released, err := s.store.MarkReleased(ctx, id, actorName)
	if err != nil {
		zap.L().Error("release: mark released failed",
			zap.String("loi_id", id),
			zap.Error(err),
		)
		return Result{LOIID: id, Outcome: OutcomeError, Error: err.Error()}
	}
	if !released {
		return Result{LOIID: id, Outcome: OutcomeSkipped}
	}

	if err := s.notifier.NotifyDecision(ctx, notify.DecisionFromLOI(loi)); err != nil {
		// The release stands; delivery is retried out of band if at all.
		zap.L().Error("release: decision notification failed",
			zap.String("loi_id", id),
			zap.Error(err),
		)
		return Result{LOIID: id, Outcome: OutcomeNotifyFailed, Error: err.Error()}
	}

	zap.L().Info("release: decision released",
		zap.String("loi_id", id),
		zap.String("status", string(loi.Status)),
		zap.String("actor", actorName),
	)
	return Result{LOIID: id, Outcome: OutcomeReleased}
}
