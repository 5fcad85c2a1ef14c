package release

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlight-fund/grantflow/internal/lifecycle"
	"github.com/harborlight-fund/grantflow/internal/model"
	"github.com/harborlight-fund/grantflow/internal/notify"
	"github.com/harborlight-fund/grantflow/internal/store"
)

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []notify.Decision
	failFor map[string]bool
}

func (f *fakeNotifier) NotifyDecision(_ context.Context, d notify.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[d.LOIID] {
		return eris.New("webhook unavailable")
	}
	f.sent = append(f.sent, d)
	return nil
}

func newTestService(t *testing.T) (*Service, *lifecycle.Service, *fakeNotifier) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	fn := &fakeNotifier{failFor: map[string]bool{}}
	return New(st, fn), lifecycle.New(st), fn
}

func decidedLOI(t *testing.T, lc *lifecycle.Service, org string, decision model.LOIStatus) *model.LOI {
	t.Helper()
	ctx := context.Background()
	loi := &model.LOI{OrganizationID: org, CycleID: "2026-spring", ContactEmail: "grants@example.org"}
	require.NoError(t, lc.CreateLOI(ctx, loi))
	_, err := lc.SubmitLOI(ctx, loi.ID, "Applicant")
	require.NoError(t, err)
	got, err := lc.DecideLOI(ctx, lifecycle.DecideLOIParams{
		ID: loi.ID, Decision: decision, Reason: "decline reason",
		Reviewer: model.Reviewer{ID: "rev-0", Name: "Admin"},
	})
	require.NoError(t, err)
	return got
}

func TestListPending(t *testing.T) {
	svc, lc, _ := newTestService(t)
	ctx := context.Background()

	decidedLOI(t, lc, "org-a", model.LOIStatusApproved)
	decidedLOI(t, lc, "org-b", model.LOIStatusDeclined)

	// An undecided LOI never appears in the pending set.
	draft := &model.LOI{OrganizationID: "org-c", CycleID: "2026-spring"}
	require.NoError(t, lc.CreateLOI(ctx, draft))

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestReleaseSelected(t *testing.T) {
	svc, lc, fn := newTestService(t)
	ctx := context.Background()

	loi := decidedLOI(t, lc, "org-a", model.LOIStatusApproved)

	results, err := svc.ReleaseSelected(ctx, []string{loi.ID}, "Admin")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeReleased, results[0].Outcome)

	require.Len(t, fn.sent, 1)
	assert.Equal(t, loi.ID, fn.sent[0].LOIID)
	assert.Equal(t, "approved", fn.sent[0].Status)
	assert.Equal(t, "grants@example.org", fn.sent[0].ContactEmail)
	assert.False(t, fn.sent[0].ReleasedAt.IsZero())

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReleaseSelectedIdempotentPerItem(t *testing.T) {
	svc, lc, fn := newTestService(t)
	ctx := context.Background()

	loi := decidedLOI(t, lc, "org-a", model.LOIStatusApproved)

	_, err := svc.ReleaseSelected(ctx, []string{loi.ID}, "Admin")
	require.NoError(t, err)

	results, err := svc.ReleaseSelected(ctx, []string{loi.ID}, "Admin")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
	assert.Len(t, fn.sent, 1) // no duplicate notification
}

func TestReleaseSelectedSkipsUndecided(t *testing.T) {
	svc, lc, fn := newTestService(t)
	ctx := context.Background()

	loi := &model.LOI{OrganizationID: "org-a", CycleID: "2026-spring"}
	require.NoError(t, lc.CreateLOI(ctx, loi))

	results, err := svc.ReleaseSelected(ctx, []string{loi.ID}, "Admin")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
	assert.Empty(t, fn.sent)
}

func TestReleaseContinuesPastNotifyFailure(t *testing.T) {
	svc, lc, fn := newTestService(t)
	ctx := context.Background()

	a := decidedLOI(t, lc, "org-a", model.LOIStatusApproved)
	b := decidedLOI(t, lc, "org-b", model.LOIStatusDeclined)
	fn.failFor[a.ID] = true

	results, err := svc.ReleaseSelected(ctx, []string{a.ID, b.ID}, "Admin")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotifyFailed, results[0].Outcome)
	assert.Equal(t, OutcomeReleased, results[1].Outcome)

	// The failed notification does not roll back the release.
	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReleaseAll(t *testing.T) {
	svc, lc, fn := newTestService(t)
	ctx := context.Background()

	decidedLOI(t, lc, "org-a", model.LOIStatusApproved)
	decidedLOI(t, lc, "org-b", model.LOIStatusDeclined)
	decidedLOI(t, lc, "org-c", model.LOIStatusApproved)

	results, err := svc.ReleaseAll(ctx, "Admin")
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, OutcomeReleased, r.Outcome)
	}
	assert.Len(t, fn.sent, 3)

	// Second run finds nothing to do.
	results, err = svc.ReleaseAll(ctx, "Admin")
	require.NoError(t, err)
	assert.Empty(t, results)
}
