package lifecycle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlight-fund/grantflow/internal/model"
	"github.com/harborlight-fund/grantflow/internal/store"
)

var testReviewer = model.Reviewer{ID: "rev-1", Name: "Dana Reviewer", Admin: true}

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return New(st), st
}

func newSubmittedLOI(t *testing.T, svc *Service) *model.LOI {
	t.Helper()
	ctx := context.Background()
	loi := &model.LOI{OrganizationID: "org-" + t.Name(), CycleID: "2026-spring", ContactEmail: "grants@example.org"}
	require.NoError(t, svc.CreateLOI(ctx, loi))
	got, err := svc.SubmitLOI(ctx, loi.ID, "Applicant")
	require.NoError(t, err)
	return got
}

func TestCreateLOIValidation(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.CreateLOI(context.Background(), &model.LOI{CycleID: "c1"})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestSubmitLOIStampsSubmittedAt(t *testing.T) {
	svc, _ := newTestService(t)

	loi := newSubmittedLOI(t, svc)
	assert.Equal(t, model.LOIStatusSubmitted, loi.Status)
	assert.NotNil(t, loi.SubmittedAt)
}

func TestEnterReviewLOIIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	loi := newSubmittedLOI(t, svc)

	first, err := svc.EnterReviewLOI(ctx, loi.ID, testReviewer)
	require.NoError(t, err)
	assert.Equal(t, model.LOIStatusUnderReview, first.Status)

	// Second reviewer opening the same item is a no-op.
	second, err := svc.EnterReviewLOI(ctx, loi.ID, model.Reviewer{ID: "rev-2", Name: "Sam"})
	require.NoError(t, err)
	assert.Equal(t, model.LOIStatusUnderReview, second.Status)

	history, err := svc.LOIStatusHistory(ctx, loi.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2) // draft->submitted, submitted->under_review; no third entry
}

func TestEnterReviewLOIFromDraftFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	loi := &model.LOI{OrganizationID: "org-1", CycleID: "c1"}
	require.NoError(t, svc.CreateLOI(ctx, loi))

	_, err := svc.EnterReviewLOI(ctx, loi.ID, testReviewer)
	require.Error(t, err)
	assert.True(t, model.IsPrecondition(err))
}

func TestDecideLOIDeclineRequiresReason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	loi := newSubmittedLOI(t, svc)

	_, err := svc.DecideLOI(ctx, DecideLOIParams{
		ID: loi.ID, Decision: model.LOIStatusDeclined, Reviewer: testReviewer,
	})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	// Rejected before any mutation.
	got, err := svc.GetLOI(ctx, loi.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LOIStatusSubmitted, got.Status)
}

func TestDecideLOIRejectsNonDecisionStatus(t *testing.T) {
	svc, _ := newTestService(t)

	loi := newSubmittedLOI(t, svc)
	_, err := svc.DecideLOI(context.Background(), DecideLOIParams{
		ID: loi.ID, Decision: model.LOIStatusUnderReview, Reviewer: testReviewer,
	})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestDecideLOIApprovalSpawnsApplication(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	loi := newSubmittedLOI(t, svc)

	decided, err := svc.DecideLOI(ctx, DecideLOIParams{
		ID: loi.ID, Decision: model.LOIStatusApproved, Note: "strong fit", Reviewer: testReviewer,
	})
	require.NoError(t, err)
	assert.Equal(t, model.LOIStatusApproved, decided.Status)
	require.NotEmpty(t, decided.ApplicationID)
	assert.Equal(t, "Dana Reviewer", decided.ReviewedByName)

	app, err := svc.GetApplication(ctx, decided.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, loi.ID, app.LOIID)
	assert.Equal(t, loi.OrganizationID, app.OrganizationID)
	assert.Equal(t, model.AppStatusDraft, app.Status)
}

func TestDecideLOITwiceFailsTerminally(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	loi := newSubmittedLOI(t, svc)

	first, err := svc.DecideLOI(ctx, DecideLOIParams{
		ID: loi.ID, Decision: model.LOIStatusApproved, Reviewer: testReviewer,
	})
	require.NoError(t, err)

	_, err = svc.DecideLOI(ctx, DecideLOIParams{
		ID: loi.ID, Decision: model.LOIStatusDeclined, Reason: "changed our minds", Reviewer: testReviewer,
	})
	require.Error(t, err)
	assert.True(t, model.IsTerminalState(err))

	// No second application, link unchanged.
	got, err := svc.GetLOI(ctx, loi.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ApplicationID, got.ApplicationID)
}

func TestDecideLOIFromDraftFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	loi := &model.LOI{OrganizationID: "org-1", CycleID: "c1"}
	require.NoError(t, svc.CreateLOI(ctx, loi))

	_, err := svc.DecideLOI(ctx, DecideLOIParams{
		ID: loi.ID, Decision: model.LOIStatusDeclined, Reason: "r", Reviewer: testReviewer,
	})
	require.Error(t, err)
	assert.True(t, model.IsPrecondition(err))
}

func TestDecideLOIStaleExpectedStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	loi := newSubmittedLOI(t, svc)
	_, err := svc.EnterReviewLOI(ctx, loi.ID, testReviewer)
	require.NoError(t, err)

	// Caller still believes the LOI is submitted.
	_, err = svc.DecideLOI(ctx, DecideLOIParams{
		ID: loi.ID, Decision: model.LOIStatusDeclined, Reason: "r",
		Reviewer: testReviewer, Expected: model.LOIStatusSubmitted,
	})
	require.Error(t, err)
	assert.True(t, model.IsPrecondition(err))
}
