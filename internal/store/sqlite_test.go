package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlight-fund/grantflow/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func createTestLOI(t *testing.T, st *SQLiteStore, status model.LOIStatus) *model.LOI {
	t.Helper()
	ctx := context.Background()
	loi := &model.LOI{
		OrganizationID: "org-" + string(status) + "-" + t.Name(),
		CycleID:        "2026-spring",
		ContactEmail:   "grants@example.org",
	}
	require.NoError(t, st.CreateLOI(ctx, loi))

	// Walk the LOI to the requested status through real transitions.
	steps := map[model.LOIStatus][]model.LOIStatus{
		model.LOIStatusDraft:       {},
		model.LOIStatusSubmitted:   {model.LOIStatusSubmitted},
		model.LOIStatusUnderReview: {model.LOIStatusSubmitted, model.LOIStatusUnderReview},
	}[status]
	from := model.LOIStatusDraft
	for _, to := range steps {
		_, err := st.TransitionLOI(ctx, LOITransition{
			ID: loi.ID, From: []model.LOIStatus{from}, To: to,
			ActorName: "Test Harness", StampSubmit: to == model.LOIStatusSubmitted,
		})
		require.NoError(t, err)
		from = to
	}
	got, err := st.GetLOI(ctx, loi.ID)
	require.NoError(t, err)
	return got
}

// --- LOIs ---

func TestSQLite_LOI_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	loi := &model.LOI{
		OrganizationID: "org-1",
		CycleID:        "2026-spring",
		ContactEmail:   "grants@riverkeepers.org",
		Summary:        "Watershed restoration pilot",
	}
	require.NoError(t, st.CreateLOI(ctx, loi))
	require.NotEmpty(t, loi.ID)

	got, err := st.GetLOI(ctx, loi.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LOIStatusDraft, got.Status)
	assert.Equal(t, "grants@riverkeepers.org", got.ContactEmail)
	assert.Nil(t, got.SubmittedAt)
	assert.Empty(t, got.ApplicationID)
}

func TestSQLite_LOI_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetLOI(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

func TestSQLite_LOI_ListFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateLOI(ctx, &model.LOI{OrganizationID: "org-a", CycleID: "c1"}))
	require.NoError(t, st.CreateLOI(ctx, &model.LOI{OrganizationID: "org-b", CycleID: "c1"}))
	require.NoError(t, st.CreateLOI(ctx, &model.LOI{OrganizationID: "org-a", CycleID: "c2"}))

	byOrg, err := st.ListLOIs(ctx, LOIFilter{OrganizationID: "org-a"})
	require.NoError(t, err)
	assert.Len(t, byOrg, 2)

	byCycle, err := st.ListLOIs(ctx, LOIFilter{CycleID: "c1"})
	require.NoError(t, err)
	assert.Len(t, byCycle, 2)

	byStatus, err := st.ListLOIs(ctx, LOIFilter{Status: model.LOIStatusDraft})
	require.NoError(t, err)
	assert.Len(t, byStatus, 3)
}

func TestSQLite_LOI_TransitionStampsAndLedger(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	loi := createTestLOI(t, st, model.LOIStatusSubmitted)

	got, err := st.TransitionLOI(ctx, LOITransition{
		ID:          loi.ID,
		From:        []model.LOIStatus{model.LOIStatusSubmitted, model.LOIStatusUnderReview},
		To:          model.LOIStatusDeclined,
		Reason:      "outside funding priorities",
		ActorName:   "Dana Reviewer",
		StampReview: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.LOIStatusDeclined, got.Status)
	assert.NotNil(t, got.ReviewedAt)
	assert.Equal(t, "Dana Reviewer", got.ReviewedByName)
	assert.Equal(t, "outside funding priorities", got.DecisionReason)

	history, err := st.StatusHistory(ctx, loi.ID)
	require.NoError(t, err)
	require.Len(t, history, 2) // draft->submitted, submitted->declined
	assert.Equal(t, string(model.LOIStatusSubmitted), history[1].PreviousStatus)
	assert.Equal(t, string(model.LOIStatusDeclined), history[1].NewStatus)
	assert.Equal(t, "outside funding priorities", history[1].Reason)
}

func TestSQLite_LOI_TransitionPreconditionMismatch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	loi := createTestLOI(t, st, model.LOIStatusDraft)

	_, err := st.TransitionLOI(ctx, LOITransition{
		ID:   loi.ID,
		From: []model.LOIStatus{model.LOIStatusSubmitted},
		To:   model.LOIStatusUnderReview,
	})
	require.Error(t, err)
	assert.True(t, model.IsPrecondition(err))

	// No side effects on failure.
	got, err := st.GetLOI(ctx, loi.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LOIStatusDraft, got.Status)
	history, err := st.StatusHistory(ctx, loi.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLite_LOI_TransitionFromTerminal(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	loi := createTestLOI(t, st, model.LOIStatusSubmitted)
	_, err := st.TransitionLOI(ctx, LOITransition{
		ID: loi.ID, From: []model.LOIStatus{model.LOIStatusSubmitted},
		To: model.LOIStatusDeclined, Reason: "incomplete", StampReview: true, ActorName: "Dana",
	})
	require.NoError(t, err)

	_, err = st.TransitionLOI(ctx, LOITransition{
		ID: loi.ID, From: []model.LOIStatus{model.LOIStatusSubmitted, model.LOIStatusUnderReview},
		To: model.LOIStatusApproved,
	})
	require.Error(t, err)
	assert.True(t, model.IsTerminalState(err))
}

func TestSQLite_LOI_ApprovalSpawnsApplicationOnce(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	loi := createTestLOI(t, st, model.LOIStatusUnderReview)

	spawn := &model.Application{
		LOIID:          loi.ID,
		OrganizationID: loi.OrganizationID,
		CycleID:        loi.CycleID,
	}
	got, err := st.TransitionLOI(ctx, LOITransition{
		ID: loi.ID, From: []model.LOIStatus{model.LOIStatusUnderReview},
		To: model.LOIStatusApproved, ActorName: "Dana", StampReview: true,
		Spawn: spawn,
	})
	require.NoError(t, err)
	require.NotEmpty(t, spawn.ID)
	assert.Equal(t, spawn.ID, got.ApplicationID)

	app, err := st.GetApplication(ctx, spawn.ID)
	require.NoError(t, err)
	assert.Equal(t, loi.ID, app.LOIID)
	assert.Equal(t, model.AppStatusDraft, app.Status)

	// Re-deciding fails terminally and spawns nothing further.
	_, err = st.TransitionLOI(ctx, LOITransition{
		ID: loi.ID, From: []model.LOIStatus{model.LOIStatusUnderReview},
		To: model.LOIStatusApproved, Spawn: &model.Application{LOIID: loi.ID},
	})
	require.Error(t, err)
	assert.True(t, model.IsTerminalState(err))

	got, err = st.GetLOI(ctx, loi.ID)
	require.NoError(t, err)
	assert.Equal(t, spawn.ID, got.ApplicationID)
}

// --- Applications ---

func TestSQLite_Application_TransitionAndNotes(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	app := &model.Application{OrganizationID: "org-1", CycleID: "c1", AmountRequested: 50000, TotalProjectBudget: 120000}
	require.NoError(t, st.CreateApplication(ctx, app))

	got, err := st.TransitionApplication(ctx, ApplicationTransition{
		ID: app.ID, From: []model.ApplicationStatus{model.AppStatusDraft},
		To: model.AppStatusSubmitted, ActorName: "Applicant", StampSubmit: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppStatusSubmitted, got.Status)
	assert.NotNil(t, got.SubmittedAt)

	require.NoError(t, st.AddApplicationNote(ctx, app.ID, model.Note{AuthorName: "Dana", Text: "strong budget justification"}))
	got, err = st.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "strong budget justification", got.Notes[0].Text)
}

func TestSQLite_Application_NoteMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.AddApplicationNote(context.Background(), "missing", model.Note{Text: "x"})
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

// --- Votes ---

func TestSQLite_Vote_UpsertConverges(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	app := &model.Application{OrganizationID: "org-1", CycleID: "c1"}
	require.NoError(t, st.CreateApplication(ctx, app))

	first := &model.Vote{ApplicationID: app.ID, ReviewerID: "rev-x", ReviewerName: "Xu", Choice: model.VoteApprove}
	require.NoError(t, st.UpsertVote(ctx, first))

	second := &model.Vote{ApplicationID: app.ID, ReviewerID: "rev-x", ReviewerName: "Xu", Choice: model.VoteDecline, Reasoning: "budget concerns"}
	require.NoError(t, st.UpsertVote(ctx, second))

	votes, err := st.ListVotes(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, model.VoteDecline, votes[0].Choice)
	assert.Equal(t, "budget concerns", votes[0].Reasoning)
}

func TestSQLite_Vote_IndependentReviewers(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	app := &model.Application{OrganizationID: "org-1", CycleID: "c1"}
	require.NoError(t, st.CreateApplication(ctx, app))

	require.NoError(t, st.UpsertVote(ctx, &model.Vote{ApplicationID: app.ID, ReviewerID: "a", ReviewerName: "A", Choice: model.VoteApprove}))
	require.NoError(t, st.UpsertVote(ctx, &model.Vote{ApplicationID: app.ID, ReviewerID: "b", ReviewerName: "B", Choice: model.VoteAbstain}))

	votes, err := st.ListVotes(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, votes, 2)
}

// --- Budget assessments ---

func TestSQLite_Assessment_UpsertAndNullScores(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	app := &model.Application{OrganizationID: "org-1", CycleID: "c1"}
	require.NoError(t, st.CreateApplication(ctx, app))

	n := func(v int) *int { return &v }
	composite := 3.6
	a := &model.BudgetAssessment{
		ApplicationID: app.ID, ReviewerID: "rev-1", ReviewerName: "Priya",
		BudgetReasonableness: n(4), CostEfficiency: n(3), BudgetDetail: n(5), Sustainability: n(2),
		CompositeScore: &composite, Notes: "solid",
	}
	require.NoError(t, st.UpsertBudgetAssessment(ctx, a))

	list, err := st.ListBudgetAssessments(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].CompositeScore)
	assert.InDelta(t, 3.6, *list[0].CompositeScore, 0.0001)

	// Partial revision keeps one row with nil composite.
	a2 := &model.BudgetAssessment{
		ApplicationID: app.ID, ReviewerID: "rev-1", ReviewerName: "Priya",
		BudgetReasonableness: n(4),
	}
	require.NoError(t, st.UpsertBudgetAssessment(ctx, a2))

	list, err = st.ListBudgetAssessments(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].CompositeScore)
	assert.Nil(t, list[0].CostEfficiency)
}

// --- Decision release ---

func decideLOI(t *testing.T, st *SQLiteStore, decision model.LOIStatus) *model.LOI {
	t.Helper()
	loi := createTestLOI(t, st, model.LOIStatusSubmitted)
	got, err := st.TransitionLOI(context.Background(), LOITransition{
		ID: loi.ID, From: []model.LOIStatus{model.LOIStatusSubmitted},
		To: decision, Reason: "r", ActorName: "Dana", StampReview: true,
	})
	require.NoError(t, err)
	return got
}

func TestSQLite_Release_PendingAndMark(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	approved := decideLOI(t, st, model.LOIStatusApproved)
	undecided := createTestLOI(t, st, model.LOIStatusUnderReview)

	pending, err := st.ListPendingReleases(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, approved.ID, pending[0].ID)

	loi, released, err := st.MarkReleased(ctx, approved.ID, "Dana")
	require.NoError(t, err)
	assert.True(t, released)
	require.NotNil(t, loi.ReleasedAt)

	// Re-releasing is a no-op.
	_, released, err = st.MarkReleased(ctx, approved.ID, "Dana")
	require.NoError(t, err)
	assert.False(t, released)

	// Undecided LOIs are skipped, not errors.
	_, released, err = st.MarkReleased(ctx, undecided.ID, "Dana")
	require.NoError(t, err)
	assert.False(t, released)

	pending, err = st.ListPendingReleases(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLite_Release_AppendsLedgerNote(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	loi := decideLOI(t, st, model.LOIStatusDeclined)
	_, released, err := st.MarkReleased(ctx, loi.ID, "Dana")
	require.NoError(t, err)
	require.True(t, released)

	history, err := st.StatusHistory(ctx, loi.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, "decision released to applicant", last.Reason)
	assert.Equal(t, string(model.LOIStatusDeclined), last.NewStatus)
}
