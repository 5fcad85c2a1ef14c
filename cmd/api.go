package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/harborlight-fund/grantflow/internal/lifecycle"
	"github.com/harborlight-fund/grantflow/internal/model"
	"github.com/harborlight-fund/grantflow/internal/notify"
	"github.com/harborlight-fund/grantflow/internal/release"
	"github.com/harborlight-fund/grantflow/internal/scoring"
	"github.com/harborlight-fund/grantflow/internal/store"
	"github.com/harborlight-fund/grantflow/internal/voting"
)

// api bundles the pipeline services behind the HTTP surface.
type api struct {
	lifecycle *lifecycle.Service
	voting    *voting.Service
	scoring   *scoring.Service
	release   *release.Service
}

func newAPI(st store.Store, n notify.Notifier) *api {
	return &api{
		lifecycle: lifecycle.New(st),
		voting:    voting.New(st),
		scoring:   scoring.New(st),
		release:   release.New(st, n),
	}
}

func (a *api) router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Reviewer-ID", "X-Reviewer-Name", "X-Reviewer-Admin"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/lois", func(r chi.Router) {
		r.Post("/", a.createLOI)
		r.Get("/", a.listLOIs)
		r.Get("/{id}", a.getLOI)
		r.Post("/{id}/submit", a.submitLOI)
		r.Post("/{id}/review", a.reviewLOI)
		r.Post("/{id}/decide", a.decideLOI)
		r.Get("/{id}/history", a.loiHistory)
	})

	r.Route("/applications", func(r chi.Router) {
		r.Post("/", a.createApplication)
		r.Get("/{id}", a.getApplication)
		r.Post("/{id}/submit", a.submitApplication)
		r.Post("/{id}/review", a.reviewApplication)
		r.Post("/{id}/request-info", a.requestInfo)
		r.Post("/{id}/resume", a.resumeReview)
		r.Post("/{id}/withdraw", a.withdrawApplication)
		r.Post("/{id}/decide", a.decideApplication)
		r.Post("/{id}/notes", a.addNote)
		r.Put("/{id}/vote", a.castVote)
		r.Post("/{id}/tally", a.tallyVotes)
		r.Put("/{id}/assessment", a.submitAssessment)
		r.Get("/{id}/assessment/aggregate", a.aggregateAssessments)
	})

	r.Route("/releases", func(r chi.Router) {
		r.Get("/pending", a.listPendingReleases)
		r.Post("/", a.releaseDecisions)
	})

	return r
}

// reviewerFrom reads the reviewer identity supplied by the upstream
// auth layer. The pipeline trusts these headers; it does not resolve
// or verify them.
func reviewerFrom(r *http.Request) model.Reviewer {
	admin, _ := strconv.ParseBool(r.Header.Get("X-Reviewer-Admin"))
	return model.Reviewer{
		ID:    r.Header.Get("X-Reviewer-ID"),
		Name:  r.Header.Get("X-Reviewer-Name"),
		Admin: admin,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case model.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case model.IsTerminalState(err), model.IsPrecondition(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// --- LOI handlers ---

func (a *api) createLOI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID string `json:"organization_id"`
		CycleID        string `json:"cycle_id"`
		ContactEmail   string `json:"contact_email"`
		Summary        string `json:"summary"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	loi := &model.LOI{
		OrganizationID: req.OrganizationID,
		CycleID:        req.CycleID,
		ContactEmail:   req.ContactEmail,
		Summary:        req.Summary,
	}
	if err := a.lifecycle.CreateLOI(r.Context(), loi); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loi)
}

func (a *api) listLOIs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	lois, err := a.lifecycle.ListLOIs(r.Context(), store.LOIFilter{
		Status:         model.LOIStatus(q.Get("status")),
		OrganizationID: q.Get("organization_id"),
		CycleID:        q.Get("cycle_id"),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lois)
}

func (a *api) getLOI(w http.ResponseWriter, r *http.Request) {
	loi, err := a.lifecycle.GetLOI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loi)
}

func (a *api) submitLOI(w http.ResponseWriter, r *http.Request) {
	loi, err := a.lifecycle.SubmitLOI(r.Context(), chi.URLParam(r, "id"), reviewerFrom(r).Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loi)
}

func (a *api) reviewLOI(w http.ResponseWriter, r *http.Request) {
	loi, err := a.lifecycle.EnterReviewLOI(r.Context(), chi.URLParam(r, "id"), reviewerFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loi)
}

func (a *api) decideLOI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
		Reason   string `json:"reason"`
		Note     string `json:"note"`
		Expected string `json:"expected_status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	loi, err := a.lifecycle.DecideLOI(r.Context(), lifecycle.DecideLOIParams{
		ID:       chi.URLParam(r, "id"),
		Decision: model.LOIStatus(req.Decision),
		Reason:   req.Reason,
		Note:     req.Note,
		Reviewer: reviewerFrom(r),
		Expected: model.LOIStatus(req.Expected),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loi)
}

func (a *api) loiHistory(w http.ResponseWriter, r *http.Request) {
	history, err := a.lifecycle.LOIStatusHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// --- Application handlers ---

func (a *api) createApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID     string  `json:"organization_id"`
		CycleID            string  `json:"cycle_id"`
		AmountRequested    float64 `json:"amount_requested"`
		TotalProjectBudget float64 `json:"total_project_budget"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	app := &model.Application{
		OrganizationID:     req.OrganizationID,
		CycleID:            req.CycleID,
		AmountRequested:    req.AmountRequested,
		TotalProjectBudget: req.TotalProjectBudget,
	}
	if err := a.lifecycle.CreateApplication(r.Context(), app); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (a *api) getApplication(w http.ResponseWriter, r *http.Request) {
	detail, err := a.lifecycle.GetApplicationDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *api) submitApplication(w http.ResponseWriter, r *http.Request) {
	app, err := a.lifecycle.SubmitApplication(r.Context(), chi.URLParam(r, "id"), reviewerFrom(r).Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (a *api) reviewApplication(w http.ResponseWriter, r *http.Request) {
	app, err := a.lifecycle.EnterReviewApplication(r.Context(), chi.URLParam(r, "id"), reviewerFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (a *api) requestInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	app, err := a.lifecycle.RequestInfo(r.Context(), chi.URLParam(r, "id"), req.Message, reviewerFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (a *api) resumeReview(w http.ResponseWriter, r *http.Request) {
	app, err := a.lifecycle.ResumeReview(r.Context(), chi.URLParam(r, "id"), reviewerFrom(r).Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (a *api) withdrawApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	app, err := a.lifecycle.Withdraw(r.Context(), chi.URLParam(r, "id"), req.Reason, reviewerFrom(r).Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (a *api) decideApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
		Reason   string `json:"reason"`
		Expected string `json:"expected_status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	app, err := a.lifecycle.DecideApplication(r.Context(), lifecycle.DecideApplicationParams{
		ID:       chi.URLParam(r, "id"),
		Decision: model.ApplicationStatus(req.Decision),
		Reason:   req.Reason,
		Reviewer: reviewerFrom(r),
		Expected: model.ApplicationStatus(req.Expected),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (a *api) addNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	note := model.Note{AuthorName: reviewerFrom(r).Name, Text: req.Text}
	if err := a.lifecycle.AddNote(r.Context(), chi.URLParam(r, "id"), note); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// --- Voting handlers ---

func (a *api) castVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vote      string `json:"vote"`
		Reasoning string `json:"reasoning"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	vote, err := a.voting.CastVote(r.Context(), chi.URLParam(r, "id"), reviewerFrom(r), model.VoteChoice(req.Vote), req.Reasoning)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

func (a *api) tallyVotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Roster []model.Reviewer `json:"roster"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	tally, err := a.voting.Tally(r.Context(), chi.URLParam(r, "id"), req.Roster)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

// --- Scoring handlers ---

func (a *api) submitAssessment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		scoring.Scores
		Notes string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	assessment, err := a.scoring.Submit(r.Context(), chi.URLParam(r, "id"), reviewerFrom(r), req.Scores, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (a *api) aggregateAssessments(w http.ResponseWriter, r *http.Request) {
	agg, err := a.scoring.AggregateScores(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if agg == nil {
		writeJSON(w, http.StatusOK, map[string]any{"application_id": chi.URLParam(r, "id"), "count": 0})
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

// --- Release handlers ---

func (a *api) listPendingReleases(w http.ResponseWriter, r *http.Request) {
	pending, err := a.release.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (a *api) releaseDecisions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
		All bool     `json:"all"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	actor := reviewerFrom(r).Name

	var (
		results []release.Result
		err     error
	)
	if req.All {
		results, err = a.release.ReleaseAll(r.Context(), actor)
	} else {
		if len(req.IDs) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids or all required"})
			return
		}
		results, err = a.release.ReleaseSelected(r.Context(), req.IDs, actor)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
