package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/harborlight-fund/grantflow/internal/model"
)

// scannable abstracts *sql.Row, *sql.Rows, pgx.Row and pgx.Rows so the scan
// helpers serve both store backends.
type scannable interface {
	Scan(dest ...any) error
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

func scanLOI(row scannable, id string) (*model.LOI, error) {
	var l model.LOI
	var summary, aiSummary, reviewedBy, reason, appID sql.NullString
	var submittedAt, reviewedAt, releasedAt sql.NullTime

	err := row.Scan(
		&l.ID, &l.OrganizationID, &l.CycleID, &l.Status, &l.ContactEmail,
		&summary, &aiSummary, &submittedAt, &reviewedAt, &reviewedBy, &reason,
		&appID, &releasedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if noRows(err) {
		return nil, &model.NotFoundError{Entity: "loi", ID: id}
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan loi")
	}

	l.Summary = summary.String
	l.AISummary = aiSummary.String
	l.ReviewedByName = reviewedBy.String
	l.DecisionReason = reason.String
	l.ApplicationID = appID.String
	l.SubmittedAt = timePtr(submittedAt)
	l.ReviewedAt = timePtr(reviewedAt)
	l.ReleasedAt = timePtr(releasedAt)
	return &l, nil
}

func scanApplication(row scannable, id string) (*model.Application, error) {
	var a model.Application
	var loiID, notesJSON, reviewedBy, reason sql.NullString
	var submittedAt, reviewedAt sql.NullTime

	err := row.Scan(
		&a.ID, &loiID, &a.OrganizationID, &a.CycleID, &a.Status, &submittedAt,
		&a.AmountRequested, &a.TotalProjectBudget, &notesJSON,
		&reviewedAt, &reviewedBy, &reason, &a.CreatedAt, &a.UpdatedAt,
	)
	if noRows(err) {
		return nil, &model.NotFoundError{Entity: "application", ID: id}
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan application")
	}

	a.LOIID = loiID.String
	a.ReviewedByName = reviewedBy.String
	a.DecisionReason = reason.String
	a.SubmittedAt = timePtr(submittedAt)
	a.ReviewedAt = timePtr(reviewedAt)
	if notesJSON.Valid && notesJSON.String != "" {
		if err := json.Unmarshal([]byte(notesJSON.String), &a.Notes); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal notes")
		}
	}
	return &a, nil
}

func scanAssessment(row scannable) (*model.BudgetAssessment, error) {
	var a model.BudgetAssessment
	var br, ce, bd, sus sql.NullInt64
	var composite sql.NullFloat64
	var notes sql.NullString

	err := row.Scan(
		&a.ID, &a.ApplicationID, &a.ReviewerID, &a.ReviewerName,
		&br, &ce, &bd, &sus, &composite, &notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan assessment")
	}

	a.BudgetReasonableness = intPtr(br)
	a.CostEfficiency = intPtr(ce)
	a.BudgetDetail = intPtr(bd)
	a.Sustainability = intPtr(sus)
	if composite.Valid {
		v := composite.Float64
		a.CompositeScore = &v
	}
	a.Notes = notes.String
	return &a, nil
}

func checkLOIPrecondition(cur *model.LOI, from []model.LOIStatus) error {
	for _, st := range from {
		if cur.Status == st {
			return nil
		}
	}
	if cur.Status.Terminal() {
		return &model.TerminalStateError{Entity: "loi", ID: cur.ID, Status: string(cur.Status)}
	}
	return &model.PreconditionError{
		Entity: "loi", ID: cur.ID,
		Expected: joinLOIStatuses(from), Actual: string(cur.Status),
	}
}

func checkAppPrecondition(cur *model.Application, from []model.ApplicationStatus) error {
	for _, st := range from {
		if cur.Status == st {
			return nil
		}
	}
	if cur.Status.Terminal() {
		return &model.TerminalStateError{Entity: "application", ID: cur.ID, Status: string(cur.Status)}
	}
	return &model.PreconditionError{
		Entity: "application", ID: cur.ID,
		Expected: joinAppStatuses(from), Actual: string(cur.Status),
	}
}

func joinLOIStatuses(statuses []model.LOIStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, "|")
}

func joinAppStatuses(statuses []model.ApplicationStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, "|")
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
