package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/harborlight-fund/grantflow/internal/db"
	"github.com/harborlight-fund/grantflow/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS lois (
	id               TEXT PRIMARY KEY,
	organization_id  TEXT NOT NULL,
	cycle_id         TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'draft',
	contact_email    TEXT NOT NULL DEFAULT '',
	summary          TEXT,
	ai_summary       TEXT,
	submitted_at     DATETIME,
	reviewed_at      DATETIME,
	reviewed_by_name TEXT,
	decision_reason  TEXT,
	application_id   TEXT,
	released_at      DATETIME,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL,
	UNIQUE(organization_id, cycle_id)
);

CREATE TABLE IF NOT EXISTS applications (
	id                   TEXT PRIMARY KEY,
	loi_id               TEXT REFERENCES lois(id),
	organization_id      TEXT NOT NULL,
	cycle_id             TEXT NOT NULL,
	status               TEXT NOT NULL DEFAULT 'draft',
	submitted_at         DATETIME,
	amount_requested     REAL NOT NULL DEFAULT 0,
	total_project_budget REAL NOT NULL DEFAULT 0,
	notes                TEXT,
	reviewed_at          DATETIME,
	reviewed_by_name     TEXT,
	decision_reason      TEXT,
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS status_history (
	id              TEXT PRIMARY KEY,
	entity_id       TEXT NOT NULL,
	previous_status TEXT NOT NULL,
	new_status      TEXT NOT NULL,
	reason          TEXT,
	changed_by_name TEXT NOT NULL,
	created_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS votes (
	id             TEXT PRIMARY KEY,
	application_id TEXT NOT NULL REFERENCES applications(id),
	reviewer_id    TEXT NOT NULL,
	reviewer_name  TEXT NOT NULL,
	choice         TEXT NOT NULL,
	reasoning      TEXT,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL,
	UNIQUE(application_id, reviewer_id)
);

CREATE TABLE IF NOT EXISTS budget_assessments (
	id                    TEXT PRIMARY KEY,
	application_id        TEXT NOT NULL REFERENCES applications(id),
	reviewer_id           TEXT NOT NULL,
	reviewer_name         TEXT NOT NULL,
	budget_reasonableness INTEGER,
	cost_efficiency       INTEGER,
	budget_detail         INTEGER,
	sustainability        INTEGER,
	composite_score       REAL,
	notes                 TEXT,
	created_at            DATETIME NOT NULL,
	updated_at            DATETIME NOT NULL,
	UNIQUE(application_id, reviewer_id)
);

CREATE INDEX IF NOT EXISTS idx_lois_status ON lois(status);
CREATE INDEX IF NOT EXISTS idx_lois_cycle ON lois(cycle_id);
CREATE INDEX IF NOT EXISTS idx_lois_pending_release ON lois(reviewed_at, released_at);
CREATE INDEX IF NOT EXISTS idx_applications_loi ON applications(loi_id);
CREATE INDEX IF NOT EXISTS idx_status_history_entity ON status_history(entity_id, created_at);
CREATE INDEX IF NOT EXISTS idx_votes_application ON votes(application_id);
CREATE INDEX IF NOT EXISTS idx_assessments_application ON budget_assessments(application_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- LOIs ---

const loiColumns = `id, organization_id, cycle_id, status, contact_email, summary, ai_summary,
	submitted_at, reviewed_at, reviewed_by_name, decision_reason, application_id, released_at,
	created_at, updated_at`

func (s *SQLiteStore) CreateLOI(ctx context.Context, loi *model.LOI) error {
	if loi.ID == "" {
		loi.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	loi.CreatedAt = now
	loi.UpdatedAt = now
	if loi.Status == "" {
		loi.Status = model.LOIStatusDraft
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lois (id, organization_id, cycle_id, status, contact_email, summary, ai_summary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loi.ID, loi.OrganizationID, loi.CycleID, string(loi.Status),
		loi.ContactEmail, loi.Summary, loi.AISummary, now, now,
	)
	return eris.Wrap(err, "sqlite: insert loi")
}

func (s *SQLiteStore) GetLOI(ctx context.Context, id string) (*model.LOI, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+loiColumns+` FROM lois WHERE id = ?`, id)
	return scanLOI(row, id)
}

func (s *SQLiteStore) ListLOIs(ctx context.Context, filter LOIFilter) ([]model.LOI, error) {
	query := `SELECT ` + loiColumns + ` FROM lois WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.OrganizationID != "" {
		query += ` AND organization_id = ?`
		args = append(args, filter.OrganizationID)
	}
	if filter.CycleID != "" {
		query += ` AND cycle_id = ?`
		args = append(args, filter.CycleID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list lois")
	}
	defer rows.Close()

	var lois []model.LOI
	for rows.Next() {
		l, err := scanLOI(rows, "")
		if err != nil {
			return nil, err
		}
		lois = append(lois, *l)
	}
	return lois, eris.Wrap(rows.Err(), "sqlite: list lois iterate")
}

func (s *SQLiteStore) TransitionLOI(ctx context.Context, t LOITransition) (*model.LOI, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin transition loi")
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `SELECT `+loiColumns+` FROM lois WHERE id = ?`, t.ID)
	cur, err := scanLOI(row, t.ID)
	if err != nil {
		return nil, err
	}
	if err := checkLOIPrecondition(cur, t.From); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `UPDATE lois SET status = ?, updated_at = ?`
	args := []any{string(t.To), now}
	if t.StampSubmit {
		query += `, submitted_at = ?`
		args = append(args, now)
	}
	if t.StampReview {
		query += `, reviewed_at = ?, reviewed_by_name = ?, decision_reason = ?`
		args = append(args, now, t.ActorName, t.Reason)
	}
	query += ` WHERE id = ? AND status = ?`
	args = append(args, t.ID, string(cur.Status))

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: transition loi %s", t.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost a race inside the window between read and write.
		return nil, &model.PreconditionError{
			Entity: "loi", ID: t.ID,
			Expected: joinLOIStatuses(t.From), Actual: string(cur.Status),
		}
	}

	if err := appendHistoryTx(ctx, tx, t.ID, string(cur.Status), string(t.To), t.Reason, t.ActorName, now); err != nil {
		return nil, err
	}

	if t.Spawn != nil {
		if err := insertApplicationTx(ctx, tx, t.Spawn, now); err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE lois SET application_id = ? WHERE id = ? AND application_id IS NULL`,
			t.Spawn.ID, t.ID,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: link application to loi %s", t.ID)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, &model.TerminalStateError{Entity: "loi", ID: t.ID, Status: string(cur.Status)}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit transition loi")
	}
	return s.GetLOI(ctx, t.ID)
}

// --- Applications ---

const appColumns = `id, loi_id, organization_id, cycle_id, status, submitted_at,
	amount_requested, total_project_budget, notes, reviewed_at, reviewed_by_name,
	decision_reason, created_at, updated_at`

func (s *SQLiteStore) CreateApplication(ctx context.Context, app *model.Application) error {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin create application")
	}
	defer tx.Rollback() //nolint:errcheck
	if err := insertApplicationTx(ctx, tx, app, now); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit create application")
}

func insertApplicationTx(ctx context.Context, tx *sql.Tx, app *model.Application, now time.Time) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = model.AppStatusDraft
	}

	notesJSON, err := json.Marshal(app.Notes)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal notes")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO applications (id, loi_id, organization_id, cycle_id, status, amount_requested, total_project_budget, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		app.ID, nullString(app.LOIID), app.OrganizationID, app.CycleID, string(app.Status),
		app.AmountRequested, app.TotalProjectBudget, string(notesJSON), now, now,
	)
	return eris.Wrap(err, "sqlite: insert application")
}

func (s *SQLiteStore) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+appColumns+` FROM applications WHERE id = ?`, id)
	return scanApplication(row, id)
}

func (s *SQLiteStore) TransitionApplication(ctx context.Context, t ApplicationTransition) (*model.Application, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin transition application")
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `SELECT `+appColumns+` FROM applications WHERE id = ?`, t.ID)
	cur, err := scanApplication(row, t.ID)
	if err != nil {
		return nil, err
	}
	if err := checkAppPrecondition(cur, t.From); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `UPDATE applications SET status = ?, updated_at = ?`
	args := []any{string(t.To), now}
	if t.StampSubmit {
		query += `, submitted_at = ?`
		args = append(args, now)
	}
	if t.StampReview {
		query += `, reviewed_at = ?, reviewed_by_name = ?, decision_reason = ?`
		args = append(args, now, t.ActorName, t.Reason)
	}
	query += ` WHERE id = ? AND status = ?`
	args = append(args, t.ID, string(cur.Status))

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: transition application %s", t.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &model.PreconditionError{
			Entity: "application", ID: t.ID,
			Expected: joinAppStatuses(t.From), Actual: string(cur.Status),
		}
	}

	if err := appendHistoryTx(ctx, tx, t.ID, string(cur.Status), string(t.To), t.Reason, t.ActorName, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit transition application")
	}
	return s.GetApplication(ctx, t.ID)
}

func (s *SQLiteStore) AddApplicationNote(ctx context.Context, applicationID string, note model.Note) error {
	app, err := s.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	note.CreatedAt = time.Now().UTC()
	notes := append(app.Notes, note)

	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal notes")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET notes = ?, updated_at = ? WHERE id = ?`,
		string(notesJSON), note.CreatedAt, applicationID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: add note to application %s", applicationID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &model.NotFoundError{Entity: "application", ID: applicationID}
	}
	return nil
}

// --- Status ledger ---

func appendHistoryTx(ctx context.Context, tx *sql.Tx, entityID, prev, next, reason, actor string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO status_history (id, entity_id, previous_status, new_status, reason, changed_by_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), entityID, prev, next, reason, actor, now,
	)
	return eris.Wrapf(err, "sqlite: append history for %s", entityID)
}

func (s *SQLiteStore) StatusHistory(ctx context.Context, entityID string) ([]model.StatusHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_id, previous_status, new_status, reason, changed_by_name, created_at
		 FROM status_history WHERE entity_id = ? ORDER BY created_at ASC`,
		entityID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: status history")
	}
	defer rows.Close()

	var entries []model.StatusHistoryEntry
	for rows.Next() {
		var e model.StatusHistoryEntry
		var reason sql.NullString
		if err := rows.Scan(&e.ID, &e.EntityID, &e.PreviousStatus, &e.NewStatus, &reason, &e.ChangedByName, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history entry")
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: status history iterate")
}

// --- Votes ---

var voteUpsert = db.UpsertConfig{
	Table:        "votes",
	Columns:      []string{"id", "application_id", "reviewer_id", "reviewer_name", "choice", "reasoning", "created_at", "updated_at"},
	ConflictKeys: []string{"application_id", "reviewer_id"},
	UpdateCols:   []string{"reviewer_name", "choice", "reasoning", "updated_at"},
}

func (s *SQLiteStore) UpsertVote(ctx context.Context, v *model.Vote) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.UpdatedAt = now
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}

	query, err := db.UpsertSQL(voteUpsert, db.PlaceholderQuestion)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query,
		v.ID, v.ApplicationID, v.ReviewerID, v.ReviewerName, string(v.Choice), v.Reasoning, v.CreatedAt, now,
	)
	return eris.Wrapf(err, "sqlite: upsert vote for application %s", v.ApplicationID)
}

func (s *SQLiteStore) ListVotes(ctx context.Context, applicationID string) ([]model.Vote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, application_id, reviewer_id, reviewer_name, choice, reasoning, created_at, updated_at
		 FROM votes WHERE application_id = ? ORDER BY created_at ASC`,
		applicationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list votes")
	}
	defer rows.Close()

	var votes []model.Vote
	for rows.Next() {
		var v model.Vote
		var reasoning sql.NullString
		if err := rows.Scan(&v.ID, &v.ApplicationID, &v.ReviewerID, &v.ReviewerName, &v.Choice, &reasoning, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vote")
		}
		v.Reasoning = reasoning.String
		votes = append(votes, v)
	}
	return votes, eris.Wrap(rows.Err(), "sqlite: list votes iterate")
}

// --- Budget assessments ---

var assessmentUpsert = db.UpsertConfig{
	Table: "budget_assessments",
	Columns: []string{
		"id", "application_id", "reviewer_id", "reviewer_name",
		"budget_reasonableness", "cost_efficiency", "budget_detail", "sustainability",
		"composite_score", "notes", "created_at", "updated_at",
	},
	ConflictKeys: []string{"application_id", "reviewer_id"},
	UpdateCols: []string{
		"reviewer_name", "budget_reasonableness", "cost_efficiency", "budget_detail",
		"sustainability", "composite_score", "notes", "updated_at",
	},
}

func (s *SQLiteStore) UpsertBudgetAssessment(ctx context.Context, a *model.BudgetAssessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.UpdatedAt = now
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}

	query, err := db.UpsertSQL(assessmentUpsert, db.PlaceholderQuestion)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query,
		a.ID, a.ApplicationID, a.ReviewerID, a.ReviewerName,
		a.BudgetReasonableness, a.CostEfficiency, a.BudgetDetail, a.Sustainability,
		a.CompositeScore, a.Notes, a.CreatedAt, now,
	)
	return eris.Wrapf(err, "sqlite: upsert assessment for application %s", a.ApplicationID)
}

func (s *SQLiteStore) ListBudgetAssessments(ctx context.Context, applicationID string) ([]model.BudgetAssessment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, application_id, reviewer_id, reviewer_name, budget_reasonableness, cost_efficiency,
		 budget_detail, sustainability, composite_score, notes, created_at, updated_at
		 FROM budget_assessments WHERE application_id = ? ORDER BY created_at ASC`,
		applicationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assessments")
	}
	defer rows.Close()

	var assessments []model.BudgetAssessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, *a)
	}
	return assessments, eris.Wrap(rows.Err(), "sqlite: list assessments iterate")
}

// --- Decision release ---

func (s *SQLiteStore) ListPendingReleases(ctx context.Context) ([]model.LOI, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+loiColumns+` FROM lois
		 WHERE reviewed_at IS NOT NULL AND released_at IS NULL AND status IN (?, ?)
		 ORDER BY reviewed_at ASC`,
		string(model.LOIStatusApproved), string(model.LOIStatusDeclined),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pending releases")
	}
	defer rows.Close()

	var lois []model.LOI
	for rows.Next() {
		l, err := scanLOI(rows, "")
		if err != nil {
			return nil, err
		}
		lois = append(lois, *l)
	}
	return lois, eris.Wrap(rows.Err(), "sqlite: list pending releases iterate")
}

func (s *SQLiteStore) MarkReleased(ctx context.Context, id string, actorName string) (*model.LOI, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: begin mark released")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE lois SET released_at = ?, updated_at = ?
		 WHERE id = ? AND reviewed_at IS NOT NULL AND released_at IS NULL AND status IN (?, ?)`,
		now, now, id, string(model.LOIStatusApproved), string(model.LOIStatusDeclined),
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: mark released %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Not pending: unknown, undecided, or already released. Skipped.
		return nil, false, nil
	}

	row := tx.QueryRowContext(ctx, `SELECT `+loiColumns+` FROM lois WHERE id = ?`, id)
	loi, err := scanLOI(row, id)
	if err != nil {
		return nil, false, err
	}
	if err := appendHistoryTx(ctx, tx, id, string(loi.Status), string(loi.Status), "decision released to applicant", actorName, now); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: commit mark released")
	}
	return loi, true, nil
}

