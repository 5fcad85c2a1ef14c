package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/harborlight-fund/grantflow/internal/db"
	"github.com/harborlight-fund/grantflow/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hottest store operations.
var preparedStatements = map[string]string{
	"get_loi":          `SELECT ` + loiColumns + ` FROM lois WHERE id = $1`,
	"get_application":  `SELECT ` + appColumns + ` FROM applications WHERE id = $1`,
	"list_votes":       `SELECT id, application_id, reviewer_id, reviewer_name, choice, reasoning, created_at, updated_at FROM votes WHERE application_id = $1 ORDER BY created_at ASC`,
	"list_assessments": `SELECT id, application_id, reviewer_id, reviewer_name, budget_reasonableness, cost_efficiency, budget_detail, sustainability, composite_score, notes, created_at, updated_at FROM budget_assessments WHERE application_id = $1 ORDER BY created_at ASC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS lois (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	organization_id  TEXT NOT NULL,
	cycle_id         TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'draft',
	contact_email    TEXT NOT NULL DEFAULT '',
	summary          TEXT,
	ai_summary       TEXT,
	submitted_at     TIMESTAMPTZ,
	reviewed_at      TIMESTAMPTZ,
	reviewed_by_name TEXT,
	decision_reason  TEXT,
	application_id   TEXT,
	released_at      TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(organization_id, cycle_id)
);

CREATE TABLE IF NOT EXISTS applications (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	loi_id               TEXT REFERENCES lois(id),
	organization_id      TEXT NOT NULL,
	cycle_id             TEXT NOT NULL,
	status               TEXT NOT NULL DEFAULT 'draft',
	submitted_at         TIMESTAMPTZ,
	amount_requested     DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_project_budget DOUBLE PRECISION NOT NULL DEFAULT 0,
	notes                JSONB,
	reviewed_at          TIMESTAMPTZ,
	reviewed_by_name     TEXT,
	decision_reason      TEXT,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS status_history (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	entity_id       TEXT NOT NULL,
	previous_status TEXT NOT NULL,
	new_status      TEXT NOT NULL,
	reason          TEXT,
	changed_by_name TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS votes (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	application_id TEXT NOT NULL REFERENCES applications(id),
	reviewer_id    TEXT NOT NULL,
	reviewer_name  TEXT NOT NULL,
	choice         TEXT NOT NULL,
	reasoning      TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(application_id, reviewer_id)
);

CREATE TABLE IF NOT EXISTS budget_assessments (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	application_id        TEXT NOT NULL REFERENCES applications(id),
	reviewer_id           TEXT NOT NULL,
	reviewer_name         TEXT NOT NULL,
	budget_reasonableness INTEGER,
	cost_efficiency       INTEGER,
	budget_detail         INTEGER,
	sustainability        INTEGER,
	composite_score       DOUBLE PRECISION,
	notes                 TEXT,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- LOIs ---

func (s *PostgresStore) CreateLOI(ctx context.Context, loi *model.LOI) error {
	if loi.ID == "" {
		loi.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	loi.CreatedAt = now
	loi.UpdatedAt = now
	if loi.Status == "" {
		loi.Status = model.LOIStatusDraft
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO lois (id, organization_id, cycle_id, status, contact_email, summary, ai_summary, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		loi.ID, loi.OrganizationID, loi.CycleID, string(loi.Status),
		loi.ContactEmail, loi.Summary, loi.AISummary, now, now,
	)
	return eris.Wrap(err, "postgres: insert loi")
}

func (s *PostgresStore) GetLOI(ctx context.Context, id string) (*model.LOI, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+loiColumns+` FROM lois WHERE id = $1`, id)
	return scanLOI(row, id)
}

func (s *PostgresStore) ListLOIs(ctx context.Context, filter LOIFilter) ([]model.LOI, error) {
	query := `SELECT ` + loiColumns + ` FROM lois WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.OrganizationID != "" {
		args = append(args, filter.OrganizationID)
		query += ` AND organization_id = $` + strconv.Itoa(len(args))
	}
	if filter.CycleID != "" {
		args = append(args, filter.CycleID)
		query += ` AND cycle_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list lois")
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
	return lois, eris.Wrap(rows.Err(), "postgres: list lois iterate")
}

func (s *PostgresStore) TransitionLOI(ctx context.Context, t LOITransition) (*model.LOI, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin transition loi")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+loiColumns+` FROM lois WHERE id = $1 FOR UPDATE`, t.ID)
	cur, err := scanLOI(row, t.ID)
	if err != nil {
		return nil, err
	}
	if err := checkLOIPrecondition(cur, t.From); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `UPDATE lois SET status = $1, updated_at = $2`
	args := []any{string(t.To), now}
	if t.StampSubmit {
		args = append(args, now)
		query += `, submitted_at = $` + strconv.Itoa(len(args))
	}
	if t.StampReview {
		args = append(args, now, t.ActorName, t.Reason)
		query += `, reviewed_at = $` + strconv.Itoa(len(args)-2) +
			`, reviewed_by_name = $` + strconv.Itoa(len(args)-1) +
			`, decision_reason = $` + strconv.Itoa(len(args))
	}
	args = append(args, t.ID, string(cur.Status))
	query += ` WHERE id = $` + strconv.Itoa(len(args)-1) + ` AND status = $` + strconv.Itoa(len(args))

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: transition loi %s", t.ID)
	}
	if tag.RowsAffected() == 0 {
		return nil, &model.PreconditionError{
			Entity: "loi", ID: t.ID,
			Expected: joinLOIStatuses(t.From), Actual: string(cur.Status),
		}
	}

	if err := appendHistoryPgx(ctx, tx, t.ID, string(cur.Status), string(t.To), t.Reason, t.ActorName, now); err != nil {
		return nil, err
	}

	if t.Spawn != nil {
		if err := insertApplicationPgx(ctx, tx, t.Spawn, now); err != nil {
			return nil, err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE lois SET application_id = $1 WHERE id = $2 AND application_id IS NULL`,
			t.Spawn.ID, t.ID,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: link application to loi %s", t.ID)
		}
		if tag.RowsAffected() == 0 {
			return nil, &model.TerminalStateError{Entity: "loi", ID: t.ID, Status: string(cur.Status)}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit transition loi")
	}
	return s.GetLOI(ctx, t.ID)
}

// --- Applications ---

func (s *PostgresStore) CreateApplication(ctx context.Context, app *model.Application) error {
	now := time.Now().UTC()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin create application")
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	if err := insertApplicationPgx(ctx, tx, app, now); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit create application")
}

func insertApplicationPgx(ctx context.Context, tx pgx.Tx, app *model.Application, now time.Time) error {
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
		return eris.Wrap(err, "postgres: marshal notes")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO applications (id, loi_id, organization_id, cycle_id, status, amount_requested, total_project_budget, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		app.ID, nullString(app.LOIID), app.OrganizationID, app.CycleID, string(app.Status),
		app.AmountRequested, app.TotalProjectBudget, string(notesJSON), now, now,
	)
	return eris.Wrap(err, "postgres: insert application")
}

func (s *PostgresStore) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+appColumns+` FROM applications WHERE id = $1`, id)
	return scanApplication(row, id)
}

func (s *PostgresStore) TransitionApplication(ctx context.Context, t ApplicationTransition) (*model.Application, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin transition application")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+appColumns+` FROM applications WHERE id = $1 FOR UPDATE`, t.ID)
	cur, err := scanApplication(row, t.ID)
	if err != nil {
		return nil, err
	}
	if err := checkAppPrecondition(cur, t.From); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `UPDATE applications SET status = $1, updated_at = $2`
	args := []any{string(t.To), now}
	if t.StampSubmit {
		args = append(args, now)
		query += `, submitted_at = $` + strconv.Itoa(len(args))
	}
	if t.StampReview {
		args = append(args, now, t.ActorName, t.Reason)
		query += `, reviewed_at = $` + strconv.Itoa(len(args)-2) +
			`, reviewed_by_name = $` + strconv.Itoa(len(args)-1) +
			`, decision_reason = $` + strconv.Itoa(len(args))
	}
	args = append(args, t.ID, string(cur.Status))
	query += ` WHERE id = $` + strconv.Itoa(len(args)-1) + ` AND status = $` + strconv.Itoa(len(args))

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: transition application %s", t.ID)
	}
	if tag.RowsAffected() == 0 {
		return nil, &model.PreconditionError{
			Entity: "application", ID: t.ID,
			Expected: joinAppStatuses(t.From), Actual: string(cur.Status),
		}
	}

	if err := appendHistoryPgx(ctx, tx, t.ID, string(cur.Status), string(t.To), t.Reason, t.ActorName, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit transition application")
	}
	return s.GetApplication(ctx, t.ID)
}

func (s *PostgresStore) AddApplicationNote(ctx context.Context, applicationID string, note model.Note) error {
	note.CreatedAt = time.Now().UTC()
	noteJSON, err := json.Marshal(note)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal note")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE applications SET notes = COALESCE(notes, '[]'::jsonb) || $1::jsonb, updated_at = $2 WHERE id = $3`,
		string(noteJSON), note.CreatedAt, applicationID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: add note to application %s", applicationID)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Entity: "application", ID: applicationID}
	}
	return nil
}

// --- Status ledger ---

func appendHistoryPgx(ctx context.Context, tx pgx.Tx, entityID, prev, next, reason, actor string, now time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO status_history (id, entity_id, previous_status, new_status, reason, changed_by_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), entityID, prev, next, reason, actor, now,
	)
	return eris.Wrapf(err, "postgres: append history for %s", entityID)
}

func (s *PostgresStore) StatusHistory(ctx context.Context, entityID string) ([]model.StatusHistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, entity_id, previous_status, new_status, reason, changed_by_name, created_at
		 FROM status_history WHERE entity_id = $1 ORDER BY created_at ASC`,
		entityID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: status history")
	}
	defer rows.Close()

	var entries []model.StatusHistoryEntry
	for rows.Next() {
		var e model.StatusHistoryEntry
		var reason sql.NullString
		if err := rows.Scan(&e.ID, &e.EntityID, &e.PreviousStatus, &e.NewStatus, &reason, &e.ChangedByName, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history entry")
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: status history iterate")
}

// --- Votes ---

func (s *PostgresStore) UpsertVote(ctx context.Context, v *model.Vote) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.UpdatedAt = now
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}

	query, err := db.UpsertSQL(voteUpsert, db.PlaceholderDollar)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, query,
		v.ID, v.ApplicationID, v.ReviewerID, v.ReviewerName, string(v.Choice), v.Reasoning, v.CreatedAt, now,
	)
	return eris.Wrapf(err, "postgres: upsert vote for application %s", v.ApplicationID)
}

func (s *PostgresStore) ListVotes(ctx context.Context, applicationID string) ([]model.Vote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, application_id, reviewer_id, reviewer_name, choice, reasoning, created_at, updated_at
		 FROM votes WHERE application_id = $1 ORDER BY created_at ASC`,
		applicationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list votes")
	}
	defer rows.Close()

	var votes []model.Vote
	for rows.Next() {
		var v model.Vote
		var reasoning sql.NullString
		if err := rows.Scan(&v.ID, &v.ApplicationID, &v.ReviewerID, &v.ReviewerName, &v.Choice, &reasoning, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan vote")
		}
		v.Reasoning = reasoning.String
		votes = append(votes, v)
	}
	return votes, eris.Wrap(rows.Err(), "postgres: list votes iterate")
}

// --- Budget assessments ---

func (s *PostgresStore) UpsertBudgetAssessment(ctx context.Context, a *model.BudgetAssessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.UpdatedAt = now
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}

	query, err := db.UpsertSQL(assessmentUpsert, db.PlaceholderDollar)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, query,
		a.ID, a.ApplicationID, a.ReviewerID, a.ReviewerName,
		a.BudgetReasonableness, a.CostEfficiency, a.BudgetDetail, a.Sustainability,
		a.CompositeScore, a.Notes, a.CreatedAt, now,
	)
	return eris.Wrapf(err, "postgres: upsert assessment for application %s", a.ApplicationID)
}

func (s *PostgresStore) ListBudgetAssessments(ctx context.Context, applicationID string) ([]model.BudgetAssessment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, application_id, reviewer_id, reviewer_name, budget_reasonableness, cost_efficiency,
		 budget_detail, sustainability, composite_score, notes, created_at, updated_at
		 FROM budget_assessments WHERE application_id = $1 ORDER BY created_at ASC`,
		applicationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assessments")
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
	return assessments, eris.Wrap(rows.Err(), "postgres: list assessments iterate")
}

// --- Decision release ---

func (s *PostgresStore) ListPendingReleases(ctx context.Context) ([]model.LOI, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+loiColumns+` FROM lois
		 WHERE reviewed_at IS NOT NULL AND released_at IS NULL AND status IN ($1, $2)
		 ORDER BY reviewed_at ASC`,
		string(model.LOIStatusApproved), string(model.LOIStatusDeclined),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pending releases")
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
	return lois, eris.Wrap(rows.Err(), "postgres: list pending releases iterate")
}

func (s *PostgresStore) MarkReleased(ctx context.Context, id string, actorName string) (*model.LOI, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: begin mark released")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx,
		`UPDATE lois SET released_at = $1, updated_at = $1
		 WHERE id = $2 AND reviewed_at IS NOT NULL AND released_at IS NULL AND status IN ($3, $4)`,
		now, id, string(model.LOIStatusApproved), string(model.LOIStatusDeclined),
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: mark released %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, false, nil
	}

	row := tx.QueryRow(ctx, `SELECT `+loiColumns+` FROM lois WHERE id = $1`, id)
	loi, err := scanLOI(row, id)
	if err != nil {
		return nil, false, err
	}
	if err := appendHistoryPgx(ctx, tx, id, string(loi.Status), string(loi.Status), "decision released to applicant", actorName, now); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, eris.Wrap(err, "postgres: commit mark released")
	}
	return loi, true, nil
}
