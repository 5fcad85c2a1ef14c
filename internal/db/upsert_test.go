package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL(t *testing.T) {
	t.Parallel()

	t.Run("dollar placeholders", func(t *testing.T) {
		t.Parallel()
		sql, err := UpsertSQL(UpsertConfig{
			Table:        "votes",
			Columns:      []string{"id", "application_id", "reviewer_id", "choice"},
			ConflictKeys: []string{"application_id", "reviewer_id"},
			UpdateCols:   []string{"choice"},
		}, PlaceholderDollar)
		require.NoError(t, err)
		assert.Equal(t,
			`INSERT INTO "votes" ("id", "application_id", "reviewer_id", "choice") VALUES ($1, $2, $3, $4) ON CONFLICT ("application_id", "reviewer_id") DO UPDATE SET "choice" = EXCLUDED."choice"`,
			sql,
		)
	})

	t.Run("question placeholders", func(t *testing.T) {
		t.Parallel()
		sql, err := UpsertSQL(UpsertConfig{
			Table:        "votes",
			Columns:      []string{"id", "choice"},
			ConflictKeys: []string{"id"},
		}, PlaceholderQuestion)
		require.NoError(t, err)
		assert.Contains(t, sql, "VALUES (?, ?)")
	})

	t.Run("default update cols exclude conflict keys", func(t *testing.T) {
		t.Parallel()
		sql, err := UpsertSQL(UpsertConfig{
			Table:        "budget_assessments",
			Columns:      []string{"application_id", "reviewer_id", "notes"},
			ConflictKeys: []string{"application_id", "reviewer_id"},
		}, PlaceholderDollar)
		require.NoError(t, err)
		assert.Contains(t, sql, `"notes" = EXCLUDED."notes"`)
		assert.NotContains(t, sql, `"application_id" = EXCLUDED`)
	})

	t.Run("schema-qualified table", func(t *testing.T) {
		t.Parallel()
		sql, err := UpsertSQL(UpsertConfig{
			Table:        "review.votes",
			Columns:      []string{"id"},
			ConflictKeys: []string{"id"},
			UpdateCols:   []string{"id"},
		}, PlaceholderDollar)
		require.NoError(t, err)
		assert.Contains(t, sql, `"review"."votes"`)
	})

	t.Run("missing conflict keys", func(t *testing.T) {
		t.Parallel()
		_, err := UpsertSQL(UpsertConfig{Table: "votes", Columns: []string{"id"}}, PlaceholderDollar)
		assert.Error(t, err)
	})
}
