package eloquent_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/eloquent"
	"github.com/syssam/eloquent/dialect"
	"github.com/syssam/eloquent/dialect/sql"
)

// newMockClient returns a client over a sqlmock connection that matches
// statements verbatim.
func newMockClient(t *testing.T, name string) (*eloquent.Client, sqlmock.Sqlmock, *eloquent.Schema) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	users := eloquent.Define("users")
	users.HasMany("posts", eloquent.Define("posts"))
	client := eloquent.NewClient(sql.OpenDB(name, db), eloquent.WithLogger(slog.New(slog.DiscardHandler)))
	return client, mock, users
}

func TestBuilderArgumentErrors(t *testing.T) {
	client, _, users := newMockClient(t, dialect.Postgres)

	tests := []struct {
		name  string
		build func(*eloquent.Builder) *eloquent.Builder
	}{
		{"NoValue", func(b *eloquent.Builder) *eloquent.Builder { return b.Where("name") }},
		{"TooManyArgs", func(b *eloquent.Builder) *eloquent.Builder { return b.Where("name", "=", "a", "b") }},
		{"OperatorNotString", func(b *eloquent.Builder) *eloquent.Builder { return b.Where("age", 5, 6) }},
		{"UnknownOperator", func(b *eloquent.Builder) *eloquent.Builder { return b.Where("age", "~", 1) }},
		{"NilComparison", func(b *eloquent.Builder) *eloquent.Builder { return b.OrWhere("age", ">", nil) }},
		{"Direction", func(b *eloquent.Builder) *eloquent.Builder { return b.OrderBy("name", "sideways") }},
		{"NegativeLimit", func(b *eloquent.Builder) *eloquent.Builder { return b.Limit(-1) }},
		{"NegativeOffset", func(b *eloquent.Builder) *eloquent.Builder { return b.Skip(-3) }},
		{"FirstErrorKept", func(b *eloquent.Builder) *eloquent.Builder { return b.Limit(-1).Where("name", "a") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.build(client.Query(users))
			require.Error(t, b.Err())
			assert.True(t, eloquent.IsInvalidArgument(b.Err()))

			_, err := b.Get(t.Context())
			assert.Equal(t, b.Err(), err)
			_, err = b.Count(t.Context())
			assert.Equal(t, b.Err(), err)
			_, err = b.Exists(t.Context())
			assert.Equal(t, b.Err(), err)
		})
	}

	t.Run("Identifier", func(t *testing.T) {
		_, err := client.Query(users).Where("name; DROP TABLE users", 1).Get(t.Context())
		require.Error(t, err)
		assert.True(t, eloquent.IsInvalidArgument(err))
		var aerr *eloquent.ArgumentError
		require.ErrorAs(t, err, &aerr)
		assert.Equal(t, "Get", aerr.Op)
	})
}

func TestBuilderPostgres(t *testing.T) {
	client, mock, users := newMockClient(t, dialect.Postgres)
	assert.Equal(t, dialect.Postgres, client.Dialect())

	t.Run("NullComparisons", func(t *testing.T) {
		mock.ExpectQuery(`SELECT * FROM "users" WHERE "deleted_at" IS NULL AND "email" IS NOT NULL AND "age" >= $1`).
			WithArgs(18).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
		got, err := client.Query(users).
			Where("deleted_at", nil).
			Where("email", "!=", nil).
			Where("age", ">=", 18).
			Get(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1)}, got.IDs())
	})

	t.Run("InsertReturning", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO "users" ("age","name") VALUES ($1,$2) RETURNING "id"`).
			WithArgs(30, "a8m").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
		u := client.New(users, nil).Set("name", "a8m").Set("age", 30)
		require.NoError(t, u.Save(t.Context()))
		assert.Equal(t, int64(9), u.ID())
		assert.Equal(t, eloquent.StatePersisted, u.State())

		mock.ExpectExec(`UPDATE "users" SET "name" = $1 WHERE "id" = $2`).
			WithArgs("ariel", int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, u.Save(t.Context(), map[string]any{"name": "ariel"}))
		assert.False(t, u.IsDirty())
	})

	t.Run("CountAsString", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT(*) AS "count" FROM "users" WHERE "age" > $1`).
			WithArgs(20).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow("3"))
		n, err := client.Query(users).Where("age", ">", 20).OrderByDesc("age").Limit(1).Count(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("Exists", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "id" FROM "users" WHERE "name" = $1 LIMIT 1`).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		ok, err := client.Query(users).Where("name", "nobody").Exists(t.Context())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ExecutorError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT * FROM "users"`).WillReturnError(errors.New("connection reset"))
		_, err := client.Query(users).Get(t.Context())
		require.Error(t, err)
		assert.True(t, eloquent.IsExecutorError(err))
		assert.False(t, eloquent.IsInvalidArgument(err))
	})

	t.Run("EagerLoadError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT * FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "a8m"))
		mock.ExpectQuery(`SELECT * FROM "posts" WHERE "user_id" IN ($1)`).
			WithArgs(int64(1)).
			WillReturnError(errors.New("connection reset"))
		_, err := client.Query(users).With("posts").Get(t.Context())
		require.Error(t, err)
		var qerr *eloquent.QueryError
		require.ErrorAs(t, err, &qerr)
		assert.Equal(t, "with posts", qerr.Op)
		assert.True(t, eloquent.IsExecutorError(err))
	})
}

func TestBuilderMySQLOffset(t *testing.T) {
	client, mock, users := newMockClient(t, dialect.MySQL)
	mock.ExpectQuery("SELECT * FROM `users` ORDER BY `id` ASC LIMIT 9223372036854775807 OFFSET 5").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	got, err := client.Query(users).OrderBy("id", "").Skip(5).Get(t.Context())
	require.NoError(t, err)
	assert.False(t, got.HasItems())
}

func TestWithTxMock(t *testing.T) {
	t.Run("RollbackFailure", func(t *testing.T) {
		client, mock, _ := newMockClient(t, dialect.SQLite)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("conn closed"))
		cause := errors.New("boom")
		err := client.WithTx(t.Context(), func(*eloquent.Client) error { return cause })
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		var rerr *eloquent.RollbackError
		assert.ErrorAs(t, err, &rerr)
	})

	t.Run("CommitFailure", func(t *testing.T) {
		client, mock, _ := newMockClient(t, dialect.SQLite)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
		err := client.WithTx(t.Context(), func(*eloquent.Client) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "serialization failure")
	})

	t.Run("BeginFailure", func(t *testing.T) {
		client, mock, _ := newMockClient(t, dialect.SQLite)
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
		called := false
		err := client.WithTx(t.Context(), func(*eloquent.Client) error {
			called = true
			return nil
		})
		require.Error(t, err)
		assert.False(t, called)
	})
}
