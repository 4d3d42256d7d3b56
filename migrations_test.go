package feedkit_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/coregx/feedkit"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Ordered(t *testing.T) {
	migrations, err := feedkit.Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "feedkit_subscription")
}

func TestApplyMigrations_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	require.NoError(t, feedkit.ApplyMigrations(ctx, db))

	// Second run is a no-op.
	require.NoError(t, feedkit.ApplyMigrations(ctx, db))

	_, err = db.ExecContext(ctx,
		`INSERT INTO feedkit_subscription (id, topic_url, hub_url, callback_url, verify_token_hash, created_time)
		 VALUES ('abc', 'http://example.com/feed', 'http://hub.example.com', 'http://cb/abc', 'hash', 1)`)
	require.NoError(t, err)

	var state string
	var expiration int64
	err = db.QueryRowContext(ctx,
		"SELECT subscription_state, expiration_time FROM feedkit_subscription WHERE id = 'abc'").
		Scan(&state, &expiration)
	require.NoError(t, err)
	assert.Equal(t, "unverified", state)
	assert.Equal(t, int64(0), expiration)
}

func TestApplyMigrations_NilDB(t *testing.T) {
	err := feedkit.ApplyMigrations(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))
}
