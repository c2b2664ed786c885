package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetmemo/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DBPath:   filepath.Join(t.TempDir(), "test.db"),
		MediaDir: t.TempDir(),
	}
}

func TestOpen_FreshStoreRecordsVersion(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	defer db.CloseDB()

	var version int
	err = db.Get(&version, `SELECT version FROM schema_version`)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestOpen_MigratesOlderVersion(t *testing.T) {
	cfg := testConfig(t)

	db, err := Open(cfg)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE schema_version SET version = 0`)
	require.NoError(t, err)
	require.NoError(t, db.CloseDB())

	// Reopening must run the migration chain and land on the current version.
	db, err = Open(cfg)
	require.NoError(t, err)
	defer db.CloseDB()

	var version int
	err = db.Get(&version, `SELECT version FROM schema_version`)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestOpen_RejectsNewerVersion(t *testing.T) {
	cfg := testConfig(t)

	db, err := Open(cfg)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE schema_version SET version = ?`, SchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, db.CloseDB())

	_, err = Open(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestRunTx_Commit(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	defer db.CloseDB()

	ctx := context.Background()

	err = db.RunTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`INSERT INTO users (id, fullname, username) VALUES (0, 'A', 'a')`)
		return err
	})
	require.NoError(t, err)

	var count int
	err = db.Get(&count, `SELECT COUNT(*) FROM users`)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunTx_RollbackOnMutatorError(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	defer db.CloseDB()

	ctx := context.Background()

	err = db.RunTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`INSERT INTO users (id, fullname, username) VALUES (0, 'A', 'a')`)
		require.NoError(t, err)
		return assert.AnError
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreWrite)

	// Nothing from the failed mutator may be visible.
	var count int
	err = db.Get(&count, `SELECT COUNT(*) FROM users`)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRunTx_ReentrancyFailsFast(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	defer db.CloseDB()

	ctx := context.Background()

	err = db.RunTx(ctx, func(tx *sqlx.Tx) error {
		return db.RunTx(ctx, func(tx *sqlx.Tx) error {
			return nil
		})
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReentrantTx)

	// The guard must reset so the next transaction can proceed.
	err = db.RunTx(ctx, func(tx *sqlx.Tx) error { return nil })
	assert.NoError(t, err)
}

func TestRunTx_LikeCounterCheckConstraint(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	defer db.CloseDB()

	ctx := context.Background()

	err = db.RunTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO tweets (id, author_id, caption, timestamp, likes, did_like)
			VALUES (0, 0, 'hello', CURRENT_TIMESTAMP, -1, 0)
		`)
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreWrite)
}
