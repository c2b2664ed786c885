package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"tweetmemo/internal/config"
)

// SchemaVersion is bumped whenever the table layout changes. Opening a
// store whose recorded version is older runs the migration chain before
// any query is served.
const SchemaVersion = 1

var (
	// ErrStoreWrite marks a transaction whose mutator or commit failed.
	// No partial writes are visible after it is returned.
	ErrStoreWrite = errors.New("store write failed")
	// ErrReentrantTx marks an attempt to open a transaction while one is
	// already active. This is a programming error, not a retryable state.
	ErrReentrantTx = errors.New("reentrant transaction")
	// ErrSchemaTooNew marks a store written by a newer build.
	ErrSchemaTooNew = errors.New("schema version is newer than this build")
)

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY,
	fullname      TEXT NOT NULL,
	username      TEXT NOT NULL,
	profile_text  TEXT NOT NULL DEFAULT '',
	profile_image BLOB
);

CREATE TABLE IF NOT EXISTS follows (
	user_id   INTEGER NOT NULL,
	target_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_follows_user ON follows (user_id);

CREATE TABLE IF NOT EXISTS tweets (
	id        INTEGER PRIMARY KEY,
	author_id INTEGER NOT NULL,
	caption   TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	likes     INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
	did_like  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS replies (
	id        INTEGER PRIMARY KEY,
	tweet_id  INTEGER NOT NULL,
	author_id INTEGER NOT NULL,
	caption   TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	likes     INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
	did_like  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_replies_tweet ON replies (tweet_id);

CREATE TABLE IF NOT EXISTS images (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_kind TEXT NOT NULL,
	owner_id   INTEGER NOT NULL,
	file_name  TEXT NOT NULL,
	position   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_images_owner ON images (owner_kind, owner_id);
`

type DB struct {
	*sqlx.DB
	// inTx guards against nested RunTx calls. A plain bool is enough:
	// all store access happens on one caller goroutine.
	inTx bool
}

// Open opens or creates the store file, applies the schema and runs the
// migration chain if the recorded schema version is behind.
func Open(cfg *config.Config) (*DB, error) {
	sqlDB, err := sqlx.Connect("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}

	// One writer, one connection. Also keeps ":memory:" stores coherent,
	// since every sqlite connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.checkVersion(); err != nil {
		db.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"path":    cfg.DBPath,
		"version": SchemaVersion,
	}).Debug("store opened")

	return db, nil
}

func (db *DB) checkVersion() error {
	var stored int
	err := db.Get(&stored, `SELECT version FROM schema_version`)
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh store: record the current version.
		_, err = db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion)
		if err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if stored > SchemaVersion {
		return fmt.Errorf("%w: store has %d, build supports %d", ErrSchemaTooNew, stored, SchemaVersion)
	}

	if stored < SchemaVersion {
		if err := db.migrate(stored); err != nil {
			return fmt.Errorf("migrate from version %d: %w", stored, err)
		}
	}

	return nil
}

// migrate walks the store from the given version up to SchemaVersion.
// Every step so far is a no-op version bump.
func (db *DB) migrate(from int) error {
	for v := from; v < SchemaVersion; v++ {
		logrus.WithFields(logrus.Fields{"from": v, "to": v + 1}).Info("migrating store schema")
	}
	_, err := db.Exec(`UPDATE schema_version SET version = ?`, SchemaVersion)
	return err
}

// RunTx runs the mutator inside a single transaction. A mutator error or a
// commit failure rolls everything back and surfaces as ErrStoreWrite; no
// partial writes become visible. Opening a transaction while one is active
// fails fast with ErrReentrantTx.
func (db *DB) RunTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if db.inTx {
		return ErrReentrantTx
	}
	db.inTx = true
	defer func() { db.inTx = false }()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStoreWrite, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logrus.WithError(rbErr).Error("transaction rollback failed")
		}
		if errors.Is(err, ErrReentrantTx) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStoreWrite, err)
	}

	return nil
}

func (db *DB) CloseDB() error {
	return db.DB.Close()
}
