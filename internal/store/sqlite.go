package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hannysoft/mesa-client/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SetViewed persists the suppression flag for a (user, feature) pair.
// Setting an already-set flag refreshes its timestamp.
func (s *SQLiteStore) SetViewed(ctx context.Context, userID int, feature string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO viewed_flags (user_id, feature, viewed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, feature) DO UPDATE SET viewed_at = excluded.viewed_at`,
		userID, feature, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting viewed flag %s for user %d: %w", feature, userID, err)
	}
	return nil
}

// IsViewed reports whether the flag is set for a (user, feature) pair.
func (s *SQLiteStore) IsViewed(ctx context.Context, userID int, feature string) (bool, error) {
	var viewedAt time.Time
	err := s.db.GetContext(ctx, &viewedAt,
		"SELECT viewed_at FROM viewed_flags WHERE user_id = ? AND feature = ?",
		userID, feature,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading viewed flag %s for user %d: %w", feature, userID, err)
	}
	return true, nil
}

// ClearViewed removes the flag for a (user, feature) pair.
func (s *SQLiteStore) ClearViewed(ctx context.Context, userID int, feature string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM viewed_flags WHERE user_id = ? AND feature = ?",
		userID, feature,
	)
	if err != nil {
		return fmt.Errorf("clearing viewed flag %s for user %d: %w", feature, userID, err)
	}
	return nil
}

// dbMessage is the row representation of a chat message.
type dbMessage struct {
	ID            int       `db:"id"`
	CounterpartID int       `db:"counterpart_id"`
	FromUserID    int       `db:"from_user_id"`
	ToUserID      int       `db:"to_user_id"`
	Body          string    `db:"body"`
	CreatedAt     time.Time `db:"created_at"`
}

// MergeMessage inserts a message keyed by its server-assigned ID. A
// duplicate delivery (push racing a history reload) overwrites in place,
// last writer wins, so the thread renders the ID exactly once.
func (s *SQLiteStore) MergeMessage(
	ctx context.Context,
	counterpartID int,
	msg model.Message,
) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.Get(&existing, "SELECT COUNT(*) FROM messages WHERE id = ?", msg.ID)
	if err != nil {
		return false, fmt.Errorf("checking message %d: %w", msg.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, counterpart_id, from_user_id, to_user_id, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			counterpart_id = excluded.counterpart_id,
			from_user_id   = excluded.from_user_id,
			to_user_id     = excluded.to_user_id,
			body           = excluded.body,
			created_at     = excluded.created_at`,
		msg.ID, counterpartID, msg.FromUserID, msg.ToUserID,
		msg.Body, msg.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("merging message %d: %w", msg.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing message merge: %w", err)
	}

	return existing == 0, nil
}

// MergeMessages merges a full history reload for one conversation.
func (s *SQLiteStore) MergeMessages(
	ctx context.Context,
	counterpartID int,
	msgs []model.Message,
) error {
	for _, msg := range msgs {
		if _, err := s.MergeMessage(ctx, counterpartID, msg); err != nil {
			return err
		}
	}
	return nil
}

// MessagesWith returns the merged thread with a counterpart, ordered by
// creation time, ties broken by ID.
func (s *SQLiteStore) MessagesWith(
	ctx context.Context,
	counterpartID int,
) ([]model.Message, error) {
	var rows []dbMessage
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, counterpart_id, from_user_id, to_user_id, body, created_at
		FROM messages
		WHERE counterpart_id = ?
		ORDER BY created_at ASC, id ASC`,
		counterpartID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading messages with %d: %w", counterpartID, err)
	}

	messages := make([]model.Message, len(rows))
	for i, r := range rows {
		messages[i] = model.Message{
			ID:         r.ID,
			FromUserID: r.FromUserID,
			ToUserID:   r.ToUserID,
			Body:       r.Body,
			CreatedAt:  r.CreatedAt,
		}
	}
	return messages, nil
}
