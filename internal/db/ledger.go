package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Ledger records answered comment ids in the comments table.
type Ledger struct {
	db *sql.DB
}

// NewLedger creates the comments table if it does not exist.
func NewLedger(ctx context.Context, database *sql.DB) (*Ledger, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := database.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS comments (cid TEXT PRIMARY KEY)`); err != nil {
		return nil, fmt.Errorf("failed to create comments table: %w", err)
	}
	return &Ledger{db: database}, nil
}

func (l *Ledger) Has(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var exists bool
	err := l.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM comments WHERE cid = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking comment %s: %w", id, err)
	}
	return exists, nil
}

// Add marks id as answered. Adding an id twice is a no-op.
func (l *Ledger) Add(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := l.db.ExecContext(ctx, `INSERT OR IGNORE INTO comments (cid) VALUES (?)`, id); err != nil {
		return fmt.Errorf("failed to insert comment %s: %w", id, err)
	}
	return nil
}

// Flush deletes every entry and returns how many were removed.
func (l *Ledger) Flush(ctx context.Context) (int64, error) {
	result, err := l.db.ExecContext(ctx, `DELETE FROM comments`)
	if err != nil {
		return 0, fmt.Errorf("failed to flush comments: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}

func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
