package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/xkorin-lab/xkorin/internal/core/storage"
)

const (
	queryInitUserXP = `
		INSERT INTO user_xp (user_id, total_xp, updated_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO NOTHING
	`

	querySelectUserXPForUpdate = `
		SELECT total_xp
		FROM user_xp
		WHERE user_id = $1
		FOR UPDATE
	`

	// The unique key (user_id, event_id, source) makes redelivered credits no-ops.
	queryInsertXPTransaction = `
		INSERT INTO xp_transactions (user_id, event_id, source, source_id, amount, old_total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, event_id, source) DO NOTHING
	`

	querySelectXPTransaction = `
		SELECT amount, old_total
		FROM xp_transactions
		WHERE user_id = $1 AND event_id = $2 AND source = $3
	`

	queryUpdateUserXP = `
		UPDATE user_xp
		SET total_xp = $2, updated_at = $3
		WHERE user_id = $1
	`

	queryReadUserXP = `SELECT total_xp FROM user_xp WHERE user_id = $1`

	// The no-op update makes RETURNING yield the holder on conflict too.
	queryAwardBadge = `
		INSERT INTO user_badges (user_id, badge_id, event_id, earned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, badge_id) DO UPDATE SET event_id = user_badges.event_id
		RETURNING event_id
	`
)

// LedgerAdapter implements storage.XPLedger using PostgreSQL.
// The transaction insert and the total update share one transaction.
type LedgerAdapter struct {
	db *sql.DB
}

// NewLedgerAdapter creates a LedgerAdapter sharing the given connection.
func NewLedgerAdapter(db *sql.DB) *LedgerAdapter {
	return &LedgerAdapter{db: db}
}

// Credit records the XP grant once per (user, event, source) and updates the total.
func (a *LedgerAdapter) Credit(ctx context.Context, credit storage.XPCredit) (storage.XPResult, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.XPResult{}, fmt.Errorf("xp credit: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, queryInitUserXP, credit.UserID, credit.At); err != nil {
		return storage.XPResult{}, fmt.Errorf("xp credit: init user row: %w", err)
	}

	var total int
	if err := tx.QueryRowContext(ctx, querySelectUserXPForUpdate, credit.UserID).Scan(&total); err != nil {
		return storage.XPResult{}, fmt.Errorf("xp credit: read total for update: %w", err)
	}

	result, err := tx.ExecContext(ctx, queryInsertXPTransaction,
		credit.UserID,
		credit.EventID,
		credit.Source,
		credit.SourceID,
		credit.Amount,
		total,
		credit.At,
	)
	if err != nil {
		return storage.XPResult{}, fmt.Errorf("xp credit: insert transaction: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return storage.XPResult{}, fmt.Errorf("xp credit: check transaction insert: %w", err)
	}

	if inserted == 0 {
		var amount, oldTotal int
		if err := tx.QueryRowContext(ctx, querySelectXPTransaction,
			credit.UserID, credit.EventID, credit.Source,
		).Scan(&amount, &oldTotal); err != nil {
			return storage.XPResult{}, fmt.Errorf("xp credit: read recorded credit: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return storage.XPResult{}, fmt.Errorf("xp credit: commit: %w", err)
		}
		slog.Info("[LedgerAdapter] Duplicate credit skipped",
			"user_id", credit.UserID,
			"event_id", credit.EventID,
			"source", credit.Source)
		return storage.XPResult{Applied: false, OldTotal: oldTotal, NewTotal: oldTotal + amount}, nil
	}

	newTotal := total + credit.Amount
	if _, err := tx.ExecContext(ctx, queryUpdateUserXP, credit.UserID, newTotal, credit.At); err != nil {
		return storage.XPResult{}, fmt.Errorf("xp credit: update total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return storage.XPResult{}, fmt.Errorf("xp credit: commit: %w", err)
	}

	return storage.XPResult{Applied: true, OldTotal: total, NewTotal: newTotal}, nil
}

// AwardBadge records the badge once per user and reports whether eventID holds it.
func (a *LedgerAdapter) AwardBadge(ctx context.Context, userID, badgeID, eventID string, at time.Time) (bool, error) {
	var holder string
	if err := a.db.QueryRowContext(ctx, queryAwardBadge, userID, badgeID, eventID, at).Scan(&holder); err != nil {
		return false, fmt.Errorf("award badge %s to %s: %w", badgeID, userID, err)
	}
	return holder == eventID, nil
}

// TotalXP returns the user's total. Users without credits have 0.
func (a *LedgerAdapter) TotalXP(ctx context.Context, userID string) (int, error) {
	var total int
	err := a.db.QueryRowContext(ctx, queryReadUserXP, userID).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read total xp for %s: %w", userID, err)
	}
	return total, nil
}
