package storage

import (
	"context"
	"time"
)

// XPCredit is one XP grant. (UserID, EventID, Source) is its idempotency key.
type XPCredit struct {
	UserID   string
	EventID  string
	Source   string
	SourceID string
	Amount   int
	At       time.Time
}

// XPResult reports the user's total around a credit.
// Applied is false when the credit key was already recorded; the totals are
// then the ones recorded with that earlier credit, so a retried handler sees
// the same numbers as the attempt that wrote it.
type XPResult struct {
	Applied  bool
	OldTotal int
	NewTotal int
}

// XPLedger stores XP transactions and per-user totals.
type XPLedger interface {
	Credit(ctx context.Context, credit XPCredit) (XPResult, error)

	// AwardBadge records a badge once per user. It returns true when eventID is
	// the event that earned it, including on redelivery of that event.
	AwardBadge(ctx context.Context, userID, badgeID, eventID string, at time.Time) (bool, error)

	TotalXP(ctx context.Context, userID string) (int, error)
}
