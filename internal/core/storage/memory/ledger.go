package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xkorin-lab/xkorin/internal/core/storage"
)

type creditKey struct {
	userID  string
	eventID string
	source  string
}

type badgeKey struct {
	userID  string
	badgeID string
}

type transaction struct {
	credit   storage.XPCredit
	oldTotal int
}

type badge struct {
	eventID string
	at      time.Time
}

// Ledger is an in-process storage.XPLedger.
type Ledger struct {
	mu           sync.Mutex
	totals       map[string]int
	transactions map[creditKey]transaction
	badges       map[badgeKey]badge
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		totals:       make(map[string]int),
		transactions: make(map[creditKey]transaction),
		badges:       make(map[badgeKey]badge),
	}
}

// Credit applies the grant once per (user, event, source).
func (l *Ledger) Credit(ctx context.Context, credit storage.XPCredit) (storage.XPResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := creditKey{userID: credit.UserID, eventID: credit.EventID, source: credit.Source}
	if tx, exists := l.transactions[key]; exists {
		return storage.XPResult{
			Applied:  false,
			OldTotal: tx.oldTotal,
			NewTotal: tx.oldTotal + tx.credit.Amount,
		}, nil
	}

	total := l.totals[credit.UserID]
	l.transactions[key] = transaction{credit: credit, oldTotal: total}
	l.totals[credit.UserID] = total + credit.Amount
	return storage.XPResult{Applied: true, OldTotal: total, NewTotal: total + credit.Amount}, nil
}

// AwardBadge records the badge once per user and reports whether eventID holds it.
func (l *Ledger) AwardBadge(ctx context.Context, userID, badgeID, eventID string, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := badgeKey{userID: userID, badgeID: badgeID}
	if held, exists := l.badges[key]; exists {
		return held.eventID == eventID, nil
	}
	l.badges[key] = badge{eventID: eventID, at: at}
	return true, nil
}

// TotalXP returns the user's total.
func (l *Ledger) TotalXP(ctx context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals[userID], nil
}

// Transactions counts ledger rows for one user and event across sources.
func (l *Ledger) Transactions(userID, eventID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key := range l.transactions {
		if key.userID == userID && key.eventID == eventID {
			n++
		}
	}
	return n
}
