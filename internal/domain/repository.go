package domain

import (
	"context"
)

// LedgerStore persists ledgers keyed by user identity. Every backend must
// satisfy the same contract so the executor never depends on which one is used.
type LedgerStore interface {
	// ReadLedger returns the stored ledger or ErrLedgerNotFound
	ReadLedger(ctx context.Context, userID string) (*Ledger, error)

	// WriteLedger replaces balance, holdings and trade log as one atomic unit
	WriteLedger(ctx context.Context, ledger *Ledger) error

	// ResetLedger restores the starting balance and empties holdings and trades
	ResetLedger(ctx context.Context, userID string) error

	// ListUserIDs returns every user with a stored ledger
	ListUserIDs(ctx context.Context) ([]string, error)

	// Close releases the backend
	Close() error
}
