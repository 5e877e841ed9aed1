package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"papertrade/internal/domain"
)

// PostgresLedgerStore persists ledgers in PostgreSQL. Tables are created by
// database.RunMigrations.
type PostgresLedgerStore struct {
	db *pgxpool.Pool
}

// NewPostgresLedgerStore creates a new PostgresLedgerStore
func NewPostgresLedgerStore(db *pgxpool.Pool) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

// ReadLedger loads the account, holdings and trades (most-recent-first)
func (r *PostgresLedgerStore) ReadLedger(ctx context.Context, userID string) (*domain.Ledger, error) {
	ledger := &domain.Ledger{UserID: userID, Holdings: []domain.Holding{}, Trades: []domain.Trade{}}

	err := r.db.QueryRow(ctx, `
		SELECT balance, created_at, updated_at
		FROM ledger_accounts
		WHERE user_id = $1
	`, userID).Scan(&ledger.Balance, &ledger.CreatedAt, &ledger.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger account: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT token_address, token_symbol, token_name, amount, average_cost, total_invested, updated_at
		FROM holdings
		WHERE user_id = $1
		ORDER BY token_address
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.TokenAddress, &h.TokenSymbol, &h.TokenName, &h.Amount, &h.AverageCost, &h.TotalInvested, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		ledger.Holdings = append(ledger.Holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	trows, err := r.db.Query(ctx, `
		SELECT id, token_address, token_symbol, token_name, side, amount, unit_price,
		       total_base, reference_price, realized_pnl, executed_at
		FROM trades
		WHERE user_id = $1
		ORDER BY seq DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer trows.Close()

	for trows.Next() {
		var t domain.Trade
		var side string
		if err := trows.Scan(&t.ID, &t.TokenAddress, &t.TokenSymbol, &t.TokenName, &side, &t.Amount, &t.UnitPrice,
			&t.TotalBase, &t.ReferencePrice, &t.RealizedPnL, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Side = domain.Side(side)
		t.Timestamp = t.Timestamp.UTC()
		ledger.Trades = append(ledger.Trades, t)
	}
	if err := trows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	ledger.CreatedAt = ledger.CreatedAt.UTC()
	ledger.UpdatedAt = ledger.UpdatedAt.UTC()
	for i := range ledger.Holdings {
		ledger.Holdings[i].UpdatedAt = ledger.Holdings[i].UpdatedAt.UTC()
	}
	return ledger, nil
}

// WriteLedger stores the whole ledger in one transaction. The account row is
// locked first so concurrent writers for the same user queue up.
func (r *PostgresLedgerStore) WriteLedger(ctx context.Context, ledger *domain.Ledger) error {
	if ledger == nil || ledger.UserID == "" {
		return fmt.Errorf("ledger with user id is required")
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_accounts (user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at
	`, ledger.UserID, ledger.Balance, ledger.CreatedAt, ledger.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert ledger account: %w", err)
	}

	var stored int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM trades WHERE user_id = $1`, ledger.UserID).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count trades: %w", err)
	}
	if stored > len(ledger.Trades) {
		return fmt.Errorf("trade log shrank from %d to %d entries", stored, len(ledger.Trades))
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM holdings WHERE user_id = $1`, ledger.UserID)
	for _, h := range ledger.Holdings {
		batch.Queue(`
			INSERT INTO holdings (user_id, token_address, token_symbol, token_name, amount, average_cost, total_invested, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, ledger.UserID, h.TokenAddress, h.TokenSymbol, h.TokenName, h.Amount, h.AverageCost, h.TotalInvested, h.UpdatedAt)
	}

	fresh := ledger.Trades[:len(ledger.Trades)-stored]
	for i := len(fresh) - 1; i >= 0; i-- {
		t := fresh[i]
		batch.Queue(`
			INSERT INTO trades (id, user_id, seq, token_address, token_symbol, token_name, side, amount,
			                    unit_price, total_base, reference_price, realized_pnl, executed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO NOTHING
		`, t.ID, ledger.UserID, len(ledger.Trades)-1-i, t.TokenAddress, t.TokenSymbol, t.TokenName, string(t.Side), t.Amount,
			t.UnitPrice, t.TotalBase, t.ReferencePrice, t.RealizedPnL, t.Timestamp)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write ledger rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit ledger: %w", err)
	}
	committed = true
	return nil
}

// ResetLedger restores the starting balance and deletes holdings and trades
func (r *PostgresLedgerStore) ResetLedger(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO ledger_accounts (user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at
	`, userID, domain.StartingBalance, now)
	batch.Queue(`DELETE FROM holdings WHERE user_id = $1`, userID)
	batch.Queue(`DELETE FROM trades WHERE user_id = $1`, userID)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to reset ledger: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	committed = true
	return nil
}

// ListUserIDs returns every user with a ledger account
func (r *PostgresLedgerStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM ledger_accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger accounts: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger accounts: %w", err)
	}
	return ids, nil
}

// Close closes the connection pool
func (r *PostgresLedgerStore) Close() error {
	r.db.Close()
	return nil
}
