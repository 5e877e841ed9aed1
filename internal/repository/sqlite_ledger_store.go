package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/pkg/errors"

	"papertrade/internal/domain"
)

// SQLiteSchema creates the local ledger tables. Timestamps are unix nanoseconds.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
	user_id    TEXT PRIMARY KEY,
	balance    REAL NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
	user_id        TEXT NOT NULL,
	token_address  TEXT NOT NULL,
	token_symbol   TEXT NOT NULL DEFAULT '',
	token_name     TEXT NOT NULL DEFAULT '',
	amount         REAL NOT NULL,
	average_cost   REAL NOT NULL,
	total_invested REAL NOT NULL,
	updated_at     INTEGER NOT NULL,
	PRIMARY KEY (user_id, token_address)
);

CREATE TABLE IF NOT EXISTS trades (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	token_address   TEXT NOT NULL,
	token_symbol    TEXT NOT NULL DEFAULT '',
	token_name      TEXT NOT NULL DEFAULT '',
	side            TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
	amount          REAL NOT NULL,
	unit_price      REAL NOT NULL,
	total_base      REAL NOT NULL,
	reference_price REAL NOT NULL,
	realized_pnl    REAL,
	executed_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_user_seq ON trades (user_id, seq);
`

// SQLiteLedgerStore persists ledgers in a local SQLite database
type SQLiteLedgerStore struct {
	db *sql.DB
}

// NewSQLiteLedgerStore applies the schema to db
func NewSQLiteLedgerStore(db *sql.DB) (*SQLiteLedgerStore, error) {
	if _, err := db.Exec(SQLiteSchema); err != nil {
		return nil, errors.Wrap(err, "apply sqlite schema")
	}
	return &SQLiteLedgerStore{db: db}, nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// ReadLedger loads the account, holdings and trades (most-recent-first)
func (s *SQLiteLedgerStore) ReadLedger(ctx context.Context, userID string) (*domain.Ledger, error) {
	ledger := &domain.Ledger{UserID: userID, Holdings: []domain.Holding{}, Trades: []domain.Trade{}}

	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance, created_at, updated_at FROM ledger_accounts WHERE user_id = ?`, userID,
	).Scan(&ledger.Balance, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLedgerNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "read ledger account")
	}
	ledger.CreatedAt, ledger.UpdatedAt = fromNanos(created), fromNanos(updated)

	hrows, err := s.db.QueryContext(ctx, `
		SELECT token_address, token_symbol, token_name, amount, average_cost, total_invested, updated_at
		FROM holdings WHERE user_id = ? ORDER BY token_address`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "read holdings")
	}
	defer hrows.Close()

	for hrows.Next() {
		var h domain.Holding
		var at int64
		if err := hrows.Scan(&h.TokenAddress, &h.TokenSymbol, &h.TokenName, &h.Amount, &h.AverageCost, &h.TotalInvested, &at); err != nil {
			return nil, errors.Wrap(err, "scan holding")
		}
		h.UpdatedAt = fromNanos(at)
		ledger.Holdings = append(ledger.Holdings, h)
	}
	if err := hrows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate holdings")
	}

	trows, err := s.db.QueryContext(ctx, `
		SELECT id, token_address, token_symbol, token_name, side, amount, unit_price,
		       total_base, reference_price, realized_pnl, executed_at
		FROM trades WHERE user_id = ? ORDER BY seq DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "read trades")
	}
	defer trows.Close()

	for trows.Next() {
		var t domain.Trade
		var side string
		var pnl sql.NullFloat64
		var at int64
		if err := trows.Scan(&t.ID, &t.TokenAddress, &t.TokenSymbol, &t.TokenName, &side, &t.Amount, &t.UnitPrice,
			&t.TotalBase, &t.ReferencePrice, &pnl, &at); err != nil {
			return nil, errors.Wrap(err, "scan trade")
		}
		t.Side = domain.Side(side)
		if pnl.Valid {
			v := pnl.Float64
			t.RealizedPnL = &v
		}
		t.Timestamp = fromNanos(at)
		ledger.Trades = append(ledger.Trades, t)
	}
	if err := trows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate trades")
	}

	return ledger, nil
}

// WriteLedger stores the whole ledger in one transaction. Trades already
// stored are left alone; only the new head of the log is inserted.
func (s *SQLiteLedgerStore) WriteLedger(ctx context.Context, ledger *domain.Ledger) (err error) {
	if ledger == nil || ledger.UserID == "" {
		return errors.New("ledger with user id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_accounts (user_id, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		ledger.UserID, ledger.Balance, toNanos(ledger.CreatedAt), toNanos(ledger.UpdatedAt),
	); err != nil {
		return errors.Wrap(err, "upsert ledger account")
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM holdings WHERE user_id = ?`, ledger.UserID); err != nil {
		return errors.Wrap(err, "clear holdings")
	}
	for _, h := range ledger.Holdings {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO holdings (user_id, token_address, token_symbol, token_name, amount, average_cost, total_invested, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ledger.UserID, h.TokenAddress, h.TokenSymbol, h.TokenName, h.Amount, h.AverageCost, h.TotalInvested, toNanos(h.UpdatedAt),
		); err != nil {
			return errors.Wrap(err, "insert holding")
		}
	}

	var stored int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE user_id = ?`, ledger.UserID).Scan(&stored); err != nil {
		return errors.Wrap(err, "count trades")
	}
	if stored > len(ledger.Trades) {
		err = errors.Errorf("trade log shrank from %d to %d entries", stored, len(ledger.Trades))
		return err
	}

	fresh := ledger.Trades[:len(ledger.Trades)-stored]
	for i := len(fresh) - 1; i >= 0; i-- {
		t := fresh[i]
		seq := len(ledger.Trades) - 1 - i
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO trades (id, user_id, seq, token_address, token_symbol, token_name, side, amount,
			                    unit_price, total_base, reference_price, realized_pnl, executed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			t.ID, ledger.UserID, seq, t.TokenAddress, t.TokenSymbol, t.TokenName, string(t.Side), t.Amount,
			t.UnitPrice, t.TotalBase, t.ReferencePrice, nullableFloat(t.RealizedPnL), toNanos(t.Timestamp),
		); err != nil {
			return errors.Wrap(err, "insert trade")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit ledger")
	}
	return nil
}

// ResetLedger restores the starting balance and deletes holdings and trades
func (s *SQLiteLedgerStore) ResetLedger(ctx context.Context, userID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := toNanos(time.Now().UTC())
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_accounts (user_id, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		userID, domain.StartingBalance, now, now,
	); err != nil {
		return errors.Wrap(err, "reset ledger account")
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM holdings WHERE user_id = ?`, userID); err != nil {
		return errors.Wrap(err, "clear holdings")
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM trades WHERE user_id = ?`, userID); err != nil {
		return errors.Wrap(err, "clear trades")
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit reset")
	}
	return nil
}

// ListUserIDs returns every user with a ledger account
func (s *SQLiteLedgerStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM ledger_accounts`)
	if err != nil {
		return nil, errors.Wrap(err, "list ledger accounts")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan user id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate ledger accounts")
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the database handle
func (s *SQLiteLedgerStore) Close() error {
	return s.db.Close()
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
