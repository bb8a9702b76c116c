package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteLedger implements Ledger on SQLite. Accounts open lazily with a
// configurable opening balance; idempotency comes from a unique
// (round_id, entry_type) constraint on the entries table.
type SQLiteLedger struct {
	db      *sql.DB
	opening decimal.Decimal
}

// NewSQLiteLedger opens (or creates) the ledger database at path.
func NewSQLiteLedger(path string, openingBalance decimal.Decimal) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	l := &SQLiteLedger{db: db, opening: openingBalance}
	if err := l.migrate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY,
			balance TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			round_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			entry_type TEXT NOT NULL,
			amount TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE(round_id, entry_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_user ON entries(user_id)`,
	}
	for _, migration := range migrations {
		if _, err := l.db.Exec(migration); err != nil {
			return fmt.Errorf("ledger migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// Balance returns the user's balance, opening the account if needed.
func (l *SQLiteLedger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin balance read: %w", err)
	}
	defer tx.Rollback()

	balance, err := l.balanceTx(ctx, tx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return balance, tx.Commit()
}

// Debit takes amount from the user's balance for a round bet. It rejects
// with ErrInsufficientFunds before any state change, and is a no-op when
// the same round's bet was already taken.
func (l *SQLiteLedger) Debit(ctx context.Context, userID string, amount decimal.Decimal, roundID string) error {
	return l.apply(ctx, userID, amount.Neg(), roundID, EntryBet)
}

// Credit pays amount to the user's balance for a round settlement. Retrying
// the same round's credit is a no-op.
func (l *SQLiteLedger) Credit(ctx context.Context, userID string, amount decimal.Decimal, roundID string) error {
	return l.apply(ctx, userID, amount, roundID, EntryWin)
}

func (l *SQLiteLedger) apply(ctx context.Context, userID string, delta decimal.Decimal, roundID, entryType string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	// idempotency first: a retried entry must stay a no-op even when the
	// current balance could no longer cover it
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO entries (round_id, user_id, entry_type, amount, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		roundID, userID, entryType, delta.Abs().String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	if inserted == 0 {
		// already applied for this round
		return nil
	}

	balance, err := l.balanceTx(ctx, tx, userID)
	if err != nil {
		return err
	}

	next := balance.Add(delta)
	if next.IsNegative() {
		// rollback discards the entry recorded above
		return ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE user_id = ?`,
		next.String(), userID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	return tx.Commit()
}

func (l *SQLiteLedger) balanceTx(ctx context.Context, tx *sql.Tx, userID string) (decimal.Decimal, error) {
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.ExecContext(ctx, `INSERT INTO accounts (user_id, balance) VALUES (?, ?)`,
			userID, l.opening.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to open account: %w", err)
		}
		return l.opening, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad balance %q: %w", raw, err)
	}
	return balance, nil
}
