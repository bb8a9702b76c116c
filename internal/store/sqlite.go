package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements the DB interface using SQLite.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) the database at path.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs idempotent schema migrations.
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			game_type TEXT NOT NULL,
			status TEXT NOT NULL,
			bet_amount TEXT NOT NULL,
			mines_count INTEGER NOT NULL DEFAULT 0,
			selected_numbers TEXT NOT NULL DEFAULT '[]',
			outcome TEXT NOT NULL,
			revealed TEXT NOT NULL DEFAULT '[]',
			matches INTEGER NOT NULL DEFAULT 0,
			multiplier TEXT NOT NULL,
			payout TEXT NOT NULL,
			net_profit TEXT NOT NULL,
			server_seed TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			pending_credit INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			completed_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS seed_pairs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			server_seed TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			next_server_seed TEXT NOT NULL,
			next_server_seed_hash TEXT NOT NULL,
			nonce INTEGER NOT NULL DEFAULT 0,
			games_played INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			retired_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_user_status ON rounds(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_user_created ON rounds(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_pending ON rounds(pending_credit) WHERE pending_credit = 1`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_seed_pairs_active ON seed_pairs(user_id) WHERE active = 1`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const roundColumns = `id, user_id, game_type, status, bet_amount, mines_count,
	selected_numbers, outcome, revealed, matches, multiplier, payout, net_profit,
	server_seed, server_seed_hash, client_seed, nonce, pending_credit,
	created_at, completed_at`

// CreateRound inserts a new round.
func (s *SQLiteDB) CreateRound(ctx context.Context, round *Round) error {
	return s.insertRound(ctx, s.db, round)
}

func (s *SQLiteDB) insertRound(ctx context.Context, ex execer, round *Round) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO rounds (`+roundColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		round.ID, round.UserID, round.GameType, round.Status,
		round.BetAmount.String(), round.MinesCount,
		encodeInts(round.SelectedNumbers), encodeInts(round.Outcome), encodeInts(round.Revealed),
		round.Matches, round.Multiplier.String(), round.Payout.String(), round.NetProfit.String(),
		round.ServerSeed, round.ServerSeedHash, round.ClientSeed, round.Nonce,
		boolInt(round.PendingCredit), round.CreatedAt, nullTime(round.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}
	return nil
}

// UpdateRound persists a round's mutable fields.
func (s *SQLiteDB) UpdateRound(ctx context.Context, round *Round) error {
	return s.updateRound(ctx, s.db, round)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteDB) updateRound(ctx context.Context, ex execer, round *Round) error {
	res, err := ex.ExecContext(ctx, `UPDATE rounds SET
		status = ?, revealed = ?, matches = ?, multiplier = ?, payout = ?,
		net_profit = ?, pending_credit = ?, completed_at = ?
		WHERE id = ?`,
		round.Status, encodeInts(round.Revealed), round.Matches,
		round.Multiplier.String(), round.Payout.String(), round.NetProfit.String(),
		boolInt(round.PendingCredit), nullTime(round.CompletedAt), round.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update round: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRound fetches a round by ID.
func (s *SQLiteDB) GetRound(ctx context.Context, id string) (*Round, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = ?`, id)
	return scanRound(row)
}

// ActiveRound returns the user's active round, or ErrNotFound.
func (s *SQLiteDB) ActiveRound(ctx context.Context, userID string) (*Round, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE user_id = ? AND status = ?`,
		userID, StatusActive)
	return scanRound(row)
}

// ListRounds returns the user's most recent rounds, newest first.
func (s *SQLiteDB) ListRounds(ctx context.Context, userID string, limit int) ([]Round, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, *round)
	}
	return rounds, rows.Err()
}

// PendingCreditRounds lists terminal rounds still awaiting their ledger
// credit, oldest first.
func (s *SQLiteDB) PendingCreditRounds(ctx context.Context, limit int) ([]Round, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE pending_credit = 1
		 ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending rounds: %w", err)
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, *round)
	}
	return rounds, rows.Err()
}

const seedPairColumns = `user_id, server_seed, server_seed_hash, client_seed,
	next_server_seed, next_server_seed_hash, nonce, games_played, active,
	created_at, retired_at`

// ActiveSeedPair returns the user's active seed pair, or ErrNotFound.
func (s *SQLiteDB) ActiveSeedPair(ctx context.Context, userID string) (*SeedPair, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+seedPairColumns+` FROM seed_pairs WHERE user_id = ? AND active = 1`,
		userID)
	return scanSeedPair(row)
}

// SaveSeedPair inserts or updates the user's active seed pair.
func (s *SQLiteDB) SaveSeedPair(ctx context.Context, pair *SeedPair) error {
	return s.saveSeedPair(ctx, s.db, pair)
}

func (s *SQLiteDB) saveSeedPair(ctx context.Context, ex execer, pair *SeedPair) error {
	res, err := ex.ExecContext(ctx, `UPDATE seed_pairs SET
		server_seed = ?, server_seed_hash = ?, client_seed = ?,
		next_server_seed = ?, next_server_seed_hash = ?,
		nonce = ?, games_played = ?
		WHERE user_id = ? AND active = 1`,
		pair.ServerSeed, pair.ServerSeedHash, pair.ClientSeed,
		pair.NextServerSeed, pair.NextServerSeedHash,
		pair.Nonce, pair.GamesPlayed, pair.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update seed pair: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update seed pair: %w", err)
	}
	if n > 0 {
		return nil
	}

	_, err = ex.ExecContext(ctx, `INSERT INTO seed_pairs (`+seedPairColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pair.UserID, pair.ServerSeed, pair.ServerSeedHash, pair.ClientSeed,
		pair.NextServerSeed, pair.NextServerSeedHash,
		pair.Nonce, pair.GamesPlayed, boolInt(pair.Active),
		pair.CreatedAt, nullTime(pair.RetiredAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert seed pair: %w", err)
	}
	return nil
}

// RotateSeedPair retires the active pair and promotes the next one in a
// single transaction. The retired row stays behind for historical
// verification.
func (s *SQLiteDB) RotateSeedPair(ctx context.Context, retired, next *SeedPair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `UPDATE seed_pairs SET active = 0, retired_at = ?
		WHERE user_id = ? AND active = 1`,
		nullTime(retired.RetiredAt), retired.UserID)
	if err != nil {
		return fmt.Errorf("failed to retire seed pair: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO seed_pairs (`+seedPairColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		next.UserID, next.ServerSeed, next.ServerSeedHash, next.ClientSeed,
		next.NextServerSeed, next.NextServerSeedHash,
		next.Nonce, next.GamesPlayed, 1, next.CreatedAt, nil,
	)
	if err != nil {
		return fmt.Errorf("failed to insert promoted seed pair: %w", err)
	}

	return tx.Commit()
}

// SettleRound persists the terminal round and the advanced seed pair
// counters atomically.
func (s *SQLiteDB) SettleRound(ctx context.Context, round *Round, pair *SeedPair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback()

	if err := s.updateRound(ctx, tx, round); err != nil {
		return err
	}
	if err := s.saveSeedPair(ctx, tx, pair); err != nil {
		return err
	}

	return tx.Commit()
}

// CreateSettledRound inserts a born-terminal round and the advanced seed
// pair counters atomically.
func (s *SQLiteDB) CreateSettledRound(ctx context.Context, round *Round, pair *SeedPair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertRound(ctx, tx, round); err != nil {
		return err
	}
	if err := s.saveSeedPair(ctx, tx, pair); err != nil {
		return err
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (*Round, error) {
	var (
		round                              Round
		bet, multiplier, payout, netProfit string
		selected, outcome, revealed        string
		pending                            int
		completedAt                        sql.NullTime
	)

	err := row.Scan(
		&round.ID, &round.UserID, &round.GameType, &round.Status,
		&bet, &round.MinesCount, &selected, &outcome, &revealed,
		&round.Matches, &multiplier, &payout, &netProfit,
		&round.ServerSeed, &round.ServerSeedHash, &round.ClientSeed, &round.Nonce,
		&pending, &round.CreatedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan round: %w", err)
	}

	if round.BetAmount, err = decimal.NewFromString(bet); err != nil {
		return nil, fmt.Errorf("bad bet_amount %q: %w", bet, err)
	}
	if round.Multiplier, err = decimal.NewFromString(multiplier); err != nil {
		return nil, fmt.Errorf("bad multiplier %q: %w", multiplier, err)
	}
	if round.Payout, err = decimal.NewFromString(payout); err != nil {
		return nil, fmt.Errorf("bad payout %q: %w", payout, err)
	}
	if round.NetProfit, err = decimal.NewFromString(netProfit); err != nil {
		return nil, fmt.Errorf("bad net_profit %q: %w", netProfit, err)
	}
	if round.SelectedNumbers, err = decodeInts(selected); err != nil {
		return nil, err
	}
	if round.Outcome, err = decodeInts(outcome); err != nil {
		return nil, err
	}
	if round.Revealed, err = decodeInts(revealed); err != nil {
		return nil, err
	}
	round.PendingCredit = pending != 0
	if completedAt.Valid {
		t := completedAt.Time
		round.CompletedAt = &t
	}
	return &round, nil
}

func scanSeedPair(row rowScanner) (*SeedPair, error) {
	var (
		pair      SeedPair
		active    int
		retiredAt sql.NullTime
	)

	err := row.Scan(
		&pair.UserID, &pair.ServerSeed, &pair.ServerSeedHash, &pair.ClientSeed,
		&pair.NextServerSeed, &pair.NextServerSeedHash,
		&pair.Nonce, &pair.GamesPlayed, &active, &pair.CreatedAt, &retiredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan seed pair: %w", err)
	}

	pair.Active = active != 0
	if retiredAt.Valid {
		t := retiredAt.Time
		pair.RetiredAt = &t
	}
	return &pair, nil
}

func encodeInts(values []int) string {
	if values == nil {
		values = []int{}
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func decodeInts(data string) ([]int, error) {
	var values []int
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("bad int list %q: %w", data, err)
	}
	return values, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
