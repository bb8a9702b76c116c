package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a round or seed pair does not exist.
var ErrNotFound = errors.New("store: not found")

// Game types.
const (
	GameMines = "mines"
	GameKeno  = "keno"
)

// Round statuses. Everything except active is terminal; a terminal round is
// append-only history used for verification and never mutated again.
const (
	StatusActive    = "active"
	StatusBusted    = "busted"
	StatusAutoWon   = "auto_won"
	StatusCashedOut = "cashed_out"
	StatusSettled   = "settled"
)

// Terminal reports whether a round status is terminal.
func Terminal(status string) bool {
	switch status {
	case StatusBusted, StatusAutoWon, StatusCashedOut, StatusSettled:
		return true
	}
	return false
}

// Round is one game round. Outcome holds the full generated result (mine
// positions or drawn numbers, ascending), generated once at creation.
// PendingCredit marks a terminal round whose ledger credit has not landed
// yet; such rounds are retried until the credit succeeds.
type Round struct {
	ID              string
	UserID          string
	GameType        string
	Status          string
	BetAmount       decimal.Decimal
	MinesCount      int
	SelectedNumbers []int
	Outcome         []int
	Revealed        []int
	Matches         int
	Multiplier      decimal.Decimal
	Payout          decimal.Decimal
	NetProfit       decimal.Decimal
	ServerSeed      string
	ServerSeedHash  string
	ClientSeed      string
	Nonce           uint64
	PendingCredit   bool
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// SeedPair is a user's committed seed material. The active pair serves
// rounds; the next pair's hash is pre-published so players can commit to a
// future rotation. Retired pairs are kept for historical verification.
type SeedPair struct {
	UserID             string
	ServerSeed         string
	ServerSeedHash     string
	ClientSeed         string
	NextServerSeed     string
	NextServerSeedHash string
	Nonce              uint64
	GamesPlayed        uint64
	Active             bool
	CreatedAt          time.Time
	RetiredAt          *time.Time
}

// DB is the durable persistence collaborator. Rounds and seed records must
// be stored before a settlement is reported to the caller.
type DB interface {
	Close() error
	Migrate() error

	CreateRound(ctx context.Context, round *Round) error
	UpdateRound(ctx context.Context, round *Round) error
	GetRound(ctx context.Context, id string) (*Round, error)
	ActiveRound(ctx context.Context, userID string) (*Round, error)
	ListRounds(ctx context.Context, userID string, limit int) ([]Round, error)

	ActiveSeedPair(ctx context.Context, userID string) (*SeedPair, error)
	SaveSeedPair(ctx context.Context, pair *SeedPair) error

	// RotateSeedPair retires the user's active pair and promotes the next
	// one in a single transaction.
	RotateSeedPair(ctx context.Context, retired, next *SeedPair) error

	// SettleRound persists a terminal round together with its seed pair
	// counters in a single transaction, so a nonce is consumed exactly once
	// per settled round.
	SettleRound(ctx context.Context, round *Round, pair *SeedPair) error

	// CreateSettledRound inserts a round that is born terminal and consumes
	// its seed pair counters in the same transaction. Single-shot games use
	// it so a failure leaves neither a disclosed round nor an advanced
	// nonce behind.
	CreateSettledRound(ctx context.Context, round *Round, pair *SeedPair) error

	// PendingCreditRounds lists terminal rounds still awaiting their ledger
	// credit, oldest first.
	PendingCreditRounds(ctx context.Context, limit int) ([]Round, error)
}
