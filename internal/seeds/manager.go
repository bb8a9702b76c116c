// Package seeds owns the per-user seed pair lifecycle: the active pair
// serving rounds, the pre-committed next pair, and rotation on client-seed
// reroll. The server seed is never disclosed until its pair is rotated away;
// only its SHA-256 commitment is published up front.
package seeds

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jakefrenzel/CrownWynn/internal/engine"
	"github.com/jakefrenzel/CrownWynn/internal/store"
	"github.com/jakefrenzel/CrownWynn/internal/userlock"
)

var (
	// ErrRoundInProgress is returned when an operation needs the user to
	// have no active round.
	ErrRoundInProgress = errors.New("round in progress")

	// ErrInvalidClientSeed is returned when a user-supplied client seed is
	// unusable.
	ErrInvalidClientSeed = errors.New("invalid client seed")
)

// maxClientSeedLen bounds user-supplied client seeds.
const maxClientSeedLen = 128

// Commitment is the published view of a user's active seed pair. It never
// carries a raw server seed.
type Commitment struct {
	ServerSeedHash     string `json:"server_seed_hash"`
	ClientSeed         string `json:"client_seed"`
	GamesPlayed        uint64 `json:"games_played"`
	NextServerSeedHash string `json:"next_server_seed_hash"`
}

// Manager owns seed pairs. All mutations hold the shared per-user lock, the
// same one round transitions use.
type Manager struct {
	db    store.DB
	locks *userlock.Registry
}

// NewManager creates a seed manager over the given store and lock registry.
func NewManager(db store.DB, locks *userlock.Registry) *Manager {
	return &Manager{db: db, locks: locks}
}

// Commitment returns the active pair's published material, creating the
// pair on first use.
func (m *Manager) Commitment(ctx context.Context, userID string) (*Commitment, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	pair, err := m.ActivePair(ctx, userID)
	if err != nil {
		return nil, err
	}
	return commitmentOf(pair), nil
}

// ActivePair returns the user's active seed pair, creating one on first
// use. Callers must hold the user's lock.
func (m *Manager) ActivePair(ctx context.Context, userID string) (*store.SeedPair, error) {
	pair, err := m.db.ActiveSeedPair(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		pair = NewPair(userID, GenerateClientSeed())
		if err := m.db.SaveSeedPair(ctx, pair); err != nil {
			return nil, fmt.Errorf("failed to save initial seed pair: %w", err)
		}
		return pair, nil
	}
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Rotation is the outcome of a reroll. The retired server seed is revealed
// so past rounds under it can be verified, and Commitment describes the
// promoted pair.
type Rotation struct {
	RevealedServerSeed     string     `json:"revealed_server_seed"`
	RevealedServerSeedHash string     `json:"revealed_server_seed_hash"`
	Commitment             Commitment `json:"commitment"`
}

// Reroll retires the active pair and promotes the pre-committed next pair:
// the retired server seed becomes disclosable, the next pair starts at
// nonce 0 with a fresh next commitment, and the client seed is either the
// supplied one or server-generated. Fails with ErrRoundInProgress while the
// user has an active round, leaving the pair untouched.
func (m *Manager) Reroll(ctx context.Context, userID, clientSeed string) (*Rotation, error) {
	if clientSeed != "" {
		if !utf8.ValidString(clientSeed) || len(clientSeed) > maxClientSeedLen {
			return nil, ErrInvalidClientSeed
		}
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	if _, err := m.db.ActiveRound(ctx, userID); err == nil {
		return nil, ErrRoundInProgress
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	pair, err := m.ActivePair(ctx, userID)
	if err != nil {
		return nil, err
	}

	if clientSeed == "" {
		clientSeed = GenerateClientSeed()
	}

	now := time.Now().UTC()
	retired := *pair
	retired.Active = false
	retired.RetiredAt = &now

	nextServer := GenerateServerSeed()
	next := &store.SeedPair{
		UserID:             userID,
		ServerSeed:         pair.NextServerSeed,
		ServerSeedHash:     pair.NextServerSeedHash,
		ClientSeed:         clientSeed,
		NextServerSeed:     nextServer,
		NextServerSeedHash: engine.HashSeed(nextServer),
		Active:             true,
		CreatedAt:          now,
	}

	if err := m.db.RotateSeedPair(ctx, &retired, next); err != nil {
		return nil, fmt.Errorf("failed to rotate seed pair: %w", err)
	}
	return &Rotation{
		RevealedServerSeed:     retired.ServerSeed,
		RevealedServerSeedHash: retired.ServerSeedHash,
		Commitment:             *commitmentOf(next),
	}, nil
}

// Consume records one settled round against the pair. The caller persists
// the pair inside its settlement transaction.
func Consume(pair *store.SeedPair) {
	pair.Nonce++
	pair.GamesPlayed++
}

// NewPair builds a fresh active pair with generated server seeds and the
// given client seed.
func NewPair(userID, clientSeed string) *store.SeedPair {
	server := GenerateServerSeed()
	nextServer := GenerateServerSeed()
	return &store.SeedPair{
		UserID:             userID,
		ServerSeed:         server,
		ServerSeedHash:     engine.HashSeed(server),
		ClientSeed:         clientSeed,
		NextServerSeed:     nextServer,
		NextServerSeedHash: engine.HashSeed(nextServer),
		Active:             true,
		CreatedAt:          time.Now().UTC(),
	}
}

// GenerateServerSeed returns 32 bytes of cryptographic entropy as a
// 64-character hex string.
func GenerateServerSeed() string {
	return randomHex(32)
}

// GenerateClientSeed returns a server-generated client seed for users who
// do not supply their own.
func GenerateClientSeed() string {
	return randomHex(32)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("seeds: entropy source failed: %v", err))
	}
	return hex.EncodeToString(buf)
}

func commitmentOf(pair *store.SeedPair) *Commitment {
	return &Commitment{
		ServerSeedHash:     pair.ServerSeedHash,
		ClientSeed:         pair.ClientSeed,
		GamesPlayed:        pair.GamesPlayed,
		NextServerSeedHash: pair.NextServerSeedHash,
	}
}
