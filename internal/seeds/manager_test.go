package seeds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jakefrenzel/CrownWynn/internal/engine"
	"github.com/jakefrenzel/CrownWynn/internal/store"
	"github.com/jakefrenzel/CrownWynn/internal/userlock"
)

func newTestManager() (*Manager, *store.MemoryDB) {
	db := store.NewMemoryDB()
	return NewManager(db, userlock.NewRegistry()), db
}

func TestCommitmentCreatesPair(t *testing.T) {
	m, db := newTestManager()
	ctx := context.Background()

	commitment, err := m.Commitment(ctx, "alice")
	if err != nil {
		t.Fatalf("Commitment() error = %v", err)
	}

	if len(commitment.ServerSeedHash) != 64 {
		t.Errorf("server seed hash should be 64 hex chars, got %q", commitment.ServerSeedHash)
	}
	if len(commitment.NextServerSeedHash) != 64 {
		t.Errorf("next server seed hash should be 64 hex chars, got %q", commitment.NextServerSeedHash)
	}
	if commitment.ClientSeed == "" {
		t.Error("expected a generated client seed")
	}
	if commitment.GamesPlayed != 0 {
		t.Errorf("fresh pair should have 0 games played, got %d", commitment.GamesPlayed)
	}

	pair, err := db.ActiveSeedPair(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveSeedPair() error = %v", err)
	}
	if engine.HashSeed(pair.ServerSeed) != pair.ServerSeedHash {
		t.Error("published hash does not commit to the server seed")
	}
	if engine.HashSeed(pair.NextServerSeed) != pair.NextServerSeedHash {
		t.Error("published next hash does not commit to the next server seed")
	}

	// a second read returns the same pair, not a new one
	again, err := m.Commitment(ctx, "alice")
	if err != nil {
		t.Fatalf("Commitment() error = %v", err)
	}
	if again.ServerSeedHash != commitment.ServerSeedHash {
		t.Error("commitment changed between reads without a reroll")
	}
}

func TestRerollPromotesNextPair(t *testing.T) {
	m, db := newTestManager()
	ctx := context.Background()

	before, err := m.Commitment(ctx, "alice")
	if err != nil {
		t.Fatalf("Commitment() error = %v", err)
	}
	oldPair, _ := db.ActiveSeedPair(ctx, "alice")

	rotation, err := m.Reroll(ctx, "alice", "")
	if err != nil {
		t.Fatalf("Reroll() error = %v", err)
	}
	after := rotation.Commitment

	// the retired seed is revealed and matches its published commitment
	if rotation.RevealedServerSeed != oldPair.ServerSeed {
		t.Error("reroll must disclose the retired server seed")
	}
	if engine.HashSeed(rotation.RevealedServerSeed) != rotation.RevealedServerSeedHash {
		t.Error("revealed seed does not hash to its published commitment")
	}

	// the pre-published next commitment becomes the active one
	if after.ServerSeedHash != before.NextServerSeedHash {
		t.Errorf("active hash %q should equal the prior next hash %q", after.ServerSeedHash, before.NextServerSeedHash)
	}
	if after.NextServerSeedHash == before.NextServerSeedHash {
		t.Error("a fresh next commitment must be published on reroll")
	}
	if after.GamesPlayed != 0 {
		t.Errorf("games played should reset on reroll, got %d", after.GamesPlayed)
	}

	newPair, err := db.ActiveSeedPair(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveSeedPair() error = %v", err)
	}
	if newPair.Nonce != 0 {
		t.Errorf("nonce should reset on reroll, got %d", newPair.Nonce)
	}
	if newPair.ServerSeed != oldPair.NextServerSeed {
		t.Error("promoted pair must use the pre-committed next server seed")
	}
	if newPair.ClientSeed == oldPair.ClientSeed {
		t.Error("expected a regenerated client seed")
	}
}

func TestRerollWithChosenClientSeed(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	rotation, err := m.Reroll(ctx, "alice", "my lucky words")
	if err != nil {
		t.Fatalf("Reroll() error = %v", err)
	}
	if rotation.Commitment.ClientSeed != "my lucky words" {
		t.Errorf("client seed = %q, want the supplied one", rotation.Commitment.ClientSeed)
	}
}

func TestRerollRejectsBadClientSeed(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	long := make([]byte, maxClientSeedLen+1)
	for i := range long {
		long[i] = 'a'
	}

	for _, seed := range []string{"\xff\xfe", string(long)} {
		if _, err := m.Reroll(ctx, "alice", seed); !errors.Is(err, ErrInvalidClientSeed) {
			t.Errorf("Reroll(%q) error = %v, want ErrInvalidClientSeed", seed, err)
		}
	}
}

func TestRerollBlockedByActiveRound(t *testing.T) {
	m, db := newTestManager()
	ctx := context.Background()

	before, err := m.Commitment(ctx, "alice")
	if err != nil {
		t.Fatalf("Commitment() error = %v", err)
	}

	err = db.CreateRound(ctx, &store.Round{
		ID:        "round-1",
		UserID:    "alice",
		GameType:  store.GameMines,
		Status:    store.StatusActive,
		BetAmount: decimal.New(100, -2),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateRound() error = %v", err)
	}

	if _, err := m.Reroll(ctx, "alice", ""); !errors.Is(err, ErrRoundInProgress) {
		t.Fatalf("Reroll() error = %v, want ErrRoundInProgress", err)
	}

	after, err := m.Commitment(ctx, "alice")
	if err != nil {
		t.Fatalf("Commitment() error = %v", err)
	}
	if *after != *before {
		t.Error("failed reroll must leave the seed pair unchanged")
	}
}

func TestConsume(t *testing.T) {
	pair := NewPair("alice", "client")
	Consume(pair)
	Consume(pair)

	if pair.Nonce != 2 {
		t.Errorf("nonce = %d, want 2", pair.Nonce)
	}
	if pair.GamesPlayed != 2 {
		t.Errorf("games played = %d, want 2", pair.GamesPlayed)
	}
}
