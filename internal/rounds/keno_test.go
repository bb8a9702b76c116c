package rounds

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jakefrenzel/CrownWynn/internal/engine"
	"github.com/jakefrenzel/CrownWynn/internal/games"
	"github.com/jakefrenzel/CrownWynn/internal/ledger"
	"github.com/jakefrenzel/CrownWynn/internal/seeds"
	"github.com/jakefrenzel/CrownWynn/internal/store"
	"github.com/jakefrenzel/CrownWynn/internal/userlock"
)

func TestStartKenoValidation(t *testing.T) {
	svc, lg, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		bet      decimal.Decimal
		selected []int
	}{
		{name: "no picks", bet: dec("1.00"), selected: nil},
		{name: "too many picks", bet: dec("1.00"), selected: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
		{name: "number below range", bet: dec("1.00"), selected: []int{0, 5}},
		{name: "number above range", bet: dec("1.00"), selected: []int{5, 41}},
		{name: "duplicate picks", bet: dec("1.00"), selected: []int{7, 7}},
		{name: "bet below minimum", bet: dec("0.001"), selected: []int{1, 2, 3}},
		{name: "too many decimals", bet: dec("1.005"), selected: []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.StartKeno(ctx, "alice", tt.bet, tt.selected)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("StartKeno() error = %v, want ValidationError", err)
			}
		})
	}

	balance, _ := lg.Balance(ctx, "alice")
	if !balance.Equal(dec("1000.00")) {
		t.Errorf("balance = %s, want untouched 1000.00", balance)
	}
}

func TestStartKenoSettlesImmediately(t *testing.T) {
	svc, lg, db := newTestService(t)
	ctx := context.Background()

	round, err := svc.StartKeno(ctx, "alice", dec("10.00"), []int{5, 3, 1, 2, 4})
	if err != nil {
		t.Fatalf("StartKeno() error = %v", err)
	}

	if round.Status != store.StatusSettled {
		t.Errorf("status = %s, want settled", round.Status)
	}
	if round.CompletedAt == nil {
		t.Error("settled round must carry a completion timestamp")
	}

	// picks are stored ascending regardless of input order
	for i := 1; i < len(round.SelectedNumbers); i++ {
		if round.SelectedNumbers[i-1] >= round.SelectedNumbers[i] {
			t.Fatalf("selected numbers not ascending: %v", round.SelectedNumbers)
		}
	}

	if len(round.Outcome) != games.KenoDrawCount {
		t.Fatalf("drew %d numbers, want %d", len(round.Outcome), games.KenoDrawCount)
	}

	wantMatches := games.CountMatches(round.SelectedNumbers, round.Outcome)
	if round.Matches != wantMatches {
		t.Errorf("matches = %d, want %d", round.Matches, wantMatches)
	}

	mult := games.KenoMultiplier(len(round.SelectedNumbers), round.Matches)
	wantPayout := dec("10.00").Mul(decimal.NewFromFloat(mult)).Round(2)
	if !round.Payout.Equal(wantPayout) {
		t.Errorf("payout = %s, want %s", round.Payout, wantPayout)
	}

	balance, _ := lg.Balance(ctx, "alice")
	wantBalance := dec("990.00").Add(wantPayout)
	if !balance.Equal(wantBalance) {
		t.Errorf("balance = %s, want %s", balance, wantBalance)
	}

	// single-shot games never leave an active round behind
	active, err := svc.ActiveRound(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveRound() error = %v", err)
	}
	if active != nil {
		t.Error("keno round left active after settlement")
	}

	pair, err := db.ActiveSeedPair(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveSeedPair() error = %v", err)
	}
	if pair.Nonce != 1 || pair.GamesPlayed != 1 {
		t.Errorf("pair counters = (%d, %d), want (1, 1)", pair.Nonce, pair.GamesPlayed)
	}
}

// flakySettleStore fails the atomic settlement write a set number of times.
type flakySettleStore struct {
	*store.MemoryDB
	failures int
}

func (s *flakySettleStore) CreateSettledRound(ctx context.Context, round *store.Round, pair *store.SeedPair) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("store unavailable")
	}
	return s.MemoryDB.CreateSettledRound(ctx, round, pair)
}

func TestStartKenoSettlementWriteFailure(t *testing.T) {
	db := &flakySettleStore{MemoryDB: store.NewMemoryDB(), failures: 1}
	lg := ledger.NewMemoryLedger(dec("1000.00"))
	locks := userlock.NewRegistry()
	sm := seeds.NewManager(db, locks)
	cfg := Config{MinBet: dec("0.01"), MaxBet: dec("10000.00"), HouseEdge: games.DefaultHouseEdge}
	svc := NewService(db, lg, sm, locks, cfg, nil)
	ctx := context.Background()

	if _, err := svc.StartKeno(ctx, "alice", dec("10.00"), []int{1, 2, 3}); err == nil {
		t.Fatal("StartKeno() should fail when the settlement write fails")
	}

	// nothing was disclosed and nothing was consumed: no round in history,
	// the bet refunded, the pair still at nonce 0
	history, err := svc.History(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history has %d rounds after failed settlement, want none", len(history))
	}
	balance, _ := lg.Balance(ctx, "alice")
	if !balance.Equal(dec("1000.00")) {
		t.Errorf("balance = %s, want refunded 1000.00", balance)
	}
	pair, err := db.ActiveSeedPair(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveSeedPair() error = %v", err)
	}
	if pair.Nonce != 0 || pair.GamesPlayed != 0 {
		t.Errorf("pair counters = (%d, %d), want untouched (0, 0)", pair.Nonce, pair.GamesPlayed)
	}

	// the retry replays nonce 0, which is safe because its outcome never
	// became visible, and commits round and counters together
	round, err := svc.StartKeno(ctx, "alice", dec("10.00"), []int{1, 2, 3})
	if err != nil {
		t.Fatalf("retried StartKeno() error = %v", err)
	}
	if round.Nonce != 0 {
		t.Errorf("retried round nonce = %d, want 0", round.Nonce)
	}
	if round.Status != store.StatusSettled {
		t.Errorf("status = %q, want settled", round.Status)
	}
	pair, err = db.ActiveSeedPair(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveSeedPair() error = %v", err)
	}
	if pair.Nonce != 1 || pair.GamesPlayed != 1 {
		t.Errorf("pair counters = (%d, %d), want (1, 1)", pair.Nonce, pair.GamesPlayed)
	}
	history, _ = svc.History(ctx, "alice", 0)
	if len(history) != 1 {
		t.Errorf("history has %d rounds, want 1", len(history))
	}
}

func TestStartKenoNonceAdvances(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.StartKeno(ctx, "alice", dec("1.00"), []int{1, 2, 3})
	if err != nil {
		t.Fatalf("first StartKeno() error = %v", err)
	}
	second, err := svc.StartKeno(ctx, "alice", dec("1.00"), []int{1, 2, 3})
	if err != nil {
		t.Fatalf("second StartKeno() error = %v", err)
	}

	if first.Nonce != 0 || second.Nonce != 1 {
		t.Errorf("nonces = (%d, %d), want (0, 1)", first.Nonce, second.Nonce)
	}
	if first.ServerSeed != second.ServerSeed {
		t.Error("server seed must stay fixed between rounds without a reroll")
	}
}

func TestStartKenoBlockedByActiveMines(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.StartMines(ctx, "alice", dec("5.00"), 3); err != nil {
		t.Fatalf("StartMines() error = %v", err)
	}

	if _, err := svc.StartKeno(ctx, "alice", dec("1.00"), []int{1, 2, 3}); !errors.Is(err, seeds.ErrRoundInProgress) {
		t.Errorf("StartKeno() error = %v, want ErrRoundInProgress", err)
	}
}

func TestKenoOutcomeVerifiable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	round, err := svc.StartKeno(ctx, "alice", dec("1.00"), []int{10, 20, 30, 40})
	if err != nil {
		t.Fatalf("StartKeno() error = %v", err)
	}

	if !games.VerifyKeno(round.ServerSeed, round.ClientSeed, round.Nonce, round.Outcome) {
		t.Error("stored outcome does not verify against the committed seeds")
	}
	if engine.HashSeed(round.ServerSeed) != round.ServerSeedHash {
		t.Error("server seed hash does not match the disclosed seed")
	}
}

func TestHistory(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.StartKeno(ctx, "alice", dec("1.00"), []int{1, 2, 3}); err != nil {
			t.Fatalf("StartKeno() error = %v", err)
		}
	}

	history, err := svc.History(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d rounds, want 2", len(history))
	}
	// newest first
	if history[0].Nonce != 2 || history[1].Nonce != 1 {
		t.Errorf("history nonces = (%d, %d), want (2, 1)", history[0].Nonce, history[1].Nonce)
	}

	other, err := svc.History(ctx, "bob", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("bob has %d rounds, want none", len(other))
	}
}
