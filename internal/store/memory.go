package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryDB is an in-memory DB implementation. It backs unit tests and
// throwaway environments; nothing persists across restarts.
type MemoryDB struct {
	mu     sync.RWMutex
	rounds map[string]*Round
	pairs  map[string]*SeedPair // active pair per user
}

// NewMemoryDB creates an empty in-memory database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		rounds: make(map[string]*Round),
		pairs:  make(map[string]*SeedPair),
	}
}

func (m *MemoryDB) Close() error   { return nil }
func (m *MemoryDB) Migrate() error { return nil }

func (m *MemoryDB) CreateRound(ctx context.Context, round *Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[round.ID] = copyRound(round)
	return nil
}

func (m *MemoryDB) UpdateRound(ctx context.Context, round *Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rounds[round.ID]; !ok {
		return ErrNotFound
	}
	m.rounds[round.ID] = copyRound(round)
	return nil
}

func (m *MemoryDB) GetRound(ctx context.Context, id string) (*Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	round, ok := m.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRound(round), nil
}

func (m *MemoryDB) ActiveRound(ctx context.Context, userID string) (*Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, round := range m.rounds {
		if round.UserID == userID && round.Status == StatusActive {
			return copyRound(round), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) ListRounds(ctx context.Context, userID string, limit int) ([]Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rounds []Round
	for _, round := range m.rounds {
		if round.UserID == userID {
			rounds = append(rounds, *copyRound(round))
		}
	}
	sort.Slice(rounds, func(i, j int) bool {
		if rounds[i].CreatedAt.Equal(rounds[j].CreatedAt) {
			return rounds[i].Nonce > rounds[j].Nonce
		}
		return rounds[i].CreatedAt.After(rounds[j].CreatedAt)
	})
	if limit > 0 && len(rounds) > limit {
		rounds = rounds[:limit]
	}
	return rounds, nil
}

func (m *MemoryDB) PendingCreditRounds(ctx context.Context, limit int) ([]Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rounds []Round
	for _, round := range m.rounds {
		if round.PendingCredit {
			rounds = append(rounds, *copyRound(round))
		}
	}
	sort.Slice(rounds, func(i, j int) bool {
		return rounds[i].CreatedAt.Before(rounds[j].CreatedAt)
	})
	if limit > 0 && len(rounds) > limit {
		rounds = rounds[:limit]
	}
	return rounds, nil
}

func (m *MemoryDB) ActiveSeedPair(ctx context.Context, userID string) (*SeedPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pair, ok := m.pairs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPair(pair), nil
}

func (m *MemoryDB) SaveSeedPair(ctx context.Context, pair *SeedPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[pair.UserID] = copyPair(pair)
	return nil
}

func (m *MemoryDB) RotateSeedPair(ctx context.Context, retired, next *SeedPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// retired pairs are only kept for verification through round history,
	// which already carries the disclosed seeds
	m.pairs[next.UserID] = copyPair(next)
	return nil
}

func (m *MemoryDB) SettleRound(ctx context.Context, round *Round, pair *SeedPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rounds[round.ID]; !ok {
		return ErrNotFound
	}
	m.rounds[round.ID] = copyRound(round)
	m.pairs[pair.UserID] = copyPair(pair)
	return nil
}

func (m *MemoryDB) CreateSettledRound(ctx context.Context, round *Round, pair *SeedPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[round.ID] = copyRound(round)
	m.pairs[pair.UserID] = copyPair(pair)
	return nil
}

func copyRound(r *Round) *Round {
	c := *r
	c.SelectedNumbers = append([]int(nil), r.SelectedNumbers...)
	c.Outcome = append([]int(nil), r.Outcome...)
	c.Revealed = append([]int(nil), r.Revealed...)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func copyPair(p *SeedPair) *SeedPair {
	c := *p
	if p.RetiredAt != nil {
		t := *p.RetiredAt
		c.RetiredAt = &t
	}
	return &c
}
