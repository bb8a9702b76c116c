// Package userlock serializes per-user state transitions. Round start,
// reveal, cashout and seed reroll for the same user must all hold the same
// lock so a reroll can never race an in-flight round.
package userlock

import "sync"

// Registry hands out one mutex per user.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the user's lock and returns the unlock function.
func (r *Registry) Lock(userID string) func() {
	r.mu.Lock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
