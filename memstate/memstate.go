// Package memstate is an in-memory contract.State for tests.
package memstate

import (
	"context"
	"sync"

	"github.com/interstellar/slingshot/depositpool/contract"
)

// New returns an empty in-memory application state,
// which implements contract.State.
func New() *State {
	return &State{
		accounts: make(map[contract.Address]uint64),
	}
}

// State is an in-memory stand-in for the host's application state.
//
// It applies updates directly and has no notion of rounds or
// holdings; callers that need atomic groups stage updates with
// Begin and apply them with Commit.
type State struct {
	mu       sync.Mutex
	created  bool
	pool     contract.Pool
	accounts map[contract.Address]uint64
}

// Pool satisfies contract.State.
func (s *State) Pool(context.Context) (contract.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool, nil
}

// Account satisfies contract.State.
func (s *State) Account(_ context.Context, addr contract.Address) (contract.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.accounts[addr]
	return contract.Account{Address: addr, Balance: bal}, ok, nil
}

// Apply writes a single update.
func (s *State) Apply(u *contract.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(u)
}

func (s *State) apply(u *contract.Update) {
	if u.Op == contract.OpCreate {
		s.created = true
	}
	if u.Pool != nil {
		s.pool = *u.Pool
	}
	if u.Account != nil {
		s.accounts[u.Account.Address] = u.Account.Balance
	}
	if u.Clear {
		delete(s.accounts, u.Sender)
	}
}

// Created reports whether a create update has been applied.
func (s *State) Created() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// Sum returns the sum of all local balances.
func (s *State) Sum() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum uint64
	for _, bal := range s.accounts {
		sum += bal
	}
	return sum
}

// Batch stages updates that are applied together by Commit.
type Batch struct {
	s       *State
	updates []*contract.Update
}

// Begin starts a batch against s.
func (s *State) Begin() *Batch {
	return &Batch{s: s}
}

// Add stages u.
func (b *Batch) Add(u *contract.Update) {
	b.updates = append(b.updates, u)
}

// Commit applies every staged update under one lock.
func (b *Batch) Commit() {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	for _, u := range b.updates {
		b.s.apply(u)
	}
	b.updates = nil
}
