// Package memory is a goroutine-safe in-process store. It backs the service
// and transport tests and ACCOUNTS_STORE=memory for local hacking.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

type Store struct {
	mu    sync.RWMutex
	users map[string]store.Record
}

func NewStore() *Store {
	return &Store{users: make(map[string]store.Record)}
}

func (s *Store) Users() store.Users             { return &usersRepo{s: s} }
func (s *Store) ApplyMigrations() error         { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

type usersRepo struct {
	s *Store
}

func (r *usersRepo) Get(ctx context.Context, id string) (store.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.users[id]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return clone(rec), nil
}

func (r *usersRepo) Insert(ctx context.Context, rec store.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[rec.ID]; ok {
		return store.ErrAlreadyExists
	}
	if r.s.taken(rec.ID, rec.SearchUsername, rec.SearchEmail) {
		return store.ErrAlreadyExists
	}

	r.s.users[rec.ID] = clone(rec)
	return nil
}

func (r *usersRepo) Update(ctx context.Context, id string, a store.Attributes) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if a.Account != nil && r.s.taken(id, a.Account.SearchUsername, a.Account.SearchEmail) {
		return store.ErrAlreadyExists
	}

	r.s.users[id] = clone(a.Apply(rec))
	return nil
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *usersRepo) Scan(ctx context.Context, f store.Filter) ([]store.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]store.Record, 0, len(r.s.users))
	for _, rec := range r.s.users {
		if f.Match(rec) {
			out = append(out, clone(rec))
		}
	}
	slices.SortFunc(out, func(a, b store.Record) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *usersRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

// taken reports whether a record other than self owns either search key.
// Callers hold the lock.
func (s *Store) taken(self, searchUsername, searchEmail string) bool {
	for id, rec := range s.users {
		if id == self {
			continue
		}
		if rec.SearchUsername == searchUsername || rec.SearchEmail == searchEmail {
			return true
		}
	}
	return false
}

func clone(r store.Record) store.Record {
	r.ProfileInfo.Tags = slices.Clone(r.ProfileInfo.Tags)
	r.FriendList = slices.Clone(r.FriendList)
	return r
}
