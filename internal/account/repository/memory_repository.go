// Package repository provides the in-memory account registry.
package repository

import (
	"context"
	"sync"

	"github.com/tokenvault/tokenvault/internal/account/domain"
)

// MemoryRepository is the in-memory user registry. All users live in process
// memory; persistence is a whole-registry snapshot taken through Snapshot and
// Restore. The zero value is not usable, use NewMemoryRepository.
//
// Mutations run under the write lock so the duplicate-username check and the
// insert form a single critical section. Reads take the read lock, which is
// stronger than strictly required but removes the lookup/insert race.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
	// order keeps insertion order so snapshots are deterministic.
	order []string
}

// NewMemoryRepository builds an empty in-memory user registry.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]domain.User)}
}

// Create inserts a new user. Returns domain.ErrUsernameTaken when a user with
// the same username (case-sensitive) already exists.
func (r *MemoryRepository) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return domain.ErrUsernameTaken
	}
	r.users[user.Username] = user
	r.order = append(r.order, user.Username)
	return nil
}

// GetByCredentials finds a user by exact match on both username and password.
// Returns domain.ErrInvalidCredentials when no user matches.
func (r *MemoryRepository) GetByCredentials(_ context.Context, username, password string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[username]
	if !ok || user.Password != password {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Len reports the number of registered users.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Snapshot returns a copy of all users in insertion order.
func (r *MemoryRepository) Snapshot() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]domain.User, 0, len(r.order))
	for _, username := range r.order {
		users = append(users, r.users[username])
	}
	return users
}

// Restore replaces the registry content with the given users. Later
// duplicates of the same username are dropped.
func (r *MemoryRepository) Restore(users []domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = make(map[string]domain.User, len(users))
	r.order = r.order[:0]
	for _, user := range users {
		if _, exists := r.users[user.Username]; exists {
			continue
		}
		r.users[user.Username] = user
		r.order = append(r.order, user.Username)
	}
}
