package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenvault/tokenvault/internal/account/domain"
)

func TestMemoryRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_NewUser", func(t *testing.T) {
		repo := NewMemoryRepository()
		err := repo.Create(ctx, domain.NewUser("alice.b2", "secret", domain.AccessRegister))
		require.NoError(t, err)
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("Error_DuplicateUsername", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.Create(ctx, domain.NewUser("alice.b2", "secret", domain.AccessRegister)))

		err := repo.Create(ctx, domain.NewUser("alice.b2", "other", domain.AccessMaster))
		assert.ErrorIs(t, err, domain.ErrUsernameTaken)
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("Success_CaseSensitiveUsernames", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.Create(ctx, domain.NewUser("alice.b2", "secret", domain.AccessRegister)))
		require.NoError(t, repo.Create(ctx, domain.NewUser("Alice.b2", "secret", domain.AccessRegister)))
		assert.Equal(t, 2, repo.Len())
	})
}

func TestMemoryRepository_GetByCredentials(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, domain.NewUser("alice.b2", "secret", domain.AccessRequest)))

	t.Run("Success_ExactMatch", func(t *testing.T) {
		user, err := repo.GetByCredentials(ctx, "alice.b2", "secret")
		require.NoError(t, err)
		assert.Equal(t, "alice.b2", user.Username)
		assert.Equal(t, domain.AccessRequest, user.Access)
	})

	t.Run("Error_WrongPassword", func(t *testing.T) {
		_, err := repo.GetByCredentials(ctx, "alice.b2", "wrong")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("Error_UnknownUsername", func(t *testing.T) {
		_, err := repo.GetByCredentials(ctx, "nobody", "secret")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestMemoryRepository_ConcurrentCreateSameUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	const goroutines = 16
	var wg sync.WaitGroup
	results := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Create(ctx, domain.NewUser("charlie.m", "secret", domain.AccessRegister))
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrUsernameTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes, "exactly one registration must win")
	assert.Equal(t, goroutines-1, conflicts)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryRepository_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	for i := 0; i < 5; i++ {
		username := fmt.Sprintf("user_%d%d%d%d%d", i, i, i, i, i)
		require.NoError(t, repo.Create(ctx, domain.NewUser(username, "secret", domain.AccessRegister)))
	}

	snapshot := repo.Snapshot()
	require.Len(t, snapshot, 5)

	restored := NewMemoryRepository()
	restored.Restore(snapshot)
	assert.Equal(t, snapshot, restored.Snapshot())

	// Restore replaces previous content entirely.
	restored.Restore(nil)
	assert.Equal(t, 0, restored.Len())
}
