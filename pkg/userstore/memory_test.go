package userstore_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniserve/uniserve/pkg/auth"
	"github.com/uniserve/uniserve/pkg/userstore"
)

func seedUser(t *testing.T, store *userstore.MemoryStore, email string) *auth.User {
	t.Helper()
	u := &auth.User{
		ID:         uuid.New(),
		Email:      email,
		Roles:      []string{"student"},
		IsVerified: true,
	}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestMemoryStoreCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := userstore.NewMemoryStore()

	u := seedUser(t, store, "one@university.edu")
	assert.EqualValues(t, 1, u.Version)

	t.Run("duplicate email is rejected case-insensitively", func(t *testing.T) {
		dup := &auth.User{ID: uuid.New(), Email: "ONE@university.edu"}
		assert.ErrorIs(t, store.Create(ctx, dup), auth.ErrEmailAlreadyRegistered)
	})

	t.Run("duplicate provider link is rejected", func(t *testing.T) {
		first := &auth.User{ID: uuid.New(), Email: "p1@university.edu", ProviderName: "google", ProviderID: "g-1"}
		require.NoError(t, store.Create(ctx, first))
		second := &auth.User{ID: uuid.New(), Email: "p2@university.edu", ProviderName: "google", ProviderID: "g-1"}
		assert.ErrorIs(t, store.Create(ctx, second), auth.ErrEmailAlreadyRegistered)
	})
}

func TestMemoryStoreLookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := userstore.NewMemoryStore()
	u := seedUser(t, store, "lookup@university.edu")

	t.Run("by id", func(t *testing.T) {
		got, err := store.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, got.Email)
	})

	t.Run("by email ignores case", func(t *testing.T) {
		got, err := store.GetByEmail(ctx, "LOOKUP@university.edu")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("by reset code", func(t *testing.T) {
		_, err := store.Mutate(ctx, u.ID, func(stored *auth.User) error {
			stored.ResetCode = "123456"
			return nil
		})
		require.NoError(t, err)

		got, err := store.GetByResetCode(ctx, "123456")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = store.GetByResetCode(ctx, "")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("missing records", func(t *testing.T) {
		_, err := store.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
		_, err = store.GetByProvider(ctx, "google", "nope")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		got, err := store.GetByID(ctx, u.ID)
		require.NoError(t, err)
		got.Email = "mutated@university.edu"

		again, err := store.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "lookup@university.edu", again.Email)
	})
}

func TestMemoryStoreUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stale version is refused", func(t *testing.T) {
		store := userstore.NewMemoryStore()
		u := seedUser(t, store, "cas@university.edu")

		stale, err := store.GetByID(ctx, u.ID)
		require.NoError(t, err)
		fresh, err := store.GetByID(ctx, u.ID)
		require.NoError(t, err)

		fresh.FailedLoginAttempts = 1
		require.NoError(t, store.Update(ctx, fresh))

		stale.FailedLoginAttempts = 99
		assert.ErrorIs(t, store.Update(ctx, stale), auth.ErrVersionConflict)

		got, err := store.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.FailedLoginAttempts)
	})

	t.Run("update reindexes a changed reset code", func(t *testing.T) {
		store := userstore.NewMemoryStore()
		u := seedUser(t, store, "reindex@university.edu")

		_, err := store.Mutate(ctx, u.ID, func(stored *auth.User) error {
			stored.ResetCode = "111111"
			return nil
		})
		require.NoError(t, err)
		_, err = store.Mutate(ctx, u.ID, func(stored *auth.User) error {
			stored.ResetCode = "222222"
			return nil
		})
		require.NoError(t, err)

		_, err = store.GetByResetCode(ctx, "111111")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
		got, err := store.GetByResetCode(ctx, "222222")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})
}

func TestMemoryStoreMutate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("concurrent increments serialize instead of clobbering", func(t *testing.T) {
		store := userstore.NewMemoryStore()
		u := seedUser(t, store, "race@university.edu")

		// Retries are bounded, so a heavily contended writer may give up
		// with a conflict. What must hold is that every increment that
		// reported success is visible, none lost to a stale write.
		const writers = 20
		var succeeded atomic.Int64
		var wg sync.WaitGroup
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Mutate(ctx, u.ID, func(stored *auth.User) error {
					stored.FailedLoginAttempts++
					return nil
				})
				if err == nil {
					succeeded.Add(1)
				} else {
					assert.ErrorIs(t, err, auth.ErrVersionConflict)
				}
			}()
		}
		wg.Wait()

		got, err := store.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.EqualValues(t, succeeded.Load(), got.FailedLoginAttempts)
		assert.Positive(t, got.FailedLoginAttempts)
	})

	t.Run("callback error aborts the write", func(t *testing.T) {
		store := userstore.NewMemoryStore()
		u := seedUser(t, store, "abort@university.edu")

		_, err := store.Mutate(ctx, u.ID, func(stored *auth.User) error {
			stored.FailedLoginAttempts = 5
			return auth.ErrTokenInvalid
		})
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)

		got, err := store.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Zero(t, got.FailedLoginAttempts)
	})

	t.Run("unknown user", func(t *testing.T) {
		store := userstore.NewMemoryStore()
		_, err := store.Mutate(ctx, uuid.New(), func(*auth.User) error { return nil })
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}

func TestMemoryProfileStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := userstore.NewMemoryProfileStore()
	userID := uuid.New()

	complete, err := store.IsComplete(ctx, userID)
	require.NoError(t, err)
	assert.False(t, complete)

	require.NoError(t, store.CreateProfile(ctx, userID, "Student Name", ""))
	complete, err = store.IsComplete(ctx, userID)
	require.NoError(t, err)
	assert.False(t, complete, "profile without a student id is incomplete")

	store.SetStudentID(userID, "S-2026-001")
	complete, err = store.IsComplete(ctx, userID)
	require.NoError(t, err)
	assert.True(t, complete)

	require.NoError(t, store.DeleteProfile(ctx, userID))
	complete, err = store.IsComplete(ctx, userID)
	require.NoError(t, err)
	assert.False(t, complete)
}
