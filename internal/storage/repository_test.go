package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneymanager/internal/core"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSessionLifecycle(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Unix(1_710_000_000, 0)

	rec := SessionRecord{
		ID:        "s1",
		Token:     "tok",
		User:      core.User{ID: "u1", Name: "Asha", Email: "a@x.io"},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, repo.SaveSession(ctx, rec))

	got, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, rec.Token, got.Token)
	assert.Equal(t, rec.User, got.User)
	assert.True(t, got.ExpiresAt.Equal(rec.ExpiresAt))

	require.NoError(t, repo.UpdateUser(ctx, "s1", core.User{ID: "u1", Name: "Asha K", Email: "a@x.io"}))
	got, _ = repo.GetSession(ctx, "s1")
	assert.Equal(t, "Asha K", got.User.Name)
	assert.ErrorIs(t, repo.UpdateUser(ctx, "missing", core.User{}), ErrNotFound)

	rec.Token = "tok2"
	require.NoError(t, repo.SaveSession(ctx, rec))
	got, _ = repo.GetSession(ctx, "s1")
	assert.Equal(t, "tok2", got.Token)

	require.NoError(t, repo.DeleteSession(ctx, "s1"))
	_, err = repo.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteExpired(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Unix(1_710_000_000, 0)

	for i, exp := range []time.Duration{-time.Minute, 0, time.Hour} {
		require.NoError(t, repo.SaveSession(ctx, SessionRecord{
			ID: string(rune('a' + i)), Token: "t", CreatedAt: now, ExpiresAt: now.Add(exp),
		}))
	}

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = repo.GetSession(ctx, "c")
	assert.NoError(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}
