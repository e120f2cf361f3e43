package sessions_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/medix-console/internal/errors"
	"github.com/jrsteele09/medix-console/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testSessionID = "3f0c6d2e-9a41-4f7e-9d55-2f2f8b1d7a10"

var testPair = sessions.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}

func newRedisRepo(t *testing.T) (*sessions.RedisRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return sessions.NewRedisRepo(client, time.Hour), mr
}

func newSQLiteRepo(t *testing.T, path string) *sessions.SQLiteRepo {
	t.Helper()
	repo, err := sessions.OpenSQLiteRepo(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// repoContract runs the behaviour every Repo implementation must share
func repoContract(t *testing.T, repo sessions.Repo) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		store := sessions.Scoped(repo, testSessionID)
		require.NoError(t, store.Save(ctx, testPair))
		require.Equal(t, testPair.AccessToken, store.ReadAccess(ctx))
		require.Equal(t, testPair.RefreshToken, store.ReadRefresh(ctx))

		// saving the same pair again is idempotent
		require.NoError(t, store.Save(ctx, testPair))
		require.Equal(t, testPair.AccessToken, store.ReadAccess(ctx))
	})

	t.Run("access replaced keeps refresh", func(t *testing.T) {
		store := sessions.Scoped(repo, testSessionID)
		require.NoError(t, store.Save(ctx, sessions.Pair{AccessToken: "access-2", RefreshToken: store.ReadRefresh(ctx)}))
		require.Equal(t, "access-2", store.ReadAccess(ctx))
		require.Equal(t, testPair.RefreshToken, store.ReadRefresh(ctx))
	})

	t.Run("replace access requires the expected refresh token", func(t *testing.T) {
		store := sessions.Scoped(repo, testSessionID)
		require.NoError(t, store.Save(ctx, testPair))

		require.NoError(t, store.ReplaceAccess(ctx, testPair.RefreshToken, "access-3"))
		require.Equal(t, "access-3", store.ReadAccess(ctx))
		require.Equal(t, testPair.RefreshToken, store.ReadRefresh(ctx))

		err := store.ReplaceAccess(ctx, "refresh-other", "access-4")
		require.True(t, errors.Is(err, errors.ErrCredentialsChanged))
		require.Equal(t, "access-3", store.ReadAccess(ctx))
	})

	t.Run("replace access after clear does not resurrect the session", func(t *testing.T) {
		store := sessions.Scoped(repo, "cleared-session")
		require.NoError(t, store.Save(ctx, testPair))
		require.NoError(t, store.Clear(ctx))

		err := store.ReplaceAccess(ctx, testPair.RefreshToken, "access-5")
		require.True(t, errors.Is(err, errors.ErrCredentialsChanged))
		require.Empty(t, store.ReadAccess(ctx))
		require.Empty(t, store.ReadRefresh(ctx))
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		other := sessions.Scoped(repo, "other-session")
		require.Empty(t, other.ReadAccess(ctx))
		require.Empty(t, other.ReadRefresh(ctx))
	})

	t.Run("clear removes both keys", func(t *testing.T) {
		store := sessions.Scoped(repo, testSessionID)
		require.NoError(t, store.Clear(ctx))
		require.Empty(t, store.ReadAccess(ctx))
		require.Empty(t, store.ReadRefresh(ctx))

		_, err := repo.Get(ctx, testSessionID, sessions.KeyAccessToken)
		require.True(t, errors.Is(err, errors.ErrNotFound))

		// clearing twice is fine
		require.NoError(t, store.Clear(ctx))
	})

	t.Run("empty session id rejected", func(t *testing.T) {
		require.Error(t, repo.Save(ctx, "", testPair))
		require.Error(t, repo.Clear(ctx, ""))
	})
}

func TestInMemoryRepo(t *testing.T) {
	repoContract(t, sessions.NewInMemoryRepo())
}

func TestRedisRepo(t *testing.T) {
	repo, mr := newRedisRepo(t)
	repoContract(t, repo)

	t.Run("ttl applied on save", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, repo.Ping(ctx))
		require.NoError(t, repo.Save(ctx, testSessionID, testPair))
		require.Equal(t, time.Hour, mr.TTL("console:session:"+testSessionID))

		mr.FastForward(2 * time.Hour)
		_, err := repo.Get(ctx, testSessionID, sessions.KeyAccessToken)
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestSQLiteRepo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "console.db")
	repoContract(t, newSQLiteRepo(t, path))

	t.Run("survives reopen", func(t *testing.T) {
		ctx := context.Background()
		reopenPath := filepath.Join(t.TempDir(), "restart.db")

		first, err := sessions.OpenSQLiteRepo(reopenPath)
		require.NoError(t, err)
		require.NoError(t, first.Save(ctx, testSessionID, testPair))
		require.NoError(t, first.Close())

		second := newSQLiteRepo(t, reopenPath)
		store := sessions.Scoped(second, testSessionID)
		require.Equal(t, testPair.AccessToken, store.ReadAccess(ctx))
		require.Equal(t, testPair.RefreshToken, store.ReadRefresh(ctx))
	})
}

func TestPair_OAuth2(t *testing.T) {
	tok := testPair.OAuth2()
	require.Equal(t, "access-1", tok.AccessToken)
	require.Equal(t, "refresh-1", tok.RefreshToken)
	require.Equal(t, "Bearer", tok.Type())
	require.True(t, sessions.Pair{}.Empty())
}
