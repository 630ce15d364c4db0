package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newRedisTest(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func requireRoundTrip(t *testing.T, storage Storage) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := storage.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, storage.Set(ctx, "tok123"))
	token, ok, err := storage.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok123", token)

	require.NoError(t, storage.Set(ctx, "tok456"))
	token, _, err = storage.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok456", token)

	require.NoError(t, storage.Remove(ctx))
	_, ok, err = storage.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// Removing twice is fine.
	require.NoError(t, storage.Remove(ctx))
}

func requireRemoveIfCurrent(t *testing.T, storage Storage) {
	t.Helper()
	ctx := context.Background()

	removed, err := storage.RemoveIfCurrent(ctx, "tok123")
	require.NoError(t, err)
	require.False(t, removed)

	// A newer token written after tok123 was read must survive.
	require.NoError(t, storage.Set(ctx, "tok456"))
	removed, err = storage.RemoveIfCurrent(ctx, "tok123")
	require.NoError(t, err)
	require.False(t, removed)
	token, ok, err := storage.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok456", token)

	removed, err = storage.RemoveIfCurrent(ctx, "tok456")
	require.NoError(t, err)
	require.True(t, removed)
	_, ok, err = storage.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemory(t *testing.T) {
	requireRoundTrip(t, NewMemory())
	requireRemoveIfCurrent(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials")
	requireRoundTrip(t, NewFile(path))
	requireRemoveIfCurrent(t, NewFile(path))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestFilePermissionsAndOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":"http://x"}`), 0600))

	storage := NewFile(path)
	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, "tok123"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, storage.Remove(ctx))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"server":"http://x"}`, string(data))
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, _, err := NewFile(path).Get(context.Background())
	require.Error(t, err)
}

func TestRedis(t *testing.T) {
	_, rdb := newRedisTest(t)
	requireRoundTrip(t, NewRedis(rdb, "dashboard:client-1", 0))
	requireRemoveIfCurrent(t, NewRedis(rdb, "dashboard:client-2", 0))
}

func TestRedisNamespacesAndTTL(t *testing.T) {
	mr, rdb := newRedisTest(t)
	ctx := context.Background()

	one := NewRedis(rdb, "dashboard:one", time.Hour)
	two := NewRedis(rdb, "dashboard:two", time.Hour)
	require.Equal(t, "dashboard:one:access_token", one.Key())

	require.NoError(t, one.Set(ctx, "tok-one"))
	_, ok, err := two.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, time.Hour, mr.TTL(one.Key()))

	mr.FastForward(2 * time.Hour)
	_, ok, err = one.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisUnavailable(t *testing.T) {
	mr, rdb := newRedisTest(t)
	mr.Close()

	_, _, err := NewRedis(rdb, "dashboard:x", 0).Get(context.Background())
	require.Error(t, err)
}

func TestTokenSource(t *testing.T) {
	storage := NewMemory()
	source := TokenSource(storage)

	token, err := source.Token()
	require.NoError(t, err)
	require.Empty(t, token.AccessToken)

	require.NoError(t, storage.Set(context.Background(), "tok123"))
	token, err = source.Token()
	require.NoError(t, err)
	require.Equal(t, "tok123", token.AccessToken)
	require.Equal(t, "Bearer", token.Type())
}

type contextStorage struct {
	*Memory
}

func (s contextStorage) Get(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return s.Memory.Get(ctx)
}

func TestTokenSourceUsesCallerContext(t *testing.T) {
	storage := contextStorage{NewMemory()}
	require.NoError(t, storage.Set(context.Background(), "tok123"))

	source, ok := TokenSource(storage).(interface {
		TokenContext(ctx context.Context) (*oauth2.Token, error)
	})
	require.True(t, ok)

	token, err := source.TokenContext(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok123", token.AccessToken)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.TokenContext(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
