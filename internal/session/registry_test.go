package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/lachlan2k/malaria-dash/internal/tokenstore"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreatesAndRestoresOncePerClient(t *testing.T) {
	var mu sync.Mutex
	auths := map[string]*fakeAuth{}
	registry := NewRegistry(func(clientID string) *Store {
		storage := tokenstore.NewMemory()
		_ = storage.Set(context.Background(), "tok-"+clientID)
		auth := &fakeAuth{user: &api.User{Email: clientID + "@b.com"}}
		mu.Lock()
		auths[clientID] = auth
		mu.Unlock()
		return New(storage, auth, nil)
	}, time.Minute, nil)

	first := registry.Get("one")
	require.Same(t, first, registry.Get("one"))
	require.NotSame(t, first, registry.Get("two"))
	require.Equal(t, 2, registry.Len())

	snap, err := first.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, Authenticated, snap.State())
	require.Equal(t, "one@b.com", snap.Session.Identity.Email)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, auths["one"].userCalls)
}

func TestRegistryEvict(t *testing.T) {
	now := time.Now()
	registry := NewRegistry(func(string) *Store {
		return New(tokenstore.NewMemory(), &fakeAuth{}, nil)
	}, time.Minute, nil)
	registry.now = func() time.Time { return now }

	registry.Get("stale")
	now = now.Add(45 * time.Second)
	registry.Get("fresh")
	now = now.Add(30 * time.Second)

	require.Equal(t, 1, registry.Evict())
	require.Equal(t, 1, registry.Len())

	registry.Get("fresh")
	require.Equal(t, 0, registry.Evict())
}

func TestRegistryEvictDisabled(t *testing.T) {
	registry := NewRegistry(func(string) *Store {
		return New(tokenstore.NewMemory(), &fakeAuth{}, nil)
	}, 0, nil)
	registry.Get("one")
	require.Equal(t, 0, registry.Evict())

	// Returns immediately when eviction is disabled.
	registry.Run(context.Background())
}
