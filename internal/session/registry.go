package session

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
)

// Factory builds the store for a newly seen client.
type Factory func(clientID string) *Store

type registryEntry struct {
	store    *Store
	lastSeen time.Time
}

// Registry owns one store per dashboard client. A store is created and its
// restore started the first time a client is seen; stores idle for longer
// than the idle timeout are dropped.
type Registry struct {
	newStore    Factory
	idleTimeout time.Duration
	logger      *log.Logger
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

func NewRegistry(newStore Factory, idleTimeout time.Duration, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New("session")
	}
	return &Registry{
		newStore:    newStore,
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
		entries:     map[string]*registryEntry{},
	}
}

func (r *Registry) Get(clientID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if entry, ok := r.entries[clientID]; ok {
		entry.lastSeen = now
		return entry.store
	}

	store := r.newStore(clientID)
	r.entries[clientID] = &registryEntry{store: store, lastSeen: now}
	r.logger.Debugf("Restoring session for new client %s", clientID)
	go store.Restore(context.Background())
	return store
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Evict drops every store not seen since the idle timeout and returns how
// many were dropped. Persisted tokens are left alone, so a returning client
// restores its session again.
func (r *Registry) Evict() int {
	if r.idleTimeout <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTimeout)
	evicted := 0
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			evicted++
		}
	}
	return evicted
}

// Run evicts idle stores until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	if r.idleTimeout <= 0 {
		return
	}
	interval := r.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.logger.Debugf("Evicted %d idle session stores", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
