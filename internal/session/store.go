package session

import (
	"context"
	"sync"

	"github.com/labstack/gommon/log"
	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/lachlan2k/malaria-dash/internal/tokenstore"
	"github.com/pkg/errors"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	// UserForToken validates token against the backend and returns its owner.
	UserForToken(ctx context.Context, token string) (*api.User, error)
}

// Store is the single source of truth for whether a client is logged in.
//
// Restore and Login are not serialised against each other: when both are in
// flight, whichever response resolves last decides the session.
type Store struct {
	storage tokenstore.Storage
	auth    Authenticator
	logger  *log.Logger

	mu      sync.Mutex
	session *Session
	loading bool
	// idle is closed whenever loading drops back to false.
	idle chan struct{}
}

// New returns a store in the Unresolved state. Call Restore to resolve it.
func New(storage tokenstore.Storage, auth Authenticator, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New("session")
	}
	return &Store{
		storage: storage,
		auth:    auth,
		logger:  logger,
		loading: true,
		idle:    make(chan struct{}),
	}
}

func (s *Store) Storage() tokenstore.Storage {
	return s.storage
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Session: s.session, IsLoading: s.loading}
}

// Restore rebuilds the session from the persisted token. Any failure while
// checking the token is treated as "not logged in": the token is cleared and
// nothing is returned to the caller. It always finishes not-loading.
func (s *Store) Restore(ctx context.Context) {
	defer s.finishLoading()

	token, ok, err := s.storage.Get(ctx)
	if err != nil {
		s.logger.Warnf("Couldn't read persisted token, treating client as logged out: %v", err)
		s.replace(nil)
		return
	}
	if !ok {
		s.replace(nil)
		return
	}

	user, err := s.auth.UserForToken(ctx, token)
	if err != nil {
		s.logger.Debugf("Persisted token was rejected, clearing it: %v", err)
		// A login may have persisted a fresh token in the meantime.
		if _, rmErr := s.storage.RemoveIfCurrent(ctx, token); rmErr != nil {
			s.logger.Warnf("Couldn't clear rejected token: %v", rmErr)
		}
		s.replace(nil)
		return
	}

	s.replace(&Session{
		Identity: Identity{Email: user.Email, UserType: user.UserType},
		Token:    token,
	})
}

// Login exchanges credentials for a token. On success the token is persisted
// and the raw response is returned so the caller can decide where to go next.
// On failure the error is returned unchanged and the session is untouched.
func (s *Store) Login(
	ctx context.Context,
	email string,
	password string,
) (*api.LoginResponse, error) {
	s.startLoading()
	defer s.finishLoading()

	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if resp.Access == "" {
		return nil, ErrMissingAccessToken
	}
	if err := s.storage.Set(ctx, resp.Access); err != nil {
		return nil, errors.Wrap(err, "error persisting access token")
	}

	s.replace(&Session{
		Identity: Identity{Email: email},
		Token:    resp.Access,
	})
	return resp, nil
}

// Logout clears the persisted token and drops the session.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.storage.Remove(ctx); err != nil {
		return errors.Wrap(err, "error clearing access token")
	}
	s.replace(nil)
	return nil
}

// Wait blocks until the store is not loading.
func (s *Store) Wait(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		if !s.loading {
			snap := Snapshot{Session: s.session, IsLoading: false}
			s.mu.Unlock()
			return snap, nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

func (s *Store) replace(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
}

func (s *Store) startLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loading {
		s.loading = true
		s.idle = make(chan struct{})
	}
}

func (s *Store) finishLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		s.loading = false
		close(s.idle)
	}
}
