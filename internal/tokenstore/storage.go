// Package tokenstore persists the bearer token between runs. There is exactly
// one entry, stored under AccessTokenKey; its absence means there is no
// session to restore.
package tokenstore

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

const AccessTokenKey = "access_token"

type Storage interface {
	// Get returns the persisted token. ok is false when nothing is persisted.
	Get(ctx context.Context) (token string, ok bool, err error)
	Set(ctx context.Context, token string) error
	// Remove clears the persisted token. Removing an absent token is not an
	// error.
	Remove(ctx context.Context) error
	// RemoveIfCurrent clears the persisted token only while it still equals
	// token, and reports whether it did.
	RemoveIfCurrent(ctx context.Context, token string) (bool, error)
}

const tokenReadTimeout = 5 * time.Second

type storageTokenSource struct {
	storage Storage
}

// TokenSource reads the persisted token on every call, so a login or a
// cleared token takes effect on the very next request.
func TokenSource(storage Storage) oauth2.TokenSource {
	return &storageTokenSource{storage: storage}
}

// Token satisfies oauth2.TokenSource, which has no context. Callers that have
// one should use TokenContext so a slow storage honours cancellation.
func (s *storageTokenSource) Token() (*oauth2.Token, error) {
	return s.TokenContext(context.Background())
}

// TokenContext reads the token within ctx, bounded by tokenReadTimeout.
func (s *storageTokenSource) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, tokenReadTimeout)
	defer cancel()

	token, ok, err := s.storage.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &oauth2.Token{}, nil
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
