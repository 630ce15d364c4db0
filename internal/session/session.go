package session

import (
	"errors"

	"github.com/lachlan2k/malaria-dash/internal/api"
)

type Identity struct {
	Email    string       `json:"email"`
	UserType api.UserType `json:"user_type,omitempty"`
}

// Session is replaced wholesale, never mutated in place. Identity and Token
// are always created and cleared together.
type Session struct {
	Identity Identity
	Token    string
}

type State int

const (
	Unresolved State = iota
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	}
	return "unknown"
}

// Snapshot is a consistent read of a store.
type Snapshot struct {
	Session   *Session
	IsLoading bool
}

func (s Snapshot) State() State {
	if s.IsLoading {
		return Unresolved
	}
	if s.Session == nil {
		return Anonymous
	}
	return Authenticated
}

func (s Snapshot) Identity() (Identity, bool) {
	if s.Session == nil {
		return Identity{}, false
	}
	return s.Session.Identity, true
}

var (
	ErrNotAuthenticated   = errors.New("not logged in")
	ErrMissingAccessToken = errors.New("login response did not include an access token")
)
