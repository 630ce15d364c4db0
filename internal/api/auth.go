package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

type UserType int

const (
	UserTypeAdmin       UserType = 1
	UserTypeClinician   UserType = 2
	UserTypeFieldWorker UserType = 3
)

func (u UserType) String() string {
	switch u {
	case UserTypeAdmin:
		return "Admin"
	case UserTypeClinician:
		return "Clinician"
	case UserTypeFieldWorker:
		return "Field Worker"
	}
	return "Unknown"
}

// LoginResponse is the token pair issued by the backend. Raw holds the whole
// payload so callers can inspect keys this type doesn't model.
type LoginResponse struct {
	Access  string                 `json:"access"`
	Refresh string                 `json:"refresh,omitempty"`
	Raw     map[string]interface{} `json:"-"`
}

// User is the "who am I" payload.
type User struct {
	ID       int64                  `json:"id,omitempty"`
	Email    string                 `json:"email"`
	UserType UserType               `json:"user_type"`
	Phone    string                 `json:"phone,omitempty"`
	Raw      map[string]interface{} `json:"-"`
}

type RegisterRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	UserType UserType `json:"user_type,omitempty"`
	Phone    string   `json:"phone,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Login(
	ctx context.Context,
	email string,
	password string,
) (*LoginResponse, error) {
	raw := json.RawMessage{}
	if err := c.executeRequest(
		ctx,
		outboundRequest{
			method:     http.MethodPost,
			path:       "auth/login/",
			reqBodyObj: loginRequest{Email: email, Password: password},
			respObj:    &raw,
		},
	); err != nil {
		return nil, err
	}
	resp := &LoginResponse{}
	if err := decodeWithRaw(raw, resp, &resp.Raw); err != nil {
		return nil, err
	}
	return resp, nil
}

// UserForToken asks the backend who owns token, ignoring whatever the
// client's own token source currently holds.
func (c *Client) UserForToken(ctx context.Context, token string) (*User, error) {
	static := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return c.WithTokenSource(static).CurrentUser(ctx)
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	raw := json.RawMessage{}
	if err := c.executeRequest(
		ctx,
		outboundRequest{
			method:  http.MethodGet,
			path:    "auth/user/",
			respObj: &raw,
		},
	); err != nil {
		return nil, err
	}
	user := &User{}
	if err := decodeWithRaw(raw, user, &user.Raw); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	user := &User{}
	if err := c.executeRequest(
		ctx,
		outboundRequest{
			method:      http.MethodPost,
			path:        "auth/register/",
			reqBodyObj:  req,
			successCode: http.StatusCreated,
			respObj:     user,
		},
	); err != nil {
		return nil, err
	}
	return user, nil
}

func decodeWithRaw(raw json.RawMessage, typed interface{}, into *map[string]interface{}) error {
	if len(raw) == 0 {
		return errors.New("backend returned an empty body")
	}
	if err := json.Unmarshal(raw, typed); err != nil {
		return errors.Wrap(err, "error unmarshaling response body")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return errors.Wrap(err, "error unmarshaling response body")
	}
	return nil
}
