package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

type Config struct {
	// Address of the backend REST API, e.g. https://screening.example.org/api
	Address       string
	Timeout       time.Duration
	AllowInsecure bool
}

// Client talks to the screening backend. Every request goes through a bearer
// transport that reads the persisted token from its token source.
type Client struct {
	address    string
	timeout    time.Duration
	base       http.RoundTripper
	httpClient *http.Client
}

func NewClient(conf Config, tokens oauth2.TokenSource) *Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if conf.AllowInsecure {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // nolint: gosec
	}

	c := &Client{
		address: strings.TrimRight(conf.Address, "/"),
		timeout: conf.Timeout,
		base:    base,
	}
	c.httpClient = c.newHTTPClient(tokens)
	return c
}

// WithTokenSource returns a client for the same backend that authenticates
// with the given token source. The underlying connection pool is shared.
func (c *Client) WithTokenSource(tokens oauth2.TokenSource) *Client {
	return &Client{
		address:    c.address,
		timeout:    c.timeout,
		base:       c.base,
		httpClient: c.newHTTPClient(tokens),
	}
}

func (c *Client) Address() string {
	return c.address
}

func (c *Client) newHTTPClient(tokens oauth2.TokenSource) *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &bearerTransport{
			source: tokens,
			base:   c.base,
		},
	}
}

// ContextTokenSource is a token source that can honour the request context
// while reading the token.
type ContextTokenSource interface {
	oauth2.TokenSource
	TokenContext(ctx context.Context) (*oauth2.Token, error)
}

// bearerTransport attaches the current token, if there is one. Requests made
// without a token are passed through untouched.
type bearerTransport struct {
	source oauth2.TokenSource
	base   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.source == nil {
		return t.base.RoundTrip(req)
	}

	var (
		token *oauth2.Token
		err   error
	)
	if source, ok := t.source.(ContextTokenSource); ok {
		token, err = source.TokenContext(req.Context())
	} else {
		token, err = t.source.Token()
	}
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	if token == nil || token.AccessToken == "" {
		return t.base.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	authed.Header = req.Header.Clone()
	token.SetAuthHeader(authed)
	return t.base.RoundTrip(authed)
}
