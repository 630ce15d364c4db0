// Package guard gates dashboard views on the viewer's session.
//
// The guard has exactly two outputs, both derived from the session store: a
// neutral loading page while the session is unresolved, or the protected
// handler once it is. Anonymous viewers are sent to the login view.
//
// A request that arrives mid-restore first waits a short while for the store
// to resolve. Only GET and HEAD requests are answered with the loading page,
// whose refresh would otherwise replay a form post as a GET.
package guard

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lachlan2k/malaria-dash/internal/session"
)

const (
	storeContextKey    = "session.store"
	identityContextKey = "session.identity"

	defaultRestoreWait = 2 * time.Second
)

// Lookup finds the session store of the client making the request.
type Lookup func(c echo.Context) (*session.Store, error)

type Config struct {
	// LoginPath is where anonymous viewers are redirected. Defaults to /login
	LoginPath string
	// CheckAccess, if set, is consulted for authenticated viewers. A non-nil
	// error yields a 403 without touching the session.
	CheckAccess func(c echo.Context, store *session.Store, identity session.Identity) error
	// LoadingHandler renders the placeholder shown while the session resolves.
	LoadingHandler echo.HandlerFunc
	// RestoreWait bounds how long a request waits for an unresolved store.
	// Zero means two seconds, a negative value disables waiting.
	RestoreWait time.Duration
}

func RequireSession(lookup Lookup, conf Config) echo.MiddlewareFunc {
	if conf.LoginPath == "" {
		conf.LoginPath = "/login"
	}
	if conf.LoadingHandler == nil {
		conf.LoadingHandler = DefaultLoadingHandler
	}
	if conf.RestoreWait == 0 {
		conf.RestoreWait = defaultRestoreWait
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			store, err := lookup(c)
			if err != nil {
				return err
			}

			snap := store.Snapshot()
			if snap.IsLoading && conf.RestoreWait > 0 {
				ctx, cancel := context.WithTimeout(c.Request().Context(), conf.RestoreWait)
				snap, _ = store.Wait(ctx)
				cancel()
			}
			if snap.IsLoading {
				c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
				switch c.Request().Method {
				case http.MethodGet, http.MethodHead:
					return conf.LoadingHandler(c)
				}
				c.Response().Header().Set(echo.HeaderRetryAfter, "1")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Your session is still loading, please try again")
			}

			identity, ok := snap.Identity()
			if !ok {
				return c.Redirect(http.StatusFound, loginURL(conf.LoginPath, c.Request().URL.RequestURI()))
			}

			if conf.CheckAccess != nil {
				if err := conf.CheckAccess(c, store, identity); err != nil {
					c.Logger().Warnf("Denied dashboard access: %v", err)
					return echo.NewHTTPError(http.StatusForbidden, "You are not allowed to use this dashboard")
				}
			}

			c.Set(storeContextKey, store)
			c.Set(identityContextKey, identity)
			return next(c)
		}
	}
}

func loginURL(loginPath string, redir string) string {
	if redir == "" || redir == "/" {
		return loginPath
	}
	return loginPath + "?redir=" + url.QueryEscape(redir)
}

// StoreFromContext returns the store the guard admitted the request with.
func StoreFromContext(c echo.Context) *session.Store {
	store, _ := c.Get(storeContextKey).(*session.Store)
	return store
}

func IdentityFromContext(c echo.Context) session.Identity {
	identity, _ := c.Get(identityContextKey).(session.Identity)
	return identity
}

const loadingPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta http-equiv="refresh" content="1">
<title>Loading…</title>
<style>
  body { display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; }
  .spinner { width: 40px; height: 40px; border: 4px solid #cfd8dc; border-top-color: #00695c; border-radius: 50%; animation: spin 1s linear infinite; }
  @keyframes spin { to { transform: rotate(360deg); } }
</style>
</head>
<body><div class="spinner" role="progressbar" aria-label="Loading"></div></body>
</html>`

func DefaultLoadingHandler(c echo.Context) error {
	return c.HTML(http.StatusOK, loadingPage)
}
