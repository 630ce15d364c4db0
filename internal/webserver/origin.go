package webserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// sameOrigin refuses state-changing requests that a browser reports as coming
// from somewhere other than base_url. Requests without an Origin header are
// let through, since only browsers send one.
func (w *Webserver) sameOrigin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch c.Request().Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return next(c)
		}

		origin := c.Request().Header.Get(echo.HeaderOrigin)
		if origin != "" && origin != w.origin {
			c.Logger().Warnf("Refused %s %s from origin %q", c.Request().Method, c.Request().URL.Path, origin)
			return echo.NewHTTPError(http.StatusForbidden, "Cross-origin requests aren't allowed")
		}
		return next(c)
	}
}
