package webserver

import (
	"errors"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var jwtSigningMethod = jwt.SigningMethodHS256

var errInvalidClientCookie = errors.New("client cookie was invalid")

const clientIDContextKey = "client.id"

type clientClaims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

// clientCookieHandler identifies a browser across requests with a signed,
// HttpOnly cookie carrying a random client id. The id is what the dashboard
// keys its session stores and persisted tokens on.
type clientCookieHandler struct {
	Secret       []byte
	CookieName   string
	CookieDomain string
	CookieSecure bool
	Lifetime     time.Duration
}

func (h *clientCookieHandler) issue(c echo.Context) (string, error) {
	clientID := uuid.NewString()
	expiry := time.Now().Add(h.Lifetime)

	claims := &clientClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString(h.Secret)
	if err != nil {
		return "", err
	}

	c.SetCookie(&http.Cookie{
		Name:     h.CookieName,
		Value:    signed,
		Domain:   h.CookieDomain,
		Path:     "/",
		Secure:   h.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiry,
	})

	return clientID, nil
}

func (h *clientCookieHandler) clientID(c echo.Context) (string, error) {
	cookie, err := c.Cookie(h.CookieName)
	if err != nil || cookie.Value == "" {
		return "", errInvalidClientCookie
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}))

	claims := new(clientClaims)
	token, err := parser.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		return h.Secret, nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidClientCookie
	}

	if _, err := uuid.Parse(claims.ClientID); err != nil {
		return "", errInvalidClientCookie
	}

	return claims.ClientID, nil
}

// middleware makes sure every request carries a client id, minting a new one
// when the cookie is missing, expired or forged.
func (h *clientCookieHandler) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		clientID, err := h.clientID(c)
		if err != nil {
			clientID, err = h.issue(c)
			if err != nil {
				c.Logger().Errorf("Couldn't issue client cookie: %v", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong")
			}
		}
		c.Set(clientIDContextKey, clientID)
		return next(c)
	}
}

func clientIDFromContext(c echo.Context) string {
	id, _ := c.Get(clientIDContextKey).(string)
	return id
}
