package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ChannelAuthHeader carries the shared secret of the application shell.
const ChannelAuthHeader = "X-B2C-Hub-Secret"

// ChannelAuth rejects requests that do not present sharedSecret, either in
// ChannelAuthHeader or as a bearer token. Secrets are compared in constant
// time.
func ChannelAuth(sharedSecret string) echo.MiddlewareFunc {
	secretBytes := []byte(sharedSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := []byte(presentedSecret(c.Request()))
			if len(provided) == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing channel secret")
			}
			if subtle.ConstantTimeCompare(provided, secretBytes) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid channel secret")
			}
			return next(c)
		}
	}
}

func presentedSecret(r *http.Request) string {
	if secret := r.Header.Get(ChannelAuthHeader); secret != "" {
		return secret
	}
	const prefix = "Bearer "
	auth := r.Header.Get(echo.HeaderAuthorization)
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
