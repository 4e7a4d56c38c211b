// Package auth extracts the caller's access token from incoming requests.
// The token is opaque to this service: the remote data gateway owns
// authentication, and domain services resolve the token to a session at the
// moment they need one. This middleware only parses the Authorization header
// and never rejects a request, so public routes (emergency dispatch,
// location resolution, health) share the same chain.
package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const tokenContextKey = "access_token"

// Extract pulls the bearer token out of the Authorization header and stores
// it on the echo context. Missing or malformed headers leave the token empty.
func Extract() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				c.Set(tokenContextKey, strings.TrimSpace(parts[1]))
			}
			return next(c)
		}
	}
}

// Token returns the caller's access token, or "" when the request carried
// none.
func Token(c echo.Context) string {
	tok, _ := c.Get(tokenContextKey).(string)
	return tok
}
