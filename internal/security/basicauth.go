// Package security authenticates requests with HTTP Basic credentials and
// binds the authenticated principal to the request session.
package security

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"sessiond/internal/session"
)

// Realm is announced in the WWW-Authenticate challenge.
const Realm = "sessiond"

const principalKey = "sessiond.principal"

// Users maps usernames to their passwords.
type Users map[string]string

// Config holds BasicAuth options.
type Config struct {
	Users Users
	// SkipPaths are served without authentication. A trailing "*" matches a prefix.
	SkipPaths []string
}

// BasicAuth authenticates the request with HTTP Basic credentials unless
// the request sends none and its session already belongs to a principal.
// It must run after the session middleware.
func BasicAuth(cfg Config) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: Realm,
		Skipper: func(c echo.Context) bool {
			if isSkipped(c.Path(), c.Request().URL.Path, cfg.SkipPaths) {
				return true
			}
			if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
				return false
			}
			if s := session.Current(c); s != nil {
				if name := s.PrincipalName(); name != "" {
					if _, ok := cfg.Users[name]; ok {
						c.Set(principalKey, name)
						return true
					}
				}
			}
			return false
		},
		Validator: func(username, password string, c echo.Context) (bool, error) {
			if !cfg.Users.Verify(username, password) {
				return false, nil
			}
			c.Set(principalKey, username)
			if err := session.SetPrincipal(c, username); err != nil {
				return false, err
			}
			return true, nil
		},
	})
}

// Verify reports whether password matches the password of username.
func (u Users) Verify(username, password string) bool {
	want, ok := u[username]
	if !ok {
		// Timing must not reveal whether the user exists.
		subtle.ConstantTimeCompare([]byte(password), []byte(password))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(want)) == 1
}

// Principal returns the authenticated username of the request, or "".
func Principal(c echo.Context) string {
	name, _ := c.Get(principalKey).(string)
	return name
}

func isSkipped(route, path string, skip []string) bool {
	for _, p := range skip {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if route == p || path == p {
			return true
		}
	}
	return false
}
