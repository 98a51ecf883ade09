package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// MiddlewareConfig configures the identity middleware.
type MiddlewareConfig struct {
	Codec     *Codec
	Allowlist *Allowlist
	// Debug includes the underlying verification error in 401 responses.
	// Production keeps the generic message so signature/format details
	// never leak.
	Debug bool
}

// Middleware verifies the bearer token on every inbound request and attaches
// the resulting Identity to the request context. The allow-list check always
// runs before any token parsing; once an identity is attached no further
// auth check happens here; route-level policies take over.
func Middleware(cfg MiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Allowlist != nil && cfg.Allowlist.Contains(c.Request().URL.Path) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := cfg.Codec.Verify(parts[1])
			if err != nil {
				msg := "invalid or expired token"
				if cfg.Debug {
					msg = fmt.Sprintf("%s: %v", msg, err)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, msg)
			}

			userID, _ := claims["sub"].(string)
			role, _ := claims["role"].(string)
			if role == "" {
				role = RoleUser
			}

			identity := &Identity{UserID: userID, Role: role, Claims: claims}
			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), identity)))

			return next(c)
		}
	}
}
