package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hce/hce/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the session endpoints. Login/refresh/logout must be
// on the middleware allow-list; /auth/me is deliberately not, so it always
// runs with a verified identity.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me)
}

// detail mirrors the wire contract for error bodies: {"detail": message}.
func detail(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"detail": msg})
}

// Login accepts username+password as JSON or form data.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "malformed request body")
	}
	if req.Username == "" || req.Password == "" {
		return detail(c, http.StatusBadRequest, "username and password are required")
	}

	pair, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return detail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return detail(c, http.StatusInternalServerError, "login failed")
	}

	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "malformed request body")
	}
	if req.RefreshToken == "" {
		return detail(c, http.StatusBadRequest, "refresh_token is required")
	}

	pair, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			return detail(c, http.StatusUnauthorized, "invalid or expired refresh token")
		}
		return detail(c, http.StatusInternalServerError, "refresh failed")
	}

	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) Logout(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "malformed request body")
	}
	if req.RefreshToken == "" {
		return detail(c, http.StatusBadRequest, "refresh_token is required")
	}

	found, err := h.svc.Logout(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return detail(c, http.StatusInternalServerError, "logout failed")
	}
	if !found {
		return detail(c, http.StatusBadRequest, "refresh token not found")
	}

	return c.JSON(http.StatusOK, map[string]string{"detail": "logged out"})
}

// Me echoes the verified identity attached by the auth middleware.
func (h *Handler) Me(c echo.Context) error {
	identity := auth.IdentityFromContext(c.Request().Context())
	if identity == nil {
		return detail(c, http.StatusUnauthorized, "not authenticated")
	}

	resp := map[string]interface{}{
		"user_id": identity.UserID,
		"role":    identity.Role,
	}
	if doc := identity.DocumentID(); doc != "" {
		resp["documento_id"] = doc
	}
	return c.JSON(http.StatusOK, resp)
}
