package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AccountDirectory resolves the professional reference (matrícula) linked to
// a practitioner account. Implemented by the account repository; declared
// here so the policy layer stays decoupled from storage.
type AccountDirectory interface {
	ProfessionalRef(ctx context.Context, userID string) (string, error)
}

// AssignmentChecker reports whether a professional has ever been associated
// with a patient through an appointment or encounter row.
type AssignmentChecker interface {
	Exists(ctx context.Context, documentoID, matricula string) (bool, error)
}

// RequireRole returns route middleware that admits only identities whose
// role is in the given set: 401 without an identity, 403 otherwise.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFromContext(c.Request().Context())
			if identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if !allowed[identity.Role] {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
			}
			return next(c)
		}
	}
}

// RequireNotPatient guards clinical-mutation routes: any authenticated
// non-patient role passes, patients get 403.
func RequireNotPatient() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFromContext(c.Request().Context())
			if identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if identity.Role == RolePatient {
				return echo.NewHTTPError(http.StatusForbidden, "patients cannot modify clinical records")
			}
			return next(c)
		}
	}
}

// RequirePatientAccess enforces the ownership/assignment policy on routes
// carrying a :documento_id parameter. Admins bypass unconditionally. A
// practitioner must have a linked matrícula and at least one appointment or
// encounter row tying that matrícula to the patient. Every data-access
// failure during the check denies with 500: fail closed, never fail open.
func RequirePatientAccess(accounts AccountDirectory, assignments AssignmentChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFromContext(c.Request().Context())
			if identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}

			if identity.Role == RoleAdmin {
				return next(c)
			}
			if identity.Role != RolePractitioner {
				return echo.NewHTTPError(http.StatusForbidden, "practitioner or admin role required")
			}

			documentoID := c.Param("documento_id")
			if documentoID == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing documento_id")
			}

			ctx := c.Request().Context()
			matricula, err := accounts.ProfessionalRef(ctx, identity.UserID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "access check failed")
			}
			if matricula == "" {
				return echo.NewHTTPError(http.StatusForbidden, "account has no linked professional")
			}

			assigned, err := assignments.Exists(ctx, documentoID, matricula)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "access check failed")
			}
			if !assigned {
				return echo.NewHTTPError(http.StatusForbidden, "practitioner is not assigned to this patient")
			}

			return next(c)
		}
	}
}
