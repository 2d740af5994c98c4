package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hawiyya/hawiyya-server/internal/account"
	"github.com/hawiyya/hawiyya-server/internal/credentials"
)

const accountLocal = "authenticated_account"

// RequireAuth validates the bearer token, checks that its credential
// fingerprint still matches the account (a password change invalidates
// older tokens), and rejects soft-deleted accounts. The resolved account
// lands in Locals for handlers, and the per-account request counter is
// bumped best-effort.
func RequireAuth(creds *credentials.Service, repo account.Repository, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		raw := strings.TrimSpace(authz[len("Bearer "):])

		claims, err := creds.VerifyToken(raw)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		a, err := repo.FindByID(c.UserContext(), claims.Subject)
		if err != nil || a.Deleted {
			return fiber.NewError(http.StatusUnauthorized, "account not found")
		}
		if !creds.Matches(claims, a) {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		if err := repo.IncrementRequests(c.UserContext(), a.ID); err != nil && logger != nil {
			logger.Warn("request counter update failed", "account_id", a.ID, "error", err)
		}

		c.Locals(accountLocal, a)
		return c.Next()
	}
}

// RequireAction rejects callers whose role does not permit the action on
// a non-owned resource.
func RequireAction(action account.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := AccountFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "authentication required")
		}
		if !account.Can(a.Role, action, false) {
			return fiber.NewError(http.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// AccountFrom extracts the authenticated account stored by RequireAuth.
func AccountFrom(c *fiber.Ctx) (account.Account, bool) {
	a, ok := c.Locals(accountLocal).(account.Account)
	return a, ok
}
