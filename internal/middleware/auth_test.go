package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hawiyya/hawiyya-server/internal/account"
	"github.com/hawiyya/hawiyya-server/internal/credentials"
	"github.com/hawiyya/hawiyya-server/internal/logging"
)

func newAuthApp(t *testing.T) (*fiber.App, *credentials.Service, account.Repository) {
	t.Helper()
	repo := account.NewMemoryRepository()
	creds := credentials.New("secret", "salt", time.Hour)

	app := fiber.New()
	app.Get("/me", RequireAuth(creds, repo, logging.Discard()), func(c *fiber.Ctx) error {
		a, _ := AccountFrom(c)
		return c.JSON(fiber.Map{"id": a.ID})
	})
	app.Get("/admin", RequireAuth(creds, repo, logging.Discard()), RequireAction(account.ActionChangeRole), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app, creds, repo
}

func authAccount(t *testing.T, repo account.Repository, role account.Role) account.Account {
	t.Helper()
	hash, err := credentials.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a := account.Account{
		ID:           "a1",
		Email:        "a@example.com",
		Phone:        account.Phone{ICC: "+20", NSN: "100"},
		PasswordHash: hash,
		Role:         role,
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("create: %v", err)
	}
	return a
}

func get(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestRequireAuth(t *testing.T) {
	app, creds, repo := newAuthApp(t)
	a := authAccount(t, repo, account.RoleUser)

	token, err := creds.IssueToken(a)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if status := get(t, app, "/me", token); status != fiber.StatusOK {
		t.Fatalf("valid token: status %d", status)
	}
	if status := get(t, app, "/me", ""); status != fiber.StatusUnauthorized {
		t.Fatalf("missing token: status %d", status)
	}
	if status := get(t, app, "/me", "garbage"); status != fiber.StatusUnauthorized {
		t.Fatalf("garbage token: status %d", status)
	}
}

func TestRequireAuthCountsRequests(t *testing.T) {
	app, creds, repo := newAuthApp(t)
	a := authAccount(t, repo, account.RoleUser)

	token, err := creds.IssueToken(a)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for i := 0; i < 3; i++ {
		if status := get(t, app, "/me", token); status != fiber.StatusOK {
			t.Fatalf("status %d", status)
		}
	}

	reloaded, err := repo.FindByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.NoOfRequests != 3 {
		t.Fatalf("requests = %d, want 3", reloaded.NoOfRequests)
	}
}

func TestRequireAuthRejectsDeletedAccount(t *testing.T) {
	app, creds, repo := newAuthApp(t)
	a := authAccount(t, repo, account.RoleUser)

	token, err := creds.IssueToken(a)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := repo.Update(context.Background(), a.MarkedDeleted()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if status := get(t, app, "/me", token); status != fiber.StatusUnauthorized {
		t.Fatalf("deleted account: status %d, want 401", status)
	}
}

func TestRequireAuthRejectsRotatedCredentials(t *testing.T) {
	app, creds, repo := newAuthApp(t)
	a := authAccount(t, repo, account.RoleUser)

	token, err := creds.IssueToken(a)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	newHash, err := credentials.HashPassword("different")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := repo.Update(context.Background(), a.WithPassword(newHash)); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	if status := get(t, app, "/me", token); status != fiber.StatusUnauthorized {
		t.Fatalf("stale token: status %d, want 401", status)
	}
}

func TestRequireAction(t *testing.T) {
	app, creds, repo := newAuthApp(t)
	user := authAccount(t, repo, account.RoleUser)

	userToken, err := creds.IssueToken(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if status := get(t, app, "/admin", userToken); status != fiber.StatusForbidden {
		t.Fatalf("user on admin route: status %d, want 403", status)
	}

	admin := account.Account{
		ID:    "a2",
		Email: "admin@example.com",
		Phone: account.Phone{ICC: "+20", NSN: "200"},
		Role:  account.RoleAdmin,
	}
	if err := repo.Create(context.Background(), admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	adminToken, err := creds.IssueToken(admin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if status := get(t, app, "/admin", adminToken); status != fiber.StatusOK {
		t.Fatalf("admin on admin route: status %d", status)
	}
}
