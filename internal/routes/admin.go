package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hawiyya/hawiyya-server/internal/account"
	"github.com/hawiyya/hawiyya-server/internal/middleware"
)

// RegisterAdminRoutes wires the moderation endpoints. The group is
// already gated on the admin role.
func RegisterAdminRoutes(r fiber.Router, h *handlers) {
	r.Patch("/users/role", h.changeUserRole)
	r.Patch("/users/verify", h.verifyUser)
	r.Get("/users/most-active", h.mostActiveUsers)
	r.Post("/notifications/server-errors", h.notifyServerErrors)
}

type changeRoleRequest struct {
	EmailOrPhone string       `json:"email_or_phone"`
	Role         account.Role `json:"role"`
}

func (h *handlers) changeUserRole(c *fiber.Ctx) error {
	var req changeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.ids.ChangeUserRole(c.UserContext(), req.EmailOrPhone, req.Role)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"user": toClientAccount(updated)})
}

type verifyUserRequest struct {
	EmailOrPhone string `json:"email_or_phone"`
}

func (h *handlers) verifyUser(c *fiber.Ctx) error {
	var req verifyUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.ids.VerifyUser(c.UserContext(), req.EmailOrPhone)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"user": toClientAccount(updated)})
}

func (h *handlers) mostActiveUsers(c *fiber.Ctx) error {
	admin, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	page, err := h.ids.MostActiveUsers(c.UserContext(), admin.ID, c.QueryInt("page", 1), c.QueryInt("limit", 10))
	if err != nil {
		return fail(err)
	}

	users := make([]clientAccount, len(page.Accounts))
	for i, a := range page.Accounts {
		users[i] = toClientAccount(a)
	}
	return c.JSON(fiber.Map{
		"users":        users,
		"current_page": page.CurrentPage,
		"total_pages":  page.TotalPages,
	})
}

type notifyServerErrorsRequest struct {
	Count int `json:"count"`
}

func (h *handlers) notifyServerErrors(c *fiber.Ctx) error {
	var req notifyServerErrorsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	results, err := h.fanout.NotifyAdminsOfServerErrors(c.UserContext(), req.Count)
	if err != nil {
		return err
	}

	delivered, skipped, failed := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Skipped:
			skipped++
		default:
			delivered++
		}
	}
	return c.JSON(fiber.Map{"delivered": delivered, "skipped": skipped, "failed": failed})
}
