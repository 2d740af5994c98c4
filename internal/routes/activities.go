package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hawiyya/hawiyya-server/internal/middleware"
)

// RegisterActivityRoutes wires the login-activity listing endpoint.
func RegisterActivityRoutes(r fiber.Router, h *handlers) {
	r.Get("/users/me/activities", h.listActivities)
}

func (h *handlers) listActivities(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	page, err := h.activity.List(c.UserContext(), a.ID, c.QueryInt("page", 1), c.QueryInt("limit", 10))
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{
		"activities":   page.Records,
		"current_page": page.CurrentPage,
		"total_pages":  page.TotalPages,
	})
}
