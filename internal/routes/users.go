package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hawiyya/hawiyya-server/internal/account"
	"github.com/hawiyya/hawiyya-server/internal/identity"
	"github.com/hawiyya/hawiyya-server/internal/middleware"
	"github.com/hawiyya/hawiyya-server/internal/notification"
)

// RegisterUserRoutes wires the authenticated self-service endpoints.
func RegisterUserRoutes(r fiber.Router, h *handlers) {
	users := r.Group("/users")
	users.Get("/me", h.getProfile)
	users.Patch("/me", h.updateProfile)
	users.Delete("/me/avatar", h.deleteAvatar)
	users.Post("/me/language/switch", h.switchLanguage)
	users.Post("/me/password", h.changePassword)
	users.Post("/me/verify/:channel", h.verifyChannel)
	users.Post("/me/verify/:channel/resend", h.resendCode)
	users.Get("/me/codes/:purpose", h.checkCode)
	users.Post("/me/deletion/request", h.requestDeletion)
	users.Post("/me/deletion/confirm", h.confirmDeletion)
	users.Get("/me/notifications", h.seeNotifications)
	users.Delete("/me/notifications", h.clearNotifications)
}

func (h *handlers) getProfile(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(fiber.Map{"user": toClientAccount(a)})
}

type updateProfileRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	PhoneICC  string `json:"phone_icc"`
	PhoneNSN  string `json:"phone_nsn"`
	AvatarURL string `json:"avatar_url"`
}

func (h *handlers) updateProfile(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	update, err := h.ids.UpdateProfile(c.UserContext(), a.ID, identity.UpdateProfileInput{
		Name:      req.Name,
		Email:     req.Email,
		PhoneICC:  req.PhoneICC,
		PhoneNSN:  req.PhoneNSN,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return fail(err)
	}

	for _, change := range update.Changes {
		switch change {
		case "email":
			h.sendEmail(c, notification.Email{
				Kind:     notification.EmailKindChangeEmail,
				Language: update.Account.Language,
				Address:  update.Account.Email,
				Name:     update.Account.Name,
				Code:     update.Account.Code(account.PurposeEmail),
			})
		case "phone":
			h.sendSMS(c, notification.SMS{
				Language: update.Account.Language,
				Phone:    update.Account.Phone.Full(),
				Body:     update.Account.Code(account.PurposePhone),
			})
		}
	}

	return c.JSON(fiber.Map{
		"user":    toClientAccount(update.Account),
		"changes": update.Changes,
	})
}

func (h *handlers) deleteAvatar(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	updated, err := h.ids.DeleteAvatar(c.UserContext(), a.ID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"user": toClientAccount(updated)})
}

func (h *handlers) switchLanguage(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	updated, err := h.ids.SwitchLanguage(c.UserContext(), a.ID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"user": toClientAccount(updated)})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *handlers) changePassword(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.ids.ChangePassword(c.UserContext(), a.ID, req.OldPassword, req.NewPassword)
	if err != nil {
		return fail(err)
	}

	// Rotating the password invalidates the current token as well, so a
	// fresh one goes back with the response.
	token, err := h.creds.IssueToken(updated)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": toClientAccount(updated), "token": token})
}

func channelPurpose(channel string) account.Purpose {
	if channel == string(account.PurposePhone) {
		return account.PurposePhone
	}
	return account.PurposeEmail
}

type verifyChannelRequest struct {
	Code string `json:"code"`
}

func (h *handlers) verifyChannel(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req verifyChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.ids.VerifyEmailOrPhone(c.UserContext(), a.ID, channelPurpose(c.Params("channel")), req.Code)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"user": toClientAccount(updated)})
}

func (h *handlers) resendCode(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	purpose := channelPurpose(c.Params("channel"))
	updated, err := h.ids.ResendVerificationCode(c.UserContext(), a.ID, purpose)
	if err != nil {
		return fail(err)
	}

	if purpose == account.PurposeEmail {
		h.sendEmail(c, notification.Email{
			Kind:     notification.EmailKindVerificationCode,
			Language: updated.Language,
			Address:  updated.Email,
			Name:     updated.Name,
			Code:     updated.Code(account.PurposeEmail),
		})
	} else {
		h.sendSMS(c, notification.SMS{
			Language: updated.Language,
			Phone:    updated.Phone.Full(),
			Body:     updated.Code(account.PurposePhone),
		})
	}

	return c.JSON(fiber.Map{"status": "code_sent"})
}

func (h *handlers) checkCode(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	status, err := h.ids.CheckCode(c.UserContext(), a.ID, account.Purpose(c.Params("purpose")), c.Query("code"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(status)
}

func (h *handlers) requestDeletion(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	updated, err := h.ids.RequestAccountDeletion(c.UserContext(), a.ID)
	if err != nil {
		return fail(err)
	}

	h.sendEmail(c, notification.Email{
		Kind:     notification.EmailKindDeletionCode,
		Language: updated.Language,
		Address:  updated.Email,
		Name:     updated.Name,
		Code:     updated.Code(account.PurposeDeletion),
	})

	return c.JSON(fiber.Map{"status": "code_sent"})
}

type confirmDeletionRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

func (h *handlers) confirmDeletion(c *fiber.Ctx) error {
	var req confirmDeletionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.ids.ConfirmAccountDeletion(c.UserContext(), req.Token, req.Code)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"user": toClientAccount(updated), "deleted": true})
}

func (h *handlers) seeNotifications(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	list, err := h.ids.SeeNotifications(c.UserContext(), a.ID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"notifications": list})
}

func (h *handlers) clearNotifications(c *fiber.Ctx) error {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	if err := h.ids.ClearNotifications(c.UserContext(), a.ID); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"notifications": []account.Notification{}})
}
