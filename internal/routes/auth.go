package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hawiyya/hawiyya-server/internal/account"
	"github.com/hawiyya/hawiyya-server/internal/identity"
	"github.com/hawiyya/hawiyya-server/internal/notification"
)

// RegisterAuthRoutes wires the public authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *handlers, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register/email", h.registerWithEmail)
	group.Post("/register/google", h.registerWithGoogle)
	if rateLimiter != nil {
		group.Post("/login/email", rateLimiter, h.loginWithEmail)
	} else {
		group.Post("/login/email", h.loginWithEmail)
	}
	group.Post("/login/google", h.loginWithGoogle)
	group.Post("/password/forgot", h.forgotPassword)
	group.Post("/password/reset", h.resetPassword)
	group.Get("/email/verify/fast", h.verifyEmailByLink)
}

type registerEmailRequest struct {
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Password    string           `json:"password"`
	PhoneICC    string           `json:"phone_icc"`
	PhoneNSN    string           `json:"phone_nsn"`
	DeviceToken string           `json:"device_token"`
	Language    account.Language `json:"lang"`
}

func (h *handlers) registerWithEmail(c *fiber.Ctx) error {
	var req registerEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.PhoneICC == "" || req.PhoneNSN == "" {
		return fiber.NewError(http.StatusBadRequest, "missing required fields")
	}

	result, err := h.ids.RegisterWithEmail(c.UserContext(), identity.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		PhoneICC:    req.PhoneICC,
		PhoneNSN:    req.PhoneNSN,
		DeviceToken: req.DeviceToken,
		Language:    req.Language,
	})
	if err != nil {
		return fail(err)
	}

	if result.IsAlreadyRegistered {
		h.recordReturningLogin(c, result.Account)
	} else {
		h.sendWelcomeFlow(c, result.Account, result.Token)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user":                  toClientAccount(result.Account),
		"token":                 result.Token,
		"is_already_registered": result.IsAlreadyRegistered,
	})
}

type registerGoogleRequest struct {
	GoogleToken string           `json:"google_token"`
	PhoneICC    string           `json:"phone_icc"`
	PhoneNSN    string           `json:"phone_nsn"`
	DeviceToken string           `json:"device_token"`
	Language    account.Language `json:"lang"`
}

func (h *handlers) registerWithGoogle(c *fiber.Ctx) error {
	var req registerGoogleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.ids.RegisterWithGoogle(c.UserContext(), identity.GoogleRegisterInput{
		GoogleToken: req.GoogleToken,
		PhoneICC:    req.PhoneICC,
		PhoneNSN:    req.PhoneNSN,
		DeviceToken: req.DeviceToken,
		Language:    req.Language,
	})
	if err != nil {
		return fail(err)
	}

	if result.IsAlreadyRegistered {
		h.recordReturningLogin(c, result.Account)
	} else {
		h.sendWelcomeFlow(c, result.Account, result.Token)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user":                  toClientAccount(result.Account),
		"token":                 result.Token,
		"is_already_registered": result.IsAlreadyRegistered,
	})
}

type loginEmailRequest struct {
	EmailOrPhone string           `json:"email_or_phone"`
	Password     string           `json:"password"`
	DeviceToken  string           `json:"device_token"`
	Language     account.Language `json:"lang"`
}

func (h *handlers) loginWithEmail(c *fiber.Ctx) error {
	var req loginEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.ids.LoginWithEmail(c.UserContext(), req.EmailOrPhone, req.Password, req.DeviceToken, req.Language)
	if err != nil {
		return fail(err)
	}

	h.recordReturningLogin(c, result.Account)

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user":       toClientAccount(result.Account),
		"token":      result.Token,
		"is_deleted": result.WasDeleted,
	})
}

type loginGoogleRequest struct {
	GoogleToken string           `json:"google_token"`
	DeviceToken string           `json:"device_token"`
	Language    account.Language `json:"lang"`
}

func (h *handlers) loginWithGoogle(c *fiber.Ctx) error {
	var req loginGoogleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.ids.LoginWithGoogle(c.UserContext(), req.GoogleToken, req.DeviceToken, req.Language)
	if err != nil {
		return fail(err)
	}

	h.recordReturningLogin(c, result.Account)

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user":       toClientAccount(result.Account),
		"token":      result.Token,
		"is_deleted": result.WasDeleted,
	})
}

type forgotPasswordRequest struct {
	EmailOrPhone string `json:"email_or_phone"`
}

func (h *handlers) forgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	a, err := h.ids.SendForgotPasswordCode(c.UserContext(), req.EmailOrPhone)
	if err != nil {
		return fail(err)
	}

	h.sendEmail(c, notification.Email{
		Kind:     notification.EmailKindForgotPassword,
		Language: a.Language,
		Address:  a.Email,
		Name:     a.Name,
		Code:     a.Code(account.PurposePassword),
	})

	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "code_sent"})
}

type resetPasswordRequest struct {
	EmailOrPhone string `json:"email_or_phone"`
	Code         string `json:"code"`
	NewPassword  string `json:"new_password"`
}

func (h *handlers) resetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	a, err := h.ids.ResetPasswordWithCode(c.UserContext(), req.EmailOrPhone, req.Code, req.NewPassword)
	if err != nil {
		return fail(err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"user": toClientAccount(a)})
}

func (h *handlers) verifyEmailByLink(c *fiber.Ctx) error {
	token := c.Query("token")
	code := c.Query("code")

	a, err := h.ids.VerifyEmailByLink(c.UserContext(), token, code)
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": toClientAccount(a)})
}

// sendWelcomeFlow runs the first-registration side effects: a welcome
// email plus the email verification code. Mutually exclusive with
// recordReturningLogin.
func (h *handlers) sendWelcomeFlow(c *fiber.Ctx, a account.Account, token string) {
	h.sendEmail(c, notification.Email{
		Kind:     notification.EmailKindWelcome,
		Language: a.Language,
		Address:  a.Email,
		Name:     a.Name,
	})

	if code := a.Code(account.PurposeEmail); code != "" {
		link := c.BaseURL() + "/api/v1/auth/email/verify/fast?code=" + code + "&token=" + token
		h.sendEmail(c, notification.Email{
			Kind:     notification.EmailKindVerificationCode,
			Language: a.Language,
			Address:  a.Email,
			Name:     a.Name,
			Code:     code,
			Link:     link,
		})
	}

	if code := a.Code(account.PurposePhone); code != "" && a.Phone.Full() != "" {
		h.sendSMS(c, notification.SMS{
			Language: a.Language,
			Phone:    a.Phone.Full(),
			Body:     code,
		})
	}
}

// recordReturningLogin runs the returning-user side effects after the
// account mutation committed: a login-activity record, a login-activity
// email, and an inbox/push notification. All best effort.
func (h *handlers) recordReturningLogin(c *fiber.Ctx, a account.Account) {
	ctx := c.UserContext()

	if _, err := h.activity.Record(ctx, a.ID, c.IP(), string(c.Request().Header.UserAgent())); err != nil {
		h.logger.Warn("login activity record failed", "account_id", a.ID, "error", err)
	}

	h.sendEmail(c, notification.Email{
		Kind:     notification.EmailKindLoginActivity,
		Language: a.Language,
		Address:  a.Email,
		Name:     a.Name,
	})

	h.fanout.Send(ctx, []string{a.ID}, notification.NewLoginActivity(a.LastLogin))
}

func (h *handlers) sendEmail(c *fiber.Ctx, email notification.Email) {
	if err := h.emails.Send(c.UserContext(), email); err != nil {
		h.logger.Warn("email dispatch failed", "kind", email.Kind, "address", email.Address, "error", err)
	}
}

func (h *handlers) sendSMS(c *fiber.Ctx, sms notification.SMS) {
	if err := h.sms.Send(c.UserContext(), sms); err != nil {
		h.logger.Warn("sms dispatch failed", "phone", sms.Phone, "error", err)
	}
}
