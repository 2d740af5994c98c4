package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hawiyya/hawiyya-server/internal/account"
	"github.com/hawiyya/hawiyya-server/internal/activity"
	"github.com/hawiyya/hawiyya-server/internal/config"
	"github.com/hawiyya/hawiyya-server/internal/credentials"
	"github.com/hawiyya/hawiyya-server/internal/googleauth"
	"github.com/hawiyya/hawiyya-server/internal/identity"
	"github.com/hawiyya/hawiyya-server/internal/middleware"
	"github.com/hawiyya/hawiyya-server/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Google overrides the production token decoder; dev mode falls
	// back to a static double when unset.
	Google googleauth.Provider
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var accountRepo account.Repository
	if d.DB != nil {
		pg := account.NewPostgresRepository(d.DB)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("ensure accounts schema: %w", err)
		}
		accountRepo = pg
	} else {
		accountRepo = account.NewMemoryRepository()
	}

	var activityRepo activity.Repository
	if d.DB != nil {
		pg := activity.NewPostgresRepository(d.DB)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("ensure activities schema: %w", err)
		}
		activityRepo = pg
	} else {
		activityRepo = activity.NewMemoryRepository()
	}

	google := d.Google
	if google == nil {
		if d.Cfg.IsDev() {
			google = &googleauth.StaticProvider{}
		} else {
			google = googleauth.NewHTTPProvider()
		}
	}

	creds := credentials.New(d.Cfg.JWTSecret, d.Cfg.PasswordSalt, d.Cfg.TokenTTL)
	policies := identity.CodePolicies{}
	for _, p := range account.Purposes {
		policies[p] = identity.CodePolicy{Length: d.Cfg.CodeLength, Window: d.Cfg.CodeWindow}
	}
	identitySvc := identity.NewService(accountRepo, creds, google, policies)
	activitySvc := activity.NewService(activityRepo)

	emails := notification.NewLoggerEmailSender(d.Logger)
	sms := notification.NewLoggerSMSSender(d.Logger)
	push := notification.NewLoggerPushSender(d.Logger)
	fanout := notification.NewFanout(accountRepo, push, d.Logger, d.Cfg.InboxCapacity)

	h := &handlers{
		ids:      identitySvc,
		creds:    creds,
		activity: activitySvc,
		emails:   emails,
		sms:      sms,
		fanout:   fanout,
		logger:   d.Logger,
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginPerMin)
	RegisterAuthRoutes(api, h, rateLimiter)

	authmw := middleware.RequireAuth(creds, accountRepo, d.Logger)
	protected := api.Group("", authmw)
	RegisterUserRoutes(protected, h)
	RegisterActivityRoutes(protected, h)

	admin := protected.Group("/admin", middleware.RequireAction(account.ActionChangeRole))
	RegisterAdminRoutes(admin, h)

	return nil
}

// handlers bundles the services the HTTP layer calls into.
type handlers struct {
	ids      *identity.Service
	creds    *credentials.Service
	activity *activity.Service
	emails   notification.EmailSender
	sms      notification.SMSSender
	fanout   *notification.Fanout
	logger   *slog.Logger
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, activity.ErrNoActivities),
		errors.Is(err, identity.ErrNoAccounts):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrIncorrectCredentials),
		errors.Is(err, identity.ErrNoLocalPassword),
		errors.Is(err, identity.ErrIncorrectOldPassword),
		errors.Is(err, credentials.ErrInvalidToken),
		errors.Is(err, googleauth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrIdentityTaken),
		errors.Is(err, identity.ErrEmailTaken),
		errors.Is(err, identity.ErrPhoneTaken),
		errors.Is(err, identity.ErrAlreadyVerified),
		errors.Is(err, identity.ErrSamePassword),
		errors.Is(err, identity.ErrNothingToUpdate),
		errors.Is(err, identity.ErrNotificationsAlreadySeen),
		errors.Is(err, identity.ErrNoNotifications),
		errors.Is(err, identity.ErrNoAvatar),
		errors.Is(err, identity.ErrAdminRoleImmutable):
		return http.StatusConflict
	case errors.Is(err, identity.ErrInvalidCode),
		errors.Is(err, identity.ErrExpiredCode),
		errors.Is(err, identity.ErrInvalidRole):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return err
	}
	return fiber.NewError(status, err.Error())
}

// clientAccount is the account view exposed to clients. Credential and
// verification-code fields never leave the server.
type clientAccount struct {
	ID            string                 `json:"id"`
	AvatarURL     string                 `json:"avatar_url"`
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	Phone         string                 `json:"phone"`
	Role          account.Role           `json:"role"`
	EmailVerified bool                   `json:"email_verified"`
	PhoneVerified bool                   `json:"phone_verified"`
	Language      account.Language       `json:"language"`
	Notifications []account.Notification `json:"notifications"`
	LastLogin     time.Time              `json:"last_login"`
}

func toClientAccount(a account.Account) clientAccount {
	return clientAccount{
		ID:            a.ID,
		AvatarURL:     a.AvatarURL,
		Name:          a.Name,
		Email:         a.Email,
		Phone:         a.Phone.Full(),
		Role:          a.Role,
		EmailVerified: a.EmailVerified,
		PhoneVerified: a.PhoneVerified,
		Language:      a.Language,
		Notifications: a.Notifications,
		LastLogin:     a.LastLogin,
	}
}
