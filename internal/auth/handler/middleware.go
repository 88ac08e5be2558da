package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fgimenez/mythril-ci/internal/auth/domain"
	autherror "github.com/fgimenez/mythril-ci/internal/errors"
	"github.com/fgimenez/mythril-ci/internal/ratelimit"
	"github.com/gofiber/fiber/v2"
)

//go:generate mockgen -destination=../../mocks/mock_rate_limiter.go -package=mocks github.com/fgimenez/mythril-ci/internal/auth/handler RateLimiter

// RateLimiter is what the gate needs from internal/ratelimit.
type RateLimiter interface {
	Check(ctx context.Context, user *domain.User, now time.Time) (ratelimit.Decision, error)
}

const (
	localsUserKey          = "currentUser"
	localsAccessTokenIDKey = "accessTokenID"
)

// CurrentUser returns the user resolved by RequireAuth, or nil on routes
// that never passed through it.
func CurrentUser(c *fiber.Ctx) *domain.User {
	user, _ := c.Locals(localsUserKey).(*domain.User)
	return user
}

func currentAccessTokenID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsAccessTokenIDKey).(string)
	return id
}

// RequireAuth is the front of the gate: a missing or invalid bearer token
// fails here, before any handler or rate-limit counter is touched.
func (h *AuthHandler) RequireAuth(c *fiber.Ctx) error {
	token, ok := bearerToken(c)
	if !ok {
		return autherror.ErrMissingAccessToken
	}

	claims, err := h.tokens.VerifyAccessToken(token)
	if err != nil {
		return autherror.ErrInvalidAccessToken
	}

	user, err := h.userService.Lookup(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	if user == nil || !user.Active {
		return autherror.ErrInvalidAccessToken
	}

	c.Locals(localsUserKey, user)
	c.Locals(localsAccessTokenIDKey, claims.ID)

	return c.Next()
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	token, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	return token, found && token != ""
}

// RequireAdmin must run after RequireAuth.
func (h *AuthHandler) RequireAdmin(c *fiber.Ctx) error {
	user := CurrentUser(c)
	if user == nil || user.Tier != domain.TierAdmin {
		return autherror.ErrAdminRequired
	}
	return c.Next()
}

// RateLimit consults the limiter for the already-authenticated user. A
// store failure is a failure of this request, not an open gate.
func (h *AuthHandler) RateLimit(c *fiber.Ctx) error {
	user := CurrentUser(c)
	if user == nil {
		return autherror.ErrMissingAccessToken
	}

	decision, err := h.limiter.Check(c.UserContext(), user, time.Now())
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return autherror.RateLimited(decision.Window)
	}

	return c.Next()
}

// ErrorHandler maps the error taxonomy onto HTTP statuses. Every error body
// mirrors its status code; anything unrecognized is a 500 for this request
// only.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *autherror.Error
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(fiber.Map{
			"status": appErr.Status,
			"error":  appErr.Message,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"status": fiberErr.Code,
			"error":  fiberErr.Message,
		})
	}

	slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status": fiber.StatusInternalServerError,
		"error":  "internal server error",
	})
}
