package handler

import (
	"github.com/fgimenez/mythril-ci/internal/auth/dto"
	"github.com/fgimenez/mythril-ci/internal/auth/service"
	autherror "github.com/fgimenez/mythril-ci/internal/errors"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	userService *service.UserService
	tokens      service.TokenGenerator
	limiter     RateLimiter
}

func NewAuthHandler(userService *service.UserService, tokens service.TokenGenerator, limiter RateLimiter) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		limiter:     limiter,
	}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return autherror.Validation("invalid input")
	}

	tokenPair, err := h.userService.Login(c.UserContext(), input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(tokenPair)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return autherror.Validation("invalid input")
	}

	tokens, err := h.userService.Refresh(c.UserContext(), input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

// Logout runs behind RequireAuth, so the bearer token is already verified;
// all that is left is dropping the session it belongs to.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.userService.Logout(c.UserContext(), currentAccessTokenID(c)); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": fiber.StatusOK})
}
