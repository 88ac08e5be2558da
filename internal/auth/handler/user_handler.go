package handler

import (
	"strconv"

	"github.com/fgimenez/mythril-ci/internal/auth/domain"
	"github.com/fgimenez/mythril-ci/internal/auth/dto"
	autherror "github.com/fgimenez/mythril-ci/internal/errors"
	"github.com/gofiber/fiber/v2"
)

// Register creates an inactive user account. Anonymous callers may
// register themselves; an authenticated caller must be an admin to register
// someone else.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	if token, ok := bearerToken(c); ok {
		claims, err := h.tokens.VerifyAccessToken(token)
		if err != nil {
			return autherror.ErrInvalidAccessToken
		}
		// Resolve the caller from the store rather than trusting the role
		// claim, so a demoted or deactivated admin token carries no weight.
		caller, err := h.userService.Lookup(c.UserContext(), claims.UserID)
		if err != nil {
			return err
		}
		if caller == nil || !caller.Active {
			return autherror.ErrInvalidAccessToken
		}
		if caller.Tier != domain.TierAdmin {
			return autherror.Auth("only admins may register other users")
		}
	}

	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return autherror.Validation("invalid input")
	}

	user, err := h.userService.Register(c.UserContext(), input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user": dto.NewUserOutput(user),
	})
}

func (h *AuthHandler) Activate(c *fiber.Ctx) error {
	var input dto.ActivateInput
	if err := c.BodyParser(&input); err != nil {
		return autherror.Validation("invalid input")
	}

	if err := h.userService.Activate(c.UserContext(), c.Params("id"), input); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": fiber.StatusOK})
}

func (h *AuthHandler) UpdateUser(c *fiber.Ctx) error {
	var input dto.UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return autherror.Validation("invalid input")
	}

	user, err := h.userService.UpdateUser(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user": dto.NewUserOutput(user),
	})
}

func (h *AuthHandler) ListUsers(c *fiber.Ctx) error {
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return autherror.Validation("invalid offset")
		}
		offset = parsed
	}

	out, err := h.userService.ListUsers(c.UserContext(), c.Query("email"), offset)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(out)
}
