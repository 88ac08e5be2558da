package analysis

import (
	autherror "github.com/fgimenez/mythril-ci/internal/errors"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type submitInput struct {
	Type      string   `json:"type"`
	Contract  string   `json:"contract"`
	Contracts []string `json:"contracts"`
}

func (h *Handler) Submit(c *fiber.Ctx) error {
	var input submitInput
	if err := c.BodyParser(&input); err != nil {
		return autherror.Validation("invalid input")
	}

	contracts := input.Contracts
	if input.Contract != "" {
		contracts = append([]string{input.Contract}, contracts...)
	}

	job, err := h.svc.Submit(c.UserContext(), input.Type, contracts)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(job)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	job, err := h.svc.Get(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(job)
}

func (h *Handler) Issues(c *fiber.Ctx) error {
	issues, err := h.svc.Issues(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(issues)
}
