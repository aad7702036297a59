package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/batch-trace/internal/observability"
)

type SessionHandler struct {
	operators OperatorService
}

type loginRequest struct {
	Operator string `json:"operator"`
}

type sessionResponse struct {
	Operator string `json:"operator,omitempty"`
	SignedIn bool   `json:"signedIn"`
	Warning  string `json:"warning,omitempty"`
}

type operatorsResponse struct {
	Operators []string `json:"operators"`
	Current   string   `json:"current,omitempty"`
}

func (h *SessionHandler) ListOperators(c *fiber.Ctx) error {
	current, _ := h.operators.Current()
	return c.Status(fiber.StatusOK).JSON(operatorsResponse{
		Operators: h.operators.Operators(),
		Current:   current,
	})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	current, ok := h.operators.Current()
	return c.Status(fiber.StatusOK).JSON(sessionResponse{Operator: current, SignedIn: ok})
}

func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ctx := observability.WithOperator(c.UserContext(), req.Operator)
	operator, err := h.operators.Login(ctx, req.Operator)
	warning, err := splitWarning(err)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(sessionResponse{Operator: operator, SignedIn: true, Warning: warning})
}

func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	warning, err := splitWarning(h.operators.Logout(c.UserContext()))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(sessionResponse{SignedIn: false, Warning: warning})
}
