package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/ratelimit"
	"github.com/awopa/maternal-notify/internal/transport"
	"github.com/gofiber/fiber/v2"
)

type PinManager interface {
	Create(ctx context.Context, userID, pin, phone string) error
	Verify(ctx context.Context, userID, pin string) error
	Update(ctx context.Context, userID, oldPin, newPin, phone string) error
	Delete(ctx context.Context, userID string) error
	HasPin(ctx context.Context, userID string) (bool, error)
}

type PinHandler struct {
	pins PinManager
}

func NewPinHandler(pins PinManager) (*PinHandler, error) {
	if pins == nil {
		return nil, fmt.Errorf("pin service is required")
	}
	return &PinHandler{pins: pins}, nil
}

// RegisterPinRoutes mounts /pin. A non-nil limiter throttles every PIN route per client IP.
func RegisterPinRoutes(router fiber.Router, pins PinManager, limiter ratelimit.RateLimiter) error {
	h, err := NewPinHandler(pins)
	if err != nil {
		return err
	}

	group := router.Group("/pin")
	if limiter != nil {
		group.Use(ThrottleByIP(limiter))
	}
	group.Post("/", h.CreatePin)
	group.Post("/verify", h.VerifyPin)
	group.Patch("/", h.UpdatePin)
	group.Delete("/:userId", h.DeletePin)
	group.Get("/:userId/has-pin", h.HasPin)
	return nil
}

// ThrottleByIP rejects requests with 429 once the client IP runs out of tokens.
func ThrottleByIP(limiter ratelimit.RateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, err := limiter.Allow(c.UserContext(), "ip:"+c.IP())
		if err != nil {
			return err
		}
		if !allowed {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		}
		return c.Next()
	}
}

type createPinRequest struct {
	UserID string `json:"userId" validate:"required"`
	Pin    string `json:"pin" validate:"required"`
	Phone  string `json:"phone" validate:"required"`
}

type verifyPinRequest struct {
	UserID string `json:"userId" validate:"required"`
	Pin    string `json:"pin" validate:"required"`
}

type updatePinRequest struct {
	UserID string `json:"userId" validate:"required"`
	OldPin string `json:"oldPin" validate:"required"`
	NewPin string `json:"newPin" validate:"required"`
	Phone  string `json:"phone"`
}

func (h *PinHandler) CreatePin(c *fiber.Ctx) error {
	var req createPinRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	if err := h.pins.Create(c.UserContext(), req.UserID, req.Pin, req.Phone); err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusCreated, "pin created", nil)
}

func (h *PinHandler) VerifyPin(c *fiber.Ctx) error {
	var req verifyPinRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	if err := h.pins.Verify(c.UserContext(), req.UserID, req.Pin); err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusOK, "pin verified", fiber.Map{"verified": true})
}

func (h *PinHandler) UpdatePin(c *fiber.Ctx) error {
	var req updatePinRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	if err := h.pins.Update(c.UserContext(), req.UserID, req.OldPin, req.NewPin, req.Phone); err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusOK, "pin updated", nil)
}

func (h *PinHandler) DeletePin(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}

	if err := h.pins.Delete(c.UserContext(), userID); err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusOK, "pin deleted", nil)
}

func (h *PinHandler) HasPin(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}

	has, err := h.pins.HasPin(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusOK, "pin status retrieved", fiber.Map{"hasPin": has})
}

func userIDParam(c *fiber.Ctx) (string, error) {
	userID := strings.TrimSpace(c.Params("userId"))
	if userID == "" {
		return "", fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}
	return userID, nil
}
