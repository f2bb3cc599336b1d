package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/awopa/maternal-notify/internal/transport"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type PendingLister interface {
	List(ctx context.Context, params repository.PendingListParams) ([]domain.PendingReminder, int64, error)
}

type PendingHandler struct {
	pending PendingLister
}

func NewPendingHandler(pending PendingLister) (*PendingHandler, error) {
	if pending == nil {
		return nil, fmt.Errorf("pending queue is required")
	}
	return &PendingHandler{pending: pending}, nil
}

func RegisterPendingRoutes(router fiber.Router, pending PendingLister) error {
	h, err := NewPendingHandler(pending)
	if err != nil {
		return err
	}

	router.Get("/notifications/pending", h.ListPending)
	return nil
}

type pendingResponse struct {
	ID          string    `json:"id"`
	Recipient   string    `json:"recipient"`
	Message     string    `json:"message"`
	Kind        string    `json:"kind"`
	ReferenceID *string   `json:"referenceId,omitempty"`
	RetryCount  int       `json:"retryCount"`
	Exhausted   bool      `json:"exhausted"`
	LastError   *string   `json:"lastError,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type pendingListResponse struct {
	Items    []pendingResponse `json:"items"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Total    int64             `json:"total"`
}

func (h *PendingHandler) ListPending(c *fiber.Ctx) error {
	params, err := parsePendingListParams(c)
	if err != nil {
		return err
	}

	entries, total, err := h.pending.List(c.UserContext(), params)
	if err != nil {
		return err
	}

	items := make([]pendingResponse, 0, len(entries))
	for i := range entries {
		p := entries[i]
		items = append(items, pendingResponse{
			ID:          p.ID,
			Recipient:   p.Recipient,
			Message:     p.Message,
			Kind:        p.Kind.String(),
			ReferenceID: p.ReferenceID,
			RetryCount:  p.RetryCount,
			Exhausted:   p.Exhausted(),
			LastError:   p.LastError,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		})
	}

	return transport.Respond(c, fiber.StatusOK, "pending reminders retrieved", pendingListResponse{
		Items:    items,
		Page:     params.Page,
		PageSize: params.PageSize,
		Total:    total,
	})
}

func parsePendingListParams(c *fiber.Ctx) (repository.PendingListParams, error) {
	params := repository.PendingListParams{Page: defaultPage, PageSize: defaultPageSize}

	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		kind, err := domain.ParseReminderKindFromString(raw)
		if err != nil {
			return params, err
		}
		params.Kind = &kind
	}

	if raw := strings.TrimSpace(c.Query("exhausted")); raw != "" {
		exhausted, err := strconv.ParseBool(raw)
		if err != nil {
			return params, fmt.Errorf("%w: exhausted must be true or false", domain.ErrValidation)
		}
		params.Exhausted = &exhausted
	}

	page, err := positiveQueryInt(c, "page", defaultPage)
	if err != nil {
		return params, err
	}
	pageSize, err := positiveQueryInt(c, "pageSize", defaultPageSize)
	if err != nil {
		return params, err
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	params.Page = page
	params.PageSize = pageSize

	return params, nil
}

func positiveQueryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrValidation, key)
	}
	return v, nil
}
