package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/transport"
	"github.com/gofiber/fiber/v2"
)

type VisitScheduler interface {
	Schedule(ctx context.Context, patientID string, dates []time.Time) ([]domain.Visit, error)
	ListByPatient(ctx context.Context, patientID string) ([]domain.Visit, error)
}

type VisitHandler struct {
	visits VisitScheduler
}

func NewVisitHandler(visits VisitScheduler) (*VisitHandler, error) {
	if visits == nil {
		return nil, fmt.Errorf("visit service is required")
	}
	return &VisitHandler{visits: visits}, nil
}

func RegisterVisitRoutes(router fiber.Router, visits VisitScheduler) error {
	h, err := NewVisitHandler(visits)
	if err != nil {
		return err
	}

	router.Post("/visits", h.ScheduleVisits)
	router.Get("/visits/:patientId", h.ListVisits)
	return nil
}

type scheduleVisitsRequest struct {
	PatientID  string      `json:"patientId" validate:"required"`
	VisitDates []time.Time `json:"visitDates" validate:"required,min=1"`
}

type visitResponse struct {
	ID                 string     `json:"id"`
	PatientID          string     `json:"patientId"`
	PatientName        string     `json:"patientName"`
	Phone              string     `json:"phone"`
	VisitDate          string     `json:"visitDate"`
	ReminderSent       bool       `json:"reminderSent"`
	DailyReminderCount int        `json:"dailyReminderCount"`
	LastReminderSent   *time.Time `json:"lastReminderSent,omitempty"`
}

func (h *VisitHandler) ScheduleVisits(c *fiber.Ctx) error {
	var req scheduleVisitsRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	visits, err := h.visits.Schedule(c.UserContext(), strings.TrimSpace(req.PatientID), req.VisitDates)
	if err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusCreated, "visits scheduled", toVisitResponses(visits))
}

func (h *VisitHandler) ListVisits(c *fiber.Ctx) error {
	patientID := strings.TrimSpace(c.Params("patientId"))
	if patientID == "" {
		return fmt.Errorf("%w: patientId is required", domain.ErrValidation)
	}

	visits, err := h.visits.ListByPatient(c.UserContext(), patientID)
	if err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusOK, "visits retrieved", toVisitResponses(visits))
}

func toVisitResponses(visits []domain.Visit) []visitResponse {
	out := make([]visitResponse, 0, len(visits))
	for _, v := range visits {
		out = append(out, visitResponse{
			ID:                 v.ID,
			PatientID:          v.PatientID,
			PatientName:        v.PatientName,
			Phone:              v.Phone,
			VisitDate:          v.VisitDate.UTC().Format(time.RFC3339),
			ReminderSent:       v.ReminderSent,
			DailyReminderCount: v.DailyReminderCount,
			LastReminderSent:   v.LastReminderSent,
		})
	}
	return out
}
