package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/service"
	"github.com/awopa/maternal-notify/internal/transport"
	"github.com/gofiber/fiber/v2"
)

type Messenger interface {
	Send(ctx context.Context, phone, text string) (service.SendOutcome, error)
	SendTest(ctx context.Context, phone string) error
}

type AppointmentScheduler interface {
	Schedule(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error)
	Confirm(ctx context.Context, phone string, answer string) (*domain.Appointment, error)
}

type CareManager interface {
	CreateNutritionProfile(ctx context.Context, profile *domain.NutritionProfile) (*domain.NutritionProfile, error)
	CreateMedication(ctx context.Context, med *domain.Medication) (*domain.Medication, error)
	CreatePregnancy(ctx context.Context, pregnancy *domain.Pregnancy) (*domain.Pregnancy, error)
	UpdatePregnancyWeek(ctx context.Context, patientID string) (*domain.Pregnancy, error)
}

// RunFunc runs one reminder producer immediately.
type RunFunc func(ctx context.Context) (service.RunResult, error)

// SweepFunc retries the pending queue immediately.
type SweepFunc func(ctx context.Context) (service.SweepResult, error)

// SMSDeps bundles everything served under /sms.
type SMSDeps struct {
	Messages     Messenger
	Appointments AppointmentScheduler
	Care         CareManager

	RunAppointments RunFunc
	RunMedications  RunFunc
	RunWater        RunFunc
	RunTips         RunFunc
	RunPregnancy    RunFunc
	Sweep           SweepFunc
}

func (d SMSDeps) validate() error {
	if d.Messages == nil || d.Appointments == nil || d.Care == nil {
		return fmt.Errorf("messaging, appointment and care services are required")
	}
	if d.RunAppointments == nil || d.RunMedications == nil || d.RunWater == nil ||
		d.RunTips == nil || d.RunPregnancy == nil || d.Sweep == nil {
		return fmt.Errorf("every producer run and the pending sweep are required")
	}
	return nil
}

type SMSHandler struct {
	deps SMSDeps
}

func NewSMSHandler(deps SMSDeps) (*SMSHandler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &SMSHandler{deps: deps}, nil
}

func RegisterSMSRoutes(router fiber.Router, deps SMSDeps) error {
	h, err := NewSMSHandler(deps)
	if err != nil {
		return err
	}

	sms := router.Group("/sms")
	sms.Post("/send", h.Send)
	sms.Post("/test", h.SendTest)

	sms.Get("/appointments/send-reminders", h.run(deps.RunAppointments, "appointment reminders processed"))
	sms.Post("/appointments", h.ScheduleAppointment)
	sms.Post("/appointments/confirm", h.ConfirmAppointment)

	sms.Post("/nutrition", h.CreateNutritionProfile)
	sms.Post("/nutrition/send-water-reminders", h.run(deps.RunWater, "water reminders processed"))
	sms.Post("/nutrition/send-tips", h.run(deps.RunTips, "nutrition tips processed"))

	sms.Post("/medications", h.CreateMedication)
	sms.Post("/medications/send-reminders", h.run(deps.RunMedications, "medication reminders processed"))

	sms.Post("/pregnancy", h.CreatePregnancy)
	sms.Patch("/pregnancy/:patientId/week", h.UpdatePregnancyWeek)
	sms.Post("/pregnancy/send-updates", h.run(deps.RunPregnancy, "pregnancy updates processed"))

	sms.Post("/pending/process", h.ProcessPending)

	return nil
}

type sendRequest struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type testRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type appointmentRequest struct {
	PatientName         string    `json:"patientName" validate:"required"`
	Phone               string    `json:"phone" validate:"required"`
	Doctor              string    `json:"doctor" validate:"required"`
	Date                time.Time `json:"date"`
	Purpose             string    `json:"purpose"`
	Location            string    `json:"location"`
	SpecialInstructions string    `json:"specialInstructions"`
}

type confirmRequest struct {
	Phone        string `json:"phone" validate:"required"`
	Confirmation string `json:"confirmation" validate:"required"`
}

type nutritionRequest struct {
	PatientName     string   `json:"patientName" validate:"required"`
	Phone           string   `json:"phone" validate:"required"`
	Trimester       int      `json:"trimester" validate:"required,min=1,max=3"`
	WaterIntakeGoal int      `json:"waterIntakeGoal" validate:"min=0"`
	Deficiencies    []string `json:"deficiencies"`
}

type medicationRequest struct {
	PatientName    string     `json:"patientName" validate:"required"`
	Phone          string     `json:"phone" validate:"required"`
	MedicationName string     `json:"medicationName" validate:"required"`
	Dosage         string     `json:"dosage" validate:"required"`
	Frequency      string     `json:"frequency" validate:"required"`
	Time           string     `json:"time"`
	RefillDate     *time.Time `json:"refillDate"`
	PharmacyName   string     `json:"pharmacyName"`
	PharmacyPhone  string     `json:"pharmacyPhone"`
}

type pregnancyRequest struct {
	PatientID   string    `json:"patientId" validate:"required"`
	PatientName string    `json:"patientName" validate:"required"`
	Phone       string    `json:"phone" validate:"required"`
	StartDate   time.Time `json:"startDate"`
}

type appointmentResponse struct {
	ID                  string     `json:"id"`
	PatientName         string     `json:"patientName"`
	Phone               string     `json:"phone"`
	Doctor              string     `json:"doctor"`
	Date                string     `json:"date"`
	Purpose             string     `json:"purpose,omitempty"`
	Location            string     `json:"location,omitempty"`
	SpecialInstructions string     `json:"specialInstructions,omitempty"`
	Status              string     `json:"status"`
	Confirmed           bool       `json:"confirmed"`
	ConfirmedAt         *time.Time `json:"confirmedAt,omitempty"`
}

type nutritionResponse struct {
	ID              string   `json:"id"`
	PatientName     string   `json:"patientName"`
	Phone           string   `json:"phone"`
	Trimester       int      `json:"trimester"`
	WaterIntakeGoal int      `json:"waterIntakeGoal"`
	Deficiencies    []string `json:"deficiencies"`
}

type medicationResponse struct {
	ID             string     `json:"id"`
	PatientName    string     `json:"patientName"`
	Phone          string     `json:"phone"`
	MedicationName string     `json:"medicationName"`
	Dosage         string     `json:"dosage"`
	Frequency      string     `json:"frequency"`
	Time           string     `json:"time,omitempty"`
	RefillDate     *time.Time `json:"refillDate,omitempty"`
	PharmacyName   string     `json:"pharmacyName,omitempty"`
	PharmacyPhone  string     `json:"pharmacyPhone,omitempty"`
}

type pregnancyResponse struct {
	ID                      string     `json:"id"`
	PatientID               string     `json:"patientId"`
	PatientName             string     `json:"patientName"`
	Phone                   string     `json:"phone"`
	StartDate               string     `json:"startDate"`
	CurrentWeek             int        `json:"currentWeek"`
	NextAppointmentSchedule *time.Time `json:"nextAppointmentSchedule,omitempty"`
}

func (h *SMSHandler) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	outcome, err := h.deps.Messages.Send(c.UserContext(), req.Phone, req.Message)
	if err != nil {
		return err
	}
	if outcome.Queued {
		return transport.Respond(c, fiber.StatusAccepted, "message queued for retry", outcome)
	}
	return transport.Respond(c, fiber.StatusOK, "message sent", outcome)
}

func (h *SMSHandler) SendTest(c *fiber.Ctx) error {
	var req testRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	if err := h.deps.Messages.SendTest(c.UserContext(), req.Phone); err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusOK, "test message sent", nil)
}

func (h *SMSHandler) ScheduleAppointment(c *fiber.Ctx) error {
	var req appointmentRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	appt, err := h.deps.Appointments.Schedule(c.UserContext(), &domain.Appointment{
		PatientName:         strings.TrimSpace(req.PatientName),
		Phone:               req.Phone,
		Doctor:              strings.TrimSpace(req.Doctor),
		Date:                req.Date,
		Purpose:             req.Purpose,
		Location:            req.Location,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusCreated, "appointment scheduled", toAppointmentResponse(appt))
}

func (h *SMSHandler) ConfirmAppointment(c *fiber.Ctx) error {
	var req confirmRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	appt, err := h.deps.Appointments.Confirm(c.UserContext(), req.Phone, req.Confirmation)
	if err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusOK, "appointment "+appt.Status.String(), toAppointmentResponse(appt))
}

func (h *SMSHandler) CreateNutritionProfile(c *fiber.Ctx) error {
	var req nutritionRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	profile, err := h.deps.Care.CreateNutritionProfile(c.UserContext(), &domain.NutritionProfile{
		PatientName:     strings.TrimSpace(req.PatientName),
		Phone:           req.Phone,
		Trimester:       req.Trimester,
		WaterIntakeGoal: req.WaterIntakeGoal,
		Deficiencies:    req.Deficiencies,
	})
	if err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusCreated, "nutrition profile created", nutritionResponse{
		ID:              profile.ID,
		PatientName:     profile.PatientName,
		Phone:           profile.Phone,
		Trimester:       profile.Trimester,
		WaterIntakeGoal: profile.WaterIntakeGoal,
		Deficiencies:    profile.Deficiencies,
	})
}

func (h *SMSHandler) CreateMedication(c *fiber.Ctx) error {
	var req medicationRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	frequency, err := domain.ParseFrequencyFromString(req.Frequency)
	if err != nil {
		return err
	}

	med, err := h.deps.Care.CreateMedication(c.UserContext(), &domain.Medication{
		PatientName:    strings.TrimSpace(req.PatientName),
		Phone:          req.Phone,
		MedicationName: strings.TrimSpace(req.MedicationName),
		Dosage:         strings.TrimSpace(req.Dosage),
		Frequency:      frequency,
		Time:           req.Time,
		RefillDate:     req.RefillDate,
		PharmacyName:   req.PharmacyName,
		PharmacyPhone:  req.PharmacyPhone,
	})
	if err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusCreated, "medication reminder created", medicationResponse{
		ID:             med.ID,
		PatientName:    med.PatientName,
		Phone:          med.Phone,
		MedicationName: med.MedicationName,
		Dosage:         med.Dosage,
		Frequency:      med.Frequency.String(),
		Time:           med.Time,
		RefillDate:     med.RefillDate,
		PharmacyName:   med.PharmacyName,
		PharmacyPhone:  med.PharmacyPhone,
	})
}

func (h *SMSHandler) CreatePregnancy(c *fiber.Ctx) error {
	var req pregnancyRequest
	if err := transport.BindJSON(c, &req); err != nil {
		return err
	}

	pregnancy, err := h.deps.Care.CreatePregnancy(c.UserContext(), &domain.Pregnancy{
		PatientID:   strings.TrimSpace(req.PatientID),
		PatientName: strings.TrimSpace(req.PatientName),
		Phone:       req.Phone,
		StartDate:   req.StartDate,
	})
	if err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusCreated, "pregnancy profile created", toPregnancyResponse(pregnancy))
}

func (h *SMSHandler) UpdatePregnancyWeek(c *fiber.Ctx) error {
	patientID := strings.TrimSpace(c.Params("patientId"))
	if patientID == "" {
		return fmt.Errorf("%w: patientId is required", domain.ErrValidation)
	}

	pregnancy, err := h.deps.Care.UpdatePregnancyWeek(c.UserContext(), patientID)
	if err != nil {
		return err
	}
	return transport.Respond(c, fiber.StatusOK, "pregnancy week updated", toPregnancyResponse(pregnancy))
}

func (h *SMSHandler) ProcessPending(c *fiber.Ctx) error {
	result, err := h.deps.Sweep(c.UserContext())
	if err != nil {
		return err
	}
	if result.Skipped {
		return transport.Respond(c, fiber.StatusAccepted, "a sweep is already running", result)
	}
	return transport.Respond(c, fiber.StatusOK, "pending reminders processed", result)
}

func (h *SMSHandler) run(fn RunFunc, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := fn(c.UserContext())
		if err != nil {
			return err
		}
		return transport.Respond(c, fiber.StatusOK, message, result)
	}
}

func toAppointmentResponse(a *domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:                  a.ID,
		PatientName:         a.PatientName,
		Phone:               a.Phone,
		Doctor:              a.Doctor,
		Date:                a.Date.UTC().Format(time.RFC3339),
		Purpose:             a.Purpose,
		Location:            a.Location,
		SpecialInstructions: a.SpecialInstructions,
		Status:              a.Status.String(),
		Confirmed:           a.Confirmed,
		ConfirmedAt:         a.ConfirmedAt,
	}
}

func toPregnancyResponse(p *domain.Pregnancy) pregnancyResponse {
	return pregnancyResponse{
		ID:                      p.ID,
		PatientID:               p.PatientID,
		PatientName:             p.PatientName,
		Phone:                   p.Phone,
		StartDate:               p.StartDate.UTC().Format(time.RFC3339),
		CurrentWeek:             p.CurrentWeek,
		NextAppointmentSchedule: p.NextAppointmentSchedule,
	}
}
