package transport

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Envelope wraps every JSON response body.
type Envelope struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	Result     any        `json:"result"`
	Error      *ErrorBody `json:"error"`
	Timestamps string     `json:"timestamps"`
	StatusCode int        `json:"statusCode"`
	Path       string     `json:"path"`
}

type ErrorBody struct {
	Message     string     `json:"message"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}

var now = time.Now

// Respond writes result in an envelope. Success follows the status code.
func Respond(c *fiber.Ctx, status int, message string, result any) error {
	return c.Status(status).JSON(Envelope{
		Success:    status < fiber.StatusBadRequest,
		Message:    message,
		Result:     result,
		Timestamps: now().UTC().Format(time.RFC3339),
		StatusCode: status,
		Path:       c.Path(),
	})
}

func respondError(c *fiber.Ctx, status int, message string, body *ErrorBody) error {
	return c.Status(status).JSON(Envelope{
		Success:    false,
		Message:    message,
		Error:      body,
		Timestamps: now().UTC().Format(time.RFC3339),
		StatusCode: status,
		Path:       c.Path(),
	})
}
