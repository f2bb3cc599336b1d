package transport

import (
	"errors"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/observability"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

const internalErrorMessage = "internal server error"

// ErrorHandler renders every error returned by a handler as an Envelope.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		code, body := classify(err)

		fields := []zap.Field{
			zap.String("method", utils.CopyString(c.Method())),
			zap.String("path", utils.CopyString(c.Path())),
			zap.Int("status", code),
			zap.Error(err),
		}
		reqLogger := observability.WithContextLogger(logger, c.UserContext())
		if code >= fiber.StatusInternalServerError {
			reqLogger.Error("request error", fields...)
		} else {
			reqLogger.Info("request rejected", fields...)
		}

		return respondError(c, code, body.Message, body)
	}
}

func classify(err error) (int, *ErrorBody) {
	if locked, ok := domain.IsPinLocked(err); ok {
		until := locked.Until.UTC()
		return fiber.StatusLocked, &ErrorBody{Message: err.Error(), LockedUntil: &until}
	}

	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, &ErrorBody{Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, &ErrorBody{Message: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, &ErrorBody{Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidPin):
		return fiber.StatusUnauthorized, &ErrorBody{Message: err.Error()}
	case errors.As(err, &fiberErr):
		if fiberErr.Code >= fiber.StatusInternalServerError {
			return fiberErr.Code, &ErrorBody{Message: internalErrorMessage}
		}
		return fiberErr.Code, &ErrorBody{Message: fiberErr.Message}
	}
	return fiber.StatusInternalServerError, &ErrorBody{Message: internalErrorMessage}
}
