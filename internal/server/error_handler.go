package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"

	"thaitanloi365/picture-protector/internal/log"
	"thaitanloi365/picture-protector/pkg/response"
	"thaitanloi365/picture-protector/protector"
)

var (
	ErrNoFile          = response.NewError(http.StatusBadRequest, "no image uploaded")
	ErrInvalidFileType = response.NewError(http.StatusBadRequest, "uploaded file is not an image")
	ErrFileTooLarge    = response.NewError(http.StatusRequestEntityTooLarge, "file size exceeds limit")
	ErrInvalidFormat   = response.NewError(http.StatusBadRequest, "unsupported output format")

	ErrInvalidPreviewSize = response.NewError(http.StatusBadRequest, "invalid preview size")
	ErrInvalidQRSize      = response.NewError(http.StatusBadRequest, "invalid qr code size")
)

var statusByError = []struct {
	err  error
	code int
}{
	{protector.ErrSessionNotFound, fiber.StatusNotFound},
	{protector.ErrNoFaceAtPoint, fiber.StatusNotFound},
	{protector.ErrNotShared, fiber.StatusNotFound},
	{protector.ErrFaceIndex, fiber.StatusBadRequest},
	{protector.ErrInvalidImage, fiber.StatusBadRequest},
	{protector.ErrNoImage, fiber.StatusConflict},
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func NewErrorHandler(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// Handle writes the response for err: status-carrying and known domain
// errors are reported as-is, anything else as a 500 with a trace id.
func (h *ErrorHandler) Handle(c *fiber.Ctx, err error, operation string) error {
	requestID := getRequestID(c)

	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       c.Path(),
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	for _, known := range statusByError {
		if errors.Is(err, known.err) {
			h.logger.WithFields(log.Fields{
				"request_id": requestID,
				"error":      err.Error(),
				"path":       c.Path(),
				"operation":  operation,
			}).Warn(known.err.Error())
			return c.Status(known.code).JSON(fiber.Map{"error": err.Error()})
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return h.HandleRequestTimeout(c)
	}

	traceID := log.ErrorWithTraceID(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       c.Path(),
		"operation":  operation,
	}, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":    "An unexpected error occurred",
		"trace_id": traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, err error) error {
	h.logger.WithFields(log.Fields{
		"request_id": getRequestID(c),
		"error":      err.Error(),
		"path":       c.Path(),
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
		"error": utils.StatusMessage(fiber.StatusRequestTimeout),
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
