package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/example/zinco/internal/app"
	"github.com/example/zinco/internal/apperrors"
	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/middleware"
)

// ErrorHandler renders every error as {"success": false, "message": ...}.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}

		return c.Status(code).JSON(fiber.Map{"success": false, "message": message})
	}
}

// httpError maps a domain error onto a fiber error.
func httpError(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return err
	}
	status := apperrors.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		return err
	}
	return fiber.NewError(status, apperrors.Message(err))
}

var errDeviceUnavailable = fiber.NewError(fiber.StatusServiceUnavailable, "device storage unavailable")

func currentDevice(c *fiber.Ctx, registry *app.Registry) (*app.Device, error) {
	id, ok := middleware.GetDeviceID(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	device, err := registry.Device(id)
	if err != nil {
		// Wrapped so ErrorHandler answers 503 and still logs the cause.
		return nil, fmt.Errorf("%w: %w", errDeviceUnavailable, err)
	}
	return device, nil
}
