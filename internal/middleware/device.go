package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/zinco/internal/utils"
)

const deviceContextKey = "deviceID"

// DeviceMiddleware validates the device token and stores the device ID
// in context.
func DeviceMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		deviceID, err := utils.ParseDeviceToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid device token")
		}

		c.Locals(deviceContextKey, deviceID)
		return c.Next()
	}
}

// GetDeviceID extracts the device ID placed by DeviceMiddleware.
func GetDeviceID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(deviceContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
