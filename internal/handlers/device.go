package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/zinco/internal/config"
	"github.com/example/zinco/internal/utils"
)

// DeviceHandler issues device tokens.
type DeviceHandler struct {
	cfg config.JWT
}

// NewDeviceHandler constructs DeviceHandler.
func NewDeviceHandler(cfg config.JWT) *DeviceHandler {
	return &DeviceHandler{cfg: cfg}
}

// Register creates a new device and returns its token. All later calls
// carry the token as a bearer credential. The device state is loaded
// lazily by the first call that needs it.
func (h *DeviceHandler) Register(c *fiber.Ctx) error {
	id := uuid.New()
	ttl := h.cfg.TokenTTL()

	token, err := utils.GenerateDeviceToken(h.cfg.Secret, id, ttl)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"device_id":  id,
			"token":      token,
			"expires_at": time.Now().Add(ttl).UTC(),
		},
	})
}
