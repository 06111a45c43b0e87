package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/zinco/internal/app"
	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/utils"
)

// OrderHandler lists orders placed by the logged-in user on this device.
type OrderHandler struct {
	registry *app.Registry
	db       *gorm.DB
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(registry *app.Registry, db *gorm.DB) *OrderHandler {
	return &OrderHandler{registry: registry, db: db}
}

// ListOrders returns the user's orders, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	d, user, err := h.owner(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{}).Where("device_id = ? AND user_id = ?", d.ID, user.ID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns a single order of the user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	d, user, err := h.owner(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").
		First(&order, "id = ? AND device_id = ? AND user_id = ?", id, d.ID, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

func (h *OrderHandler) owner(c *fiber.Ctx) (*app.Device, *models.User, error) {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return nil, nil, err
	}
	user := d.State.Session.User()
	if user == nil {
		return nil, nil, fiber.NewError(fiber.StatusUnauthorized, "login required")
	}
	return d, user, nil
}
