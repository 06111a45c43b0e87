package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/zinco/internal/app"
	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/phone"
	"github.com/example/zinco/internal/services"
)

const notifyTimeout = 15 * time.Second

// OrderNotifier announces placed orders to the shop.
type OrderNotifier interface {
	NotifyNewOrder(ctx context.Context, order models.Order) error
}

// SMSSender delivers the customer confirmation text.
type SMSSender interface {
	SendSMS(ctx context.Context, req services.SMSRequest) error
}

// CheckoutHandler turns the device cart into an Order.
type CheckoutHandler struct {
	registry *app.Registry
	db       *gorm.DB
	validate *validator.Validate
	notifier OrderNotifier
	sms      SMSSender
	log      *logger.Logger
	now      func() time.Time

	pending sync.WaitGroup
}

// NewCheckoutHandler constructs CheckoutHandler. notifier and sms may be
// nil to skip the respective message.
func NewCheckoutHandler(registry *app.Registry, db *gorm.DB, validate *validator.Validate,
	notifier OrderNotifier, sms SMSSender, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		registry: registry,
		db:       db,
		validate: validate,
		notifier: notifier,
		sms:      sms,
		log:      log,
		now:      time.Now,
	}
}

type checkoutRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required,max=500"`
	Note    string `json:"note" validate:"max=1000"`
	Payment string `json:"payment" validate:"required,oneof=bank cod"`
}

// Checkout places an order for the logged-in user.
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}

	user := d.State.Session.User()
	if user == nil {
		return fiber.NewError(fiber.StatusUnauthorized, "login required")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}

	customerPhone, err := phone.Normalize(req.Phone)
	if err != nil {
		return httpError(err)
	}

	lines := d.State.Cart.Items()
	if len(lines) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
	}

	order := h.buildOrder(d, *user, req, customerPhone, lines)
	if err := h.db.Create(&order).Error; err != nil {
		return err
	}

	if err := d.State.Cart.Clear(); err != nil {
		h.log.Error("clear cart after checkout", "device_id", d.ID, "order_number", order.OrderNumber, "error", err)
	}

	h.notifyAsync(order)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"placed_at":    order.PlacedAt,
			"total":        order.TotalAmount,
			"total_items":  order.TotalItems,
		},
	})
}

func (h *CheckoutHandler) buildOrder(d *app.Device, user models.User, req checkoutRequest, customerPhone string, lines []models.CartItem) models.Order {
	now := h.now()
	order := models.Order{
		DeviceID:      d.ID,
		UserID:        user.ID,
		OrderNumber:   fmt.Sprintf("ZN%d", now.UnixNano()%1000000000),
		Status:        models.OrderStatusPending,
		PlacedAt:      now.UTC(),
		CustomerName:  req.Name,
		CustomerPhone: customerPhone,
		Address:       req.Address,
		Notes:         strings.TrimSpace(req.Note),
		PaymentMethod: req.Payment,
	}

	for _, line := range lines {
		item := models.OrderItem{
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.Product.Price,
			LineTotal:   line.LineTotal(),
		}
		order.TotalItems += item.Quantity
		order.TotalAmount += item.LineTotal
		order.Items = append(order.Items, item)
	}
	return order
}

// Wait blocks until every notification started by Checkout has finished.
// Each one is bounded by notifyTimeout.
func (h *CheckoutHandler) Wait() {
	h.pending.Wait()
}

func (h *CheckoutHandler) notifyAsync(order models.Order) {
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		h.notify(order)
	}()
}

// notify runs after the response; failures are only logged.
func (h *CheckoutHandler) notify(order models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if h.notifier != nil {
		if err := h.notifier.NotifyNewOrder(ctx, order); err != nil {
			h.log.Warn("order notification failed", "order_number", order.OrderNumber, "error", err)
		}
	}

	if h.sms != nil {
		msg := fmt.Sprintf("Zinco: order %s received. Total %s.", order.OrderNumber, services.FormatPrice(order.TotalAmount))
		if err := h.sms.SendSMS(ctx, services.SMSRequest{To: order.CustomerPhone, Message: msg}); err != nil {
			h.log.Warn("order sms failed", "order_number", order.OrderNumber, "error", err)
		}
	}
}
