package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/zinco/internal/app"
	"github.com/example/zinco/internal/store"
)

// CartHandler exposes the device cart.
type CartHandler struct {
	registry *app.Registry
	db       *gorm.DB
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(registry *app.Registry, db *gorm.DB) *CartHandler {
	return &CartHandler{registry: registry, db: db}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns lines and totals.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}
	return cartResponse(c, d.State.Cart)
}

// AddItem adds a catalog product to the cart.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}

	var req addCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	product, err := findProduct(h.db, req.ProductID)
	if err != nil {
		return err
	}
	if err := d.State.Cart.Add(*product, req.Quantity); err != nil {
		return err
	}

	return cartResponse(c, d.State.Cart)
}

// UpdateItem sets the quantity of a line; zero or less removes it.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}

	var req updateCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := d.State.Cart.SetQuantity(c.Params("id"), req.Quantity); err != nil {
		return err
	}

	return cartResponse(c, d.State.Cart)
}

// RemoveItem deletes a line. Removing an absent product is not an error.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}
	if err := d.State.Cart.Remove(c.Params("id")); err != nil {
		return err
	}
	return cartResponse(c, d.State.Cart)
}

// ClearCart empties the cart.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}
	if err := d.State.Cart.Clear(); err != nil {
		return err
	}
	return cartResponse(c, d.State.Cart)
}

func cartResponse(c *fiber.Ctx, cart *store.CartStore) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"items":       cart.Items(),
			"total_items": cart.TotalItems(),
			"total_price": cart.TotalPrice(),
		},
	})
}
