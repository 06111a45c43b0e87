package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentBankTransfer   = "bank"
	PaymentCashOnDelivery = "cod"

	OrderStatusPending = "pending"
)

// Order snapshots a cart at checkout. No payment is captured.
type Order struct {
	BaseModel
	DeviceID      uuid.UUID   `gorm:"type:uuid;index" json:"device_id"`
	UserID        string      `gorm:"index" json:"user_id"`
	OrderNumber   string      `gorm:"uniqueIndex" json:"order_number"`
	Status        string      `json:"status"`
	PlacedAt      time.Time   `json:"placed_at"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Address       string      `json:"address"`
	Notes         string      `json:"notes"`
	PaymentMethod string      `json:"payment_method"`
	TotalItems    int         `json:"total_items"`
	TotalAmount   float64     `json:"total_amount"`
	Items         []OrderItem `json:"items,omitempty"`
}

// OrderItem is one line of an Order.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	LineTotal   float64   `json:"line_total"`
}
