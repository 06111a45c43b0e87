package models

// CartItem is one cart line. Lines are unique by Product.ID and never
// hold a non-positive quantity at rest.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (i CartItem) LineTotal() float64 {
	return i.Product.Price * float64(i.Quantity)
}
