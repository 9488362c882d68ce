package cart

import "github.com/shopspring/decimal"

// Product is the catalog projection the cart needs; the catalog itself
// lives outside this core.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Item is one cart line. LineTotal is always UnitPrice * Quantity.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Cart is an immutable snapshot of a shopper's cart.
type Cart struct {
	Items         []Item          `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// Empty reports whether the snapshot has no line items.
func (c Cart) Empty() bool { return len(c.Items) == 0 }
