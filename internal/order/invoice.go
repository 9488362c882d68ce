package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceView is the read-only projection consumed by the invoice
// renderer. It is a value copy; there is no mutation path back to the
// order.
type InvoiceView struct {
	OrderID       string           `json:"order_id"`
	InvoiceNumber string           `json:"invoice_number"`
	Customer      CustomerSnapshot `json:"customer"`
	Items         []Item           `json:"items"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	Status        Status           `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
}

func Invoice(o Order) InvoiceView {
	items := make([]Item, len(o.Items))
	copy(items, o.Items)
	return InvoiceView{
		OrderID:       o.ID,
		InvoiceNumber: o.InvoiceNumber,
		Customer:      o.Customer,
		Items:         items,
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
	}
}
