package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. The canonical chain is
// placed -> paid_pending_confirmation -> processing -> shipped -> delivered,
// with cancelled reachable from any non-terminal state.
type Status string

const (
	StatusPlaced Status = "placed"
	// StatusPaidPendingConfirmation means the STK push was accepted by the
	// gateway but the debit has not been confirmed out-of-band yet.
	StatusPaidPendingConfirmation Status = "paid_pending_confirmation"
	StatusProcessing              Status = "processing"
	StatusShipped                 Status = "shipped"
	StatusDelivered               Status = "delivered"
	StatusCancelled               Status = "cancelled"
)

// statusRank orders the linear milestones; cancelled has no rank on purpose.
var statusRank = map[Status]int{
	StatusPlaced:                  0,
	StatusPaidPendingConfirmation: 1,
	StatusProcessing:              2,
	StatusShipped:                 3,
	StatusDelivered:               4,
}

func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether the order is immutable in this status.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Outcome classifies the gateway's synchronous acknowledgement of a
// payment request.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeUnknown  Outcome = "unknown"
)

// CustomerSnapshot is embedded into the order at creation; later profile
// edits never alter historical orders.
type CustomerSnapshot struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
}

// Item is one purchased line, priced at checkout time.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// PaymentTransaction records one checkout attempt against the gateway.
// Retries mint a new transaction with a new RequestID, never reuse.
type PaymentTransaction struct {
	RequestID       string          `json:"request_id"`
	SubscriberPhone string          `json:"subscriber_phone"`
	Amount          decimal.Decimal `json:"amount"`
	// GatewayRef is the Daraja CheckoutRequestID when the push was accepted.
	GatewayRef string  `json:"gateway_ref,omitempty"`
	Receipt    string  `json:"receipt,omitempty"`
	Outcome    Outcome `json:"outcome"`
}

type Order struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	Customer      CustomerSnapshot   `json:"customer"`
	Items         []Item             `json:"items"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Status        Status             `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	Payment       PaymentTransaction `json:"payment"`
}
