package checkout

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentRequest is what the orchestrator hands to a push-payment gateway.
// The wire shape belongs to the gateway adapter, not to this package.
type PaymentRequest struct {
	SubscriberPhone string
	Amount          decimal.Decimal
	// AccountReference doubles as the per-attempt idempotency key; gateway
	// adapters must pass it through so duplicates can be reconciled.
	AccountReference string
	Description      string
}

// AckStatus classifies the gateway's synchronous acknowledgement. Accepted
// means the push request was taken, not that money moved.
type AckStatus string

const (
	AckAccepted AckStatus = "accepted"
	AckRejected AckStatus = "rejected"
	AckUnknown  AckStatus = "unknown"
)

type PaymentAck struct {
	Status AckStatus
	// TrackingRef identifies the in-flight push at the gateway
	// (Daraja: CheckoutRequestID).
	TrackingRef     string
	CustomerMessage string
	// Message carries the gateway's rejection text verbatim.
	Message string
}

// Gateway is the contract any push-payment gateway adapter satisfies.
// A returned error means the transport failed and the attempt's outcome is
// indeterminate; classification of a received response goes through the ack.
type Gateway interface {
	RequestPush(ctx context.Context, req PaymentRequest) (PaymentAck, error)
}
