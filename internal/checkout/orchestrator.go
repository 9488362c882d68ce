package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/kmaina-dev/storefront-core/internal/cart"
	"github.com/kmaina-dev/storefront-core/internal/metrics"
	"github.com/kmaina-dev/storefront-core/internal/order"
	"github.com/kmaina-dev/storefront-core/internal/phone"
)

// Request is one checkout attempt: a customer, their payment phone and a
// cart snapshot. CartID identifies the cart for the single-flight guard.
type Request struct {
	CartID   string
	Customer order.CustomerSnapshot
	Phone    string
	Cart     cart.Cart
}

// Receipt is returned when the gateway accepted the push request. The
// order is paid_pending_confirmation until the out-of-band confirmation
// arrives; the caller should present a "check your phone" waiting state.
type Receipt struct {
	OrderID           string       `json:"order_id"`
	InvoiceNumber     string       `json:"invoice_number"`
	CheckoutRequestID string       `json:"checkout_request_id,omitempty"`
	CustomerMessage   string       `json:"customer_message,omitempty"`
	Status            order.Status `json:"status"`
}

// Orchestrator drives a cart snapshot through phone normalization,
// customer validation, the gateway push and order creation. It never
// mutates the cart; callers clear it only after a confirmed order.
type Orchestrator struct {
	gateway  Gateway
	orders   order.Repository
	validate *validator.Validate
	metrics  *metrics.Checkout
	flight   singleflight.Group

	now   func() time.Time
	newID func() string
}

func NewOrchestrator(gateway Gateway, orders order.Repository, m *metrics.Checkout) *Orchestrator {
	return &Orchestrator{
		gateway:  gateway,
		orders:   orders,
		validate: validator.New(),
		metrics:  m,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Checkout validates the request and submits a payment push. Concurrent
// submissions for the same cart coalesce into one in-flight attempt, so
// the gateway is reached at most once per cart at a time.
func (oc *Orchestrator) Checkout(ctx context.Context, req Request) (*Receipt, error) {
	if req.Cart.Empty() {
		oc.metrics.ObserveAttempt("empty_cart")
		return nil, ErrEmptyCart
	}
	msisdn := phone.Normalize(req.Phone)
	if !phone.IsValid(msisdn) {
		oc.metrics.ObserveAttempt("invalid_phone")
		return nil, ErrInvalidPhone
	}
	if err := oc.validate.Struct(req.Customer); err != nil {
		oc.metrics.ObserveAttempt("invalid_customer")
		return nil, fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}

	v, err, shared := oc.flight.Do(req.CartID, func() (interface{}, error) {
		return oc.submit(ctx, req, msisdn)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.WithField("cart", req.CartID).Warn("duplicate checkout submission coalesced")
	}
	return v.(*Receipt), nil
}

func (oc *Orchestrator) submit(ctx context.Context, req Request, msisdn string) (*Receipt, error) {
	// Every attempt gets a fresh transaction; retries never reuse a
	// request ID.
	tx := order.PaymentTransaction{
		RequestID:       oc.newID(),
		SubscriberPhone: msisdn,
		Amount:          req.Cart.TotalAmount,
		Outcome:         order.OutcomePending,
	}
	invoice := invoiceNumber(tx.RequestID)

	logger := log.WithFields(log.Fields{
		"request_id": tx.RequestID,
		"invoice":    invoice,
		"amount":     tx.Amount.String(),
	})
	logger.Info("submitting stk push")

	start := time.Now()
	ack, err := oc.gateway.RequestPush(ctx, PaymentRequest{
		SubscriberPhone:  msisdn,
		Amount:           tx.Amount,
		AccountReference: invoice,
		Description:      "Payment for order " + invoice,
	})
	oc.metrics.ObservePushDuration(time.Since(start))
	if err != nil {
		oc.metrics.ObserveAttempt("transport_failure")
		logger.WithError(err).Error("stk push transport failure, outcome indeterminate")
		return nil, &TransportError{Detail: err.Error(), Err: err}
	}

	switch ack.Status {
	case AckAccepted:
		tx.Outcome = order.OutcomeAccepted
		tx.GatewayRef = ack.TrackingRef

		customer := req.Customer
		customer.Phone = msisdn

		o := &order.Order{
			ID:            oc.newID(),
			InvoiceNumber: invoice,
			Customer:      customer,
			Items:         orderItems(req.Cart.Items),
			TotalAmount:   req.Cart.TotalAmount,
			Status:        order.StatusPaidPendingConfirmation,
			CreatedAt:     oc.now(),
			Payment:       tx,
		}
		if err := oc.orders.Create(ctx, o); err != nil {
			logger.WithError(err).Error("order create failed after accepted push")
			return nil, err
		}
		oc.metrics.ObserveAttempt("accepted")
		logger.WithField("order_id", o.ID).Info("stk push accepted, awaiting confirmation")
		return &Receipt{
			OrderID:           o.ID,
			InvoiceNumber:     invoice,
			CheckoutRequestID: ack.TrackingRef,
			CustomerMessage:   ack.CustomerMessage,
			Status:            o.Status,
		}, nil

	case AckRejected:
		oc.metrics.ObserveAttempt("rejected")
		logger.WithField("reason", ack.Message).Warn("stk push rejected by gateway")
		return nil, &GatewayError{Reason: ack.Message}

	default:
		oc.metrics.ObserveAttempt("unexpected_response")
		logger.Error("unclassifiable gateway response")
		return nil, ErrUnexpectedResponse
	}
}

func orderItems(items []cart.Item) []order.Item {
	out := make([]order.Item, len(items))
	for i, it := range items {
		out[i] = order.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		}
	}
	return out
}

func invoiceNumber(requestID string) string {
	return "INV-" + strings.ToUpper(strings.ReplaceAll(requestID, "-", ""))[:10]
}
