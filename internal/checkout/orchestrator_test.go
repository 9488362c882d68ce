package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmaina-dev/storefront-core/internal/cart"
	"github.com/kmaina-dev/storefront-core/internal/order"
)

// mockGateway is a configurable Gateway stub that counts calls.
type mockGateway struct {
	mu    sync.Mutex
	ack   PaymentAck
	err   error
	delay time.Duration
	calls int
}

func (m *mockGateway) RequestPush(ctx context.Context, req PaymentRequest) (PaymentAck, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.ack, m.err
}

func (m *mockGateway) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// stubRepo keeps created orders in memory.
type stubRepo struct {
	mu        sync.Mutex
	created   []*order.Order
	createErr error
}

func (s *stubRepo) Create(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *o
	s.created = append(s.created, &cp)
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.created {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (s *stubRepo) ListRecent(ctx context.Context, limit, offset int) ([]order.Order, error) {
	return nil, nil
}

func (s *stubRepo) UpdateStatus(ctx context.Context, id string, next order.Status) error {
	return nil
}

func (s *stubRepo) ConfirmPayment(ctx context.Context, checkoutRequestID, receipt string) (string, error) {
	return "", order.ErrNotFound
}

func (s *stubRepo) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func validCustomer() order.CustomerSnapshot {
	return order.CustomerSnapshot{
		FirstName: "Wanjiku",
		LastName:  "Kamau",
		Email:     "wanjiku@example.com",
		Address:   "Moi Avenue 12",
		City:      "Nairobi",
		Zip:       "00100",
	}
}

func validCart() cart.Cart {
	unit := decimal.RequireFromString("1250.00")
	return cart.Cart{
		Items: []cart.Item{{
			ProductID: "p1",
			Name:      "Rose Serum",
			UnitPrice: unit,
			Quantity:  2,
			LineTotal: unit.Mul(decimal.NewFromInt(2)),
		}},
		TotalQuantity: 2,
		TotalAmount:   unit.Mul(decimal.NewFromInt(2)),
	}
}

func TestCheckoutEmptyCartNoNetworkCall(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{}
	oc := NewOrchestrator(gw, &stubRepo{}, nil)

	_, err := oc.Checkout(context.Background(), Request{
		CartID:   "c1",
		Customer: validCustomer(),
		Phone:    "0712345678",
		Cart:     cart.Cart{},
	})

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 0, gw.callCount())
}

func TestCheckoutInvalidPhone(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{}
	oc := NewOrchestrator(gw, &stubRepo{}, nil)

	_, err := oc.Checkout(context.Background(), Request{
		CartID:   "c1",
		Customer: validCustomer(),
		Phone:    "0712", // normalizes short, fails the length check
		Cart:     validCart(),
	})

	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Equal(t, 0, gw.callCount())
}

func TestCheckoutIncompleteCustomer(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{}
	oc := NewOrchestrator(gw, &stubRepo{}, nil)

	customer := validCustomer()
	customer.Address = ""

	_, err := oc.Checkout(context.Background(), Request{
		CartID:   "c1",
		Customer: customer,
		Phone:    "0712345678",
		Cart:     validCart(),
	})

	assert.ErrorIs(t, err, ErrInvalidCustomer)
	assert.Equal(t, 0, gw.callCount())
}

func TestCheckoutAcceptedCreatesPendingOrder(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{ack: PaymentAck{
		Status:          AckAccepted,
		TrackingRef:     "ws_CO_123",
		CustomerMessage: "Success. Request accepted for processing",
	}}
	repo := &stubRepo{}
	oc := NewOrchestrator(gw, repo, nil)

	rc, err := oc.Checkout(context.Background(), Request{
		CartID:   "c1",
		Customer: validCustomer(),
		Phone:    "0712345678",
		Cart:     validCart(),
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPaidPendingConfirmation, rc.Status)
	assert.Equal(t, "ws_CO_123", rc.CheckoutRequestID)
	assert.NotEmpty(t, rc.OrderID)
	assert.NotEmpty(t, rc.InvoiceNumber)

	require.Equal(t, 1, repo.count())
	o, err := repo.GetByID(context.Background(), rc.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaidPendingConfirmation, o.Status)
	assert.Equal(t, order.OutcomeAccepted, o.Payment.Outcome)
	assert.Equal(t, "ws_CO_123", o.Payment.GatewayRef)
	assert.Equal(t, "254712345678", o.Payment.SubscriberPhone)
	assert.Equal(t, "254712345678", o.Customer.Phone)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("2500.00")))
}

func TestCheckoutRejectedSurfacesReasonVerbatim(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{ack: PaymentAck{
		Status:  AckRejected,
		Message: "Unable to lock subscriber, a transaction is already in process",
	}}
	repo := &stubRepo{}
	oc := NewOrchestrator(gw, repo, nil)

	_, err := oc.Checkout(context.Background(), Request{
		CartID:   "c1",
		Customer: validCustomer(),
		Phone:    "0712345678",
		Cart:     validCart(),
	})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "Unable to lock subscriber, a transaction is already in process", gwErr.Reason)
	assert.Equal(t, 0, repo.count(), "no order persisted on rejection")
}

func TestCheckoutUnexpectedResponse(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{ack: PaymentAck{Status: AckUnknown}}
	repo := &stubRepo{}
	oc := NewOrchestrator(gw, repo, nil)

	_, err := oc.Checkout(context.Background(), Request{
		CartID:   "c1",
		Customer: validCustomer(),
		Phone:    "0712345678",
		Cart:     validCart(),
	})

	assert.ErrorIs(t, err, ErrUnexpectedResponse)
	assert.Equal(t, 0, repo.count())
}

func TestCheckoutTransportFailureIndeterminate(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	gw := &mockGateway{err: cause}
	repo := &stubRepo{}
	oc := NewOrchestrator(gw, repo, nil)

	_, err := oc.Checkout(context.Background(), Request{
		CartID:   "c1",
		Customer: validCustomer(),
		Phone:    "0712345678",
		Cart:     validCart(),
	})

	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, repo.count())
	// One attempt only: no silent retry.
	assert.Equal(t, 1, gw.callCount())
}

func TestCheckoutRetriesMintFreshRequestIDs(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{ack: PaymentAck{Status: AckAccepted, TrackingRef: "ws_CO_1"}}
	repo := &stubRepo{}
	oc := NewOrchestrator(gw, repo, nil)

	req := Request{CartID: "c1", Customer: validCustomer(), Phone: "0712345678", Cart: validCart()}
	_, err := oc.Checkout(context.Background(), req)
	require.NoError(t, err)
	_, err = oc.Checkout(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, 2, repo.count())
	assert.NotEqual(t, repo.created[0].Payment.RequestID, repo.created[1].Payment.RequestID)
}

func TestConcurrentCheckoutSingleFlight(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{
		ack:   PaymentAck{Status: AckAccepted, TrackingRef: "ws_CO_1"},
		delay: 50 * time.Millisecond,
	}
	repo := &stubRepo{}
	oc := NewOrchestrator(gw, repo, nil)

	req := Request{CartID: "c1", Customer: validCustomer(), Phone: "0712345678", Cart: validCart()}

	var wg sync.WaitGroup
	receipts := make([]*Receipt, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			receipts[i], errs[i] = oc.Checkout(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
	}

	// All four callers coalesced into one gateway submission and one order.
	assert.Equal(t, 1, gw.callCount())
	assert.Equal(t, 1, repo.count())
	for _, rc := range receipts[1:] {
		assert.Equal(t, receipts[0].OrderID, rc.OrderID)
	}
}
