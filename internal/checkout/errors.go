package checkout

import "errors"

var (
	// ErrEmptyCart fails a checkout before any network call is made.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidPhone means the phone did not normalize to a full MSISDN.
	ErrInvalidPhone = errors.New("phone number must normalize to 12 digits")
	// ErrInvalidCustomer means required customer fields are missing.
	ErrInvalidCustomer = errors.New("customer details incomplete")
	// ErrUnexpectedResponse means the gateway replied with something we
	// could not classify; no order was created.
	ErrUnexpectedResponse = errors.New("unexpected response from payment gateway")
)

// GatewayError carries the gateway's rejection message verbatim.
type GatewayError struct {
	Reason string
}

func (e *GatewayError) Error() string {
	return "payment gateway rejected request: " + e.Reason
}

// TransportError means the request may or may not have reached the gateway.
// The attempt's outcome is indeterminate: callers must not assume failure
// and must not silently re-submit.
type TransportError struct {
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	return "payment gateway unreachable: " + e.Detail
}

func (e *TransportError) Unwrap() error { return e.Err }
