package order

import "errors"

var (
	// ErrInvalidTransition is returned when a terminal order is mutated.
	ErrInvalidTransition = errors.New("order is in a terminal status")
	// ErrUnknownStatus is returned for status names outside the lifecycle.
	ErrUnknownStatus = errors.New("unknown order status")
)

// SetStatus moves the order to next. Any non-terminal status may move to
// any valid status (the admin surface allows manual override); delivered
// and cancelled orders are immutable.
func SetStatus(o *Order, next Status) error {
	if !next.Valid() {
		return ErrUnknownStatus
	}
	if o.Status.Terminal() {
		return ErrInvalidTransition
	}
	o.Status = next
	return nil
}

// Milestone is one step of the linear progress indicator.
type Milestone struct {
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Reached bool   `json:"reached"`
}

// ProgressView is the customer-facing order progress. Cancelled orders
// render as a distinct terminal branch, never as partial progress.
type ProgressView struct {
	Cancelled  bool        `json:"cancelled"`
	Milestones []Milestone `json:"milestones"`
}

// Progress maps the current status onto the five canonical milestones.
func Progress(o Order) ProgressView {
	if o.Status == StatusCancelled {
		return ProgressView{
			Cancelled: true,
			Milestones: []Milestone{
				{Label: "Order Placed", Status: StatusPlaced, Reached: true},
				{Label: "Payment Confirmed", Status: StatusPaidPendingConfirmation},
				{Label: "Processing", Status: StatusProcessing},
				{Label: "Shipped", Status: StatusShipped},
				{Label: "Delivered", Status: StatusDelivered},
			},
		}
	}

	rank := statusRank[o.Status]
	return ProgressView{
		Milestones: []Milestone{
			{Label: "Order Placed", Status: StatusPlaced, Reached: true},
			{Label: "Payment Confirmed", Status: StatusPaidPendingConfirmation, Reached: rank >= 1},
			{Label: "Processing", Status: StatusProcessing, Reached: rank >= 2},
			{Label: "Shipped", Status: StatusShipped, Reached: rank >= 3},
			{Label: "Delivered", Status: StatusDelivered, Reached: rank >= 4},
		},
	}
}
