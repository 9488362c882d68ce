package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Checkout collects the orchestration core's operational metrics.
type Checkout struct {
	attempts     *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	pushDuration prometheus.Histogram
}

func NewCheckout() *Checkout {
	return NewCheckoutWith(prometheus.DefaultRegisterer)
}

// NewCheckoutWith registers against an explicit registerer so tests can use
// a private registry.
func NewCheckoutWith(reg prometheus.Registerer) *Checkout {
	factory := promauto.With(reg)
	return &Checkout{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_attempts_total",
			Help: "Checkout attempts by classified outcome",
		}, []string{"outcome"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Order lifecycle transitions applied",
		}, []string{"from", "to"}),
		pushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_stk_push_duration_seconds",
			Help:    "Latency of STK push round trips to the payment gateway",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (c *Checkout) ObserveAttempt(outcome string) {
	if c == nil {
		return
	}
	c.attempts.WithLabelValues(outcome).Inc()
}

func (c *Checkout) ObserveTransition(from, to string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(from, to).Inc()
}

func (c *Checkout) ObservePushDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.pushDuration.Observe(d.Seconds())
}
