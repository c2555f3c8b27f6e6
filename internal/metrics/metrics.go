package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the client core.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Retries         *prometheus.CounterVec
	Refreshes       *prometheus.CounterVec
	Pings           *prometheus.CounterVec
	CartRollbacks   *prometheus.CounterVec
	CheckoutSteps   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses a
// private registry, which keeps repeated construction in tests safe.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickcommerce_api_requests_total",
			Help: "API requests by method, route and outcome",
		}, []string{"method", "route", "outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quickcommerce_api_request_duration_seconds",
			Help:    "Latency of single API attempts",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickcommerce_api_retries_total",
			Help: "Retried API attempts by route",
		}, []string{"route"}),
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickcommerce_token_refreshes_total",
			Help: "Access token refresh attempts by result",
		}, []string{"result"}),
		Pings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickcommerce_backend_pings_total",
			Help: "Wake-up pings by result",
		}, []string{"result"}),
		CartRollbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickcommerce_cart_rollbacks_total",
			Help: "Optimistic cart mutations rolled back by operation",
		}, []string{"operation"}),
		CheckoutSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickcommerce_checkout_transitions_total",
			Help: "Checkout state transitions by target state",
		}, []string{"state"}),
	}
}

// ObserveRequest records the outcome of a finished API call.
func (m *Metrics) ObserveRequest(method, route, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, outcome).Inc()
}

// ObserveAttempt records the latency of one attempt.
func (m *Metrics) ObserveAttempt(method, route string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// IncRetry counts one retry of route.
func (m *Metrics) IncRetry(route string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(route).Inc()
}

// IncRefresh counts a refresh attempt.
func (m *Metrics) IncRefresh(result string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
}

// IncPing counts a wake-up ping.
func (m *Metrics) IncPing(result string) {
	if m == nil {
		return
	}
	m.Pings.WithLabelValues(result).Inc()
}

// IncRollback counts a rolled back cart mutation.
func (m *Metrics) IncRollback(operation string) {
	if m == nil {
		return
	}
	m.CartRollbacks.WithLabelValues(operation).Inc()
}

// IncCheckoutState counts a checkout transition into state.
func (m *Metrics) IncCheckoutState(state string) {
	if m == nil {
		return
	}
	m.CheckoutSteps.WithLabelValues(state).Inc()
}
