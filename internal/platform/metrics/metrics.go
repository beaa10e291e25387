package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RequestsCreated   prometheus.Counter
	RequestsConfirmed prometheus.Counter
	RequestsExpired   prometheus.Counter
	RequestsViewed    prometheus.Counter

	DeliveriesAttempted prometheus.Counter
	DeliveriesFailed    prometheus.Counter
}

// New creates all metrics and registers them on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// prometheus.NewRegistry so repeated construction never collides.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "certiva_verification_requests_created_total",
			Help: "Total number of verification requests created",
		}),
		RequestsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "certiva_verification_requests_confirmed_total",
			Help: "Total number of verification requests confirmed by owners",
		}),
		RequestsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "certiva_verification_requests_expired_total",
			Help: "Total number of verification requests transitioned to expired",
		}),
		RequestsViewed: factory.NewCounter(prometheus.CounterOpts{
			Name: "certiva_verification_requests_viewed_total",
			Help: "Total number of successful certificate views",
		}),
		DeliveriesAttempted: factory.NewCounter(prometheus.CounterOpts{
			Name: "certiva_otp_deliveries_attempted_total",
			Help: "Total number of OTP delivery attempts",
		}),
		DeliveriesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "certiva_otp_deliveries_failed_total",
			Help: "Total number of failed OTP delivery attempts",
		}),
	}
}
