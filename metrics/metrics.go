// Package metrics provides Prometheus metrics for b2c-hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MethodCallsTotal counts dispatched method calls.
	MethodCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "b2chub",
			Name:      "method_calls_total",
			Help:      "Total number of method calls",
		},
		[]string{"method", "status"},
	)

	// MethodDuration measures method call duration.
	MethodDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "b2chub",
			Name:      "method_duration_seconds",
			Help:      "Duration of method calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// OperationsTotal counts completed asynchronous operations by outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "b2chub",
			Name:      "operations_total",
			Help:      "Total number of completed operations",
		},
		[]string{"source", "reason"},
	)

	// OperationDuration measures asynchronous operation duration.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "b2chub",
			Name:      "operation_duration_seconds",
			Help:      "Duration of asynchronous operations in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)

	// EventDeliveryErrorsTotal counts failed event deliveries per sink.
	EventDeliveryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "b2chub",
			Name:      "event_delivery_errors_total",
			Help:      "Total number of failed event deliveries",
		},
		[]string{"sink"},
	)

	// UnattributedAccountsTotal counts account records dropped for lack of a subject claim.
	UnattributedAccountsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "b2chub",
			Name:      "unattributed_accounts_total",
			Help:      "Total number of account records without a subject claim",
		},
	)

	// SignedInUsers tracks the number of users after the last account reload.
	SignedInUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "b2chub",
			Name:      "signed_in_users",
			Help:      "Number of users known after the last account reload",
		},
	)

	// EventSubscribers tracks open event stream subscriptions.
	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "b2chub",
			Name:      "event_subscribers",
			Help:      "Number of open event stream subscriptions",
		},
	)
)

// RecordMethodCall records a dispatched method call.
func RecordMethodCall(method, status string, duration float64) {
	MethodCallsTotal.WithLabelValues(method, status).Inc()
	MethodDuration.WithLabelValues(method).Observe(duration)
}

// RecordOperation records a completed asynchronous operation.
func RecordOperation(source, reason string, duration float64) {
	OperationsTotal.WithLabelValues(source, reason).Inc()
	OperationDuration.WithLabelValues(source).Observe(duration)
}

// RecordDeliveryError records a failed event delivery.
func RecordDeliveryError(sink string) {
	EventDeliveryErrorsTotal.WithLabelValues(sink).Inc()
}

// RecordAccountReload records the outcome of an account reload.
func RecordAccountReload(users, unattributed int) {
	SignedInUsers.Set(float64(users))
	if unattributed > 0 {
		UnattributedAccountsTotal.Add(float64(unattributed))
	}
}

// SubscriberAdded increments the subscriber gauge.
func SubscriberAdded() {
	EventSubscribers.Inc()
}

// SubscriberRemoved decrements the subscriber gauge.
func SubscriberRemoved() {
	EventSubscribers.Dec()
}
