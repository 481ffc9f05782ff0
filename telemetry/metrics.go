// Package telemetry provides Prometheus metrics, OpenTelemetry tracing setup,
// and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	TokenRefreshes    prometheus.Counter
	TokenGrantsFailed prometheus.Counter
	BookingsStarted   prometheus.Counter
	BookingsConfirmed prometheus.Counter
	BookingsFailed    prometheus.Counter
	Cancellations     prometheus.Counter
	ValidationRejects prometheus.Counter

	// Histograms (seconds), labeled by Joan operation
	InventoryCallDuration *prometheus.HistogramVec

	// Gauges
	OpenDraftsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		TokenRefreshes = promauto.NewCounter(prometheus.CounterOpts{Name: "roomboard_token_refreshes_total", Help: "Number of successful client-credentials grants"})
		TokenGrantsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "roomboard_token_grants_failed_total", Help: "Number of failed client-credentials grants"})
		BookingsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "roomboard_bookings_started_total", Help: "Number of booking drafts created"})
		BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{Name: "roomboard_bookings_confirmed_total", Help: "Number of bookings confirmed by Joan"})
		BookingsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "roomboard_bookings_failed_total", Help: "Number of bookings that ended in FAILED"})
		Cancellations = promauto.NewCounter(prometheus.CounterOpts{Name: "roomboard_cancellations_total", Help: "Number of reservation cancellations issued"})
		ValidationRejects = promauto.NewCounter(prometheus.CounterOpts{Name: "roomboard_validation_rejects_total", Help: "Number of booking submissions rejected on field validation"})
		InventoryCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "roomboard_inventory_call_duration_seconds", Help: "Joan API call duration seconds", Buckets: prometheus.DefBuckets}, []string{"op"})
		OpenDraftsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "roomboard_open_drafts", Help: "Booking drafts currently retained (expired entries included until swept)"})
	})
}

// IncTokenRefreshed counts a successful grant (no-op before Init).
func IncTokenRefreshed() {
	if TokenRefreshes != nil {
		TokenRefreshes.Inc()
	}
}

// IncTokenGrantFailed counts a failed grant (no-op before Init).
func IncTokenGrantFailed() {
	if TokenGrantsFailed != nil {
		TokenGrantsFailed.Inc()
	}
}

// ObserveInventoryCall records the duration of a Joan API call (no-op before Init).
func ObserveInventoryCall(op string, d time.Duration) {
	if InventoryCallDuration != nil {
		InventoryCallDuration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// SetOpenDrafts records the current draft store size.
func SetOpenDrafts(n int) {
	if OpenDraftsGauge != nil {
		OpenDraftsGauge.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
