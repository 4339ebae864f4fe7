package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics tracks storefront side effects that only show up in logs otherwise.
type StoreMetrics struct {
	ordersPlaced  *prometheus.CounterVec
	stockFailures prometheus.Counter
	schemaRetries prometheus.Counter
	reports       *prometheus.CounterVec
	geocodeMisses prometheus.Counter
}

// NewStoreMetrics registers the storefront counters on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	m := &StoreMetrics{
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders created through checkout, by payment method.",
		}, []string{"payment_method"}),
		stockFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stock_decrement_failures_total",
			Help: "Best-effort stock decrements that failed after an order was placed.",
		}),
		schemaRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_legacy_column_retries_total",
			Help: "Order inserts retried without the legacy total_price column.",
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marble_reports_submitted_total",
			Help: "Marble waste reports submitted, by entry point.",
		}, []string{"entry"}),
		geocodeMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geocode_failures_total",
			Help: "Reverse geocoding lookups that fell back to raw coordinates.",
		}),
	}
	reg.MustRegister(m.ordersPlaced, m.stockFailures, m.schemaRetries, m.reports, m.geocodeMisses)
	return m
}

func (m *StoreMetrics) OrderPlaced(paymentMethod string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *StoreMetrics) StockDecrementFailed() {
	if m == nil || m.stockFailures == nil {
		return
	}
	m.stockFailures.Inc()
}

func (m *StoreMetrics) LegacyColumnRetry() {
	if m == nil || m.schemaRetries == nil {
		return
	}
	m.schemaRetries.Inc()
}

func (m *StoreMetrics) ReportSubmitted(entry string) {
	if m == nil || m.reports == nil {
		return
	}
	m.reports.WithLabelValues(normalizeLabel(entry)).Inc()
}

func (m *StoreMetrics) GeocodeFailed() {
	if m == nil || m.geocodeMisses == nil {
		return
	}
	m.geocodeMisses.Inc()
}
