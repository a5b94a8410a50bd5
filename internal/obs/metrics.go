package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the counters and gauges the session updates while
// running. All methods are nil-safe so wiring stays optional in tests.
type Metrics struct {
	registry *prometheus.Registry

	notifications *prometheus.CounterVec
	droppedStatus prometheus.Counter
	waitTimeouts  *prometheus.CounterVec
	orders        *prometheus.CounterVec
	breakouts     *prometheus.CounterVec
	tickSeconds   prometheus.Histogram
	openRangeLow  prometheus.Gauge
	openRangeHigh prometheus.Gauge
	positionQty   prometheus.Gauge
}

// NewMetrics allocates and registers the metric set on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_notifications_total",
				Help: "Gateway notifications received, by kind",
			},
			[]string{"kind"},
		),
		droppedStatus: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orb_status_dropped_total",
				Help: "Order-status records dropped because the queue was full",
			},
		),
		waitTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_wait_timeouts_total",
				Help: "Bridge waits that elapsed before the terminal notification",
			},
			[]string{"gate"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_orders_total",
				Help: "Orders attempted, by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		breakouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_breakouts_total",
				Help: "Opening-range breakouts detected, by side",
			},
			[]string{"side"},
		),
		tickSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "orb_tick_seconds",
				Help:    "Wall time spent inside one scheduling tick",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		openRangeLow: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "orb_open_range_low",
				Help: "Buffered opening-range low for the session",
			},
		),
		openRangeHigh: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "orb_open_range_high",
				Help: "Buffered opening-range high for the session",
			},
		),
		positionQty: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "orb_position_qty",
				Help: "Last reconciled signed position quantity",
			},
		),
	}
	m.registry.MustRegister(
		m.notifications, m.droppedStatus, m.waitTimeouts, m.orders,
		m.breakouts, m.tickSeconds, m.openRangeLow, m.openRangeHigh,
		m.positionQty,
	)
	return m
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncNotification counts one received notification.
func (m *Metrics) IncNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// IncDroppedStatus counts a dropped order-status record.
func (m *Metrics) IncDroppedStatus() {
	if m == nil {
		return
	}
	m.droppedStatus.Inc()
}

// IncWaitTimeout counts an elapsed bridge wait.
func (m *Metrics) IncWaitTimeout(gate string) {
	if m == nil {
		return
	}
	m.waitTimeouts.WithLabelValues(gate).Inc()
}

// IncOrder counts an order attempt outcome.
func (m *Metrics) IncOrder(action, outcome string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(action, outcome).Inc()
}

// IncBreakout counts a detected breakout.
func (m *Metrics) IncBreakout(side string) {
	if m == nil {
		return
	}
	m.breakouts.WithLabelValues(side).Inc()
}

// ObserveTick records the duration of one scheduling tick in seconds.
func (m *Metrics) ObserveTick(seconds float64) {
	if m == nil {
		return
	}
	m.tickSeconds.Observe(seconds)
}

// SetOpenRange publishes the buffered opening range.
func (m *Metrics) SetOpenRange(low, high float64) {
	if m == nil {
		return
	}
	m.openRangeLow.Set(low)
	m.openRangeHigh.Set(high)
}

// SetPositionQty publishes the last reconciled position quantity.
func (m *Metrics) SetPositionQty(qty float64) {
	if m == nil {
		return
	}
	m.positionQty.Set(qty)
}
