package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// OrderMetrics tracks checkout volume and admin status moves.
type OrderMetrics struct {
	placed      prometheus.Counter
	amount      prometheus.Histogram
	transitions *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders created from carts.",
	})
	amount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_amount",
		Help:    "Order totals including tax.",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000},
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status changes applied by admins.",
	}, []string{"from", "to"})
	reg.MustRegister(placed, amount, transitions)
	return &OrderMetrics{placed: placed, amount: amount, transitions: transitions}
}

func (m *OrderMetrics) OrderPlaced(total decimal.Decimal) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.Inc()
	m.amount.Observe(total.InexactFloat64())
}

func (m *OrderMetrics) StatusChanged(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// Result labels shared by the notification and outbox counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDropped = "dropped"
)

// NotificationMetrics counts customer email sends by outcome.
type NotificationMetrics struct {
	sends *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	sends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_sends_total",
		Help: "Order status notifications by result.",
	}, []string{"result"})
	reg.MustRegister(sends)
	return &NotificationMetrics{sends: sends}
}

func (m *NotificationMetrics) Inc(result string) {
	if m == nil || m.sends == nil {
		return
	}
	m.sends.WithLabelValues(normalizeLabel(result)).Inc()
}

// OutboxMetrics counts publish attempts per event type.
type OutboxMetrics struct {
	publishes *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox publish attempts by event type and result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(publishes)
	return &OutboxMetrics{publishes: publishes}
}

func (m *OutboxMetrics) Inc(eventType, result string) {
	if m == nil || m.publishes == nil {
		return
	}
	m.publishes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
