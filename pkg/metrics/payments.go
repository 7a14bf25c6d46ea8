package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Webhook outcomes.
const (
	WebhookApplied   = "applied"
	WebhookUnchanged = "unchanged"
	WebhookIgnored   = "ignored"
	WebhookFailed    = "failed"
)

// PaymentMetrics counts payment creation and reconciliation outcomes per gateway.
type PaymentMetrics struct {
	created  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	webhooks *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "payments_created_total",
		Help:      "Payments accepted by the gateway.",
	}, []string{"gateway", "method"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "payments_gateway_failures_total",
		Help:      "Gateway calls that failed while creating a payment.",
	}, []string{"gateway"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "payment_reconciliations_total",
		Help:      "Reconciliation attempts by source and outcome.",
	}, []string{"gateway", "source", "result"})
	reg.MustRegister(created, failed, webhooks)
	return &PaymentMetrics{created: created, failed: failed, webhooks: webhooks}
}

func (m *PaymentMetrics) IncCreated(gateway, method string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(gateway), normalizeLabel(method)).Inc()
}

func (m *PaymentMetrics) IncGatewayFailure(gateway string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(gateway)).Inc()
}

// IncReconcile records one reconciliation. source is "webhook" or "sync".
func (m *PaymentMetrics) IncReconcile(gateway, source, result string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(gateway), normalizeLabel(source), normalizeLabel(result)).Inc()
}
