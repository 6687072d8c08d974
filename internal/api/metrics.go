package api

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the request-level counters for the hub.
type Metrics struct {
	transitions metric.Int64Counter
	webhooks    metric.Int64Counter
}

// NewMetrics registers the counters on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/atelier-ops/workflow-hub/internal/api")

	transitions, err := meter.Int64Counter("workflowhub.transitions",
		metric.WithDescription("Transition requests by outcome"))
	if err != nil {
		return nil, err
	}
	webhooks, err := meter.Int64Counter("workflowhub.webhook.requests",
		metric.WithDescription("Inbound webhook requests by outcome"))
	if err != nil {
		return nil, err
	}
	return &Metrics{transitions: transitions, webhooks: webhooks}, nil
}

// TransitionApplied counts one applied transition.
func (m *Metrics) TransitionApplied(ctx context.Context) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "applied")))
}

// TransitionRejected counts one rejected transition with its code.
func (m *Metrics) TransitionRejected(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", "rejected"),
		attribute.String("code", code)))
}

// WebhookAccepted counts one successfully handled webhook.
func (m *Metrics) WebhookAccepted(ctx context.Context) {
	if m == nil {
		return
	}
	m.webhooks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))
}

// WebhookRejected counts one rejected webhook with its gate outcome.
func (m *Metrics) WebhookRejected(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.webhooks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
