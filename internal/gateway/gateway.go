// Package gateway is the inbound trust boundary: it authenticates
// signed webhook events, applies per-source rate limiting, logs every
// attempt, and routes authenticated events to the registered handler.
package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/atelier-ops/workflow-hub/internal/repository"
	"github.com/atelier-ops/workflow-hub/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Rejection reasons surfaced to the HTTP layer. Handler failures are
// deliberately not among them: internal error detail never crosses the
// trust boundary.
var (
	ErrUnknownSource        = errors.New("unknown webhook source")
	ErrAuthenticationFailed = errors.New("webhook authentication failed")
	ErrRateLimited          = errors.New("webhook rate limited")
	ErrUnsupportedEvent     = errors.New("unsupported webhook event")
	ErrHandlerFailed        = errors.New("webhook handler failed")
)

// SecretSource resolves the shared secret for a webhook source.
type SecretSource interface {
	Secret(source string) (string, bool)
}

// Event is an authenticated, admitted webhook event handed to a handler.
type Event struct {
	Source  string          `json:"source"`
	Type    string          `json:"event_type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes one admitted event for a (source, event type) pair.
type Handler func(ctx context.Context, event Event) (any, error)

// Gateway authenticates and routes inbound webhook events. Events pass
// the gates in order: signature, rate limit, routing; no event
// proceeds past a failed gate, and every attempt leaves exactly one
// log record.
type Gateway struct {
	secrets  SecretSource
	limits   *limiterPool
	handlers map[string]Handler
	log      repository.WebhookLog
	logger   Logger
}

// New creates a Gateway. rates carries the per-source rate limits.
func New(secrets SecretSource, rates map[string]SourceLimit, log repository.WebhookLog, logger Logger) *Gateway {
	return &Gateway{
		secrets:  secrets,
		limits:   newLimiterPool(rates),
		handlers: make(map[string]Handler),
		log:      log,
		logger:   logger,
	}
}

// Register installs the handler for a (source, event type) pair.
func (g *Gateway) Register(source, eventType string, h Handler) {
	g.handlers[source+"\x00"+eventType] = h
}

// Ingest runs one inbound attempt through the gates. signature is the
// value of the signature header; caller identifies the remote peer for
// rate limiting. The returned result is handler output on success; the
// returned error is one of the exported rejection reasons.
func (g *Gateway) Ingest(ctx context.Context, source, caller, signature string, body []byte) (any, error) {
	secret, ok := g.secrets.Secret(source)
	if !ok {
		g.record(ctx, source, "", caller, body, models.WebhookOutcomeAuthFailure, "no secret configured for source")
		return nil, ErrUnknownSource
	}

	if !VerifySignature(secret, signature, body) {
		g.record(ctx, source, "", caller, body, models.WebhookOutcomeAuthFailure, "signature missing or mismatched")
		return nil, ErrAuthenticationFailed
	}

	if !g.limits.Allow(source, caller) {
		g.record(ctx, source, "", caller, body, models.WebhookOutcomeRateLimited, "")
		return nil, ErrRateLimited
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil || event.Type == "" {
		g.record(ctx, source, event.Type, caller, body, models.WebhookOutcomeUnsupported, "body missing event_type")
		return nil, ErrUnsupportedEvent
	}
	event.Source = source

	h, ok := g.handlers[source+"\x00"+event.Type]
	if !ok {
		g.record(ctx, source, event.Type, caller, body, models.WebhookOutcomeUnsupported,
			"no handler for event type")
		return nil, ErrUnsupportedEvent
	}

	result, err := h(ctx, event)
	if err != nil {
		// The full error stays in the log; the caller only learns that
		// handling failed.
		g.record(ctx, source, event.Type, caller, body, models.WebhookOutcomeError, err.Error())
		return nil, ErrHandlerFailed
	}

	g.record(ctx, source, event.Type, caller, body, models.WebhookOutcomeSuccess, "")
	return result, nil
}

func (g *Gateway) record(ctx context.Context, source, eventType, caller string, body []byte, outcome models.WebhookOutcome, detail string) {
	rec := &models.WebhookLogRecord{
		ID:            uuid.New().String(),
		Source:        source,
		EventType:     eventType,
		Caller:        caller,
		Outcome:       outcome,
		PayloadDigest: payloadDigest(body),
	}
	if detail != "" {
		rec.Detail = &detail
	}
	if err := g.log.Record(ctx, rec); err != nil {
		g.logger.Error("failed to write webhook log record",
			"source", source, "outcome", outcome, "error", err)
	}
}
