package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelier-ops/workflow-hub/internal/gateway"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// HandleWebhook is the inbound trust boundary endpoint.
// (POST /webhooks/:source)
func (s *Server) HandleWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	source := c.Param("source")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	result, err := s.Gateway.Ingest(ctx, source, c.RealIP(), c.Request().Header.Get(SignatureHeader), body)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrUnknownSource), errors.Is(err, gateway.ErrAuthenticationFailed):
			s.Metrics.WebhookRejected(ctx, "authentication_failure")
			return c.JSON(http.StatusUnauthorized, map[string]any{
				"success": false, "error": "authentication failed",
			})
		case errors.Is(err, gateway.ErrRateLimited):
			s.Metrics.WebhookRejected(ctx, "rate_limited")
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"success": false, "error": "rate limit exceeded",
			})
		case errors.Is(err, gateway.ErrUnsupportedEvent):
			s.Metrics.WebhookRejected(ctx, "unsupported_event")
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false, "error": "unsupported event",
			})
		default:
			// Handler failures surface without internal detail.
			s.Metrics.WebhookRejected(ctx, "error")
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"success": false, "error": "event handling failed",
			})
		}
	}

	s.Metrics.WebhookAccepted(ctx)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}
