// Package api contains the HTTP handlers for the workflow hub.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/atelier-ops/workflow-hub/internal/controller"
	"github.com/atelier-ops/workflow-hub/internal/gateway"
	"github.com/atelier-ops/workflow-hub/internal/workflow"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Server holds the dependencies for the API server.
type Server struct {
	Controller *controller.Controller
	Gateway    *gateway.Gateway
	Metrics    *Metrics
	Logger     Logger
}

// NewServer creates a new Server.
func NewServer(ctrl *controller.Controller, gw *gateway.Gateway, metrics *Metrics, logger Logger) *Server {
	return &Server{Controller: ctrl, Gateway: gw, Metrics: metrics, Logger: logger}
}

// RegisterRoutes mounts the entity routes on the (authenticated) API
// group and the webhook route on the bare echo instance: webhook
// callers authenticate by signature, not by bearer token.
func (s *Server) RegisterRoutes(e *echo.Echo, apiGroup *echo.Group) {
	e.GET("/healthz", s.HandleHealth)
	e.POST("/webhooks/:source", s.HandleWebhook)

	apiGroup.POST("/entities", s.CreateEntity)
	apiGroup.GET("/entities/:id", s.GetEntity)
	apiGroup.POST("/entities/:id/transition", s.RequestTransition)
	apiGroup.GET("/entities/:id/audit", s.GetAuditTrail)
	apiGroup.GET("/workflows", s.ListWorkflows)
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK).
func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "workflow-hub",
		Version:   "1.0.0",
	})
}

// errorBody is the structured error envelope for the transition
// request surface: a stable code plus a human-readable message.
type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Detail  map[string]any `json:"detail,omitempty"`
	} `json:"error"`
}

func newErrorBody(code, message string, detail map[string]any) errorBody {
	var b errorBody
	b.Error.Code = code
	b.Error.Message = message
	b.Error.Detail = detail
	return b
}

// statusForCode maps the stable workflow error codes to HTTP statuses.
func statusForCode(code workflow.Code) int {
	switch code {
	case workflow.CodeConflict:
		return http.StatusConflict
	case workflow.CodeActorNotPermitted:
		return http.StatusForbidden
	case workflow.CodeUnknownWorkflow, workflow.CodeUnknownState:
		return http.StatusBadRequest
	default:
		// NoSuchTransition, PreconditionFailed, InvalidCreationState,
		// WorkflowTerminated: well-formed requests the workflow rules
		// reject.
		return http.StatusUnprocessableEntity
	}
}
