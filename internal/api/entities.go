package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atelier-ops/workflow-hub/internal/auth"
	"github.com/atelier-ops/workflow-hub/internal/repository"
	"github.com/atelier-ops/workflow-hub/internal/workflow"
	"github.com/atelier-ops/workflow-hub/pkg/models"
)

// CreateEntity enters a new business record into a workflow.
// (POST /api/v1/entities)
func (s *Server) CreateEntity(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "actor not resolved")
	}

	var req struct {
		WorkflowType string         `json:"workflow_type"`
		State        string         `json:"state"`
		Payload      map[string]any `json:"payload"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.WorkflowType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "workflow_type is required")
	}

	entity, err := s.Controller.Create(ctx, req.WorkflowType, req.State, actor, req.Payload)
	if err != nil {
		return s.transitionError(c, err)
	}
	s.Metrics.TransitionApplied(ctx)
	return c.JSON(http.StatusCreated, entity)
}

// GetEntity returns one entity with its current state and version.
// (GET /api/v1/entities/:id)
func (s *Server) GetEntity(c echo.Context) error {
	entity, err := s.Controller.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "entity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load entity")
	}
	return c.JSON(http.StatusOK, entity)
}

// RequestTransition advances an entity by one workflow edge.
// (POST /api/v1/entities/:id/transition)
func (s *Server) RequestTransition(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "actor not resolved")
	}

	var req struct {
		ToState      string `json:"to_state"`
		TriggerEvent string `json:"trigger_event"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.ToState == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "to_state is required")
	}

	entity, err := s.Controller.Transition(ctx, c.Param("id"), req.ToState, actor, req.TriggerEvent)
	if err != nil {
		return s.transitionError(c, err)
	}

	s.Metrics.TransitionApplied(ctx)
	return c.JSON(http.StatusOK, map[string]any{
		"state":   entity.State,
		"version": entity.Version,
	})
}

// GetAuditTrail lists the audit records for one entity, oldest first.
// (GET /api/v1/entities/:id/audit)
func (s *Server) GetAuditTrail(c echo.Context) error {
	records, err := s.Controller.AuditTrail(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "entity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load audit trail")
	}
	if records == nil {
		records = []*models.AuditRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// ListWorkflows returns the registered workflow definitions.
// (GET /api/v1/workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	store := s.Controller.Definitions()
	out := make([]*workflow.Definition, 0)
	for _, t := range store.Types() {
		def, err := store.Definition(t)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to load definitions")
		}
		out = append(out, def)
	}
	return c.JSON(http.StatusOK, out)
}

// transitionError renders controller failures: stable codes for
// validation denials and conflicts, a sanitized generic message for
// anything internal.
func (s *Server) transitionError(c echo.Context, err error) error {
	ctx := c.Request().Context()
	if errors.Is(err, repository.ErrEntityNotFound) {
		return c.JSON(http.StatusNotFound, newErrorBody("NotFound", "entity not found", nil))
	}
	if werr, ok := workflow.AsError(err); ok {
		s.Metrics.TransitionRejected(ctx, string(werr.Code))
		return c.JSON(statusForCode(werr.Code), newErrorBody(string(werr.Code), werr.Message, werr.Detail))
	}
	s.Logger.Error("transition request failed", "error", err)
	s.Metrics.TransitionRejected(ctx, "Internal")
	return c.JSON(http.StatusInternalServerError, newErrorBody("Internal", "internal error", nil))
}
