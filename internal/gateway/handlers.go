package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atelier-ops/workflow-hub/pkg/models"
)

// TransitionService is the slice of the entity state controller the
// webhook handlers need.
type TransitionService interface {
	Create(ctx context.Context, workflowType, state string, actor models.Actor, payload map[string]any) (*models.Entity, error)
	Transition(ctx context.Context, entityID, toState string, actor models.Actor, trigger string) (*models.Entity, error)
}

// Standard event types external sources may deliver.
const (
	EventEntityCreate     = "entity.create"
	EventEntityTransition = "entity.transition"
)

// sourceActor is the verified identity a source's events act as. The
// signature check already proved possession of the source secret, so
// the actor is derived from the source name, never from the payload.
func sourceActor(source string) models.Actor {
	return models.Actor{ID: "webhook:" + source, Roles: []string{"integration"}}
}

// RegisterEntityHandlers installs the standard entity event handlers
// for each configured source.
func RegisterEntityHandlers(g *Gateway, svc TransitionService, sources []string) {
	for _, source := range sources {
		g.Register(source, EventEntityCreate, EntityCreateHandler(svc, source))
		g.Register(source, EventEntityTransition, EntityTransitionHandler(svc, source))
	}
}

// EntityCreateHandler enters a new entity into a workflow on behalf of
// the source.
func EntityCreateHandler(svc TransitionService, source string) Handler {
	return func(ctx context.Context, event Event) (any, error) {
		var p struct {
			WorkflowType string         `json:"workflow_type"`
			State        string         `json:"state"`
			Payload      map[string]any `json:"payload"`
		}
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", event.Type, err)
		}
		if p.WorkflowType == "" {
			return nil, fmt.Errorf("%s payload missing workflow_type", event.Type)
		}
		entity, err := svc.Create(ctx, p.WorkflowType, p.State, sourceActor(source), p.Payload)
		if err != nil {
			return nil, err
		}
		return map[string]any{"entity_id": entity.ID, "state": entity.State, "version": entity.Version}, nil
	}
}

// EntityTransitionHandler advances an entity on behalf of the source.
func EntityTransitionHandler(svc TransitionService, source string) Handler {
	return func(ctx context.Context, event Event) (any, error) {
		var p struct {
			EntityID     string `json:"entity_id"`
			ToState      string `json:"to_state"`
			TriggerEvent string `json:"trigger_event"`
		}
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", event.Type, err)
		}
		if p.EntityID == "" || p.ToState == "" {
			return nil, fmt.Errorf("%s payload missing entity_id or to_state", event.Type)
		}
		entity, err := svc.Transition(ctx, p.EntityID, p.ToState, sourceActor(source), p.TriggerEvent)
		if err != nil {
			return nil, err
		}
		return map[string]any{"entity_id": entity.ID, "state": entity.State, "version": entity.Version}, nil
	}
}
