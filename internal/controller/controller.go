// Package controller implements the entity state controller: it
// orchestrates a single transition request end to end — load,
// validate, version-checked apply, audit, post-action dispatch.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/atelier-ops/workflow-hub/internal/notify"
	"github.com/atelier-ops/workflow-hub/internal/repository"
	"github.com/atelier-ops/workflow-hub/internal/workflow"
	"github.com/atelier-ops/workflow-hub/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// SyncPolicy controls how external system-of-record sync failures
// relate to transition finalization.
type SyncPolicy struct {
	// Blocking runs sync synchronously after the commit and reports
	// its failure to the caller. The applied transition is never
	// reverted either way.
	Blocking bool
}

// Controller owns the write path to entity state and audit records.
// All collaborators arrive by constructor injection; there are no
// ambient singletons.
type Controller struct {
	entities   repository.EntityStore
	audit      repository.AuditLog
	validator  *workflow.Validator
	defs       *workflow.Store
	dispatcher *notify.Dispatcher
	syncPolicy SyncPolicy
	logger     Logger
}

// New creates a Controller.
func New(entities repository.EntityStore, audit repository.AuditLog, defs *workflow.Store,
	dispatcher *notify.Dispatcher, syncPolicy SyncPolicy, logger Logger) *Controller {
	return &Controller{
		entities:   entities,
		audit:      audit,
		validator:  workflow.NewValidator(defs),
		defs:       defs,
		dispatcher: dispatcher,
		syncPolicy: syncPolicy,
		logger:     logger,
	}
}

// Create enters a new entity into a workflow. The creation path is
// validated like a transition with no source state: it is legal only
// into the workflow's initial state. An empty state requests the
// initial state explicitly.
func (c *Controller) Create(ctx context.Context, workflowType, state string, actor models.Actor, payload map[string]any) (*models.Entity, error) {
	correlationID := uuid.New().String()

	if state == "" {
		initial, err := c.defs.GetInitialState(workflowType)
		if err != nil {
			return nil, err
		}
		state = initial
	}

	if _, err := c.validator.Validate(workflowType, nil, state, actor, payload); err != nil {
		if werr, ok := workflow.AsError(err); ok {
			if auditErr := c.recordRejection(ctx, "", workflowType, nil, state, actor, werr, correlationID); auditErr != nil {
				return nil, auditErr
			}
		}
		return nil, err
	}

	entity := &models.Entity{
		ID:           uuid.New().String(),
		WorkflowType: workflowType,
		State:        state,
		Payload:      payload,
	}
	audit := &models.AuditRecord{
		ID:            uuid.New().String(),
		EntityID:      entity.ID,
		WorkflowType:  workflowType,
		FromState:     nil,
		ToState:       state,
		Actor:         actor.ID,
		Outcome:       models.AuditOutcomeApplied,
		CorrelationID: correlationID,
	}
	if err := c.entities.CreateEntity(ctx, entity, audit); err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}

	c.logger.Info("entity created",
		"entity_id", entity.ID, "workflow_type", workflowType,
		"state", state, "actor", actor.ID, "correlation_id", correlationID)
	return entity, nil
}

// Transition advances one entity by one edge. Denials are audited and
// returned as *workflow.Error; a lost optimistic-concurrency race
// returns the Conflict code and the caller may retry from a fresh
// read. Post-transition actions run after the commit and never affect
// the outcome, except external sync under the blocking policy, whose
// failure is reported but does not revert the applied state.
func (c *Controller) Transition(ctx context.Context, entityID, toState string, actor models.Actor, trigger string) (*models.Entity, error) {
	correlationID := uuid.New().String()

	entity, err := c.entities.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	fromState := entity.State
	expectedVersion := entity.Version

	matched, err := c.validator.Validate(entity.WorkflowType, &fromState, toState, actor, entity.Payload)
	if err != nil {
		if werr, ok := workflow.AsError(err); ok {
			if auditErr := c.recordRejection(ctx, entityID, entity.WorkflowType, &fromState, toState, actor, werr, correlationID); auditErr != nil {
				return nil, auditErr
			}
		}
		return nil, err
	}

	var audit *models.AuditRecord
	if !matched.NoAudit {
		audit = &models.AuditRecord{
			ID:            uuid.New().String(),
			EntityID:      entityID,
			WorkflowType:  entity.WorkflowType,
			FromState:     &fromState,
			ToState:       toState,
			Actor:         actor.ID,
			Outcome:       models.AuditOutcomeApplied,
			CorrelationID: correlationID,
		}
	}

	updated, err := c.entities.ApplyTransition(ctx, entityID, toState, expectedVersion, audit)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, workflow.NewError(workflow.CodeConflict,
				"entity %s changed concurrently, re-read and retry", entityID)
		}
		return nil, fmt.Errorf("apply transition: %w", err)
	}

	c.logger.Info("transition applied",
		"entity_id", entityID, "workflow_type", entity.WorkflowType,
		"from", fromState, "to", toState, "trigger", trigger,
		"actor", actor.ID, "version", updated.Version, "correlation_id", correlationID)

	if err := c.runPostActions(ctx, updated, matched); err != nil {
		return updated, err
	}
	return updated, nil
}

// runPostActions dispatches notifications and external sync for an
// applied transition. The transition is already durable at this point.
func (c *Controller) runPostActions(ctx context.Context, entity *models.Entity, t *workflow.Transition) error {
	var extraNotify []string
	var syncTargets []string
	for _, a := range t.ParsedActions() {
		switch a.Kind {
		case workflow.ActionNotify:
			extraNotify = append(extraNotify, a.Target)
		case workflow.ActionSync:
			syncTargets = append(syncTargets, a.Target)
		}
	}

	c.dispatcher.Fanout(entity.ID, entity.WorkflowType, entity.State, entity.Payload, extraNotify)

	n := notify.Notification{
		EntityID:     entity.ID,
		WorkflowType: entity.WorkflowType,
		NewState:     entity.State,
		Payload:      entity.Payload,
	}
	for _, target := range syncTargets {
		if c.syncPolicy.Blocking {
			if err := c.dispatcher.DeliverSync(ctx, target, n); err != nil {
				c.logger.Error("external sync failed",
					"entity_id", entity.ID, "target", target, "error", err)
				return fmt.Errorf("transition applied but external sync failed: %w", err)
			}
		} else {
			c.dispatcher.DispatchTo(target, n)
		}
	}
	return nil
}

// AuditTrail returns the audit records for one entity, oldest first.
func (c *Controller) AuditTrail(ctx context.Context, entityID string) ([]*models.AuditRecord, error) {
	if _, err := c.entities.GetEntity(ctx, entityID); err != nil {
		return nil, err
	}
	return c.audit.ListByEntity(ctx, entityID)
}

// Get loads one entity.
func (c *Controller) Get(ctx context.Context, entityID string) (*models.Entity, error) {
	return c.entities.GetEntity(ctx, entityID)
}

// Definitions exposes the read-only workflow definition store.
func (c *Controller) Definitions() *workflow.Store {
	return c.defs
}

// recordRejection writes the audit record for a denied attempt. An
// audit write failure is fatal to the enclosing request: the denial
// must not be reported without its durable trace.
func (c *Controller) recordRejection(ctx context.Context, entityID, workflowType string, fromState *string, toState string, actor models.Actor, denial *workflow.Error, correlationID string) error {
	reason := string(denial.Code)
	rec := &models.AuditRecord{
		ID:            uuid.New().String(),
		EntityID:      entityID,
		WorkflowType:  workflowType,
		FromState:     fromState,
		ToState:       toState,
		Actor:         actor.ID,
		Outcome:       models.AuditOutcomeRejected,
		Reason:        &reason,
		CorrelationID: correlationID,
	}
	if err := c.audit.Record(ctx, rec); err != nil {
		return fmt.Errorf("audit rejected transition: %w", err)
	}
	return nil
}
