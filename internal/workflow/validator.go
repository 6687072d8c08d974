package workflow

import (
	"github.com/atelier-ops/workflow-hub/pkg/models"
)

// Validator is the pure transition decision function. It holds no
// mutable state; concurrent calls are safe.
type Validator struct {
	store *Store
}

// NewValidator creates a Validator over the given definition store.
func NewValidator(store *Store) *Validator {
	return &Validator{store: store}
}

// Validate decides whether the requested transition is legal. A nil
// fromState marks the creation path, which is legal only into the
// workflow's initial state. On allow it returns the matched transition
// so the caller can dispatch its post-actions; creation returns a nil
// transition. On deny it returns a *Error with a stable code.
func (v *Validator) Validate(workflowType string, fromState *string, toState string, actor models.Actor, payload map[string]any) (*Transition, error) {
	if fromState == nil {
		initial, err := v.store.GetInitialState(workflowType)
		if err != nil {
			return nil, err
		}
		if toState != initial {
			return nil, NewError(CodeInvalidCreationState,
				"workflow %q entities must be created in state %q, not %q", workflowType, initial, toState)
		}
		return nil, nil
	}

	if ok, err := v.store.HasState(workflowType, toState); err != nil {
		return nil, err
	} else if !ok {
		return nil, NewError(CodeUnknownState, "state %q is not declared for workflow %q", toState, workflowType)
	}

	terminal, err := v.store.IsTerminal(workflowType, *fromState)
	if err != nil {
		return nil, err
	}
	if terminal {
		return nil, NewError(CodeWorkflowTerminated,
			"workflow %q entity is terminated in state %q", workflowType, *fromState)
	}

	transitions, err := v.store.GetTransitions(workflowType, *fromState)
	if err != nil {
		return nil, err
	}
	var match *Transition
	for _, t := range transitions {
		if t.To == toState {
			match = t
			break
		}
	}
	if match == nil {
		return nil, NewError(CodeNoSuchTransition,
			"no transition from %q to %q in workflow %q", *fromState, toState, workflowType)
	}

	if !match.Permits(actor) {
		return nil, NewError(CodeActorNotPermitted,
			"actor %q may not take %s -> %s in workflow %q", actor.ID, *fromState, toState, workflowType)
	}

	if match.Precondition != nil {
		ok, detail := match.Precondition.Evaluate(payload)
		if !ok {
			e := NewError(CodePreconditionFailed,
				"precondition on %s -> %s failed for field %q", *fromState, toState, match.Precondition.Field)
			e.Detail = detail
			return nil, e
		}
	}

	return match, nil
}
