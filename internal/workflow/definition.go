// Package workflow holds the workflow definitions, the definition
// store, and the transition validator. Definitions are configuration
// data: loaded once at startup, validated against closed sets, and
// never mutated by entity traffic.
package workflow

import (
	"fmt"
	"strings"

	"github.com/atelier-ops/workflow-hub/pkg/models"
)

// ActionKind enumerates the post-transition directives a transition may
// declare. Unknown kinds are rejected at configuration load.
type ActionKind string

const (
	// ActionNotify delivers a change notification to the named collaborator.
	ActionNotify ActionKind = "notify"
	// ActionSync pushes the entity to the external system of record.
	ActionSync ActionKind = "sync"
)

// Action is a parsed post-transition directive such as
// "notify:gallery-team" or "sync:external".
type Action struct {
	Kind   ActionKind
	Target string
}

// ParseAction parses a "kind:target" directive string.
func ParseAction(s string) (Action, error) {
	kind, target, found := strings.Cut(s, ":")
	if !found || kind == "" || target == "" {
		return Action{}, fmt.Errorf("malformed action %q, want kind:target", s)
	}
	switch ActionKind(kind) {
	case ActionNotify, ActionSync:
		return Action{Kind: ActionKind(kind), Target: target}, nil
	default:
		return Action{}, fmt.Errorf("unknown action kind %q in %q", kind, s)
	}
}

// PredicateOp enumerates the comparison operators a precondition may use.
type PredicateOp string

const (
	OpEquals    PredicateOp = "eq"
	OpNotEquals PredicateOp = "ne"
	OpExists    PredicateOp = "exists"
)

// Predicate is a structured precondition evaluated against the entity
// payload snapshot at validation time. Field addresses a top-level
// payload key.
type Predicate struct {
	Field string      `mapstructure:"field" json:"field"`
	Op    PredicateOp `mapstructure:"op" json:"op"`
	Value any         `mapstructure:"value" json:"value,omitempty"`
}

// Evaluate runs the predicate against an entity payload snapshot. A
// false result comes with a machine-readable detail map for the denial.
func (p *Predicate) Evaluate(payload map[string]any) (bool, map[string]any) {
	detail := map[string]any{"field": p.Field, "op": string(p.Op)}
	got, present := payload[p.Field]
	switch p.Op {
	case OpExists:
		if present && got != nil {
			return true, nil
		}
	case OpEquals:
		if present && fmt.Sprint(got) == fmt.Sprint(p.Value) {
			return true, nil
		}
		detail["want"] = p.Value
		detail["got"] = got
	case OpNotEquals:
		if !present || fmt.Sprint(got) != fmt.Sprint(p.Value) {
			return true, nil
		}
		detail["reject"] = p.Value
	}
	return false, detail
}

// Transition is a declared, directed edge between two states of one
// workflow definition.
type Transition struct {
	From         string     `mapstructure:"from" json:"from"`
	To           string     `mapstructure:"to" json:"to"`
	Trigger      string     `mapstructure:"trigger" json:"trigger"`
	Roles        []string   `mapstructure:"roles" json:"roles,omitempty"`
	Precondition *Predicate `mapstructure:"precondition" json:"precondition,omitempty"`
	Actions      []string   `mapstructure:"actions" json:"actions,omitempty"`
	// NoAudit suppresses the audit write for this edge. Auditing is
	// mandatory by default; opting out is an explicit per-edge choice.
	NoAudit bool `mapstructure:"no_audit" json:"no_audit,omitempty"`

	parsedActions []Action
}

// ParsedActions returns the post-transition directives, parsed and
// validated at definition load.
func (t *Transition) ParsedActions() []Action {
	return t.parsedActions
}

// Permits reports whether the actor may take this transition. An empty
// role set means the edge is open to any verified actor. An actor is
// permitted either by role or by explicit identity.
func (t *Transition) Permits(actor models.Actor) bool {
	if len(t.Roles) == 0 {
		return true
	}
	for _, r := range t.Roles {
		if r == actor.ID || actor.HasRole(r) {
			return true
		}
	}
	return false
}

// Definition declares one workflow type: its state set, initial state,
// terminal states, and the directed graph of allowed transitions.
type Definition struct {
	Type        string       `mapstructure:"type" json:"type"`
	Initial     string       `mapstructure:"initial" json:"initial"`
	States      []string     `mapstructure:"states" json:"states"`
	Terminal    []string     `mapstructure:"terminal" json:"terminal,omitempty"`
	Transitions []Transition `mapstructure:"transitions" json:"transitions"`
}

// validate checks the definition against its own closed sets: every
// referenced state must be declared, the initial state must exist, and
// terminal states must have no outgoing edges.
func (d *Definition) validate() error {
	if d.Type == "" {
		return fmt.Errorf("workflow definition missing type")
	}
	if len(d.States) == 0 {
		return fmt.Errorf("workflow %q declares no states", d.Type)
	}
	declared := make(map[string]bool, len(d.States))
	for _, s := range d.States {
		if declared[s] {
			return fmt.Errorf("workflow %q declares state %q twice", d.Type, s)
		}
		declared[s] = true
	}
	if !declared[d.Initial] {
		return fmt.Errorf("workflow %q initial state %q is not declared", d.Type, d.Initial)
	}
	terminal := make(map[string]bool, len(d.Terminal))
	for _, s := range d.Terminal {
		if !declared[s] {
			return fmt.Errorf("workflow %q terminal state %q is not declared", d.Type, s)
		}
		terminal[s] = true
	}
	seen := make(map[string]bool)
	for i := range d.Transitions {
		t := &d.Transitions[i]
		if !declared[t.From] {
			return fmt.Errorf("workflow %q transition from undeclared state %q", d.Type, t.From)
		}
		if !declared[t.To] {
			return fmt.Errorf("workflow %q transition to undeclared state %q", d.Type, t.To)
		}
		if terminal[t.From] {
			return fmt.Errorf("workflow %q has outgoing transition from terminal state %q", d.Type, t.From)
		}
		edge := t.From + "\x00" + t.To
		if seen[edge] {
			return fmt.Errorf("workflow %q declares edge %s -> %s twice", d.Type, t.From, t.To)
		}
		seen[edge] = true
		if t.Trigger == "" {
			return fmt.Errorf("workflow %q edge %s -> %s missing trigger", d.Type, t.From, t.To)
		}
		t.parsedActions = t.parsedActions[:0]
		for _, raw := range t.Actions {
			a, err := ParseAction(raw)
			if err != nil {
				return fmt.Errorf("workflow %q edge %s -> %s: %w", d.Type, t.From, t.To, err)
			}
			t.parsedActions = append(t.parsedActions, a)
		}
	}
	return nil
}
