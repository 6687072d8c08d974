package workflow

// Store holds the registered workflow definitions. It is built once at
// startup from configuration and immutable afterwards, so reads are
// safe under any number of concurrent transition requests without
// locking.
type Store struct {
	defs map[string]*compiled
}

type compiled struct {
	def      *Definition
	states   map[string]bool
	terminal map[string]bool
	// outgoing transitions indexed by source state
	outgoing map[string][]*Transition
}

// NewStore validates and indexes the given definitions. Any definition
// that fails its closed-set validation aborts startup.
func NewStore(defs []Definition) (*Store, error) {
	s := &Store{defs: make(map[string]*compiled, len(defs))}
	for i := range defs {
		d := &defs[i]
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.defs[d.Type]; dup {
			return nil, NewError(CodeUnknownWorkflow, "workflow type %q registered twice", d.Type)
		}
		c := &compiled{
			def:      d,
			states:   make(map[string]bool, len(d.States)),
			terminal: make(map[string]bool, len(d.Terminal)),
			outgoing: make(map[string][]*Transition),
		}
		for _, st := range d.States {
			c.states[st] = true
		}
		for _, st := range d.Terminal {
			c.terminal[st] = true
		}
		for j := range d.Transitions {
			t := &d.Transitions[j]
			c.outgoing[t.From] = append(c.outgoing[t.From], t)
		}
		s.defs[d.Type] = c
	}
	return s, nil
}

// Types returns the registered workflow type names.
func (s *Store) Types() []string {
	out := make([]string, 0, len(s.defs))
	for t := range s.defs {
		out = append(out, t)
	}
	return out
}

// Definition returns the full definition for a workflow type.
func (s *Store) Definition(workflowType string) (*Definition, error) {
	c, err := s.lookup(workflowType)
	if err != nil {
		return nil, err
	}
	return c.def, nil
}

// GetTransitions returns the outgoing transitions from a state. The
// result is empty for terminal states.
func (s *Store) GetTransitions(workflowType, fromState string) ([]*Transition, error) {
	c, err := s.lookup(workflowType)
	if err != nil {
		return nil, err
	}
	if !c.states[fromState] {
		return nil, NewError(CodeUnknownState, "state %q is not declared for workflow %q", fromState, workflowType)
	}
	return c.outgoing[fromState], nil
}

// IsTerminal reports whether the state is terminal for the workflow.
func (s *Store) IsTerminal(workflowType, state string) (bool, error) {
	c, err := s.lookup(workflowType)
	if err != nil {
		return false, err
	}
	if !c.states[state] {
		return false, NewError(CodeUnknownState, "state %q is not declared for workflow %q", state, workflowType)
	}
	return c.terminal[state], nil
}

// GetInitialState returns the designated initial state of the workflow.
func (s *Store) GetInitialState(workflowType string) (string, error) {
	c, err := s.lookup(workflowType)
	if err != nil {
		return "", err
	}
	return c.def.Initial, nil
}

// HasState reports whether the state is declared for the workflow.
func (s *Store) HasState(workflowType, state string) (bool, error) {
	c, err := s.lookup(workflowType)
	if err != nil {
		return false, err
	}
	return c.states[state], nil
}

func (s *Store) lookup(workflowType string) (*compiled, error) {
	c, ok := s.defs[workflowType]
	if !ok {
		return nil, NewError(CodeUnknownWorkflow, "workflow type %q is not registered", workflowType)
	}
	return c, nil
}
