// lifecycle/machine.go
package lifecycle

import "fmt"

// TransitionError reports an illegal lifecycle transition. It carries
// both states so callers can log exactly what was attempted.
type TransitionError struct {
	Machine string
	From    string
	To      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition from %q to %q", e.Machine, e.From, e.To)
}

// Machine is a pure transition table. Legality of a transition is a
// deterministic function of (from, to) only.
type Machine struct {
	name        string
	initial     string
	transitions map[string][]string
}

// NewMachine builds a transition table and checks its structural
// invariants: no self-loops, every state reachable from the initial
// state, and terminal states being exactly the states with zero
// outgoing edges. A malformed table panics at construction, since it is
// static configuration that must never ship.
func NewMachine(name, initial string, transitions map[string][]string) *Machine {
	m := &Machine{name: name, initial: initial, transitions: transitions}

	for from, tos := range transitions {
		for _, to := range tos {
			if from == to {
				panic(fmt.Sprintf("%s machine: self-loop on %q", name, from))
			}
			if _, known := transitions[to]; !known {
				panic(fmt.Sprintf("%s machine: edge to unknown state %q", name, to))
			}
		}
	}
	if _, known := transitions[initial]; !known {
		panic(fmt.Sprintf("%s machine: unknown initial state %q", name, initial))
	}

	reachable := map[string]bool{initial: true}
	frontier := []string{initial}
	for len(frontier) > 0 {
		state := frontier[0]
		frontier = frontier[1:]
		for _, next := range transitions[state] {
			if !reachable[next] {
				reachable[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	for state := range transitions {
		if !reachable[state] {
			panic(fmt.Sprintf("%s machine: state %q unreachable from %q", name, state, initial))
		}
	}

	return m
}

// Initial returns the machine's initial state.
func (m *Machine) Initial() string {
	return m.initial
}

// States returns every state the machine knows about.
func (m *Machine) States() []string {
	states := make([]string, 0, len(m.transitions))
	for state := range m.transitions {
		states = append(states, state)
	}
	return states
}

// IsValidTransition reports whether from → to is a legal edge.
func (m *Machine) IsValidTransition(from, to string) bool {
	for _, next := range m.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AssertValidTransition returns a TransitionError when from → to is not
// a legal edge.
func (m *Machine) AssertValidTransition(from, to string) error {
	if !m.IsValidTransition(from, to) {
		return &TransitionError{Machine: m.name, From: from, To: to}
	}
	return nil
}

// IsTerminal reports whether a state has no outgoing edges. Unknown
// states are not terminal; they are not states at all.
func (m *Machine) IsTerminal(state string) bool {
	tos, known := m.transitions[state]
	return known && len(tos) == 0
}
