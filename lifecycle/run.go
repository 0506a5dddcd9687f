// lifecycle/run.go
package lifecycle

import "github.com/clearops/clearance/model"

// runMachine gates the lifecycle of a run. A run paused at an approval
// gate resumes once the approval is decided; completed, failed and
// cancelled are terminal.
var runMachine = NewMachine("run", string(model.RunDraft), map[string][]string{
	string(model.RunDraft):            {string(model.RunQueued)},
	string(model.RunQueued):           {string(model.RunRunning), string(model.RunCancelled)},
	string(model.RunRunning):          {string(model.RunAwaitingApproval), string(model.RunCompleted), string(model.RunFailed)},
	string(model.RunAwaitingApproval): {string(model.RunRunning), string(model.RunCancelled)},
	string(model.RunCompleted):        {},
	string(model.RunFailed):           {},
	string(model.RunCancelled):        {},
})

// RunMachine exposes the run transition table.
func RunMachine() *Machine {
	return runMachine
}

// IsValidRunTransition reports whether from → to is legal for runs.
func IsValidRunTransition(from, to model.RunStatus) bool {
	return runMachine.IsValidTransition(string(from), string(to))
}

// AssertValidRunTransition rejects an illegal run transition.
func AssertValidRunTransition(from, to model.RunStatus) error {
	return runMachine.AssertValidTransition(string(from), string(to))
}

// IsTerminalRunStatus reports whether a run status has no outgoing edges.
func IsTerminalRunStatus(status model.RunStatus) bool {
	return runMachine.IsTerminal(string(status))
}
