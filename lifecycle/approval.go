// lifecycle/approval.go
package lifecycle

import "github.com/clearops/clearance/model"

// approvalMachine gates the approval request lifecycle. An assigned
// approval can be handed back to the open pool; decided is terminal.
var approvalMachine = NewMachine("approval", string(model.ApprovalOpen), map[string][]string{
	string(model.ApprovalOpen):        {string(model.ApprovalAssigned)},
	string(model.ApprovalAssigned):    {string(model.ApprovalOpen), string(model.ApprovalUnderReview)},
	string(model.ApprovalUnderReview): {string(model.ApprovalDecided)},
	string(model.ApprovalDecided):     {},
})

// ApprovalMachine exposes the approval transition table.
func ApprovalMachine() *Machine {
	return approvalMachine
}

// IsValidApprovalTransition reports whether from → to is legal for
// approvals.
func IsValidApprovalTransition(from, to model.ApprovalStatus) bool {
	return approvalMachine.IsValidTransition(string(from), string(to))
}

// AssertValidApprovalTransition rejects an illegal approval transition.
func AssertValidApprovalTransition(from, to model.ApprovalStatus) error {
	return approvalMachine.AssertValidTransition(string(from), string(to))
}

// IsTerminalApprovalStatus reports whether an approval status has no
// outgoing edges.
func IsTerminalApprovalStatus(status model.ApprovalStatus) bool {
	return approvalMachine.IsTerminal(string(status))
}

// DecidableApprovalStatuses are the statuses in which a decision may be
// recorded.
var DecidableApprovalStatuses = []model.ApprovalStatus{
	model.ApprovalOpen,
	model.ApprovalAssigned,
	model.ApprovalUnderReview,
}

// IsDecidableApprovalStatus reports whether an approval in this status
// can currently accept a decision.
func IsDecidableApprovalStatus(status model.ApprovalStatus) bool {
	for _, s := range DecidableApprovalStatuses {
		if s == status {
			return true
		}
	}
	return false
}
