// Package workflow defines the submission review state machine.
//
// An application moves draft -> pending on submit, then pending -> approved
// or pending -> rejected on an admin decision. Approved and rejected are
// terminal: there is no reopen.
package workflow

import "ciportal/api/internal/store"

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// TargetStatus maps a decision action to the status it produces. Unknown
// actions map to "".
func TargetStatus(action string) string {
	switch action {
	case ActionApprove:
		return store.StatusApproved
	case ActionReject:
		return store.StatusRejected
	}
	return ""
}

// CanDecide reports whether a decision may be applied to the status.
func CanDecide(status string) bool {
	return status == store.StatusPending
}

// IsTerminal reports whether the status accepts no further transitions.
func IsTerminal(status string) bool {
	return status == store.StatusApproved || status == store.StatusRejected
}

// IsSubmitted reports whether the application has left the draft stage.
func IsSubmitted(status string) bool {
	return status != "" && status != store.StatusDraft
}
