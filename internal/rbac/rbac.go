package rbac

type Role string
type Action string

const (
	RoleCandidate Role = "candidate"
	RoleAdmin     Role = "admin"
)

const (
	// ActionApply covers the candidate surface: drafts, uploads, submit, export.
	ActionApply Action = "apply"
	// ActionReview covers reading the full submission list and individual records.
	ActionReview Action = "review"
	// ActionDecide covers approve/reject transitions.
	ActionDecide Action = "decide"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return action == ActionReview || action == ActionDecide
	case RoleCandidate:
		return action == ActionApply
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleCandidate, RoleAdmin:
		return Role(role)
	default:
		return RoleCandidate
	}
}
