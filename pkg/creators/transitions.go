package creators

import "github.com/shiminize/creatorhub/pkg/models"

// Action is an administrative operation on a creator's status
type Action string

const (
	ActionApprove    Action = "approve"
	ActionSuspend    Action = "suspend"
	ActionReactivate Action = "reactivate"
	ActionDeactivate Action = "deactivate"
	// ActionReinstate is the explicit exception path out of inactive.
	// It is never part of a bulk operation.
	ActionReinstate Action = "reinstate"
)

// transition is one edge of the creator status state machine
type transition struct {
	from models.CreatorStatus
	to   models.CreatorStatus
	// cascade is the link activation state to apply to every link the
	// creator owns; nil means links are untouched.
	cascade *bool
}

var (
	activate   = true
	deactivate = false
)

// transitionTable is the single source of truth for which status changes
// are valid. Anything not listed is INVALID_STATUS_TRANSITION — statuses
// are never written as free-form strings anywhere else.
var transitionTable = map[Action][]transition{
	ActionApprove: {
		{from: models.CreatorPending, to: models.CreatorApproved},
	},
	ActionSuspend: {
		{from: models.CreatorApproved, to: models.CreatorSuspended, cascade: &deactivate},
	},
	ActionReactivate: {
		{from: models.CreatorSuspended, to: models.CreatorApproved, cascade: &activate},
	},
	// inactive is a terminal soft delete reachable from any state
	ActionDeactivate: {
		{from: models.CreatorPending, to: models.CreatorInactive, cascade: &deactivate},
		{from: models.CreatorApproved, to: models.CreatorInactive, cascade: &deactivate},
		{from: models.CreatorSuspended, to: models.CreatorInactive, cascade: &deactivate},
	},
	ActionReinstate: {
		{from: models.CreatorInactive, to: models.CreatorApproved, cascade: &activate},
	},
}

// findTransition returns the edge the action takes from the given status,
// or nil when the transition is invalid
func findTransition(action Action, from models.CreatorStatus) *transition {
	for i := range transitionTable[action] {
		if transitionTable[action][i].from == from {
			return &transitionTable[action][i]
		}
	}
	return nil
}
