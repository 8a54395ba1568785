package convo

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrBadTransition   = errors.New("illegal status transition")
	ErrConfirmRequired = errors.New("confirmation required")
)

type Action string

const (
	ActionClaim   Action = "claim"
	ActionPass    Action = "pass"
	ActionEnd     Action = "end"
	ActionReject  Action = "reject"
	ActionRestore Action = "restore"
	ActionDelete  Action = "delete"
)

// Transition is a requested status change on an existing conversation.
type Transition struct {
	Action  Action
	AgentID string
	Reason  string
	Confirm bool
}

// applyTransition mutates c per the lifecycle state machine. It returns
// deleted=true when the conversation must be removed from the store.
//
//	waiting  --claim-->   assigned
//	assigned --pass-->    waiting
//	assigned --end-->     rejected
//	waiting  --reject-->  rejected
//	rejected --restore--> waiting
//	rejected --delete-->  removed (confirm=true required)
//
// Re-claim by any agent overwrites the assignment (last write wins; no
// optimistic locking on claims).
func applyTransition(c *Conversation, t Transition) (deleted bool, err error) {
	switch t.Action {
	case ActionClaim:
		if c.Status == StatusRejected {
			return false, fmt.Errorf("%w: claim from %s", ErrBadTransition, c.Status)
		}
		c.Status = StatusAssigned
		c.AssignedAgent = t.AgentID
		return false, nil

	case ActionPass:
		if c.Status != StatusAssigned {
			return false, fmt.Errorf("%w: pass from %s", ErrBadTransition, c.Status)
		}
		c.Status = StatusWaiting
		c.AssignedAgent = ""
		return false, nil

	case ActionEnd:
		if c.Status != StatusAssigned {
			return false, fmt.Errorf("%w: end from %s", ErrBadTransition, c.Status)
		}
		c.Status = StatusRejected
		c.RejectReason = t.Reason
		return false, nil

	case ActionReject:
		if c.Status != StatusWaiting {
			return false, fmt.Errorf("%w: reject from %s", ErrBadTransition, c.Status)
		}
		c.Status = StatusRejected
		c.AssignedAgent = ""
		c.RejectReason = t.Reason
		return false, nil

	case ActionRestore:
		if c.Status != StatusRejected {
			return false, fmt.Errorf("%w: restore from %s", ErrBadTransition, c.Status)
		}
		c.Status = StatusWaiting
		c.AssignedAgent = ""
		c.RejectReason = ""
		return false, nil

	case ActionDelete:
		if c.Status != StatusRejected {
			return false, fmt.Errorf("%w: delete from %s", ErrBadTransition, c.Status)
		}
		if !t.Confirm {
			return false, ErrConfirmRequired
		}
		return true, nil

	default:
		return false, fmt.Errorf("%w: unknown action %q", ErrBadTransition, t.Action)
	}
}
