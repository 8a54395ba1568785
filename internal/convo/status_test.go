package convo

import (
	"errors"
	"testing"
)

func TestApplyTransition_ClaimPassEnd(t *testing.T) {
	c := Conversation{ID: "c1", Status: StatusWaiting}

	if _, err := applyTransition(&c, Transition{Action: ActionClaim, AgentID: "a1"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if c.Status != StatusAssigned || c.AssignedAgent != "a1" {
		t.Fatalf("unexpected state after claim: %+v", c)
	}

	// same-agent re-claim is a no-op success
	if _, err := applyTransition(&c, Transition{Action: ActionClaim, AgentID: "a1"}); err != nil {
		t.Fatalf("re-claim: %v", err)
	}

	// cross-agent claim overwrites (last write wins)
	if _, err := applyTransition(&c, Transition{Action: ActionClaim, AgentID: "a2"}); err != nil {
		t.Fatalf("cross-claim: %v", err)
	}
	if c.AssignedAgent != "a2" {
		t.Fatalf("expected a2 assignment, got %q", c.AssignedAgent)
	}

	if _, err := applyTransition(&c, Transition{Action: ActionPass}); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if c.Status != StatusWaiting || c.AssignedAgent != "" {
		t.Fatalf("unexpected state after pass: %+v", c)
	}

	// end requires assigned
	if _, err := applyTransition(&c, Transition{Action: ActionEnd}); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("expected bad transition for end from waiting, got %v", err)
	}
}

func TestApplyTransition_RejectRestoreRoundTrip(t *testing.T) {
	c := Conversation{ID: "c1", Status: StatusWaiting}

	if _, err := applyTransition(&c, Transition{Action: ActionReject, AgentID: "a1", Reason: "spam"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if c.Status != StatusRejected || c.RejectReason != "spam" {
		t.Fatalf("unexpected state after reject: %+v", c)
	}

	if _, err := applyTransition(&c, Transition{Action: ActionRestore, AgentID: "a1"}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if c.Status != StatusWaiting || c.RejectReason != "" || c.AssignedAgent != "" {
		t.Fatalf("restore must clear rejection metadata: %+v", c)
	}
}

func TestApplyTransition_DeleteGuards(t *testing.T) {
	waiting := Conversation{ID: "c1", Status: StatusWaiting}
	if _, err := applyTransition(&waiting, Transition{Action: ActionDelete, Confirm: true}); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("expected bad transition deleting waiting, got %v", err)
	}

	assigned := Conversation{ID: "c1", Status: StatusAssigned}
	if _, err := applyTransition(&assigned, Transition{Action: ActionDelete, Confirm: true}); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("expected bad transition deleting assigned, got %v", err)
	}

	rejected := Conversation{ID: "c1", Status: StatusRejected}
	if _, err := applyTransition(&rejected, Transition{Action: ActionDelete}); !errors.Is(err, ErrConfirmRequired) {
		t.Fatalf("expected confirm required, got %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("unconfirmed delete must not mutate")
	}

	deleted, err := applyTransition(&rejected, Transition{Action: ActionDelete, Confirm: true})
	if err != nil || !deleted {
		t.Fatalf("expected confirmed delete to succeed, deleted=%v err=%v", deleted, err)
	}
}

func TestApplyTransition_ClaimFromRejected(t *testing.T) {
	c := Conversation{ID: "c1", Status: StatusRejected}
	if _, err := applyTransition(&c, Transition{Action: ActionClaim, AgentID: "a1"}); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("expected bad transition claiming rejected, got %v", err)
	}
}
