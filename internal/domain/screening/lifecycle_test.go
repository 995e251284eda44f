package screening

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCancelRecordsWhoAndWhy(t *testing.T) {
	agg := newTestAggregate(StepConversation)
	actor := uuid.New()

	if err := agg.Cancel(actor, "professional withdrew", testTime); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if agg.Process.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", agg.Process.Status)
	}
	if agg.Process.CancelledBy == nil || *agg.Process.CancelledBy != actor {
		t.Error("cancelled_by not recorded")
	}
	if agg.Process.CancellationReason == nil || *agg.Process.CancellationReason != "professional withdrew" {
		t.Error("cancellation reason not recorded")
	}
	if agg.Process.CancelledAt == nil {
		t.Error("cancelled_at not recorded")
	}
}

func TestCancelRequiresReason(t *testing.T) {
	agg := newTestAggregate(StepConversation)
	if err := agg.Cancel(uuid.New(), "", testTime); err == nil {
		t.Fatal("empty reason must be rejected")
	}
	if agg.Process.Status != StatusInProgress {
		t.Error("failed cancel must not change status")
	}
}

func TestCancelWhilePendingSupervisor(t *testing.T) {
	agg := newTestAggregate(StepConversation)
	agg.RaiseAlert("issue", AlertOther, uuid.New(), testTime)

	if err := agg.Cancel(uuid.New(), "engagement dropped", testTime); err != nil {
		t.Fatalf("cancel during escalation: %v", err)
	}
	if agg.Process.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", agg.Process.Status)
	}
}

func TestCancelTerminal(t *testing.T) {
	agg := newTestAggregate(StepConversation)
	agg.Process.Status = StatusApproved

	err := agg.Cancel(uuid.New(), "too late", testTime)
	if !errors.Is(err, ErrProcessFinalized) {
		t.Fatalf("expected ErrProcessFinalized, got %v", err)
	}
}

func TestExpire(t *testing.T) {
	agg := newTestAggregate(StepConversation)
	deadline := testTime.Add(-time.Hour)
	agg.Process.ExpiresAt = &deadline

	if err := agg.Expire(testTime); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if agg.Process.Status != StatusExpired {
		t.Errorf("expected EXPIRED, got %s", agg.Process.Status)
	}
}

func TestExpireBeforeDeadline(t *testing.T) {
	agg := newTestAggregate(StepConversation)
	deadline := testTime.Add(time.Hour)
	agg.Process.ExpiresAt = &deadline

	if err := agg.Expire(testTime); !errors.Is(err, ErrInvalidStepTransition) {
		t.Fatalf("expected ErrInvalidStepTransition, got %v", err)
	}
}

func TestExpireWithoutDeadline(t *testing.T) {
	agg := newTestAggregate(StepConversation)
	if err := agg.Expire(testTime); !errors.Is(err, ErrInvalidStepTransition) {
		t.Fatalf("expected ErrInvalidStepTransition, got %v", err)
	}
}

func TestExpireSkipsEscalatedProcesses(t *testing.T) {
	agg := newTestAggregate(StepConversation)
	deadline := testTime.Add(-time.Hour)
	agg.Process.ExpiresAt = &deadline
	agg.RaiseAlert("issue", AlertOther, uuid.New(), testTime)

	if err := agg.Expire(testTime); !errors.Is(err, ErrInvalidStepTransition) {
		t.Fatalf("expected ErrInvalidStepTransition, got %v", err)
	}
	if agg.Process.Status != StatusPendingSupervisor {
		t.Error("escalated process must wait for its supervisor")
	}
}

func TestValidate(t *testing.T) {
	agg := newTestAggregate(StepConversation, StepClientValidation)
	if err := agg.Validate(); err != nil {
		t.Fatalf("valid aggregate: %v", err)
	}

	bad := newTestAggregate(StepConversation)
	bad.Process.ConfiguredStepTypes = nil
	if err := bad.Validate(); err == nil {
		t.Error("empty step list must fail")
	}

	bad = newTestAggregate(StepConversation)
	bad.Process.ConfiguredStepTypes = []StepType{StepConversation, StepConversation}
	if err := bad.Validate(); err == nil {
		t.Error("duplicate steps must fail")
	}

	bad = newTestAggregate(StepConversation)
	bad.Process.CurrentStepType = StepPaymentInfo
	if err := bad.Validate(); err == nil {
		t.Error("pointer outside configured steps must fail")
	}

	bad = newTestAggregate(StepConversation)
	bad.Process.Status = StatusPendingSupervisor
	if err := bad.Validate(); err == nil {
		t.Error("pending supervisor without an open alert must fail")
	}
}
