package session

import (
	"errors"
	"testing"
	"time"
)

func TestResultSlotFirstPublishWins(t *testing.T) {
	slot := newResultSlot()
	slot.publish(3, nil)
	slot.publish(9, errors.New("late"))

	code, err := slot.wait()
	if err != nil {
		t.Fatalf("wait returned error: %v", err)
	}
	if code != 3 {
		t.Fatalf("wait returned %d, expected 3", code)
	}
	if !slot.resolved() {
		t.Fatalf("slot not resolved after publish")
	}
}

func TestResultSlotPeekBeforePublish(t *testing.T) {
	slot := newResultSlot()
	if _, ok := slot.peek(); ok {
		t.Fatalf("peek reported a result before publish")
	}
	if slot.resolved() {
		t.Fatalf("slot resolved before publish")
	}

	slot.publish(ExitSignaled, nil)
	code, ok := slot.peek()
	if !ok || code != ExitSignaled {
		t.Fatalf("peek returned (%d, %v), expected (%d, true)", code, ok, ExitSignaled)
	}
}

func TestResultSlotWaitBlocksUntilPublish(t *testing.T) {
	slot := newResultSlot()
	go func() {
		time.Sleep(50 * time.Millisecond)
		slot.publish(0, nil)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if code, err := slot.wait(); code != 0 || err != nil {
			t.Errorf("wait returned (%d, %v), expected (0, nil)", code, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("wait did not return after publish")
	}
}
