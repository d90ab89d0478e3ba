package util

import (
	"testing"
	"time"
)

func TestEventNotifyOnce(t *testing.T) {
	e := NewEvent()
	if e.HasBeenNotified() {
		t.Fatalf("fresh event reports notified")
	}

	done := make(chan struct{})
	go func() {
		e.Wait()
		close(done)
	}()

	if !e.Notify() {
		t.Fatalf("first Notify should fire")
	}
	if e.Notify() {
		t.Fatalf("second Notify should be a no-op")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("waiter not released")
	}

	// Late waiters return immediately.
	e.Wait()
}
