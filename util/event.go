package util

import (
	"sync"
)

// Event is a one-shot latch. Once notified it stays notified, so waiters
// arriving late return immediately.
type Event struct {
	notified bool
	c        *sync.Cond
}

func NewEvent() *Event {
	return &Event{
		c: sync.NewCond(&sync.Mutex{}),
	}
}

// Notify releases all current and future waiters. Only the first call has an
// effect; it reports whether this call was the one that fired.
func (e *Event) Notify() bool {
	e.c.L.Lock()
	defer e.c.L.Unlock()
	if e.notified {
		return false
	}
	e.notified = true
	e.c.Broadcast()
	return true
}

func (e *Event) Wait() {
	e.c.L.Lock()
	defer e.c.L.Unlock()
	for !e.notified {
		e.c.Wait()
	}
}

func (e *Event) HasBeenNotified() bool {
	e.c.L.Lock()
	defer e.c.L.Unlock()
	return e.notified
}
