package notify

import (
	"sync"

	"AgoraNotify/module/notification/model"
)

// Toasts keeps the small ordered collection of ephemeral alerts. Display order
// is stable FIFO; each toast owns an independent expiry timer.
type Toasts struct {
	mu    sync.Mutex
	sched Scheduler
	items []model.Toast
}

func NewToasts(sched Scheduler) *Toasts {
	if sched == nil {
		sched = NewScheduler()
	}
	return &Toasts{sched: sched}
}

// Show appends the toast and schedules its automatic removal after
// toast.Duration (defaulted when unset).
func (t *Toasts) Show(toast model.Toast) {
	if toast.Duration <= 0 {
		toast.Duration = model.DefaultToastDuration
	}
	t.mu.Lock()
	t.items = append(t.items, toast)
	t.mu.Unlock()

	id := toast.ID
	t.sched.After(toast.Duration, func() { t.Remove(id) })
}

// Remove removes by id. Subsequent calls are no-ops, which covers the race
// between a timer-triggered removal and a user dismissal, and lets late timers
// fire harmlessly after the owning view is gone.
func (t *Toasts) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.items {
		if t.items[i].ID == id {
			t.items = append(t.items[:i:i], t.items[i+1:]...)
			return
		}
	}
}

// Snapshot returns the visible toasts in display order.
func (t *Toasts) Snapshot() []model.Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.Toast(nil), t.items...)
}
