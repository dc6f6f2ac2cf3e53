package notify

import (
	"sync"
	"time"
)

// Clock is injectable so tests control timestamps.
type Clock func() time.Time

// CancelFunc stops a scheduled callback. Safe to call more than once.
type CancelFunc func()

// Scheduler owns timer creation so teardown is deterministic and tests run
// without wall-clock waits.
type Scheduler interface {
	// After runs fn once after d.
	After(d time.Duration, fn func()) CancelFunc
	// Every runs fn repeatedly on a fixed interval until cancelled.
	Every(d time.Duration, fn func()) CancelFunc
}

type realScheduler struct{}

// NewScheduler returns the wall-clock scheduler used outside of tests.
func NewScheduler() Scheduler { return realScheduler{} }

func (realScheduler) After(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

func (realScheduler) Every(d time.Duration, fn func()) CancelFunc {
	t := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-t.C:
				fn()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			t.Stop()
			close(done)
		})
	}
}
