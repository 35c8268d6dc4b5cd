// Package guard owns mutual exclusion for the persisted tables.
//
// Acquisition protocol: try the lock without blocking; if it is held
// by another caller, emit one busy notice through the caller-supplied
// hook, then block until the lock is free. Release happens through the
// returned func on every exit path.
package guard

import (
	"sync"

	"github.com/danmuck/reservectl/internal/observability"
)

// Resource names one guarded table.
type Resource string

const (
	Flights Resource = "flights"
	Billing Resource = "billing"
	History Resource = "history"
)

// Guard holds one exclusive lock per resource.
type Guard struct {
	locks map[Resource]*sync.Mutex
}

func New() *Guard {
	return &Guard{
		locks: map[Resource]*sync.Mutex{
			Flights: {},
			Billing: {},
			History: {},
		},
	}
}

// Acquire takes the resource's exclusive lock and returns its release
// func. When the lock is contended, notify (if non-nil) is invoked
// exactly once before the blocking wait so the caller can signal
// liveness to its peer.
func (g *Guard) Acquire(resource Resource, notify func(Resource)) func() {
	mu, ok := g.locks[resource]
	if !ok {
		// Unknown resources share one no-op path; callers only use
		// the constants above.
		return func() {}
	}
	if !mu.TryLock() {
		observability.RecordLockContention(string(resource))
		if notify != nil {
			notify(resource)
		}
		mu.Lock()
	}
	return mu.Unlock
}
