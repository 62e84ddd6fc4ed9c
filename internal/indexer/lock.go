package indexer

import (
	"sync"
	"sync/atomic"
)

// IndexLock provides non-blocking lock semantics using atomic operations.
// A second acquirer is refused rather than queued, which is how the
// orchestrator enforces at-most-one in-flight reindex per project.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// lockRegistry hands out one IndexLock per project name. Locks are never
// removed; a lock outliving its project costs a few bytes and avoids
// delete/acquire races.
type lockRegistry struct {
	locks sync.Map // project name -> *IndexLock
}

func (r *lockRegistry) get(project string) *IndexLock {
	if l, ok := r.locks.Load(project); ok {
		return l.(*IndexLock)
	}
	l, _ := r.locks.LoadOrStore(project, &IndexLock{})
	return l.(*IndexLock)
}
