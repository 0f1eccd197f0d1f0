// Package tmutex provides a mutual-exclusion primitive sized for the
// segment manager's fine-grained locking discipline: one of these guards
// each sequence-class counter, each segment queue, the free pool, the
// failed list and each per-class sent list (the dequeue-class locks are
// sync.Mutex, paired with a sync.Cond), so contention is typically a
// single waiter, not a crowd. A channel-based release avoids pulling in
// sync.Mutex's heavier fairness machinery for that common case.
package tmutex

import "sync/atomic"

// Mutex is a two-state lock: unlocked (1) or locked (0), with an
// additional channel used to hand off the lock to exactly one blocked
// waiter on Unlock.
type Mutex struct {
	state int32
	gate  chan struct{}
}

// New returns an unlocked Mutex ready to use.
func New() *Mutex {
	return &Mutex{state: 1, gate: make(chan struct{}, 1)}
}

// Init brings a zero-value Mutex (e.g. embedded by value in a larger
// struct) into the unlocked state. Required before first use if the
// struct literal didn't come from New.
func (m *Mutex) Init() {
	m.state = 1
	m.gate = make(chan struct{}, 1)
}

// Lock blocks until the mutex can be acquired.
func (m *Mutex) Lock() {
	for {
		if atomic.CompareAndSwapInt32(&m.state, 1, 0) {
			return
		}
		<-m.gate
	}
}

// TryLock acquires the mutex without blocking, reporting whether it
// succeeded.
func (m *Mutex) TryLock() bool {
	return atomic.CompareAndSwapInt32(&m.state, 1, 0)
}

// Unlock releases the mutex, waking at most one blocked Lock caller.
func (m *Mutex) Unlock() {
	atomic.StoreInt32(&m.state, 1)
	select {
	case m.gate <- struct{}{}:
	default:
	}
}
