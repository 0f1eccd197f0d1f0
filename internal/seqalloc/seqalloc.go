// Package seqalloc implements the per-class SequenceAllocator: two
// independent 32-bit counters, one for the control class and one for the
// data class, each handing out contiguous ranges atomically.
package seqalloc

import (
	"fmt"

	"github.com/vconn-io/segcore/internal/tmutex"
)

// Class names one of the two sequence spaces.
type Class int

const (
	ClassControl Class = iota
	ClassData
	numClasses
)

// String implements fmt.Stringer for log lines.
func (c Class) String() string {
	switch c {
	case ClassControl:
		return "control"
	case ClassData:
		return "data"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Valid reports whether c names one of the two defined classes.
func (c Class) Valid() bool {
	return c == ClassControl || c == ClassData
}

// Allocator hands out disjoint, contiguous, monotonically increasing
// sequence ranges per class, safe for concurrent callers.
type Allocator struct {
	locks   [numClasses]*tmutex.Mutex
	counter [numClasses]uint32
}

// New returns an Allocator with both class counters starting at 0.
func New() *Allocator {
	a := &Allocator{}
	for i := range a.locks {
		a.locks[i] = tmutex.New()
	}
	return a
}

// Reserve returns the previous value of class's counter and advances it
// by n, atomically with respect to other Reserve calls on the same
// class. The caller must ensure n is small enough that the counter
// cannot wrap a 32-bit range across the lifetime of the allocator;
// wraparound recovery is not defined here, matching the original.
func (a *Allocator) Reserve(class Class, n uint32) uint32 {
	lock := a.locks[class]
	lock.Lock()
	base := a.counter[class]
	a.counter[class] = base + n
	lock.Unlock()
	return base
}

// Peek returns the current value of class's counter without advancing
// it. Intended for tests and diagnostics only.
func (a *Allocator) Peek(class Class) uint32 {
	lock := a.locks[class]
	lock.Lock()
	defer lock.Unlock()
	return a.counter[class]
}
