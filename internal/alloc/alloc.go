// Package alloc routes the module's storage accounting through a swappable
// Allocator so that allocation failure, which the Go runtime never reports,
// can be simulated and leaks can be counted.
package alloc

import (
	"sync"
	"sync/atomic"
)

type (
	// Allocator accounts for storage owned by errors, info maps, arrays and
	// registries. Every successful Alloc is paired with exactly one Free of
	// the same size.
	Allocator interface {
		// Alloc reserves size bytes. It returns false to simulate failure.
		Alloc(size int) bool
		// Free releases size bytes previously reserved by Alloc.
		Free(size int)
	}

	unlimited struct{}

	holder struct {
		a Allocator
	}
)

var current atomic.Pointer[holder]

func init() {
	current.Store(&holder{a: unlimited{}})
}

func (unlimited) Alloc(int) bool { return true }
func (unlimited) Free(int)       {}

// Current returns the active allocator.
func Current() Allocator {
	return current.Load().a
}

// Use installs a as the active allocator and returns a function that
// restores the previous one. A nil a installs the default allocator.
func Use(a Allocator) (restore func()) {
	if a == nil {
		a = unlimited{}
	}
	prev := current.Swap(&holder{a: a})
	return func() {
		current.Store(prev)
	}
}

// Alloc reserves size bytes from the active allocator.
func Alloc(size int) bool {
	return Current().Alloc(size)
}

// Free releases size bytes to the active allocator.
func Free(size int) {
	Current().Free(size)
}

// Counter is an Allocator that tracks live blocks and can be told to fail.
type Counter struct {
	mu        sync.Mutex
	live      int
	liveBytes int
	calls     int
	failAfter int
}

var _ Allocator = (*Counter)(nil)

// NewCounter returns a Counter that never fails.
func NewCounter() *Counter {
	return &Counter{failAfter: -1}
}

// Alloc implements Allocator.
func (c *Counter) Alloc(size int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.failAfter == 0 {
		return false
	}
	if c.failAfter > 0 {
		c.failAfter--
	}
	c.live++
	c.liveBytes += size
	return true
}

// Free implements Allocator.
func (c *Counter) Free(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.live--
	c.liveBytes -= size
}

// FailAfter lets the next n allocations succeed and fails every one after.
// A negative n disables failures.
func (c *Counter) FailAfter(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAfter = n
}

// FailAll makes every following allocation fail.
func (c *Counter) FailAll() {
	c.FailAfter(0)
}

// Live returns the number of blocks allocated and not yet freed.
func (c *Counter) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// LiveBytes returns the number of bytes allocated and not yet freed.
func (c *Counter) LiveBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveBytes
}

// Calls returns the number of Alloc calls, failed ones included.
func (c *Counter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
