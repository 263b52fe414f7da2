// Package growarray provides a contiguous growable buffer with a capacity
// policy tuned by element size, plus binary-search helpers for keeping its
// contents sorted.
//
// Capacity grows in three zones. Small arrays always get a fixed floor,
// mid-sized arrays round up to a power of two, and large arrays round up to
// a multiple of a linear step. Element types of 4 KiB or more have no linear
// zone and keep doubling. Shrinking after an erase or clear is delayed
// by a hysteresis margin so alternating inserts and erases do not thrash.
//
// Every capacity change is accounted through the module allocator, so a
// failed allocation leaves the array unchanged and reports false.
package growarray

import (
	"errors"
	"iter"
	"math/bits"
	"slices"
	"unsafe"

	"github.com/shiwano/errbridge/internal/alloc"
)

const (
	fixedZoneBytes  = 64
	linearZoneBytes = 4096
)

// ErrZeroSizedElement is returned by New for element types with no size.
var ErrZeroSizedElement = errors.New("growarray: zero-sized element type")

type (
	// Array is a growable buffer of T. Pointers and positions obtained from
	// it are invalidated by any mutating call.
	Array[T any] struct {
		elems    []T // len(elems) is the capacity
		size     int
		elemSize int
		fixed    int
		lin      int // 0 disables the linear zone
		hyst     int
		reallocs int
	}

	// Option configures an Array at creation.
	Option func(*options)

	options struct {
		hysteresis int
	}
)

// WithHysteresis overrides the shrink margin, which defaults to the
// fixed-zone threshold.
func WithHysteresis(n int) Option {
	return func(o *options) {
		o.hysteresis = n
	}
}

// New creates an empty array. No storage is reserved until the first insert.
func New[T any](opts ...Option) (*Array[T], error) {
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	if elemSize == 0 {
		return nil, ErrZeroSizedElement
	}

	shift := bits.Len(uint(nextPow2(elemSize))) - 1
	fixed := max(1, fixedZoneBytes>>shift)
	lin := linearZoneBytes >> shift
	if lin < 2*fixed {
		// Elements this large keep doubling; a linear step shorter than two
		// elements would reallocate on nearly every insert.
		lin = 0
	}

	o := options{hysteresis: fixed}
	for _, opt := range opts {
		opt(&o)
	}

	return &Array[T]{
		elemSize: elemSize,
		fixed:    fixed,
		lin:      lin,
		hyst:     max(0, o.hysteresis),
	}, nil
}

// Destroy releases all storage. The array may be reused afterwards.
func (a *Array[T]) Destroy() {
	a.size = 0
	a.setCapacity(0)
}

// Len returns the number of elements.
func (a *Array[T]) Len() int {
	return a.size
}

// Cap returns the number of elements that fit without reallocating.
func (a *Array[T]) Cap() int {
	return len(a.elems)
}

// IsEmpty reports whether the array holds no elements.
func (a *Array[T]) IsEmpty() bool {
	return a.size == 0
}

// Reallocations returns how many times the storage has been replaced.
func (a *Array[T]) Reallocations() int {
	return a.reallocs
}

// IdealCapacity returns the capacity the policy assigns to n elements.
func (a *Array[T]) IdealCapacity(n int) int {
	switch {
	case n <= 0:
		return 0
	case n <= a.fixed:
		return a.fixed
	case a.lin > 0 && n >= a.lin:
		return (n + a.lin - 1) / a.lin * a.lin
	default:
		return nextPow2(n)
	}
}

// Reserve grows the capacity to hold at least hint elements.
// It never shrinks and reports false on allocation failure.
func (a *Array[T]) Reserve(hint int) bool {
	return a.ensureCapacity(hint)
}

// Clear removes all elements and shrinks the storage.
func (a *Array[T]) Clear() {
	clear(a.elems[:a.size])
	a.size = 0
	a.maybeShrink()
}

// At returns a pointer to the element at i.
func (a *Array[T]) At(i int) *T {
	if i < 0 || i >= a.size {
		panic("growarray: index out of range")
	}
	return &a.elems[i]
}

// Front returns the first element, or nil if the array is empty.
func (a *Array[T]) Front() *T {
	if a.size == 0 {
		return nil
	}
	return &a.elems[0]
}

// Back returns the last element, or nil if the array is empty.
func (a *Array[T]) Back() *T {
	if a.size == 0 {
		return nil
	}
	return &a.elems[a.size-1]
}

// Insert places v before position pos, shifting the tail up by one.
// pos may equal Len. On allocation failure the array is left unchanged and
// Insert returns false.
func (a *Array[T]) Insert(pos int, v T) bool {
	if pos < 0 || pos > a.size {
		panic("growarray: insert position out of range")
	}
	if !a.ensureCapacity(a.size + 1) {
		return false
	}
	copy(a.elems[pos+1:a.size+1], a.elems[pos:a.size])
	a.elems[pos] = v
	a.size++
	return true
}

// Append inserts v at the end.
func (a *Array[T]) Append(v T) bool {
	return a.Insert(a.size, v)
}

// Erase removes the element at pos and returns the position of the element
// that followed it, which is pos itself.
func (a *Array[T]) Erase(pos int) int {
	return a.EraseRange(pos, pos+1)
}

// EraseRange removes elements in [from, to) and returns from.
func (a *Array[T]) EraseRange(from, to int) int {
	if from < 0 || to > a.size || from > to {
		panic("growarray: erase range out of range")
	}
	if from == to {
		return from
	}
	n := to - from
	copy(a.elems[from:], a.elems[to:a.size])
	clear(a.elems[a.size-n : a.size])
	a.size -= n
	a.maybeShrink()
	return from
}

// All returns an iterator over positions and elements in order.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < a.size; i++ {
			if !yield(i, a.elems[i]) {
				return
			}
		}
	}
}

// Search finds key in a sorted array. It returns the position of the match
// and true, or the insertion point and false.
func Search[T, K any](a *Array[T], key K, cmp func(T, K) int) (int, bool) {
	return slices.BinarySearchFunc(a.elems[:a.size], key, cmp)
}

// InsertionPoint returns the first position whose element does not compare
// less than key.
func InsertionPoint[T, K any](a *Array[T], key K, cmp func(T, K) int) int {
	pos, _ := Search(a, key, cmp)
	return pos
}

// Find returns the position of the first element satisfying pred, or Len
// if there is none.
func Find[T any](a *Array[T], pred func(T) bool) int {
	if i := slices.IndexFunc(a.elems[:a.size], pred); i >= 0 {
		return i
	}
	return a.size
}

func (a *Array[T]) ensureCapacity(size int) bool {
	if size <= len(a.elems) {
		return true
	}
	return a.setCapacity(a.IdealCapacity(size))
}

// Shrink failures are ignored; the array stays valid at its old capacity.
func (a *Array[T]) maybeShrink() {
	if ideal := a.IdealCapacity(a.size + a.hyst); len(a.elems) > ideal {
		a.setCapacity(ideal)
	}
}

func (a *Array[T]) setCapacity(n int) bool {
	if n == len(a.elems) {
		return true
	}
	if n > 0 && !alloc.Alloc(n*a.elemSize) {
		return false
	}

	var elems []T
	if n > 0 {
		elems = make([]T, n)
		copy(elems, a.elems[:a.size])
	}
	if len(a.elems) > 0 {
		alloc.Free(len(a.elems) * a.elemSize)
	}
	a.elems = elems
	a.reallocs++
	return true
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
