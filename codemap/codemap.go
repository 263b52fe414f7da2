// Package codemap exchanges rich errors for plain int32 codes and back, so
// that an *errbridge.Error can cross an API that only returns integers.
//
// A Registry hands out codes from a configured range. Codes are scoped to a
// thread, carried in a context by ContextWithThread: a code registered in one
// scope can only be retrieved, and is only reported as registered, in the
// same scope. Retrieving a code removes it. Codes that are never retrieved
// stay in the registry until Clear is called for their scope or the registry
// is closed.
//
//	reg, err := codemap.New(codemap.DefaultConfig())
//	ctx := codemap.ContextWithThread(context.Background())
//
//	// Inside a legacy callback that must return an int:
//	code := reg.Register(ctx, errbridge.NewWithCode("disk", 28, "disk full"))
//
//	// After the legacy call returns:
//	richErr := reg.Retrieve(ctx, code)
//	defer richErr.Destroy()
package codemap

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/shiwano/errbridge"
	"github.com/shiwano/errbridge/growarray"
)

const defaultHysteresis = 32

const (
	mapFailureMessage  = "Cannot assign an error code (available range exhausted)"
	invalidCodeMessage = "Unregistered error code (probably a bug in error handling)"
)

type (
	// Registry maps errors to codes per thread scope. It is safe for
	// concurrent use; independent registries share no state.
	Registry struct {
		cfg      Config
		logger   logrus.FieldLogger
		recorder Recorder

		mu      sync.Mutex
		next    int32
		entries *growarray.Array[entry]
	}

	entry struct {
		thread ThreadID
		code   int32
		err    *errbridge.Error
	}

	entryKey struct {
		thread ThreadID
		code   int32
	}

	registerStatus int
)

const (
	registered registerStatus = iota
	exhausted
	outOfMemory
)

// New creates a Registry with the given layout. An invalid layout yields a
// MapInvalidConfig error and a nil Registry.
func New(cfg Config, opts ...Option) (*Registry, *errbridge.Error) {
	if err := cfg.Validate(); err != nil {
		return nil, errbridge.NewWithCode(errbridge.InternalDomain, errbridge.CodeMapInvalidConfig, err.Error())
	}

	o := newOptions(opts)
	entries, err := growarray.New[entry](growarray.WithHysteresis(o.hysteresis))
	if err != nil {
		return nil, errbridge.NewWithCode(errbridge.InternalDomain, errbridge.CodeMapInvalidConfig, err.Error())
	}

	return &Registry{
		cfg:      cfg,
		logger:   o.logger,
		recorder: o.recorder,
		next:     cfg.MinCode,
		entries:  entries,
	}, nil
}

// Config returns the layout of r.
func (r *Registry) Config() Config {
	return r.cfg
}

// Register takes ownership of err and returns a code that Retrieve will
// exchange back for it in the same thread scope.
//
// The no-error value and the out-of-memory error map to their sentinel codes
// without being stored. If every code in the range is in use by the scope,
// err is destroyed and the map-failure code is returned; if the entry cannot
// be stored, err is destroyed and the out-of-memory code is returned.
func (r *Registry) Register(ctx context.Context, err *errbridge.Error) int32 {
	if err == nil {
		return r.cfg.NoErrorCode
	}
	if err.IsOutOfMemory() {
		return r.cfg.OutOfMemoryCode
	}

	thread := threadOf(ctx)

	r.mu.Lock()
	code, status := r.insert(thread, err)
	live := r.entries.Len()
	r.mu.Unlock()

	log := r.logger.WithField("thread", thread)
	switch status {
	case exhausted:
		log.WithField("domain", err.Domain()).Warn("mapped code range exhausted")
		r.recorder.IncFailure(FailureExhausted)
		err.Destroy()
		return r.cfg.MapFailureCode
	case outOfMemory:
		log.Warn("out of memory while mapping error")
		r.recorder.IncFailure(FailureOutOfMemory)
		err.Destroy()
		return r.cfg.OutOfMemoryCode
	}

	log.WithFields(logrus.Fields{"code": code, "domain": err.Domain()}).Debug("registered error")
	r.recorder.IncRegistered()
	r.recorder.SetLive(live)
	return code
}

// Retrieve removes the error registered under code in the thread scope of
// ctx and transfers it to the caller.
//
// Sentinel codes yield the no-error value, the out-of-memory error or a new
// MapFailure error. A code that is not registered yields a new
// MapInvalidCode error.
func (r *Registry) Retrieve(ctx context.Context, code int32) *errbridge.Error {
	switch code {
	case r.cfg.NoErrorCode:
		return nil
	case r.cfg.OutOfMemoryCode:
		return errbridge.OutOfMemory()
	case r.cfg.MapFailureCode:
		return errbridge.NewWithCode(errbridge.InternalDomain, errbridge.CodeMapFailure, mapFailureMessage)
	}

	thread := threadOf(ctx)

	r.mu.Lock()
	var err *errbridge.Error
	pos, found := growarray.Search(r.entries, entryKey{thread, code}, compareEntry)
	if found {
		err = r.entries.At(pos).err
		r.entries.Erase(pos)
	}
	live := r.entries.Len()
	r.mu.Unlock()

	log := r.logger.WithFields(logrus.Fields{"thread": thread, "code": code})
	if !found {
		log.Warn("retrieved unregistered error code")
		r.recorder.IncFailure(FailureInvalidCode)
		return errbridge.NewWithCode(errbridge.InternalDomain, errbridge.CodeMapInvalidCode, invalidCodeMessage)
	}

	log.Debug("retrieved error")
	r.recorder.IncRetrieved()
	r.recorder.SetLive(live)
	return err
}

// IsRegistered reports whether code is registered in the thread scope of
// ctx. Sentinel codes are always registered.
func (r *Registry) IsRegistered(ctx context.Context, code int32) bool {
	switch code {
	case r.cfg.NoErrorCode, r.cfg.OutOfMemoryCode, r.cfg.MapFailureCode:
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, found := growarray.Search(r.entries, entryKey{threadOf(ctx), code}, compareEntry)
	return found
}

// Clear destroys every error registered in the thread scope of ctx and
// returns how many there were. Call it when codes of the scope may have been
// lost, e.g. after unwinding past code that only understood integers.
func (r *Registry) Clear(ctx context.Context) int {
	thread := threadOf(ctx)

	r.mu.Lock()
	from := growarray.InsertionPoint(r.entries, entryKey{thread: thread}, compareThread)
	to := from
	for to < r.entries.Len() && r.entries.At(to).thread == thread {
		to++
	}
	errs := r.collect(from, to)
	r.entries.EraseRange(from, to)
	live := r.entries.Len()
	r.mu.Unlock()

	for _, err := range errs {
		err.Destroy()
	}

	if len(errs) > 0 {
		r.logger.WithFields(logrus.Fields{"thread": thread, "count": len(errs)}).Debug("cleared thread entries")
	}
	r.recorder.IncCleared(len(errs))
	r.recorder.SetLive(live)
	return len(errs)
}

// Len returns the number of registered errors across all thread scopes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Len()
}

// Close destroys every registered error and releases the entry table.
// The registry stays usable.
func (r *Registry) Close() error {
	r.mu.Lock()
	errs := r.collect(0, r.entries.Len())
	r.entries.Destroy()
	r.mu.Unlock()

	for _, err := range errs {
		err.Destroy()
	}

	if len(errs) > 0 {
		r.logger.WithField("count", len(errs)).Info("closed registry with unretrieved errors")
	}
	r.recorder.IncCleared(len(errs))
	r.recorder.SetLive(0)
	return nil
}

func (r *Registry) String() string {
	return fmt.Sprintf("codemap.Registry[%d..%d]", r.cfg.MinCode, r.cfg.MaxCode)
}

// insert probes from the rotating cursor for a code unused by thread.
// The cursor advances once per call, whatever the outcome.
func (r *Registry) insert(thread ThreadID, err *errbridge.Error) (int32, registerStatus) {
	first := r.next
	r.next = r.cfg.next(r.next)

	code := first
	for {
		pos, found := growarray.Search(r.entries, entryKey{thread, code}, compareEntry)
		if !found {
			if !r.entries.Insert(pos, entry{thread: thread, code: code, err: err}) {
				return 0, outOfMemory
			}
			return code, registered
		}
		code = r.cfg.next(code)
		if code == first {
			return 0, exhausted
		}
	}
}

func (r *Registry) collect(from, to int) []*errbridge.Error {
	errs := make([]*errbridge.Error, 0, to-from)
	for i := from; i < to; i++ {
		errs = append(errs, r.entries.At(i).err)
	}
	return errs
}

func compareEntry(e entry, k entryKey) int {
	if c := bytes.Compare(e.thread[:], k.thread[:]); c != 0 {
		return c
	}
	return cmp.Compare(e.code, k.code)
}

func compareThread(e entry, k entryKey) int {
	return bytes.Compare(e.thread[:], k.thread[:])
}
