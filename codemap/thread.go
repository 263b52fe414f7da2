package codemap

import (
	"context"

	"github.com/google/uuid"
)

// ThreadID identifies the scope that owns mapped codes. Go has no
// goroutine-local storage, so the scope travels in a context instead: one
// goroutine, or one logical thread of legacy calls, uses one scope.
type ThreadID = uuid.UUID

type threadKey struct{}

var threadFromContextKey = threadKey{}

// ContextWithThread returns a context carrying a new thread scope.
func ContextWithThread(ctx context.Context) context.Context {
	return ContextWithThreadID(ctx, uuid.New())
}

// ContextWithThreadID returns a context carrying the given thread scope.
func ContextWithThreadID(ctx context.Context, id ThreadID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, threadFromContextKey, id)
}

// ThreadFromContext returns the thread scope carried by ctx.
func ThreadFromContext(ctx context.Context) (ThreadID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(threadFromContextKey).(ThreadID)
	return id, ok
}

// threadOf returns the scope of ctx. Contexts without one share uuid.Nil.
func threadOf(ctx context.Context) ThreadID {
	id, _ := ThreadFromContext(ctx)
	return id
}
