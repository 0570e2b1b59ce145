// Package profiling provides per-request performance instrumentation:
// data-access operation capture, N+1 pattern analysis, and layer timing.
package profiling

import (
	"context"
	"time"
)

type (
	// Operation is one captured data-access call. Immutable once recorded;
	// owned exclusively by the QueryObserver that captured it and discarded
	// with the request.
	Operation struct {
		// SQL is the raw shape of the operation as issued, with bound
		// parameter placeholders but without bound values.
		SQL string
		// Duration is the elapsed wall-clock time of the operation.
		Duration time.Duration
	}

	// QueryObserver records every data-access operation issued during an
	// observation window.
	//
	// An observer is request-scoped: it is created when instrumentation is
	// enabled for a request, travels in the request context, and is read
	// once after the window closes. It is owned by a single goroutine and
	// requires no synchronization.
	QueryObserver struct {
		active     bool
		operations []Operation
		startedAt  time.Time
		stoppedAt  time.Time
	}
)

// observerKey is the context key for the request's query observer.
type observerKey struct{}

// NewQueryObserver creates an inactive observer. Call Start to open the
// observation window.
func NewQueryObserver() *QueryObserver {
	return &QueryObserver{}
}

// WithObserver returns a context carrying the given observer. The storage
// layer looks the observer up per query and records into it when present.
func WithObserver(ctx context.Context, observer *QueryObserver) context.Context {
	return context.WithValue(ctx, observerKey{}, observer)
}

// ObserverFromContext extracts the query observer from the request context.
// Returns nil when no observer is attached; all QueryObserver methods are
// nil-safe so callers can record unconditionally.
func ObserverFromContext(ctx context.Context) *QueryObserver {
	if observer, ok := ctx.Value(observerKey{}).(*QueryObserver); ok {
		return observer
	}

	return nil
}

// Start opens the observation window, discarding any previously captured
// operations.
func (o *QueryObserver) Start() {
	if o == nil {
		return
	}

	o.active = true
	o.operations = o.operations[:0]
	o.startedAt = time.Now()
	o.stoppedAt = time.Time{}
}

// Stop closes the observation window. Operations recorded after Stop are
// ignored.
func (o *QueryObserver) Stop() {
	if o == nil {
		return
	}

	o.active = false
	o.stoppedAt = time.Now()
}

// Record captures one executed operation. No-op when the observer is nil or
// the window is closed. The observer never alters, retries, or suppresses the
// underlying operation.
func (o *QueryObserver) Record(sql string, elapsed time.Duration) {
	if o == nil || !o.active {
		return
	}

	o.operations = append(o.operations, Operation{SQL: sql, Duration: elapsed})
}

// Active reports whether the observation window is open.
func (o *QueryObserver) Active() bool {
	return o != nil && o.active
}

// Operations returns the operations captured so far, in issue order.
func (o *QueryObserver) Operations() []Operation {
	if o == nil {
		return nil
	}

	return o.operations
}
