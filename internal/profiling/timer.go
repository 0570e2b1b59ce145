package profiling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Checkpoint names, in causal order. Every checkpoint except start and end is
// optional; a skipped checkpoint defaults to the previous recorded one so the
// skipped layer contributes zero duration instead of corrupting later layers.
const (
	CheckpointStart         = "start"
	CheckpointMiddlewareEnd = "middleware_end"
	CheckpointPermissionEnd = "permission_end"
	CheckpointQuerysetEnd   = "queryset_end"
	CheckpointSerializerEnd = "serializer_end"
	CheckpointEnd           = "end"
)

// Layer names derived from consecutive checkpoints.
const (
	LayerMiddleware = "middleware"
	LayerPermission = "permission"
	LayerQueryset   = "queryset"
	LayerSerializer = "serializer"
)

// Bottleneck classifications. Permission and queryset layers block on the
// database; middleware and serializer are compute.
const (
	BottleneckIO  = "io"
	BottleneckCPU = "cpu"
)

type (
	// LayerTimer records wall-clock checkpoints at named lifecycle boundaries
	// of one request and derives a per-layer duration breakdown.
	//
	// A timer is request-scoped and owned by a single goroutine; it must
	// never be shared across requests.
	LayerTimer struct {
		requestID   string
		checkpoints map[string]time.Time
		observer    *QueryObserver
	}

	// LayerTimings is the per-layer duration breakdown in milliseconds.
	LayerTimings struct {
		MiddlewareMs float64 `json:"middleware_time_ms"`
		PermissionMs float64 `json:"permission_time_ms"`
		QuerysetMs   float64 `json:"queryset_time_ms"`
		SerializerMs float64 `json:"serializer_time_ms"`
	}

	// Report combines the timing breakdown with the query analysis for one
	// request. Immutable once produced.
	Report struct {
		RequestID        string         `json:"request_id"`
		TotalTimeMs      float64        `json:"total_time_ms"`
		Breakdown        LayerTimings   `json:"breakdown"`
		BottleneckLayer  string         `json:"bottleneck_layer"`
		BottleneckType   string         `json:"bottleneck_type"`
		QueryCount       int            `json:"query_count"`
		TotalQueryTimeMs float64        `json:"total_query_time_ms"`
		NPlusOneDetected bool           `json:"n_plus_one_detected"`
		DuplicateQueries int            `json:"duplicate_queries"`
		SlowestQueries   []QueryPattern `json:"slowest_queries"`
		Recommendations  []string       `json:"recommendations"`
	}
)

// NewLayerTimer creates a timer for one request. An empty requestID generates
// a fresh UUID so the report is always retrievable by identifier.
func NewLayerTimer(requestID string) *LayerTimer {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	return &LayerTimer{
		requestID:   requestID,
		checkpoints: make(map[string]time.Time),
		observer:    NewQueryObserver(),
	}
}

// RequestID returns the identifier the report will be keyed by.
func (t *LayerTimer) RequestID() string {
	return t.requestID
}

// Observer returns the query observer whose window is bound to this timer.
func (t *LayerTimer) Observer() *QueryObserver {
	return t.observer
}

// Start records the start checkpoint and opens the observation window.
func (t *LayerTimer) Start() {
	if t == nil {
		return
	}

	t.Checkpoint(CheckpointStart)
	t.observer.Start()
}

// Stop records the end checkpoint and closes the observation window.
func (t *LayerTimer) Stop() {
	if t == nil {
		return
	}

	t.Checkpoint(CheckpointEnd)
	t.observer.Stop()
}

// Checkpoint records the current time under name. Re-recording a checkpoint
// overwrites it; callers record in causal order. All methods are no-ops on a
// nil timer, so un-instrumented request paths need no guards.
func (t *LayerTimer) Checkpoint(name string) {
	if t == nil {
		return
	}

	t.checkpoints[name] = time.Now()
}

// EndMiddleware marks the end of middleware processing.
func (t *LayerTimer) EndMiddleware() { t.Checkpoint(CheckpointMiddlewareEnd) }

// EndPermission marks the end of authorization checking.
func (t *LayerTimer) EndPermission() { t.Checkpoint(CheckpointPermissionEnd) }

// EndQueryset marks the end of data fetching.
func (t *LayerTimer) EndQueryset() { t.Checkpoint(CheckpointQuerysetEnd) }

// EndSerializer marks the end of response serialization.
func (t *LayerTimer) EndSerializer() { t.Checkpoint(CheckpointSerializerEnd) }

// Report derives the combined timing breakdown, bottleneck classification,
// query analysis, and recommendations from the recorded checkpoints.
func (t *LayerTimer) Report(tuning *Tuning) Report {
	start := t.checkpointOr(CheckpointStart, time.Time{})
	middlewareEnd := t.checkpointOr(CheckpointMiddlewareEnd, start)
	permissionEnd := t.checkpointOr(CheckpointPermissionEnd, middlewareEnd)
	querysetEnd := t.checkpointOr(CheckpointQuerysetEnd, permissionEnd)
	serializerEnd := t.checkpointOr(CheckpointSerializerEnd, querysetEnd)
	end := t.checkpointOr(CheckpointEnd, serializerEnd)

	breakdown := LayerTimings{
		MiddlewareMs: layerMs(start, middlewareEnd),
		PermissionMs: layerMs(middlewareEnd, permissionEnd),
		QuerysetMs:   layerMs(permissionEnd, querysetEnd),
		SerializerMs: layerMs(querysetEnd, serializerEnd),
	}

	bottleneckLayer := bottleneck(breakdown)

	bottleneckType := BottleneckCPU
	if bottleneckLayer == LayerPermission || bottleneckLayer == LayerQueryset {
		bottleneckType = BottleneckIO
	}

	analysis := Analyze(t.observer.Operations(), tuning)

	return Report{
		RequestID:        t.requestID,
		TotalTimeMs:      layerMs(start, end),
		Breakdown:        breakdown,
		BottleneckLayer:  bottleneckLayer,
		BottleneckType:   bottleneckType,
		QueryCount:       analysis.TotalQueries,
		TotalQueryTimeMs: analysis.TotalTimeMs,
		NPlusOneDetected: analysis.NPlusOneDetected,
		DuplicateQueries: analysis.DuplicateQueries,
		SlowestQueries:   analysis.SlowestQueries,
		Recommendations:  recommendations(breakdown, analysis, tuning),
	}
}

// checkpointOr returns the recorded checkpoint or the fallback when the
// checkpoint was skipped.
func (t *LayerTimer) checkpointOr(name string, fallback time.Time) time.Time {
	if ts, ok := t.checkpoints[name]; ok {
		return ts
	}

	return fallback
}

// layerMs computes the duration between two consecutive checkpoints in
// milliseconds, clamped at zero.
func layerMs(from, to time.Time) float64 {
	d := to.Sub(from)
	if d < 0 {
		d = 0
	}

	return roundMs(float64(d.Microseconds()) / 1000.0)
}

// bottleneck returns the layer with the largest duration. Ties resolve to the
// earliest layer in lifecycle order.
func bottleneck(b LayerTimings) string {
	layer := LayerMiddleware
	maxMs := b.MiddlewareMs

	if b.PermissionMs > maxMs {
		layer, maxMs = LayerPermission, b.PermissionMs
	}

	if b.QuerysetMs > maxMs {
		layer, maxMs = LayerQueryset, b.QuerysetMs
	}

	if b.SerializerMs > maxMs {
		layer = LayerSerializer
	}

	return layer
}

// recommendations generates advisory optimization hints from the breakdown
// and query analysis. Advisory text only, never enforced.
func recommendations(breakdown LayerTimings, analysis Analysis, tuning *Tuning) []string {
	recs := make([]string, 0, 4)

	if breakdown.PermissionMs > tuning.SlowPermissionMs {
		recs = append(recs, "Permission check is slow - consider using EXISTS instead of COUNT(*)")
	}

	if analysis.NPlusOneDetected {
		recs = append(recs, fmt.Sprintf("N+1 detected - %d queries executed", analysis.TotalQueries))
	}

	if breakdown.QuerysetMs > tuning.SlowQuerysetMs {
		recs = append(recs, "Query execution slow - check for missing indexes")
	}

	if breakdown.SerializerMs > tuning.SlowSerializerMs {
		recs = append(recs, "Serialization slow - consider eager-loading related data")
	}

	return recs
}
