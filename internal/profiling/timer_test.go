package profiling

import (
	"testing"
	"time"
)

// setCheckpoints installs fixed checkpoint offsets from a common base so
// breakdown math can be asserted exactly.
func setCheckpoints(t *testing.T, timer *LayerTimer, offsets map[string]time.Duration) {
	t.Helper()

	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	for name, offset := range offsets {
		timer.checkpoints[name] = base.Add(offset)
	}
}

func TestReportBreakdown(t *testing.T) {
	timer := NewLayerTimer("req-1")
	setCheckpoints(t, timer, map[string]time.Duration{
		CheckpointStart:         0,
		CheckpointPermissionEnd: 10 * time.Millisecond,
		CheckpointQuerysetEnd:   260 * time.Millisecond,
		CheckpointSerializerEnd: 300 * time.Millisecond,
		CheckpointEnd:           310 * time.Millisecond,
	})

	report := timer.Report(DefaultTuning())

	if report.Breakdown.PermissionMs != 10.0 {
		t.Errorf("PermissionMs = %v, want 10", report.Breakdown.PermissionMs)
	}

	if report.Breakdown.QuerysetMs != 250.0 {
		t.Errorf("QuerysetMs = %v, want 250", report.Breakdown.QuerysetMs)
	}

	if report.Breakdown.SerializerMs != 40.0 {
		t.Errorf("SerializerMs = %v, want 40", report.Breakdown.SerializerMs)
	}

	if report.Breakdown.MiddlewareMs != 0.0 {
		t.Errorf("MiddlewareMs = %v, want 0 for skipped checkpoint", report.Breakdown.MiddlewareMs)
	}

	if report.TotalTimeMs != 310.0 {
		t.Errorf("TotalTimeMs = %v, want 310", report.TotalTimeMs)
	}

	if report.BottleneckLayer != LayerQueryset {
		t.Errorf("BottleneckLayer = %q, want %q", report.BottleneckLayer, LayerQueryset)
	}

	if report.BottleneckType != BottleneckIO {
		t.Errorf("BottleneckType = %q, want %q", report.BottleneckType, BottleneckIO)
	}
}

func TestReportLayersSumToTotal(t *testing.T) {
	timer := NewLayerTimer("req-2")
	setCheckpoints(t, timer, map[string]time.Duration{
		CheckpointStart:         0,
		CheckpointMiddlewareEnd: 3 * time.Millisecond,
		CheckpointPermissionEnd: 18 * time.Millisecond,
		CheckpointQuerysetEnd:   95 * time.Millisecond,
		CheckpointSerializerEnd: 120 * time.Millisecond,
		CheckpointEnd:           120 * time.Millisecond,
	})

	report := timer.Report(DefaultTuning())

	sum := report.Breakdown.MiddlewareMs +
		report.Breakdown.PermissionMs +
		report.Breakdown.QuerysetMs +
		report.Breakdown.SerializerMs

	if diff := report.TotalTimeMs - sum; diff > 0.02 || diff < -0.02 {
		t.Errorf("layers sum to %v, total is %v", sum, report.TotalTimeMs)
	}
}

func TestReportNoNegativeDurations(t *testing.T) {
	timer := NewLayerTimer("req-3")
	setCheckpoints(t, timer, map[string]time.Duration{
		CheckpointStart: 0,
		CheckpointEnd:   50 * time.Millisecond,
	})

	report := timer.Report(DefaultTuning())

	for name, ms := range map[string]float64{
		LayerMiddleware: report.Breakdown.MiddlewareMs,
		LayerPermission: report.Breakdown.PermissionMs,
		LayerQueryset:   report.Breakdown.QuerysetMs,
		LayerSerializer: report.Breakdown.SerializerMs,
	} {
		if ms < 0 {
			t.Errorf("%s duration = %v, want >= 0", name, ms)
		}
	}
}

func TestReportCPUBottleneck(t *testing.T) {
	timer := NewLayerTimer("req-4")
	setCheckpoints(t, timer, map[string]time.Duration{
		CheckpointStart:         0,
		CheckpointMiddlewareEnd: 5 * time.Millisecond,
		CheckpointPermissionEnd: 10 * time.Millisecond,
		CheckpointQuerysetEnd:   20 * time.Millisecond,
		CheckpointSerializerEnd: 180 * time.Millisecond,
		CheckpointEnd:           185 * time.Millisecond,
	})

	report := timer.Report(DefaultTuning())

	if report.BottleneckLayer != LayerSerializer {
		t.Errorf("BottleneckLayer = %q, want %q", report.BottleneckLayer, LayerSerializer)
	}

	if report.BottleneckType != BottleneckCPU {
		t.Errorf("BottleneckType = %q, want %q", report.BottleneckType, BottleneckCPU)
	}
}

func TestReportRecommendations(t *testing.T) {
	timer := NewLayerTimer("req-5")
	setCheckpoints(t, timer, map[string]time.Duration{
		CheckpointStart:         0,
		CheckpointPermissionEnd: 150 * time.Millisecond,
		CheckpointQuerysetEnd:   400 * time.Millisecond,
		CheckpointSerializerEnd: 520 * time.Millisecond,
		CheckpointEnd:           525 * time.Millisecond,
	})

	report := timer.Report(DefaultTuning())

	want := []string{
		"Permission check is slow - consider using EXISTS instead of COUNT(*)",
		"Query execution slow - check for missing indexes",
		"Serialization slow - consider eager-loading related data",
	}

	if len(report.Recommendations) != len(want) {
		t.Fatalf("got %d recommendations %v, want %d", len(report.Recommendations), report.Recommendations, len(want))
	}

	for i, rec := range want {
		if report.Recommendations[i] != rec {
			t.Errorf("recommendation[%d] = %q, want %q", i, report.Recommendations[i], rec)
		}
	}
}

func TestReportNPlusOneRecommendation(t *testing.T) {
	timer := NewLayerTimer("req-6")
	timer.Start()

	for i := 0; i < 6; i++ {
		timer.Observer().Record("SELECT * FROM calls WHERE customer_id = 7", time.Millisecond)
	}

	timer.Stop()

	report := timer.Report(DefaultTuning())

	if !report.NPlusOneDetected {
		t.Fatal("NPlusOneDetected = false, want true")
	}

	found := false

	for _, rec := range report.Recommendations {
		if rec == "N+1 detected - 6 queries executed" {
			found = true
		}
	}

	if !found {
		t.Errorf("missing N+1 recommendation in %v", report.Recommendations)
	}
}

func TestNewLayerTimerGeneratesRequestID(t *testing.T) {
	timer := NewLayerTimer("")
	if timer.RequestID() == "" {
		t.Error("RequestID() is empty, want generated UUID")
	}

	other := NewLayerTimer("")
	if timer.RequestID() == other.RequestID() {
		t.Error("two timers share a generated request ID")
	}
}

func TestTimerObserverWindow(t *testing.T) {
	timer := NewLayerTimer("req-7")

	timer.Observer().Record("SELECT 1", time.Millisecond)

	if got := len(timer.Observer().Operations()); got != 0 {
		t.Errorf("recorded %d operations before Start, want 0", got)
	}

	timer.Start()
	timer.Observer().Record("SELECT 1", time.Millisecond)
	timer.Stop()
	timer.Observer().Record("SELECT 2", time.Millisecond)

	if got := len(timer.Observer().Operations()); got != 1 {
		t.Errorf("recorded %d operations, want exactly the one inside the window", got)
	}
}
