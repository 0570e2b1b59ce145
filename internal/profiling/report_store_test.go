package profiling

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelens-io/tracelens/internal/cache"
)

func TestReportStoreRoundTrip(t *testing.T) {
	memStore := cache.NewMemoryStore()
	defer func() { _ = memStore.Close() }()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewReportStore(memStore, time.Hour, logger)

	report := Report{
		RequestID:       "req-abc",
		TotalTimeMs:     310,
		BottleneckLayer: LayerQueryset,
		BottleneckType:  BottleneckIO,
		QueryCount:      7,
	}

	store.Save(context.Background(), report)

	got, err := store.Get(context.Background(), "req-abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, report.RequestID, got.RequestID)
	assert.InDelta(t, report.TotalTimeMs, got.TotalTimeMs, 0.001)
	assert.Equal(t, LayerQueryset, got.BottleneckLayer)
}

func TestReportStoreUnknownRequestID(t *testing.T) {
	memStore := cache.NewMemoryStore()
	defer func() { _ = memStore.Close() }()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewReportStore(memStore, time.Hour, logger)

	got, err := store.Get(context.Background(), "never-saved")
	require.NoError(t, err)
	assert.Nil(t, got)
}
