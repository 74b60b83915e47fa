package collector_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/metricshub/internal/collector"
)

type stubSource struct {
	payload any
	calls   atomic.Int64
	hasData bool
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Collect(_ context.Context) (any, bool) {
	s.calls.Add(1)
	return s.payload, s.hasData
}

func TestLoopStopsOnThirdPoll(t *testing.T) {
	var transmissions atomic.Int64
	ingest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		transmissions.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ingest.Close()

	var polls atomic.Int64
	status := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) >= 3 {
			w.Write([]byte(`{"command": "STOP"}`))
			return
		}
		w.Write([]byte(`{"command": "RUN"}`))
	}))
	defer status.Close()

	source := &stubSource{payload: map[string]int{"v": 1}, hasData: true}
	loop, err := collector.New(collector.Config{
		IngestURL: ingest.URL,
		StatusURL: status.URL,
		Interval:  10 * time.Millisecond,
	}, source)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not terminate on STOP command")
	}

	assert.EqualValues(t, 3, polls.Load())
	assert.EqualValues(t, 2, transmissions.Load(), "stop observed before the third transmission")
	assert.EqualValues(t, 2, source.calls.Load())
}

func TestLoopSurvivesTransportFailure(t *testing.T) {
	// Ingest URL points at a closed server: every POST fails
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	source := &stubSource{payload: map[string]int{"v": 1}, hasData: true}
	loop, err := collector.New(collector.Config{
		IngestURL: deadURL,
		Interval:  5 * time.Millisecond,
	}, source)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, loop.Run(ctx))

	assert.Greater(t, source.calls.Load(), int64(2), "loop kept ticking despite send failures")
}

func TestLoopSurvivesServerErrors(t *testing.T) {
	ingest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ingest.Close()

	source := &stubSource{payload: map[string]int{"v": 1}, hasData: true}
	loop, err := collector.New(collector.Config{
		IngestURL: ingest.URL,
		Interval:  5 * time.Millisecond,
	}, source)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, loop.Run(ctx))

	assert.Greater(t, source.calls.Load(), int64(2))
}

func TestLoopFailsOpenOnStatusError(t *testing.T) {
	var transmissions atomic.Int64
	ingest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		transmissions.Add(1)
	}))
	defer ingest.Close()

	// Status endpoint always errors: loop must keep running
	status := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer status.Close()

	source := &stubSource{payload: map[string]int{"v": 1}, hasData: true}
	loop, err := collector.New(collector.Config{
		IngestURL: ingest.URL,
		StatusURL: status.URL,
		Interval:  5 * time.Millisecond,
	}, source)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, loop.Run(ctx))

	assert.Greater(t, transmissions.Load(), int64(2))
}

func TestLoopSkipsTransmissionWithoutData(t *testing.T) {
	var transmissions atomic.Int64
	ingest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		transmissions.Add(1)
	}))
	defer ingest.Close()

	source := &stubSource{hasData: false}
	loop, err := collector.New(collector.Config{
		IngestURL: ingest.URL,
		Interval:  5 * time.Millisecond,
	}, source)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	require.NoError(t, loop.Run(ctx))

	assert.Greater(t, source.calls.Load(), int64(1), "source still invoked each tick")
	assert.Zero(t, transmissions.Load(), "no transmission without data")
}

func TestConfigValidation(t *testing.T) {
	source := &stubSource{}

	_, err := collector.New(collector.Config{Interval: time.Second}, source)
	require.Error(t, err, "ingest URL is required")

	_, err = collector.New(collector.Config{IngestURL: "http://localhost:1"}, source)
	require.Error(t, err, "interval must be positive")
}
