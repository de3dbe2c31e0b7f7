package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskweave/core"
)

func TestDispatchAllSucceeds(t *testing.T) {
	reg := NewRegistry().
		Register("technical", WorkerFunc{Desc: "t", Fn: func(_ context.Context, goal core.Goal, stream core.StreamName) (string, error) {
			return "tasks for " + string(stream), nil
		}}).
		Register("testing", WorkerFunc{Desc: "q", Fn: func(_ context.Context, goal core.Goal, stream core.StreamName) (string, error) {
			return "tasks for " + string(stream), nil
		}})

	sink := core.NewMemorySink()
	d := NewDispatcher(reg, func(o *DispatcherOptions) {
		o.Recorder = core.NewRecorder(sink, "run-1", nil)
	})

	streams := []core.StreamName{"technical", "testing"}
	results, err := d.DispatchAll(context.Background(), "ship it", streams)
	require.NoError(t, err)

	require.Len(t, results, 2)
	for _, stream := range streams {
		res := results[stream]
		assert.True(t, res.Succeeded)
		assert.Equal(t, "tasks for "+string(stream), res.Content)
	}

	assert.Len(t, sink.ByType(core.EventWorkerDispatched), 2)
	assert.Len(t, sink.ByType(core.EventWorkerCompleted), 2)
}

func TestDispatchAllRunsWorkersConcurrently(t *testing.T) {
	// Each worker blocks until the other has started; the test only completes
	// if both actually run in parallel.
	var barrier sync.WaitGroup
	barrier.Add(2)

	meet := func(_ context.Context, _ core.Goal, stream core.StreamName) (string, error) {
		barrier.Done()
		done := make(chan struct{})
		go func() {
			barrier.Wait()
			close(done)
		}()
		select {
		case <-done:
			return string(stream), nil
		case <-time.After(5 * time.Second):
			return "", errors.New("sibling never started")
		}
	}

	reg := NewRegistry().
		Register("a", WorkerFunc{Desc: "a", Fn: meet}).
		Register("b", WorkerFunc{Desc: "b", Fn: meet})

	d := NewDispatcher(reg, func(o *DispatcherOptions) {
		o.MaxConcurrency = 2
	})

	results, err := d.DispatchAll(context.Background(), "g", []core.StreamName{"a", "b"})
	require.NoError(t, err)
	assert.True(t, results["a"].Succeeded)
	assert.True(t, results["b"].Succeeded)
}

func TestDispatchAllIsolatesWorkerFailure(t *testing.T) {
	reg := NewRegistry().
		Register("good", WorkerFunc{Desc: "g", Fn: func(context.Context, core.Goal, core.StreamName) (string, error) {
			return "fine", nil
		}}).
		Register("bad", WorkerFunc{Desc: "b", Fn: func(context.Context, core.Goal, core.StreamName) (string, error) {
			return "", errors.New("exploded")
		}})

	d := NewDispatcher(reg)
	results, err := d.DispatchAll(context.Background(), "g", []core.StreamName{"good", "bad"})
	require.NoError(t, err)

	// The result key set equals the dispatched stream set exactly.
	require.Len(t, results, 2)
	assert.True(t, results["good"].Succeeded)

	bad := results["bad"]
	assert.False(t, bad.Succeeded)
	assert.Empty(t, bad.Content)
	require.NotNil(t, bad.Err)
	assert.Contains(t, bad.Err.Message, "exploded")
}

func TestDispatchAllEveryWorkerFailed(t *testing.T) {
	fail := WorkerFunc{Desc: "f", Fn: func(context.Context, core.Goal, core.StreamName) (string, error) {
		return "", errors.New("nope")
	}}
	reg := NewRegistry().Register("a", fail).Register("b", fail)

	d := NewDispatcher(reg)
	results, err := d.DispatchAll(context.Background(), "g", []core.StreamName{"a", "b"})

	require.Error(t, err)
	assert.Equal(t, core.KindNoWorkerResults, core.KindOf(err))
	// The full result map still comes back for diagnosis.
	assert.Len(t, results, 2)
}

func TestDispatchAllUnknownStreamFailsBeforeDispatch(t *testing.T) {
	started := false
	reg := NewRegistry().Register("known", WorkerFunc{Desc: "k", Fn: func(context.Context, core.Goal, core.StreamName) (string, error) {
		started = true
		return "x", nil
	}})

	d := NewDispatcher(reg)
	_, err := d.DispatchAll(context.Background(), "g", []core.StreamName{"known", "unknown"})

	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
	assert.False(t, started)
}

// completionSignal closes its channel once the named stream's completion
// event has been recorded, so a test can cancel only after that point.
type completionSignal struct {
	stream string
	once   sync.Once
	ch     chan struct{}
}

func (s *completionSignal) Append(ev core.ProgressEvent) {
	if ev.Type == core.EventWorkerCompleted && ev.Component == s.stream {
		s.once.Do(func() { close(s.ch) })
	}
}

func TestDispatchAllCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signal := &completionSignal{stream: "fast", ch: make(chan struct{})}

	reg := NewRegistry().
		Register("fast", WorkerFunc{Desc: "f", Fn: func(context.Context, core.Goal, core.StreamName) (string, error) {
			return "done", nil
		}}).
		Register("slow", WorkerFunc{Desc: "s", Fn: func(ctx context.Context, _ core.Goal, _ core.StreamName) (string, error) {
			// Wait until the fast worker's result is recorded, then force
			// run-level cancellation.
			<-signal.ch
			cancel()
			<-ctx.Done()
			return "", ctx.Err()
		}})

	d := NewDispatcher(reg, func(o *DispatcherOptions) {
		o.MaxConcurrency = 2
		o.Recorder = core.NewRecorder(signal, "run-1", nil)
	})

	results, err := d.DispatchAll(ctx, "g", []core.StreamName{"fast", "slow"})
	require.ErrorIs(t, err, context.Canceled)

	// Completed work is preserved; unfinished streams are marked cancelled.
	require.Len(t, results, 2)
	assert.True(t, results["fast"].Succeeded)
	assert.True(t, results["slow"].Cancelled)
}
