package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// EventType enumerates the structured progress events a run can emit.
type EventType string

const (
	// EventStageStarted is emitted before a pipeline stage runs.
	EventStageStarted EventType = "stage_started"
	// EventGateEvaluated is emitted after a stage's gate verdict is computed.
	EventGateEvaluated EventType = "gate_evaluated"
	// EventWorkerDispatched is emitted when a worker is handed to the pool.
	EventWorkerDispatched EventType = "worker_dispatched"
	// EventWorkerCompleted is emitted when a worker finishes (either way).
	EventWorkerCompleted EventType = "worker_completed"
	// EventIterationScored is emitted after each evaluator scoring.
	EventIterationScored EventType = "iteration_scored"
	// EventGeneratorRetried is emitted when a transient generator failure is
	// retried at the call site.
	EventGeneratorRetried EventType = "generator_retried"
)

// ProgressEvent is one append-only audit record. Events are immutable after
// emission.
type ProgressEvent struct {
	ID        string            `json:"id"`
	RunID     string            `json:"run_id"`
	Type      EventType         `json:"type"`
	Component string            `json:"component"`
	Timestamp time.Time         `json:"timestamp"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// ProgressSink receives progress events. Implementations must tolerate
// concurrent Append calls only when documented; the engine serializes
// appends through a QueuedSink so plain sinks stay simple.
type ProgressSink interface {
	Append(event ProgressEvent)
}

// NoOpSink discards all events. The absence of a listener never changes
// workflow behavior.
type NoOpSink struct{}

// Append implements ProgressSink.
func (NoOpSink) Append(ProgressEvent) {}

// MemorySink retains events in emission order. Safe for concurrent append;
// intended for tests and post-run inspection.
type MemorySink struct {
	mu     sync.Mutex
	events []ProgressEvent
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Append implements ProgressSink.
func (s *MemorySink) Append(event ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of all recorded events.
func (s *MemorySink) Events() []ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProgressEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ByType filters recorded events by type.
func (s *MemorySink) ByType(t EventType) []ProgressEvent {
	var out []ProgressEvent
	for _, e := range s.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// QueuedSink serializes appends from parallel workers onto a single writer
// goroutine, so downstream sinks never see concurrent calls. Close flushes
// the queue; appends arriving after Close are dropped, so a worker that
// outlives its run (a cancelled dispatch abandons in-flight workers) can
// still report completion without panicking on a closed channel.
type QueuedSink struct {
	inner  ProgressSink
	ch     chan ProgressEvent
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewQueuedSink wraps inner with a single-writer queue of the given depth.
func NewQueuedSink(inner ProgressSink, buffer int) *QueuedSink {
	if buffer <= 0 {
		buffer = 128
	}
	q := &QueuedSink{
		inner: inner,
		ch:    make(chan ProgressEvent, buffer),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(q.done)
		for ev := range q.ch {
			q.inner.Append(ev)
		}
	}()
	return q
}

// Append implements ProgressSink. Blocks only when the buffer is full, which
// keeps ordering intact under bursty parallel emission. After Close the
// event is silently discarded.
func (q *QueuedSink) Append(event ProgressEvent) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	q.ch <- event
}

// Close stops the writer after draining queued events. Safe to call with
// producers still running; their subsequent appends become no-ops.
func (q *QueuedSink) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()
	<-q.done
}

// Recorder stamps and emits progress events for one run. A nil Recorder is
// valid and drops everything, so components never need nil checks at each
// emission site.
type Recorder struct {
	sink  ProgressSink
	runID string
	clock clockwork.Clock
}

// NewRecorder binds a sink and clock to a run. sink may be nil.
func NewRecorder(sink ProgressSink, runID string, clock clockwork.Clock) *Recorder {
	if sink == nil {
		sink = NoOpSink{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{sink: sink, runID: runID, clock: clock}
}

func (r *Recorder) emit(t EventType, component string, attrs map[string]string) {
	if r == nil {
		return
	}
	r.sink.Append(ProgressEvent{
		ID:        NewID(),
		RunID:     r.runID,
		Type:      t,
		Component: component,
		Timestamp: r.clock.Now().UTC(),
		Attrs:     attrs,
	})
}

// StageStarted records the start of a pipeline stage.
func (r *Recorder) StageStarted(stage string) {
	r.emit(EventStageStarted, stage, nil)
}

// GateEvaluated records a gate verdict for a stage.
func (r *Recorder) GateEvaluated(stage string, verdict GateVerdict) {
	r.emit(EventGateEvaluated, stage, map[string]string{
		"passed": fmt.Sprintf("%t", verdict.Passed),
		"reason": verdict.Reason,
	})
}

// WorkerDispatched records a worker being handed to the pool.
func (r *Recorder) WorkerDispatched(stream StreamName) {
	r.emit(EventWorkerDispatched, string(stream), nil)
}

// WorkerCompleted records a worker outcome, success or failure.
func (r *Recorder) WorkerCompleted(result WorkerResult) {
	attrs := map[string]string{
		"succeeded": fmt.Sprintf("%t", result.Succeeded),
		"cancelled": fmt.Sprintf("%t", result.Cancelled),
	}
	if result.Err != nil {
		attrs["error"] = result.Err.Message
	}
	r.emit(EventWorkerCompleted, string(result.Stream), attrs)
}

// IterationScored records one evaluator scoring in the refinement loop.
func (r *Recorder) IterationScored(index int, score QualityScore) {
	r.emit(EventIterationScored, fmt.Sprintf("iteration-%d", index), map[string]string{
		"score":   fmt.Sprintf("%d", score.Score),
		"passing": fmt.Sprintf("%t", score.Passing),
	})
}

// GeneratorRetried records a transient failure retry at a generator call site.
func (r *Recorder) GeneratorRetried(component string, attempt int, err error) {
	r.emit(EventGeneratorRetried, component, map[string]string{
		"attempt": fmt.Sprintf("%d", attempt),
		"error":   err.Error(),
	})
}
