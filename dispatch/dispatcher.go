package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/logging"
)

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	// MaxConcurrency bounds how many workers run simultaneously.
	MaxConcurrency int
	// Logger defaults to NoOp.
	Logger logging.Logger
	// Recorder receives WorkerDispatched / WorkerCompleted events. May be
	// nil. Appends happen from parallel workers, so wire a QueuedSink (the
	// engine does) when the underlying sink is not concurrency safe.
	Recorder *core.Recorder
}

// Dispatcher fans a goal out to one worker per stream, concurrently, and
// fans the results back in. One worker's failure never cancels or blocks its
// siblings; the dispatcher waits for every outstanding worker before
// returning, so the result mapping's key set always equals the dispatched
// stream set exactly.
type Dispatcher struct {
	registry *Registry
	pool     pond.ResultPool[core.WorkerResult]
	opts     DispatcherOptions
}

// NewDispatcher builds a dispatcher over a registry.
func NewDispatcher(registry *Registry, optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{
		MaxConcurrency: 8,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{
		registry: registry,
		pool:     pond.NewResultPool[core.WorkerResult](opts.MaxConcurrency),
		opts:     opts,
	}
}

// DispatchAll resolves every stream, runs all workers concurrently and
// returns one WorkerResult per dispatched stream.
//
// Failure semantics:
//   - an unresolvable stream is a configuration error surfaced before any
//     worker starts;
//   - individual worker failures are captured in their WorkerResult;
//   - zero successes yields a NoWorkerResults error alongside the full map;
//   - cancellation returns immediately with completed results plus the
//     remaining streams marked cancelled, and ctx.Err() as the error.
func (d *Dispatcher) DispatchAll(ctx context.Context, goal core.Goal, streams []core.StreamName) (map[core.StreamName]core.WorkerResult, error) {
	workers := make(map[core.StreamName]Worker, len(streams))
	for _, stream := range streams {
		w, err := d.registry.Resolve(stream)
		if err != nil {
			return nil, err
		}
		workers[stream] = w
	}

	start := time.Now()

	var mu sync.Mutex
	completed := make(map[core.StreamName]core.WorkerResult, len(streams))

	group := d.pool.NewGroupContext(ctx)
	for _, stream := range streams {
		stream := stream
		worker := workers[stream]
		d.opts.Recorder.WorkerDispatched(stream)

		group.SubmitErr(func() (core.WorkerResult, error) {
			result := d.runWorker(ctx, worker, goal, stream)
			mu.Lock()
			completed[stream] = result
			mu.Unlock()
			d.opts.Recorder.WorkerCompleted(result)
			// Failures travel inside the result so one worker's error can
			// never cancel the group.
			return result, nil
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = group.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Workers not yet finished are reported as cancelled below; the
		// in-flight ones observe ctx themselves and wind down without this
		// call blocking on them.
	}

	mu.Lock()
	results := make(map[core.StreamName]core.WorkerResult, len(streams))
	for _, stream := range streams {
		if res, ok := completed[stream]; ok {
			results[stream] = res
		} else {
			results[stream] = core.CancelledWorkerResult(stream)
		}
	}
	mu.Unlock()

	succeeded := 0
	for _, res := range results {
		if res.Succeeded {
			succeeded++
		}
	}

	if tl, ok := d.opts.Logger.(*logging.TaskWeaveLogger); ok {
		tl.LogWorkerDispatch(len(streams), succeeded, time.Since(start))
	} else {
		d.opts.Logger.Info("worker dispatch completed",
			"workers", len(streams), "succeeded", succeeded)
	}

	if err := ctx.Err(); err != nil {
		return results, err
	}
	if succeeded == 0 {
		return results, core.NewError(core.KindNoWorkerResults, "dispatcher",
			"every worker failed", nil)
	}
	return results, nil
}

func (d *Dispatcher) runWorker(ctx context.Context, worker Worker, goal core.Goal, stream core.StreamName) core.WorkerResult {
	if ctx.Err() != nil {
		return core.CancelledWorkerResult(stream)
	}

	content, err := worker.Run(ctx, goal, stream)
	if err != nil {
		if ctx.Err() != nil {
			return core.CancelledWorkerResult(stream)
		}
		d.opts.Logger.Warn("worker failed", "stream", stream, "error", err)
		return core.FailedWorkerResult(stream, err)
	}
	return core.SucceededWorkerResult(stream, content)
}
