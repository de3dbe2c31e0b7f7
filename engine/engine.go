package engine

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/dispatch"
	"github.com/hupe1980/taskweave/generator"
	"github.com/hupe1980/taskweave/logging"
	"github.com/hupe1980/taskweave/pipeline"
	"github.com/hupe1980/taskweave/planner"
	"github.com/hupe1980/taskweave/refine"
)

// Status is the terminal state of a workflow run.
type Status string

const (
	// Succeeded means the workflow completed and produced its artifact.
	Succeeded Status = "succeeded"
	// Failed means the workflow halted on an unrecoverable failure.
	Failed Status = "failed"
	// Exhausted means the refinement ceiling was hit without passing; the
	// result still carries the best candidate seen.
	Exhausted Status = "exhausted"
	// Cancelled means the run's context ended before completion.
	Cancelled Status = "cancelled"
)

// WorkflowResult is the terminal record of one run. Exactly one of the
// detail fields relevant to the workflow kind is populated; Failure is set
// whenever Status is Failed or Cancelled.
type WorkflowResult struct {
	RunID    string
	Kind     WorkflowKind
	Status   Status
	Artifact core.Artifact
	Failure  *core.ErrorInfo

	// Pipeline carries the full stage audit trail for pipeline runs,
	// including a rejecting stage's artifact and verdict.
	Pipeline *pipeline.Result
	// Plan and WorkerResults carry the breakdown trail.
	Plan          *core.WorkStreamPlan
	WorkerResults map[core.StreamName]core.WorkerResult
	// Iterations carries the refinement trail.
	Iterations []core.RefinementIteration
}

// Options configure an Engine.
type Options struct {
	// Registry supplies worker roles for breakdown workflows. Defaults to
	// dispatch.DefaultRegistry over the engine's generator.
	Registry *dispatch.Registry

	// Interceptors are evaluated ahead of every generator call, in order.
	Interceptors []generator.Interceptor

	// Logger defaults to a slog-backed logger at info level.
	Logger logging.Logger

	// ProgressSink receives the run's audit events. Defaults to NoOp. The
	// engine serializes appends through a per-run queue, so the sink never
	// sees concurrent calls.
	ProgressSink core.ProgressSink
	// EventBufferSize is the per-run event queue depth.
	EventBufferSize int

	// Clock is injectable for tests.
	Clock clockwork.Clock

	// MaxRetries bounds transient generator retries per call.
	MaxRetries int
	// DefaultTimeout bounds each generator call without a per-call override.
	DefaultTimeout time.Duration
	// MaxConcurrency bounds simultaneous workers during dispatch.
	MaxConcurrency int
}

// Engine runs workflow specs against a generator backend. An Engine is
// immutable after construction and safe for concurrent Run calls; all
// per-run state (recorder, event queue, run ID) is scoped inside Run.
type Engine struct {
	gen  generator.Generator
	opts Options
}

// New builds an engine over a generator backend.
func New(gen generator.Generator, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:          logging.NewDefaultSlogLogger(),
		ProgressSink:    core.NoOpSink{},
		EventBufferSize: 128,
		Clock:           clockwork.NewRealClock(),
		MaxRetries:      1,
		DefaultTimeout:  60 * time.Second,
		MaxConcurrency:  8,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{gen: gen, opts: opts}
}

// Run executes one workflow to completion. The returned error is non-nil
// only for terminal failures; gate rejections, exhausted refinement and
// cancellation are reported through the result's Status so callers get the
// partial trail either way.
func (e *Engine) Run(ctx context.Context, spec Spec) (*WorkflowResult, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	runID := core.NewID()
	queued := core.NewQueuedSink(e.opts.ProgressSink, e.opts.EventBufferSize)
	defer queued.Close()
	recorder := core.NewRecorder(queued, runID, e.opts.Clock)

	gen := e.runGenerator(recorder)

	result := &WorkflowResult{RunID: runID, Kind: spec.Kind}
	e.opts.Logger.Info("workflow started", "run_id", runID, "kind", string(spec.Kind))

	var err error
	switch spec.Kind {
	case WorkflowPipeline:
		err = e.runPipeline(ctx, spec, recorder, result)
	case WorkflowBreakdown:
		err = e.runBreakdown(ctx, gen, spec, recorder, result)
	case WorkflowRefine:
		err = e.runRefine(ctx, gen, spec, spec.Goal, nil, recorder, result)
	case WorkflowBreakdownThenRefine:
		err = e.runBreakdown(ctx, gen, spec, recorder, result)
		if err == nil && result.Status == Succeeded {
			synthesized := result.Artifact
			err = e.runRefine(ctx, gen, spec, spec.Goal, &synthesized, recorder, result)
		}
	}

	if err != nil {
		e.fail(result, err)
		e.opts.Logger.Error("workflow failed",
			"run_id", runID, "status", string(result.Status), "error", err)
		return result, err
	}

	e.opts.Logger.Info("workflow completed", "run_id", runID, "status", string(result.Status))
	return result, nil
}

// runGenerator builds the per-run generator stack: interceptors outermost so
// vetoed calls are never retried, then bounded retries over the backend.
func (e *Engine) runGenerator(recorder *core.Recorder) generator.Generator {
	retrying := generator.NewRetrying(e.gen, func(o *generator.RetryOptions) {
		o.MaxRetries = e.opts.MaxRetries
		o.DefaultTimeout = e.opts.DefaultTimeout
		o.Recorder = recorder
		o.Logger = e.opts.Logger
		o.Clock = e.opts.Clock
	})
	return generator.NewIntercepted(retrying, e.opts.Interceptors...)
}

func (e *Engine) runPipeline(ctx context.Context, spec Spec, recorder *core.Recorder, result *WorkflowResult) error {
	exec := pipeline.NewExecutor(spec.Stages, func(o *pipeline.Options) {
		o.Logger = e.opts.Logger
		o.Recorder = recorder
	})

	pr := exec.Run(ctx, spec.Input)
	result.Pipeline = pr

	switch pr.Outcome {
	case pipeline.AllStagesPassed:
		result.Status = Succeeded
		result.Artifact = pr.Final
		return nil
	case pipeline.GateRejected:
		return core.NewError(core.KindGateRejected, pr.FailedStage, pr.Verdict.Reason, nil)
	default:
		return pr.Err
	}
}

func (e *Engine) runBreakdown(ctx context.Context, gen generator.Generator, spec Spec, recorder *core.Recorder, result *WorkflowResult) error {
	// The default roles are built per run so their calls go through the same
	// wrapped generator (retries, interceptors, retry events) as everything
	// else in the run.
	registry := e.opts.Registry
	if registry == nil {
		registry = dispatch.DefaultRegistry(gen)
	}

	pl := planner.New(gen, registry, func(o *planner.Options) {
		o.Logger = e.opts.Logger
	})
	plan, err := pl.Plan(ctx, spec.Goal)
	if err != nil {
		return err
	}
	result.Plan = plan

	d := dispatch.NewDispatcher(registry, func(o *dispatch.DispatcherOptions) {
		o.MaxConcurrency = e.opts.MaxConcurrency
		o.Logger = e.opts.Logger
		o.Recorder = recorder
	})
	results, err := d.DispatchAll(ctx, spec.Goal, plan.Streams)
	result.WorkerResults = results
	if err != nil {
		return err
	}

	syn := dispatch.NewSynthesizer(gen, func(o *dispatch.SynthesizerOptions) {
		o.Logger = e.opts.Logger
	})
	artifact, err := syn.Synthesize(ctx, spec.Goal, plan.Streams, results)
	if err != nil {
		return err
	}

	result.Status = Succeeded
	result.Artifact = artifact
	return nil
}

// runRefine runs the refinement loop. seed, when non-nil, short-circuits the
// producer with an existing artifact (the breakdown-then-refine handoff).
func (e *Engine) runRefine(ctx context.Context, gen generator.Generator, spec Spec, goal core.Goal, seed *core.Artifact, recorder *core.Recorder, result *WorkflowResult) error {
	var producer refine.Producer
	switch {
	case seed != nil:
		producer = refine.ProducerFunc(func(context.Context, core.Goal) (core.Artifact, error) {
			return *seed, nil
		})
	case spec.Producer != nil:
		producer = spec.Producer
	default:
		producer = refine.NewGeneratorProducer(gen, spec.Instruction)
	}

	evaluator, err := refine.NewGeneratorEvaluator(gen, spec.Rubric)
	if err != nil {
		return err
	}

	loop := refine.NewLoop(producer, evaluator, refine.NewGeneratorRefiner(gen), func(o *refine.Options) {
		if spec.Threshold > 0 {
			o.Threshold = spec.Threshold
		}
		if spec.MaxIterations >= 0 {
			o.MaxIterations = spec.MaxIterations
		}
		o.Logger = e.opts.Logger
		o.Recorder = recorder
	})

	outcome, err := loop.Run(ctx, goal)
	if err != nil {
		return err
	}

	result.Iterations = outcome.Iterations
	result.Artifact = outcome.Artifact
	if outcome.Status == refine.Accepted {
		result.Status = Succeeded
	} else {
		// Exhaustion is a reported outcome, not an error: the best candidate
		// and its trail are still delivered.
		result.Status = Exhausted
	}
	return nil
}

// fail translates an error into the result's terminal status and failure
// info, preserving the trail fields already populated.
func (e *Engine) fail(result *WorkflowResult, err error) {
	kind := core.KindOf(err)
	if kind == core.KindCancelled || errors.Is(err, context.Canceled) {
		result.Status = Cancelled
	} else {
		result.Status = Failed
	}

	var ce *core.Error
	if errors.As(err, &ce) {
		result.Failure = ce.Info()
	} else {
		result.Failure = &core.ErrorInfo{Kind: kind, Message: err.Error()}
	}
}
