// Package taskweave provides a high-level façade over the workflow engine
// for building agentic orchestration: staged pipelines with quality gates,
// dynamic plan-dispatch-synthesize breakdowns, and bounded evaluate-refine
// loops. Most applications interact with this package by:
//  1. Creating a TaskWeave via New() with a generator backend
//  2. Running a workflow through one of the convenience methods
//     (RunPipeline, RunBreakdown, RunRefine) or Run with an explicit spec
//
// The façade delegates orchestration to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a structured logger and a
// durable progress sink.
package taskweave

import (
	"context"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/dispatch"
	"github.com/hupe1980/taskweave/engine"
	"github.com/hupe1980/taskweave/generator"
	"github.com/hupe1980/taskweave/logging"
	"github.com/hupe1980/taskweave/pipeline"
)

// Options configures the TaskWeave instance.
type Options struct {
	// Registry supplies the worker roles available to breakdown workflows.
	// Defaults to the four standard task-breakdown roles.
	Registry *dispatch.Registry

	// Interceptors veto generator calls before they reach the backend.
	Interceptors []generator.Interceptor

	// ProgressSink receives the append-only audit event stream of every run.
	// Defaults to discarding events.
	ProgressSink core.ProgressSink

	// Logger (defaults to a slog-backed logger if nil).
	Logger logging.Logger
}

// TaskWeave is the high-level façade aggregating the workflow engine.
type TaskWeave struct {
	opts   Options
	engine *engine.Engine
}

// New creates a TaskWeave instance over a generator backend with optional
// overrides.
func New(gen generator.Generator, optFns ...func(o *Options)) *TaskWeave {
	opts := Options{
		ProgressSink: core.NoOpSink{},
		Logger:       logging.NewDefaultSlogLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(gen, func(o *engine.Options) {
		o.Registry = opts.Registry
		o.Interceptors = opts.Interceptors
		o.ProgressSink = opts.ProgressSink
		o.Logger = opts.Logger
	})

	return &TaskWeave{opts: opts, engine: e}
}

// Run executes an explicit workflow spec.
func (t *TaskWeave) Run(ctx context.Context, spec engine.Spec) (*engine.WorkflowResult, error) {
	return t.engine.Run(ctx, spec)
}

// RunPipeline executes a staged pipeline over the input.
func (t *TaskWeave) RunPipeline(ctx context.Context, input core.Artifact, stages ...pipeline.Stage) (*engine.WorkflowResult, error) {
	return t.engine.Run(ctx, engine.PipelineSpec(input, stages...))
}

// RunBreakdown plans work streams for the goal, dispatches a worker per
// stream concurrently and synthesizes the results into one plan.
func (t *TaskWeave) RunBreakdown(ctx context.Context, goal core.Goal) (*engine.WorkflowResult, error) {
	return t.engine.Run(ctx, engine.BreakdownSpec(goal))
}

// RunRefine generates a candidate for the goal and iteratively improves it
// until the quality threshold passes or the iteration ceiling is reached.
func (t *TaskWeave) RunRefine(ctx context.Context, goal core.Goal, instruction string) (*engine.WorkflowResult, error) {
	return t.engine.Run(ctx, engine.RefineSpec(goal, instruction))
}
