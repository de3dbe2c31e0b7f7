package pipeline

import (
	"context"
	"time"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/logging"
)

// Outcome is the terminal state of a pipeline run.
type Outcome string

const (
	// AllStagesPassed means every stage ran and every gate passed.
	AllStagesPassed Outcome = "all_stages_passed"
	// StageExecutionFailed means a stage's action failed; no later stage ran.
	StageExecutionFailed Outcome = "stage_execution_failed"
	// GateRejected means a gate deterministically rejected a stage output;
	// no later stage ran.
	GateRejected Outcome = "gate_rejected"
)

// Result is the pipeline's terminal result. Stages holds one StageResult per
// executed stage, in order, including the stage whose gate rejected — its
// artifact is never silently discarded.
type Result struct {
	Outcome Outcome
	// FailedStage names the stage that halted the pipeline, empty on success.
	FailedStage string
	// Final is the last passing artifact on success.
	Final core.Artifact
	// Verdict is the rejecting verdict when Outcome is GateRejected.
	Verdict core.GateVerdict
	// Err is the execution error when Outcome is StageExecutionFailed.
	Err error
	// Stages is the audit trail of every executed stage.
	Stages []core.StageResult
}

// Options configure an Executor.
type Options struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
	// Recorder receives StageStarted / GateEvaluated events. May be nil.
	Recorder *core.Recorder
}

// Executor runs stages strictly in declaration order. Execution is
// deterministic by construction: the stage sequence and gate decisions are
// fixed, and no upstream component's judgment can skip or reorder a stage.
// The only nondeterminism in repeated runs on identical inputs is the
// generator's own output.
type Executor struct {
	stages []Stage
	opts   Options
}

// NewExecutor builds an executor over an ordered stage list.
func NewExecutor(stages []Stage, optFns ...func(o *Options)) *Executor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{stages: stages, opts: opts}
}

// Run executes the pipeline. Each stage's gate verdict is computed strictly
// after that stage's action returns and before the next stage starts; on the
// first failure or rejection the pipeline halts with a terminal result
// naming the stage.
func (e *Executor) Run(ctx context.Context, input core.Artifact) *Result {
	result := &Result{Stages: make([]core.StageResult, 0, len(e.stages))}

	current := input
	for _, stage := range e.stages {
		if err := ctx.Err(); err != nil {
			result.Outcome = StageExecutionFailed
			result.FailedStage = stage.Name
			result.Err = core.NewError(core.KindCancelled, stage.Name, "pipeline cancelled", err)
			return result
		}

		e.opts.Recorder.StageStarted(stage.Name)
		start := time.Now()

		output, err := stage.Run(ctx, current)
		if err != nil {
			e.logStage(stage.Name, start, false, err)
			result.Outcome = StageExecutionFailed
			result.FailedStage = stage.Name
			result.Err = core.NewError(core.KindOf(err), stage.Name, "stage execution failed", err)
			return result
		}

		verdict := stage.Gate.Evaluate(output)
		e.opts.Recorder.GateEvaluated(stage.Name, verdict)
		result.Stages = append(result.Stages, core.StageResult{
			StageName: stage.Name,
			Output:    output,
			Verdict:   verdict,
		})

		if !verdict.Passed {
			e.logStage(stage.Name, start, false, nil)
			result.Outcome = GateRejected
			result.FailedStage = stage.Name
			result.Verdict = verdict
			return result
		}

		e.logStage(stage.Name, start, true, nil)
		current = output
	}

	result.Outcome = AllStagesPassed
	result.Final = current
	return result
}

func (e *Executor) logStage(name string, start time.Time, passed bool, err error) {
	if tl, ok := e.opts.Logger.(*logging.TaskWeaveLogger); ok {
		tl.LogStageExecution(name, time.Since(start), passed, err)
		return
	}
	if err != nil {
		e.opts.Logger.Error("stage failed", "stage", name, "error", err)
		return
	}
	e.opts.Logger.Debug("stage completed", "stage", name, "passed", passed)
}
