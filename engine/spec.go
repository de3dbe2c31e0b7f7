package engine

import (
	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/pipeline"
	"github.com/hupe1980/taskweave/refine"
)

// WorkflowKind selects which primitives a run composes.
type WorkflowKind string

const (
	// WorkflowPipeline runs a staged pipeline with quality gates.
	WorkflowPipeline WorkflowKind = "pipeline"
	// WorkflowBreakdown plans work streams, dispatches workers concurrently
	// and synthesizes their outputs.
	WorkflowBreakdown WorkflowKind = "breakdown"
	// WorkflowRefine runs the bounded generate-evaluate-refine loop.
	WorkflowRefine WorkflowKind = "refine"
	// WorkflowBreakdownThenRefine synthesizes first, then refines the
	// synthesized plan.
	WorkflowBreakdownThenRefine WorkflowKind = "breakdown_then_refine"
)

// Spec selects and parameterizes one workflow. Build specs with the
// constructors; zero values are not valid specs.
type Spec struct {
	Kind WorkflowKind

	// Goal drives breakdown and refine workflows.
	Goal core.Goal

	// Input seeds a pipeline workflow.
	Input core.Artifact
	// Stages is the ordered pipeline definition.
	Stages []pipeline.Stage

	// Instruction frames the producer for refine workflows.
	Instruction string
	// Producer overrides the generator-backed producer when set.
	Producer refine.Producer
	// Rubric overrides refine.DefaultRubric when set.
	Rubric []refine.Criterion

	// Threshold is the passing score; <= 0 selects the default (75).
	Threshold int
	// MaxIterations is the refinement ceiling; < 0 selects the default (3).
	// Zero is meaningful: exactly one generate+evaluate cycle.
	MaxIterations int
}

// PipelineSpec builds a staged pipeline workflow.
func PipelineSpec(input core.Artifact, stages ...pipeline.Stage) Spec {
	return Spec{Kind: WorkflowPipeline, Input: input, Stages: stages, MaxIterations: -1}
}

// BreakdownSpec builds a plan-dispatch-synthesize workflow.
func BreakdownSpec(goal core.Goal) Spec {
	return Spec{Kind: WorkflowBreakdown, Goal: goal, MaxIterations: -1}
}

// RefineSpec builds an evaluate-refine workflow.
func RefineSpec(goal core.Goal, instruction string) Spec {
	return Spec{Kind: WorkflowRefine, Goal: goal, Instruction: instruction, MaxIterations: -1}
}

// BreakdownThenRefineSpec composes breakdown and refinement.
func BreakdownThenRefineSpec(goal core.Goal) Spec {
	return Spec{Kind: WorkflowBreakdownThenRefine, Goal: goal, MaxIterations: -1}
}

// validate fails fast on malformed specs before any external call.
func (s Spec) validate() error {
	switch s.Kind {
	case WorkflowPipeline:
		if len(s.Stages) == 0 {
			return core.NewError(core.KindConfiguration, "engine", "pipeline spec has no stages", nil)
		}
	case WorkflowBreakdown, WorkflowBreakdownThenRefine:
		if s.Goal == "" {
			return core.NewError(core.KindConfiguration, "engine", "breakdown spec has no goal", nil)
		}
	case WorkflowRefine:
		if s.Goal == "" {
			return core.NewError(core.KindConfiguration, "engine", "refine spec has no goal", nil)
		}
		if s.Instruction == "" && s.Producer == nil {
			return core.NewError(core.KindConfiguration, "engine", "refine spec needs an instruction or a producer", nil)
		}
	default:
		return core.NewError(core.KindConfiguration, "engine", "unknown workflow kind", nil)
	}
	return nil
}
