package pipeline

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/generator"
)

// StageFunc is a stage's side-effecting action: typically one generator
// call, but any artifact transformation qualifies.
type StageFunc func(ctx context.Context, input core.Artifact) (core.Artifact, error)

// Stage is one pipeline step: a named action plus the gate its output must
// pass before the next stage starts.
type Stage struct {
	Name string
	Run  StageFunc
	Gate Gate
}

// NewStage constructs a stage.
func NewStage(name string, run StageFunc, gate Gate) Stage {
	return Stage{Name: name, Run: run, Gate: gate}
}

// GeneratorStage builds a stage that feeds the input artifact through a
// prompt template ("%s" receives the input content) and wraps the reply in a
// fresh artifact.
func GeneratorStage(name string, gen generator.Generator, promptTemplate string, gate Gate) Stage {
	return Stage{
		Name: name,
		Gate: gate,
		Run: func(ctx context.Context, input core.Artifact) (core.Artifact, error) {
			resp, err := gen.Generate(ctx, generator.Request{
				Component: name,
				Prompt:    fmt.Sprintf(promptTemplate, input.Content),
			})
			if err != nil {
				return core.Artifact{}, err
			}
			return core.NewArtifact(resp.Text).WithMetadata("stage", name), nil
		},
	}
}
