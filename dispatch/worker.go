package dispatch

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/generator"
)

// GeneratorWorker is the standard worker role: a described specialist that
// turns a goal into stream-specific content via one generator call.
type GeneratorWorker struct {
	description string
	instruction string
	gen         generator.Generator
}

// NewGeneratorWorker builds a worker role. instruction frames the
// specialist's task; the goal and stream are appended at run time.
func NewGeneratorWorker(description, instruction string, gen generator.Generator) *GeneratorWorker {
	return &GeneratorWorker{description: description, instruction: instruction, gen: gen}
}

// Description implements Worker.
func (w *GeneratorWorker) Description() string { return w.description }

// Run implements Worker.
func (w *GeneratorWorker) Run(ctx context.Context, goal core.Goal, stream core.StreamName) (string, error) {
	resp, err := w.gen.Generate(ctx, generator.Request{
		Component: string(stream),
		Prompt: fmt.Sprintf(
			"%s\n\nBreak down this goal into specific, actionable tasks for the %s work stream.\n\nGoal: %s\n\nGenerate a clear markdown checklist. Be specific and practical.",
			w.instruction, stream, goal),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc struct {
	Desc string
	Fn   func(ctx context.Context, goal core.Goal, stream core.StreamName) (string, error)
}

// Description implements Worker.
func (w WorkerFunc) Description() string { return w.Desc }

// Run implements Worker.
func (w WorkerFunc) Run(ctx context.Context, goal core.Goal, stream core.StreamName) (string, error) {
	return w.Fn(ctx, goal, stream)
}

// DefaultRegistry returns the four standard task-breakdown roles, all backed
// by the given generator.
func DefaultRegistry(gen generator.Generator) *Registry {
	return NewRegistry().
		Register("technical", NewGeneratorWorker(
			"Technical implementation specialist. Use for development, architecture, and coding tasks.",
			"You are a technical task breakdown specialist.",
			gen)).
		Register("testing", NewGeneratorWorker(
			"Testing and QA specialist. Use for test planning, quality assurance, and validation tasks.",
			"You are a testing task breakdown specialist.",
			gen)).
		Register("documentation", NewGeneratorWorker(
			"Documentation specialist. Use for docs, guides and communication tasks.",
			"You are a documentation task breakdown specialist.",
			gen)).
		Register("operations", NewGeneratorWorker(
			"Operations and deployment specialist. Use for infrastructure, deployment, and monitoring tasks.",
			"You are an operations task breakdown specialist.",
			gen))
}
