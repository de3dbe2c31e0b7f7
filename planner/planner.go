// Package planner implements dynamic work decomposition: one
// schema-constrained generator call that selects which registered work
// streams apply to a goal. The planning call is untrusted; its output is
// validated against the static registry before any worker is dispatched, so
// unbounded or unknown work can never enter the concurrent dispatch phase.
package planner

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/dispatch"
	"github.com/hupe1980/taskweave/generator"
	"github.com/hupe1980/taskweave/logging"
)

// planOutput is the structured-output contract for the planning call.
type planOutput struct {
	Goal        string   `json:"goal"`
	WorkStreams []string `json:"work_streams"`
	Reasoning   string   `json:"reasoning"`
}

// Options configure a Planner.
type Options struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Planner decides which worker roles apply to a goal.
type Planner struct {
	gen      generator.Generator
	registry *dispatch.Registry
	opts     Options
}

// New builds a planner over a generator and the stream catalog it may choose
// from.
func New(gen generator.Generator, registry *dispatch.Registry, optFns ...func(o *Options)) *Planner {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Planner{gen: gen, registry: registry, opts: opts}
}

// Plan produces a validated WorkStreamPlan for the goal. An empty stream set
// or an unregistered stream name fails loudly as a configuration error;
// nothing is silently coerced. Against a deterministic generator, identical
// goals yield identical plans.
func (p *Planner) Plan(ctx context.Context, goal core.Goal) (*core.WorkStreamPlan, error) {
	if p.registry.Len() == 0 {
		return nil, core.NewError(core.KindConfiguration, "planner",
			"stream registry is empty", nil)
	}

	schema, err := generator.SchemaFor[planOutput]()
	if err != nil {
		return nil, core.NewError(core.KindConfiguration, "planner", "plan schema derivation failed", err)
	}

	prompt := fmt.Sprintf(
		`Analyze this goal and identify which work streams are needed to accomplish it.

Goal: %s

Available work streams:
%s
Choose ONLY the work streams that are relevant to this specific goal.
Not every goal needs all work streams - be selective based on what the goal actually requires.
Explain your reasoning briefly.`, goal, p.registry.Catalog())

	resp, err := p.gen.Generate(ctx, generator.Request{
		Component: "planner",
		Prompt:    prompt,
		Schema:    schema,
	})
	if err != nil {
		return nil, err
	}

	out, err := generator.Decode[planOutput]("planner", resp)
	if err != nil {
		return nil, err
	}

	streams := make([]core.StreamName, len(out.WorkStreams))
	for i, s := range out.WorkStreams {
		streams[i] = core.StreamName(s)
	}

	plan, err := core.NewWorkStreamPlan(goal, streams, out.Reasoning)
	if err != nil {
		return nil, err
	}

	for _, stream := range plan.Streams {
		if _, err := p.registry.Resolve(stream); err != nil {
			return nil, core.NewError(core.KindConfiguration, "planner",
				fmt.Sprintf("planner selected unregistered stream %q", stream), nil)
		}
	}

	p.opts.Logger.Info("work streams selected", "plan", plan.String(), "rationale", plan.Rationale)

	return plan, nil
}
