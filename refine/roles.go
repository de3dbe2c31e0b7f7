package refine

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/generator"
)

// Criterion is one rubric dimension with its fixed score sub-range [0, Max].
type Criterion struct {
	Name string
	Max  int
}

// DefaultRubric sums to the 0-100 scale.
var DefaultRubric = []Criterion{
	{Name: "accuracy", Max: 40},
	{Name: "completeness", Max: 30},
	{Name: "clarity", Max: 30},
}

// rubricOutput is the structured-output contract for the evaluation call.
type rubricOutput struct {
	Scores      map[string]int `json:"scores"`
	Issues      []string       `json:"issues"`
	Suggestions []string       `json:"suggestions"`
}

// GeneratorProducer creates the initial candidate via one generator call.
type GeneratorProducer struct {
	gen         generator.Generator
	instruction string
}

// NewGeneratorProducer builds a producer. instruction frames the generation
// task; the goal is appended at run time.
func NewGeneratorProducer(gen generator.Generator, instruction string) *GeneratorProducer {
	return &GeneratorProducer{gen: gen, instruction: instruction}
}

// Produce implements Producer.
func (p *GeneratorProducer) Produce(ctx context.Context, goal core.Goal) (core.Artifact, error) {
	resp, err := p.gen.Generate(ctx, generator.Request{
		Component: "producer",
		Prompt:    fmt.Sprintf("%s\n\nTask: %s", p.instruction, goal),
	})
	if err != nil {
		return core.Artifact{}, err
	}
	return core.NewArtifact(resp.Text), nil
}

// GeneratorEvaluator scores candidates against a fixed numeric rubric via a
// schema-constrained generator call. Criterion scores outside their declared
// sub-range are a fatal generator failure, not something to silently clamp.
type GeneratorEvaluator struct {
	gen    generator.Generator
	rubric []Criterion
}

// NewGeneratorEvaluator builds an evaluator. A nil rubric selects
// DefaultRubric. The criterion maxima must sum to 100.
func NewGeneratorEvaluator(gen generator.Generator, rubric []Criterion) (*GeneratorEvaluator, error) {
	if rubric == nil {
		rubric = DefaultRubric
	}
	total := 0
	for _, c := range rubric {
		if c.Max <= 0 {
			return nil, core.NewError(core.KindConfiguration, "evaluator",
				fmt.Sprintf("criterion %q has non-positive maximum", c.Name), nil)
		}
		total += c.Max
	}
	if total != 100 {
		return nil, core.NewError(core.KindConfiguration, "evaluator",
			fmt.Sprintf("rubric maxima sum to %d, want 100", total), nil)
	}
	return &GeneratorEvaluator{gen: gen, rubric: rubric}, nil
}

// Evaluate implements Evaluator.
func (e *GeneratorEvaluator) Evaluate(ctx context.Context, goal core.Goal, candidate core.Artifact) (core.QualityScore, error) {
	schema, err := generator.SchemaFor[rubricOutput]()
	if err != nil {
		return core.QualityScore{}, core.NewError(core.KindConfiguration, "evaluator", "rubric schema derivation failed", err)
	}

	var criteria strings.Builder
	for _, c := range e.rubric {
		fmt.Fprintf(&criteria, "- %s: score 0 to %d\n", c.Name, c.Max)
	}

	resp, err := e.gen.Generate(ctx, generator.Request{
		Component: "evaluator",
		Prompt: fmt.Sprintf(
			`Evaluate the following content against the original task.

Original task: %s

Content to evaluate:
%s

Score each criterion within its range (the "scores" object must contain exactly these keys):
%s
List concrete issues and actionable suggestions for anything that cost points.`,
			goal, candidate.Content, criteria.String()),
		Schema: schema,
	})
	if err != nil {
		return core.QualityScore{}, err
	}

	out, err := generator.Decode[rubricOutput]("evaluator", resp)
	if err != nil {
		return core.QualityScore{}, err
	}

	total := 0
	for _, c := range e.rubric {
		v, ok := out.Scores[c.Name]
		if !ok {
			return core.QualityScore{}, generator.Fatal("evaluator",
				fmt.Sprintf("rubric score for %q missing from response", c.Name), nil)
		}
		if v < 0 || v > c.Max {
			return core.QualityScore{}, generator.Fatal("evaluator",
				fmt.Sprintf("rubric score for %q is %d, outside [0, %d]", c.Name, v, c.Max), nil)
		}
		total += v
	}

	return core.QualityScore{
		Score:       total,
		Issues:      out.Issues,
		Suggestions: out.Suggestions,
	}, nil
}

// GeneratorRefiner reworks a candidate against the evaluator's specific
// failing criteria.
type GeneratorRefiner struct {
	gen generator.Generator
}

// NewGeneratorRefiner builds a refiner.
func NewGeneratorRefiner(gen generator.Generator) *GeneratorRefiner {
	return &GeneratorRefiner{gen: gen}
}

// Refine implements Refiner.
func (r *GeneratorRefiner) Refine(ctx context.Context, goal core.Goal, candidate core.Artifact, score core.QualityScore) (core.Artifact, error) {
	var feedback strings.Builder
	if len(score.Issues) > 0 {
		feedback.WriteString("Issues found:\n")
		for _, issue := range score.Issues {
			fmt.Fprintf(&feedback, "- %s\n", issue)
		}
	}
	if len(score.Suggestions) > 0 {
		feedback.WriteString("Suggestions:\n")
		for _, s := range score.Suggestions {
			fmt.Fprintf(&feedback, "- %s\n", s)
		}
	}

	resp, err := r.gen.Generate(ctx, generator.Request{
		Component: "refiner",
		Prompt: fmt.Sprintf(
			`Improve the following content. Reflect on the feedback from its evaluation (scored %d/100) and address every listed issue.

Task: %s

Current content:
%s

%s
Output only the improved content.`,
			score.Score, goal, candidate.Content, feedback.String()),
	})
	if err != nil {
		return core.Artifact{}, err
	}
	return core.NewArtifact(resp.Text), nil
}
