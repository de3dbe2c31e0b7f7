// Command taskweave runs agentic workflows from the terminal: task
// breakdowns with concurrent specialist workers, staged content pipelines
// with quality gates, and iterative refinement loops.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/taskweave"
	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/engine"
	"github.com/hupe1980/taskweave/generator"
	"github.com/hupe1980/taskweave/generator/anthropic"
	"github.com/hupe1980/taskweave/generator/openai"
	"github.com/hupe1980/taskweave/logging"
	"github.com/hupe1980/taskweave/pipeline"
)

var (
	flagBackend string
	flagMock    bool
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "taskweave",
		Short:         "Agentic workflow orchestration: breakdown, pipeline and refine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagBackend, "backend", "anthropic", "generator backend (anthropic|openai)")
	root.PersistentFlags().BoolVar(&flagMock, "mock", false, "use the deterministic mock backend (no API calls)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newBreakdownCmd(), newPipelineCmd(), newRefineCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newWeave builds the façade and returns the backing generator alongside it,
// for commands that wire the generator into stages directly.
func newWeave() (*taskweave.TaskWeave, generator.Generator, error) {
	gen, err := newGenerator()
	if err != nil {
		return nil, nil, err
	}

	level := logging.LogLevelInfo
	if flagVerbose {
		level = logging.LogLevelDebug
	}

	weave := taskweave.New(gen, func(o *taskweave.Options) {
		o.Logger = logging.NewTintLogger(os.Stderr, level)
	})
	return weave, gen, nil
}

func newGenerator() (generator.Generator, error) {
	if flagMock {
		return generator.NewMock(), nil
	}
	switch flagBackend {
	case "anthropic":
		return anthropic.New(), nil
	case "openai":
		return openai.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", flagBackend)
	}
}

func newBreakdownCmd() *cobra.Command {
	var goal, output string

	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Plan work streams for a goal, dispatch specialist workers and synthesize a unified plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			weave, _, err := newWeave()
			if err != nil {
				return err
			}

			result, err := weave.RunBreakdown(cmd.Context(), core.Goal(goal))
			if err != nil {
				return err
			}

			if result.Plan != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Work streams: %s\n", result.Plan)
			}
			return writeArtifact(cmd.OutOrStdout(), output, result.Artifact)
		},
	}

	cmd.Flags().StringVarP(&goal, "goal", "g", "", "goal to break down (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the plan to a file instead of stdout")
	_ = cmd.MarkFlagRequired("goal")

	return cmd
}

func newPipelineCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run raw text through the draft-refine-format content pipeline with quality gates",
		RunE: func(cmd *cobra.Command, args []string) error {
			weave, gen, err := newWeave()
			if err != nil {
				return err
			}

			text, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}

			result, err := weave.RunPipeline(cmd.Context(), core.NewArtifact(text), contentStages(gen)...)
			if err != nil {
				reportRejection(cmd.ErrOrStderr(), result)
				return err
			}
			return writeArtifact(cmd.OutOrStdout(), output, result.Artifact)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input file (defaults to stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file instead of stdout")

	return cmd
}

func newRefineCmd() *cobra.Command {
	var task, output string
	var threshold, maxIters int

	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Generate content for a task and iteratively refine it against a quality rubric",
		RunE: func(cmd *cobra.Command, args []string) error {
			weave, _, err := newWeave()
			if err != nil {
				return err
			}

			spec := engine.RefineSpec(core.Goal(task), "You are a precise technical writer. Produce the requested content directly.")
			spec.Threshold = threshold
			spec.MaxIterations = maxIters

			result, err := weave.Run(cmd.Context(), spec)
			if err != nil {
				return err
			}

			for _, it := range result.Iterations {
				fmt.Fprintf(cmd.ErrOrStderr(), "Iteration %d: %d/100\n", it.Index, it.Score.Score)
			}
			if result.Status == engine.Exhausted {
				fmt.Fprintln(cmd.ErrOrStderr(), "Iteration budget exhausted; returning best candidate.")
			}
			return writeArtifact(cmd.OutOrStdout(), output, result.Artifact)
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "content task (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file instead of stdout")
	cmd.Flags().IntVar(&threshold, "threshold", 75, "passing score (0-100)")
	cmd.Flags().IntVar(&maxIters, "max-iterations", 3, "refinement ceiling")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}

// contentStages is the standard three-stage content pipeline: each stage's
// output must clear its gate before the next stage runs.
func contentStages(gen generator.Generator) []pipeline.Stage {
	return []pipeline.Stage{
		pipeline.GeneratorStage("draft", gen,
			"Write a first draft based on this input. Plain text only, no HTML or markup.\n\nInput:\n%s",
			pipeline.NewGate(pipeline.MinLength(200), pipeline.NoMarkup())),
		pipeline.GeneratorStage("refine", gen,
			"Improve this draft: tighten the prose, fix structure, keep all substance.\n\nDraft:\n%s",
			pipeline.NewGate(pipeline.MinLength(200), pipeline.NoMarkup(), pipeline.HasSubstance())),
		pipeline.GeneratorStage("format", gen,
			"Format this content as clean markdown with headings where appropriate.\n\nContent:\n%s",
			pipeline.NewGate(pipeline.MinLength(100))),
	}
}

func reportRejection(w io.Writer, result *engine.WorkflowResult) {
	if result == nil || result.Pipeline == nil {
		return
	}
	pr := result.Pipeline
	if pr.Outcome == pipeline.GateRejected {
		fmt.Fprintf(w, "Stage %q rejected: %s\n", pr.FailedStage, pr.Verdict.Reason)
	}
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func writeArtifact(stdout io.Writer, path string, artifact core.Artifact) error {
	if path == "" {
		fmt.Fprintln(stdout, artifact.Content)
		return nil
	}
	return os.WriteFile(path, []byte(artifact.Content), 0o644)
}
