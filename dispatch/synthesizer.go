package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/generator"
	"github.com/hupe1980/taskweave/logging"
)

// SynthesizerOptions configure a Synthesizer.
type SynthesizerOptions struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Synthesizer merges worker outputs into one coherent artifact via a single
// generator call. Successful results are consumed in plan order; failed
// streams are rendered as explicit gap annotations, never silently omitted
// from the narrative.
type Synthesizer struct {
	gen  generator.Generator
	opts SynthesizerOptions
}

// NewSynthesizer builds a synthesizer over a generator.
func NewSynthesizer(gen generator.Generator, optFns ...func(o *SynthesizerOptions)) *Synthesizer {
	opts := SynthesizerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Synthesizer{gen: gen, opts: opts}
}

// Synthesize produces the unified artifact. order fixes the stream sequence
// (normally the plan's); every successful stream must be traceable in the
// output as a "## <stream>"-titled section, which is verified before the
// artifact is returned.
func (s *Synthesizer) Synthesize(ctx context.Context, goal core.Goal, order []core.StreamName, results map[core.StreamName]core.WorkerResult) (core.Artifact, error) {
	var sections []string
	var gaps []string
	var succeeded []core.StreamName

	for _, stream := range order {
		res, ok := results[stream]
		if !ok {
			continue
		}
		if res.Succeeded {
			succeeded = append(succeeded, stream)
			sections = append(sections, fmt.Sprintf("### %s work stream\n%s", stream, res.Content))
			continue
		}
		reason := "worker failed"
		if res.Err != nil {
			reason = res.Err.Message
		}
		if res.Cancelled {
			reason = "worker cancelled"
		}
		gaps = append(gaps, fmt.Sprintf("- %s: no content available (%s)", stream, reason))
	}

	if len(succeeded) == 0 {
		return core.Artifact{}, core.NewError(core.KindNoWorkerResults, "synthesizer",
			"no successful worker results to synthesize", nil)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Synthesize these work stream task lists into a unified project plan.\n\nGoal: %s\n\nWork stream results:\n\n%s\n",
		goal, strings.Join(sections, "\n\n"))
	if len(gaps) > 0 {
		fmt.Fprintf(&b, "\nThe following work streams produced no content; note each as an open gap in the plan rather than omitting it:\n%s\n",
			strings.Join(gaps, "\n"))
	}
	b.WriteString(`
Create a cohesive plan that:
1. Orders tasks logically (dependencies first)
2. Explicitly flags any cross-stream dependencies it detects
3. Groups related tasks together
4. Provides a clear execution sequence

Output a clean markdown document. Include one "## <stream>" section per work stream listed above so every input stream remains traceable.`)

	resp, err := s.gen.Generate(ctx, generator.Request{
		Component: "synthesizer",
		Prompt:    b.String(),
	})
	if err != nil {
		return core.Artifact{}, err
	}

	for _, stream := range succeeded {
		if !strings.Contains(strings.ToLower(resp.Text), strings.ToLower(string(stream))) {
			return core.Artifact{}, generator.Fatal("synthesizer",
				fmt.Sprintf("synthesis dropped the %q work stream", stream), nil)
		}
	}

	s.opts.Logger.Debug("synthesis completed", "streams", len(succeeded), "gaps", len(gaps))

	return core.NewArtifact(resp.Text).WithMetadata("synthesized_from", joinStreams(succeeded)), nil
}

func joinStreams(streams []core.StreamName) string {
	names := make([]string, len(streams))
	for i, s := range streams {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}
