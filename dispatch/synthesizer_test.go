package dispatch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/generator"
)

// scriptedGenerator captures the request and replies with a fixed text.
type scriptedGenerator struct {
	last  generator.Request
	reply string
}

func (g *scriptedGenerator) Generate(_ context.Context, req generator.Request) (*generator.Response, error) {
	g.last = req
	return &generator.Response{Text: g.reply}, nil
}

func (g *scriptedGenerator) Info() generator.Info {
	return generator.Info{Name: "scripted", Backend: "test"}
}

func TestSynthesizeMergesStreamsInPlanOrder(t *testing.T) {
	gen := &scriptedGenerator{reply: "# Plan\n## technical\nbuild\n## testing\nverify"}
	s := NewSynthesizer(gen)

	results := map[core.StreamName]core.WorkerResult{
		"technical": core.SucceededWorkerResult("technical", "build the service"),
		"testing":   core.SucceededWorkerResult("testing", "write the tests"),
	}

	artifact, err := s.Synthesize(context.Background(), "ship it", []core.StreamName{"technical", "testing"}, results)
	require.NoError(t, err)

	assert.Contains(t, artifact.Content, "## technical")
	assert.Equal(t, "technical,testing", artifact.Metadata["synthesized_from"])

	// Inputs appear in the prompt in plan order.
	prompt := gen.last.Prompt
	assert.Contains(t, prompt, "### technical work stream\nbuild the service")
	assert.Contains(t, prompt, "### testing work stream\nwrite the tests")
	assert.Less(t,
		strings.Index(prompt, "### technical"),
		strings.Index(prompt, "### testing"))
}

func TestSynthesizeAnnotatesGaps(t *testing.T) {
	gen := &scriptedGenerator{reply: "## technical\nbuild\n\nOpen gap: testing produced no content."}
	s := NewSynthesizer(gen)

	results := map[core.StreamName]core.WorkerResult{
		"technical": core.SucceededWorkerResult("technical", "build"),
		"testing":   core.FailedWorkerResult("testing", core.NewError(core.KindFatalGenerator, "testing", "backend down", nil)),
		"docs":      core.CancelledWorkerResult("docs"),
	}

	_, err := s.Synthesize(context.Background(), "g", []core.StreamName{"technical", "testing", "docs"}, results)
	require.NoError(t, err)

	// Failed and cancelled streams become explicit gap annotations, never
	// silent omissions.
	assert.Contains(t, gen.last.Prompt, "- testing: no content available")
	assert.Contains(t, gen.last.Prompt, "- docs: no content available (worker cancelled)")
}

func TestSynthesizeRejectsWhenAllFailed(t *testing.T) {
	s := NewSynthesizer(generator.NewMock())
	results := map[core.StreamName]core.WorkerResult{
		"technical": core.FailedWorkerResult("technical", core.NewError(core.KindFatalGenerator, "technical", "down", nil)),
	}

	_, err := s.Synthesize(context.Background(), "g", []core.StreamName{"technical"}, results)
	require.Error(t, err)
	assert.Equal(t, core.KindNoWorkerResults, core.KindOf(err))
}

func TestSynthesizeRejectsDroppedStream(t *testing.T) {
	// The reply omits the testing stream entirely; traceability fails.
	gen := &scriptedGenerator{reply: "## technical\nonly this"}
	s := NewSynthesizer(gen)

	results := map[core.StreamName]core.WorkerResult{
		"technical": core.SucceededWorkerResult("technical", "a"),
		"testing":   core.SucceededWorkerResult("testing", "b"),
	}

	_, err := s.Synthesize(context.Background(), "g", []core.StreamName{"technical", "testing"}, results)
	require.Error(t, err)
	assert.Equal(t, core.KindFatalGenerator, core.KindOf(err))
	assert.Contains(t, err.Error(), "testing")
}
