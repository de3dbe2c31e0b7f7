package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/generator"
)

func passthroughStage(name string, transform func(string) string, gate Gate) Stage {
	return NewStage(name, func(_ context.Context, input core.Artifact) (core.Artifact, error) {
		return core.NewArtifact(transform(input.Content)), nil
	}, gate)
}

func TestExecutorAllStagesPass(t *testing.T) {
	sink := core.NewMemorySink()
	exec := NewExecutor([]Stage{
		passthroughStage("extract", strings.ToUpper, NewGate(HasSubstance())),
		passthroughStage("format", func(s string) string { return "# " + s }, NewGate(MinLength(3))),
	}, func(o *Options) {
		o.Recorder = core.NewRecorder(sink, "run-1", nil)
	})

	result := exec.Run(context.Background(), core.NewArtifact("hello"))

	require.Equal(t, AllStagesPassed, result.Outcome)
	assert.Equal(t, "# HELLO", result.Final.Content)
	assert.Empty(t, result.FailedStage)
	require.Len(t, result.Stages, 2)
	assert.Equal(t, "extract", result.Stages[0].StageName)
	assert.Equal(t, "HELLO", result.Stages[0].Output.Content)

	assert.Len(t, sink.ByType(core.EventStageStarted), 2)
	assert.Len(t, sink.ByType(core.EventGateEvaluated), 2)
}

func TestExecutorGateRejectionHaltsPipeline(t *testing.T) {
	ranFormat := false
	exec := NewExecutor([]Stage{
		passthroughStage("extract", func(s string) string { return s }, NewGate()),
		// The summary gate caps length; the input is deliberately too long.
		passthroughStage("summarize", func(s string) string { return s + s }, NewGate(MaxLength(10))),
		NewStage("format", func(_ context.Context, input core.Artifact) (core.Artifact, error) {
			ranFormat = true
			return input, nil
		}, NewGate()),
	})

	result := exec.Run(context.Background(), core.NewArtifact("0123456789"))

	require.Equal(t, GateRejected, result.Outcome)
	assert.Equal(t, "summarize", result.FailedStage)
	assert.False(t, result.Verdict.Passed)
	assert.Contains(t, result.Verdict.Reason, "max_length")
	// No stage after the rejection ran.
	assert.False(t, ranFormat)

	// The rejecting stage's artifact is retained for audit.
	require.Len(t, result.Stages, 2)
	rejected := result.Stages[1]
	assert.Equal(t, "summarize", rejected.StageName)
	assert.Equal(t, "01234567890123456789", rejected.Output.Content)
	assert.False(t, rejected.Verdict.Passed)
}

func TestExecutorStageErrorHalts(t *testing.T) {
	boom := errors.New("backend down")
	ranNext := false
	exec := NewExecutor([]Stage{
		NewStage("draft", func(context.Context, core.Artifact) (core.Artifact, error) {
			return core.Artifact{}, boom
		}, NewGate()),
		NewStage("format", func(_ context.Context, input core.Artifact) (core.Artifact, error) {
			ranNext = true
			return input, nil
		}, NewGate()),
	})

	result := exec.Run(context.Background(), core.NewArtifact("x"))

	require.Equal(t, StageExecutionFailed, result.Outcome)
	assert.Equal(t, "draft", result.FailedStage)
	assert.True(t, errors.Is(result.Err, boom))
	assert.False(t, ranNext)
	assert.Empty(t, result.Stages)
}

func TestExecutorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := NewExecutor([]Stage{
		passthroughStage("draft", strings.ToUpper, NewGate()),
	})

	result := exec.Run(ctx, core.NewArtifact("x"))
	require.Equal(t, StageExecutionFailed, result.Outcome)
	assert.Equal(t, core.KindCancelled, core.KindOf(result.Err))
}

func TestExecutorGeneratorStage(t *testing.T) {
	// GeneratorStage threads the previous artifact content into the template
	// and tags the output with the stage name.
	gen := generator.NewMock().Respond("Draft this", "drafted")
	stage := GeneratorStage("draft", gen, "Draft this:\n%s", NewGate())

	out, err := stage.Run(context.Background(), core.NewArtifact("notes"))
	require.NoError(t, err)
	assert.Equal(t, "drafted", out.Content)
	assert.Equal(t, "draft", out.Metadata["stage"])
}
