package refine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/generator"
)

func TestNewGeneratorEvaluatorValidatesRubric(t *testing.T) {
	gen := generator.NewMock()

	_, err := NewGeneratorEvaluator(gen, nil)
	assert.NoError(t, err)

	_, err = NewGeneratorEvaluator(gen, []Criterion{{Name: "accuracy", Max: 50}})
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))

	_, err = NewGeneratorEvaluator(gen, []Criterion{{Name: "accuracy", Max: 100}, {Name: "junk", Max: 0}})
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
}

func TestGeneratorEvaluatorSumsCriteria(t *testing.T) {
	gen := generator.NewMock().Respond("Evaluate the following content",
		`{"scores":{"accuracy":35,"completeness":25,"clarity":20},"issues":["missing edge cases"],"suggestions":["add examples"]}`)

	e, err := NewGeneratorEvaluator(gen, nil)
	require.NoError(t, err)

	score, err := e.Evaluate(context.Background(), "explain pooling", core.NewArtifact("pools reuse connections"))
	require.NoError(t, err)

	assert.Equal(t, 80, score.Score)
	assert.Equal(t, []string{"missing edge cases"}, score.Issues)
	assert.Equal(t, []string{"add examples"}, score.Suggestions)
}

func TestGeneratorEvaluatorRejectsOutOfRangeScore(t *testing.T) {
	gen := generator.NewMock().Respond("Evaluate the following content",
		`{"scores":{"accuracy":55,"completeness":25,"clarity":20},"issues":[],"suggestions":[]}`)

	e, err := NewGeneratorEvaluator(gen, nil)
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), "g", core.NewArtifact("x"))
	require.Error(t, err)
	assert.Equal(t, core.KindFatalGenerator, core.KindOf(err))
	assert.Contains(t, err.Error(), "accuracy")
}

func TestGeneratorEvaluatorRejectsMissingCriterion(t *testing.T) {
	gen := generator.NewMock().Respond("Evaluate the following content",
		`{"scores":{"accuracy":30},"issues":[],"suggestions":[]}`)

	e, err := NewGeneratorEvaluator(gen, nil)
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), "g", core.NewArtifact("x"))
	require.Error(t, err)
	assert.Equal(t, core.KindFatalGenerator, core.KindOf(err))
	assert.Contains(t, err.Error(), "completeness")
}

func TestGeneratorProducerFramesTask(t *testing.T) {
	gen := generator.NewMock().Respond("Task: write docs", "the docs")
	p := NewGeneratorProducer(gen, "You are a writer.")

	artifact, err := p.Produce(context.Background(), "write docs")
	require.NoError(t, err)
	assert.Equal(t, "the docs", artifact.Content)
}

func TestGeneratorRefinerCarriesFeedback(t *testing.T) {
	gen := generator.NewMock().Respond("Improve the following content", "better content")
	r := NewGeneratorRefiner(gen)

	artifact, err := r.Refine(context.Background(), "g", core.NewArtifact("draft"),
		core.QualityScore{Score: 60, Issues: []string{"too shallow"}, Suggestions: []string{"add depth"}})
	require.NoError(t, err)
	assert.Equal(t, "better content", artifact.Content)
}
