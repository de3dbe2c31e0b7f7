package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/dispatch"
	"github.com/hupe1980/taskweave/generator"
)

func testRegistry() *dispatch.Registry {
	noop := dispatch.WorkerFunc{
		Desc: "test role",
		Fn: func(context.Context, core.Goal, core.StreamName) (string, error) {
			return "done", nil
		},
	}
	return dispatch.NewRegistry().
		Register("technical", noop).
		Register("testing", noop).
		Register("documentation", noop)
}

func TestPlanSelectsRegisteredStreams(t *testing.T) {
	mock := generator.NewMock().Respond("Analyze this goal",
		`{"goal":"build api","work_streams":["technical","testing"],"reasoning":"code plus validation"}`)

	p := New(mock, testRegistry())
	plan, err := p.Plan(context.Background(), "build api")
	require.NoError(t, err)

	assert.Equal(t, []core.StreamName{"technical", "testing"}, plan.Streams)
	assert.Equal(t, "code plus validation", plan.Rationale)
}

func TestPlanIsIdempotentAgainstDeterministicGenerator(t *testing.T) {
	mock := generator.NewMock().Respond("Analyze this goal",
		`{"goal":"g","work_streams":["documentation"],"reasoning":"r"}`)

	p := New(mock, testRegistry())
	first, err := p.Plan(context.Background(), "g")
	require.NoError(t, err)
	second, err := p.Plan(context.Background(), "g")
	require.NoError(t, err)

	assert.Equal(t, first.Streams, second.Streams)
}

func TestPlanCollapsesDuplicates(t *testing.T) {
	mock := generator.NewMock().Respond("Analyze this goal",
		`{"goal":"g","work_streams":["technical","technical","testing"],"reasoning":"r"}`)

	p := New(mock, testRegistry())
	plan, err := p.Plan(context.Background(), "g")
	require.NoError(t, err)
	assert.Equal(t, []core.StreamName{"technical", "testing"}, plan.Streams)
}

func TestPlanRejectsUnregisteredStream(t *testing.T) {
	mock := generator.NewMock().Respond("Analyze this goal",
		`{"goal":"g","work_streams":["technical","marketing"],"reasoning":"r"}`)

	p := New(mock, testRegistry())
	_, err := p.Plan(context.Background(), "g")
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
	assert.Contains(t, err.Error(), "marketing")
}

func TestPlanRejectsEmptyStreamSet(t *testing.T) {
	mock := generator.NewMock().Respond("Analyze this goal",
		`{"goal":"g","work_streams":[],"reasoning":"nothing to do"}`)

	p := New(mock, testRegistry())
	_, err := p.Plan(context.Background(), "g")
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
}

func TestPlanFailsOnEmptyRegistry(t *testing.T) {
	p := New(generator.NewMock(), dispatch.NewRegistry())
	_, err := p.Plan(context.Background(), "g")
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
}

func TestPlanSurfacesMalformedPlanAsFatal(t *testing.T) {
	mock := generator.NewMock().Respond("Analyze this goal", "I'd pick technical and testing.")

	p := New(mock, testRegistry())
	_, err := p.Plan(context.Background(), "g")
	require.Error(t, err)
	assert.Equal(t, core.KindFatalGenerator, core.KindOf(err))
}

// capturingGenerator records the last request and replies with a fixed text.
type capturingGenerator struct {
	last  generator.Request
	reply string
}

func (g *capturingGenerator) Generate(_ context.Context, req generator.Request) (*generator.Response, error) {
	g.last = req
	return &generator.Response{Text: g.reply}, nil
}

func (g *capturingGenerator) Info() generator.Info {
	return generator.Info{Name: "capture", Backend: "test"}
}

func TestPlanPromptCarriesCatalogAndSchema(t *testing.T) {
	gen := &capturingGenerator{reply: `{"goal":"g","work_streams":["technical"],"reasoning":"r"}`}

	p := New(gen, testRegistry())
	_, err := p.Plan(context.Background(), "build the api")
	require.NoError(t, err)

	assert.Equal(t, "planner", gen.last.Component)
	assert.NotNil(t, gen.last.Schema)
	assert.Contains(t, gen.last.Prompt, "build the api")
	// Every registered role is listed so the generator can only choose from
	// the catalog.
	for _, name := range []string{"technical", "testing", "documentation"} {
		assert.Contains(t, gen.last.Prompt, name)
	}
}
