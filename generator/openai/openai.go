// Package openai provides a generator adapter for the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go"

	"github.com/hupe1980/taskweave/generator"
	"github.com/hupe1980/taskweave/logging"
)

// Options configure the OpenAI generator adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64

	// Logger receives per-call latency and outcome. Defaults to NoOp.
	Logger logging.Logger
}

// Generator wraps the OpenAI Chat Completions API behind the generic
// generator.Generator interface.
type Generator struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI generator using the official client.
func New(optFns ...func(o *Options)) *Generator {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI generator from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

// Generate implements generator.Generator.
func (g *Generator) Generate(ctx context.Context, req generator.Request) (*generator.Response, error) {
	start := time.Now()

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(generator.WithSchema(req.Prompt, req.Schema)),
		},
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
	})
	dur := time.Since(start)
	if err != nil {
		err = classify(req.Component, err)
		g.logCall(dur, false, err)
		return nil, err
	}
	g.logCall(dur, true, nil)

	if len(completion.Choices) == 0 {
		return nil, generator.Fatal(req.Component, "no completion choices in response", nil)
	}

	return &generator.Response{Text: completion.Choices[0].Message.Content}, nil
}

func (g *Generator) logCall(dur time.Duration, success bool, err error) {
	if tl, ok := g.opts.Logger.(*logging.TaskWeaveLogger); ok {
		tl.LogGeneratorCall("openai", dur, success, err)
		return
	}
	if err != nil {
		g.opts.Logger.Error("generator call failed", "backend", "openai", "duration", dur, "error", err)
		return
	}
	g.opts.Logger.Debug("generator call completed", "backend", "openai", "duration", dur)
}

// Info implements generator.Generator.
func (g *Generator) Info() generator.Info {
	return generator.Info{Name: g.opts.Model, Backend: "openai"}
}

// classify maps SDK errors onto the transient/fatal taxonomy.
func classify(component string, err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests,
			apierr.StatusCode == http.StatusRequestTimeout,
			apierr.StatusCode >= http.StatusInternalServerError:
			return generator.Transient(component, err)
		default:
			return generator.Fatal(component, "openai API error", err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return generator.Transient(component, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return generator.Transient(component, err)
	}

	return generator.Fatal(component, "openai API error", err)
}
