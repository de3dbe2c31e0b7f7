// Package anthropic provides a generator adapter for the Anthropic Messages
// API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/taskweave/generator"
	"github.com/hupe1980/taskweave/logging"
)

// Options configures the Anthropic generator adapter (model id, max tokens,
// temperature, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string

	// Logger receives per-call latency and outcome. Defaults to NoOp.
	Logger logging.Logger
}

// Generator wraps the Anthropic Messages API behind the generic
// generator.Generator interface.
type Generator struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic generator using the official client.
func New(optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		Temperature: 0.7,
		MaxTokens:   4096,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Generator{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic generator from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		Temperature: 0.7,
		MaxTokens:   4096,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Generator{client: client, opts: opts}
}

// Generate implements generator.Generator. When the request carries a
// schema, the structured-output contract is rendered into the prompt and the
// reply is returned verbatim for schema validation by the caller.
func (g *Generator) Generate(ctx context.Context, req generator.Request) (*generator.Response, error) {
	start := time.Now()

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       g.opts.Model,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: anthropic.Float(g.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(generator.WithSchema(req.Prompt, req.Schema))),
		},
	})
	dur := time.Since(start)
	if err != nil {
		err = classify(req.Component, err)
		g.logCall(dur, false, err)
		return nil, err
	}
	g.logCall(dur, true, nil)

	for _, block := range msg.Content {
		if block.Type == "text" {
			return &generator.Response{Text: block.Text}, nil
		}
	}

	return nil, generator.Fatal(req.Component, "no text content in response", nil)
}

func (g *Generator) logCall(dur time.Duration, success bool, err error) {
	if tl, ok := g.opts.Logger.(*logging.TaskWeaveLogger); ok {
		tl.LogGeneratorCall("anthropic", dur, success, err)
		return
	}
	if err != nil {
		g.opts.Logger.Error("generator call failed", "backend", "anthropic", "duration", dur, "error", err)
		return
	}
	g.opts.Logger.Debug("generator call completed", "backend", "anthropic", "duration", dur)
}

// Info implements generator.Generator.
func (g *Generator) Info() generator.Info {
	return generator.Info{Name: string(g.opts.Model), Backend: "anthropic"}
}

// classify maps SDK errors onto the transient/fatal taxonomy. Rate limits,
// request timeouts and server errors are retryable; everything else
// escalates immediately.
func classify(component string, err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests,
			apierr.StatusCode == http.StatusRequestTimeout,
			apierr.StatusCode >= http.StatusInternalServerError:
			return generator.Transient(component, err)
		default:
			return generator.Fatal(component, fmt.Sprintf("anthropic API error (status %d)", apierr.StatusCode), err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return generator.Transient(component, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return generator.Transient(component, err)
	}

	return generator.Fatal(component, "anthropic API error", err)
}
