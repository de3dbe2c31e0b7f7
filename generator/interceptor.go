package generator

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskweave/core"
)

// Verdict is an interceptor's allow/deny decision for one pending call.
type Verdict struct {
	Allow  bool
	Reason string
}

// Allowed returns a passing verdict.
func Allowed() Verdict { return Verdict{Allow: true} }

// Denied returns a vetoing verdict with the given reason.
func Denied(reason string) Verdict { return Verdict{Allow: false, Reason: reason} }

// Interceptor inspects a request before it is issued to the backend and may
// veto it. Interceptors must be pure predicates: no I/O, no state mutation.
type Interceptor func(req Request) Verdict

// MaxPromptLength vetoes prompts exceeding n bytes.
func MaxPromptLength(n int) Interceptor {
	return func(req Request) Verdict {
		if len(req.Prompt) > n {
			return Denied(fmt.Sprintf("prompt length %d exceeds limit %d", len(req.Prompt), n))
		}
		return Allowed()
	}
}

// DenyComponents vetoes calls originating from the named call sites.
func DenyComponents(names ...string) Interceptor {
	blocked := make(map[string]struct{}, len(names))
	for _, n := range names {
		blocked[n] = struct{}{}
	}
	return func(req Request) Verdict {
		if _, deny := blocked[req.Component]; deny {
			return Denied(fmt.Sprintf("component %q is not permitted to call the generator", req.Component))
		}
		return Allowed()
	}
}

// Intercepted runs an ordered interceptor chain ahead of every backend call.
// The first deny short-circuits with a fatal error; retrying a call that
// policy already rejected would always fail again.
type Intercepted struct {
	inner Generator
	chain []Interceptor
}

// NewIntercepted wraps inner with the given chain, evaluated in order.
func NewIntercepted(inner Generator, chain ...Interceptor) *Intercepted {
	return &Intercepted{inner: inner, chain: chain}
}

// Generate implements Generator.
func (g *Intercepted) Generate(ctx context.Context, req Request) (*Response, error) {
	for _, interceptor := range g.chain {
		if verdict := interceptor(req); !verdict.Allow {
			return nil, core.NewError(core.KindFatalGenerator, req.Component,
				fmt.Sprintf("call vetoed by interceptor: %s", verdict.Reason), nil)
		}
	}
	return g.inner.Generate(ctx, req)
}

// Info implements Generator, delegating to the wrapped backend.
func (g *Intercepted) Info() Info { return g.inner.Info() }
