package generator

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/logging"
)

// RetryOptions tune the Retrying wrapper.
type RetryOptions struct {
	// MaxRetries bounds how often a transient failure is retried before it
	// escalates. The total attempt budget is MaxRetries + 1.
	MaxRetries int

	// DefaultTimeout bounds each backend call when the request carries no
	// per-call override.
	DefaultTimeout time.Duration

	// InitialInterval seeds the exponential backoff between attempts.
	InitialInterval time.Duration

	// Recorder receives a GeneratorRetried event per retry. May be nil.
	Recorder *core.Recorder

	// Logger defaults to NoOp.
	Logger logging.Logger

	// Clock is used for call duration measurement; injectable for tests.
	Clock clockwork.Clock
}

// Retrying decorates a Generator with per-call timeouts and bounded
// exponential-backoff retries for transient failures. Fatal failures,
// interceptor vetoes and run-level cancellation are never retried. A
// timed-out call is indistinguishable from any other transient failure at
// the call site.
type Retrying struct {
	inner Generator
	opts  RetryOptions
}

// NewRetrying wraps inner with retry semantics.
func NewRetrying(inner Generator, optFns ...func(o *RetryOptions)) *Retrying {
	opts := RetryOptions{
		MaxRetries:      1,
		DefaultTimeout:  60 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		Logger:          logging.NoOpLogger{},
		Clock:           clockwork.NewRealClock(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	// A negative retry budget would wrap when converted for WithMaxTries and
	// make the bound effectively unlimited.
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Retrying{inner: inner, opts: opts}
}

// Generate implements Generator.
func (r *Retrying) Generate(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.opts.DefaultTimeout
	}

	attempt := 0
	operation := func() (*Response, error) {
		attempt++
		start := r.opts.Clock.Now()

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := r.inner.Generate(callCtx, req)
		cancel()

		dur := r.opts.Clock.Since(start)
		if err == nil {
			r.opts.Logger.Debug("generator call succeeded",
				"component", req.Component, "attempt", attempt, "duration", dur)
			return resp, nil
		}

		// The parent context ending means the run was cancelled; only a
		// per-call deadline counts as a transient timeout.
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = Transient(req.Component, err)
		}
		if !core.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}

		if attempt <= r.opts.MaxRetries {
			r.opts.Recorder.GeneratorRetried(req.Component, attempt, err)
			r.opts.Logger.Warn("transient generator failure, retrying",
				"component", req.Component, "attempt", attempt, "error", err)
		}
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.opts.InitialInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(r.opts.MaxRetries+1)),
	)
}

// Info implements Generator, delegating to the wrapped backend.
func (r *Retrying) Info() Info { return r.inner.Info() }
