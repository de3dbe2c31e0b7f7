package core

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a workflow failure into the closed taxonomy understood by
// the engine. Components never invent kinds of their own; everything that
// crosses a package boundary is tagged with one of these.
type Kind string

const (
	// KindTransientGenerator marks a retryable backend failure
	// (network, timeout, rate limit).
	KindTransientGenerator Kind = "transient_generator_failure"
	// KindFatalGenerator marks an unrecoverable backend failure, including a
	// schema-invalid response after retries are exhausted.
	KindFatalGenerator Kind = "fatal_generator_failure"
	// KindGateRejected marks a deterministic gate rejection. Never retried
	// automatically; the data was already proven insufficient.
	KindGateRejected Kind = "gate_rejected"
	// KindConfiguration marks a setup error (unregistered stream, empty
	// plan, missing worker mapping) surfaced before any external call.
	KindConfiguration Kind = "configuration_error"
	// KindPartialWorkerFailure annotates a dispatch where some but not all
	// workers failed. Propagated to the synthesizer as gap annotations.
	KindPartialWorkerFailure Kind = "partial_worker_failure"
	// KindNoWorkerResults aborts a run in which every worker failed.
	KindNoWorkerResults Kind = "no_worker_results"
	// KindIterationExhausted reports that the refinement loop hit its
	// iteration ceiling without passing. Carries the best candidate.
	KindIterationExhausted Kind = "iteration_exhausted"
	// KindCancelled marks a run-level cancellation.
	KindCancelled Kind = "cancelled"
	// KindInternal covers failures that escaped classification. Surfacing
	// them explicitly beats mislabeling them as one of the above.
	KindInternal Kind = "internal"
)

// Error is the single error type crossing TaskWeave package boundaries.
// Component names the stage/worker/iteration where the failure occurred so
// every user-visible failure is attributable.
type Error struct {
	Kind      Kind
	Component string
	Detail    string
	Err       error
}

// NewError constructs a tagged error. err may be nil.
func NewError(kind Kind, component, detail string, err error) *Error {
	return &Error{Kind: kind, Component: component, Detail: detail, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Component, e.Detail)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Kind)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Info converts the error to its serializable form.
func (e *Error) Info() *ErrorInfo { return &ErrorInfo{Kind: e.Kind, Message: e.Error()} }

// KindOf extracts the taxonomy kind from any error. Context cancellation and
// deadline expiry map to KindCancelled and KindTransientGenerator
// respectively; anything untagged is KindInternal.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransientGenerator
	}
	return KindInternal
}

// IsTransient reports whether the error may be retried at the call site.
func IsTransient(err error) bool { return KindOf(err) == KindTransientGenerator }

// IsFatal reports whether the error must escalate without further retries.
func IsFatal(err error) bool { return KindOf(err) == KindFatalGenerator }

// IsConfiguration reports whether the error is a setup problem that fails
// fast before any external call.
func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }
