package core

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorInfo is the serializable failure detail attached to a WorkerResult.
type ErrorInfo struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// WorkerResult is the outcome of one worker's run for one stream. It is
// created exactly once by the dispatcher and never mutated afterwards.
// Invariant: Succeeded == false implies Content is empty and Err is set.
type WorkerResult struct {
	Stream    StreamName `json:"stream"`
	Content   string     `json:"content,omitempty"`
	Succeeded bool       `json:"succeeded"`
	Cancelled bool       `json:"cancelled,omitempty"`
	Err       *ErrorInfo `json:"error,omitempty"`
}

// SucceededWorkerResult constructs a successful result.
func SucceededWorkerResult(stream StreamName, content string) WorkerResult {
	return WorkerResult{Stream: stream, Content: content, Succeeded: true}
}

// FailedWorkerResult constructs a failed result carrying the error detail.
func FailedWorkerResult(stream StreamName, err error) WorkerResult {
	return WorkerResult{
		Stream:    stream,
		Succeeded: false,
		Err:       &ErrorInfo{Kind: KindOf(err), Message: err.Error()},
	}
}

// CancelledWorkerResult marks a worker whose run was cut short (or never
// started) by run-level cancellation. Distinct from a failure so callers can
// tell "gave up" from "went wrong".
func CancelledWorkerResult(stream StreamName) WorkerResult {
	return WorkerResult{
		Stream:    stream,
		Succeeded: false,
		Cancelled: true,
		Err:       &ErrorInfo{Kind: KindCancelled, Message: "worker cancelled before completion"},
	}
}

// GateVerdict is the pure output of a quality gate: overall pass/fail, the
// per-check outcomes, and a reason naming every failing check so callers can
// fix multiple problems before retrying.
type GateVerdict struct {
	Passed bool            `json:"passed"`
	Reason string          `json:"reason"`
	Checks map[string]bool `json:"checks"`
}

// NewGateVerdict derives the overall verdict from named check outcomes.
func NewGateVerdict(checks map[string]bool) GateVerdict {
	var failed []string
	for name, ok := range checks {
		if !ok {
			failed = append(failed, name)
		}
	}
	if len(failed) == 0 {
		return GateVerdict{Passed: true, Reason: "all checks passed", Checks: checks}
	}
	sort.Strings(failed)
	return GateVerdict{
		Passed: false,
		Reason: fmt.Sprintf("failed checks: %s", strings.Join(failed, ", ")),
		Checks: checks,
	}
}

// StageResult records one pipeline stage's output and gate verdict. It is
// retained until pipeline completion for audit, including (especially) when
// the gate rejected the output.
type StageResult struct {
	StageName string      `json:"stage_name"`
	Output    Artifact    `json:"output"`
	Verdict   GateVerdict `json:"verdict"`
}

// QualityScore is the evaluator's rubric outcome. Passing is derived from the
// configured threshold by the refinement loop, never asserted independently
// by the evaluator, so the two can never disagree.
type QualityScore struct {
	Score       int      `json:"score"`
	Passing     bool     `json:"passing"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// RefinementIteration is one generate-or-refine step of the
// evaluator-optimizer loop. Index 0 is the initial ungated generation.
type RefinementIteration struct {
	Index    int          `json:"index"`
	Score    QualityScore `json:"score"`
	Artifact Artifact     `json:"artifact"`
}
