package pipeline

import (
	"regexp"
	"strings"

	"github.com/hupe1980/taskweave/core"
)

// Check is one named pass/fail predicate over a stage output. Check
// functions must be pure: no hidden state, no I/O.
type Check struct {
	Name string
	Fn   func(artifact core.Artifact) bool
}

// Gate ANDs a set of named checks over a stage's output. Evaluate is a pure
// function of its inputs so gates are independently testable; the verdict's
// reason names every failing check, not just the first.
type Gate struct {
	checks []Check
}

// NewGate builds a gate from named checks. A gate with no checks always
// passes.
func NewGate(checks ...Check) Gate {
	return Gate{checks: checks}
}

// Evaluate computes the verdict for an artifact.
func (g Gate) Evaluate(artifact core.Artifact) core.GateVerdict {
	results := make(map[string]bool, len(g.checks))
	for _, check := range g.checks {
		results[check.Name] = check.Fn(artifact)
	}
	return core.NewGateVerdict(results)
}

var markupPattern = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

// MinLength requires the artifact content to exceed n bytes.
func MinLength(n int) Check {
	return Check{Name: "min_length", Fn: func(a core.Artifact) bool {
		return a.Len() > n
	}}
}

// MaxLength requires the artifact content to stay within n bytes.
func MaxLength(n int) Check {
	return Check{Name: "max_length", Fn: func(a core.Artifact) bool {
		return a.Len() <= n
	}}
}

// NoMarkup rejects artifacts with HTML/XML tags remaining.
func NoMarkup() Check {
	return Check{Name: "no_markup_remaining", Fn: func(a core.Artifact) bool {
		return !markupPattern.MatchString(a.Content)
	}}
}

// HasSubstance rejects empty or whitespace-only artifacts.
func HasSubstance() Check {
	return Check{Name: "has_substance", Fn: func(a core.Artifact) bool {
		return strings.TrimSpace(a.Content) != ""
	}}
}

// Contains requires the content to include the given substring.
func Contains(substr string) Check {
	return Check{Name: "contains_" + substr, Fn: func(a core.Artifact) bool {
		return strings.Contains(a.Content, substr)
	}}
}
