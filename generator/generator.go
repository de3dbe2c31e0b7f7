package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/hupe1980/taskweave/core"
)

// Request captures one normalized generation call. Component names the call
// site (stage, worker, planner, ...) so failures and progress events are
// attributable.
type Request struct {
	Component string
	Prompt    string
	// Schema, when set, constrains the reply to a single JSON object
	// validated by Decode. The schema is rendered into the prompt envelope
	// by WithSchema before the backend sees it.
	Schema *jsonschema.Schema
	// Timeout overrides the configured per-call default when > 0.
	Timeout time.Duration
}

// Response is the backend's reply. Raw is set when the backend produced a
// structured payload; Text always carries the textual form.
type Response struct {
	Text string
	Raw  json.RawMessage
}

// Info contains metadata about a generator implementation.
type Info struct {
	Name    string `json:"name"`
	Backend string `json:"backend"` // "anthropic", "openai", "mock", ...
}

// Generator is the single operation the orchestration core requires from the
// external backend, plus a distinguishable transient-vs-fatal error signal
// (see Transient / Fatal and core.IsTransient).
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the generator implementation.
	Info() Info
}

// Transient tags a retryable backend failure (network, timeout, rate limit).
func Transient(component string, err error) error {
	return core.NewError(core.KindTransientGenerator, component, "generator call failed", err)
}

// Fatal tags an unrecoverable backend failure, including schema-invalid
// responses.
func Fatal(component, detail string, err error) error {
	return core.NewError(core.KindFatalGenerator, component, detail, err)
}

// mockRule is one canned reply matched by prompt substring.
type mockRule struct {
	match    string
	response string
	err      error
}

// Mock is a lightweight in-memory Generator useful for tests & examples.
// Replies are selected by prompt substring in registration order, with an
// optional scripted queue taking precedence. Deterministic: identical
// prompts always yield identical responses.
type Mock struct {
	mu       sync.Mutex
	info     Info
	rules    []mockRule
	script   []mockRule
	calls    int
	failures int
	failErr  error
}

// NewMock constructs a Mock generator.
func NewMock() *Mock {
	return &Mock{info: Info{Name: "mock", Backend: "mock"}}
}

// Respond registers a canned reply for prompts containing match.
func (m *Mock) Respond(match, response string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{match: match, response: response})
	return m
}

// RespondErr registers an error reply for prompts containing match.
func (m *Mock) RespondErr(match string, err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{match: match, err: err})
	return m
}

// Script queues replies returned in order regardless of prompt, before any
// substring rules are consulted. Useful for iterative loops where the same
// prompt shape must yield evolving answers.
func (m *Mock) Script(responses ...string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range responses {
		m.script = append(m.script, mockRule{response: r})
	}
	return m
}

// FailTimes makes the next n calls fail with err before normal matching
// resumes. Used to exercise retry paths.
func (m *Mock) FailTimes(n int, err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failErr = err
	return m
}

// Calls reports how many Generate invocations the mock has served.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Generator.
func (m *Mock) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.failures > 0 {
		m.failures--
		err := m.failErr
		if err == nil {
			err = Transient(req.Component, fmt.Errorf("injected failure"))
		}
		return nil, err
	}

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return mockResponse(next)
	}

	for _, rule := range m.rules {
		if strings.Contains(req.Prompt, rule.match) {
			return mockResponse(rule)
		}
	}

	return &Response{Text: fmt.Sprintf("Mock response to: %s", req.Prompt)}, nil
}

func mockResponse(rule mockRule) (*Response, error) {
	if rule.err != nil {
		return nil, rule.err
	}
	resp := &Response{Text: rule.response}
	if json.Valid([]byte(rule.response)) {
		resp.Raw = json.RawMessage(rule.response)
	}
	return resp, nil
}

// Info implements Generator.
func (m *Mock) Info() Info { return m.info }
