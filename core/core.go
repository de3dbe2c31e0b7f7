package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Goal is the opaque description of a desired outcome, supplied once per run.
type Goal string

// StreamName identifies one work stream (e.g. "technical", "testing"). Names
// are resolved to exactly one worker role via a static registry; an unknown
// name is a configuration error, never a per-worker runtime failure.
type StreamName string

// Artifact is the generic payload threaded through a workflow. The
// orchestration core never interprets the content beyond identity and size;
// stages, workers and evaluators own the semantics.
type Artifact struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewArtifact wraps content in a freshly identified Artifact.
func NewArtifact(content string) Artifact {
	return Artifact{ID: NewID(), Content: content}
}

// WithMetadata returns a copy of the artifact with one metadata entry added.
// The receiver is not modified.
func (a Artifact) WithMetadata(key, value string) Artifact {
	md := make(map[string]string, len(a.Metadata)+1)
	for k, v := range a.Metadata {
		md[k] = v
	}
	md[key] = value
	a.Metadata = md
	return a
}

// Len reports the content size in bytes.
func (a Artifact) Len() int { return len(a.Content) }

// IsZero reports whether the artifact carries no identity or content.
func (a Artifact) IsZero() bool { return a.ID == "" && a.Content == "" }

// WorkStreamPlan is the validated output of the work-stream planner: the
// ordered, duplicate-free set of streams to dispatch plus the planner's
// rationale. Streams are guaranteed to be a non-empty subset of the
// registered stream catalog by the time a plan exists.
type WorkStreamPlan struct {
	Goal      Goal         `json:"goal"`
	Streams   []StreamName `json:"streams"`
	Rationale string       `json:"rationale"`
}

// NewWorkStreamPlan builds a plan, collapsing duplicate streams while
// preserving first-occurrence order. It returns an error for an empty set.
func NewWorkStreamPlan(goal Goal, streams []StreamName, rationale string) (*WorkStreamPlan, error) {
	seen := make(map[StreamName]struct{}, len(streams))
	ordered := make([]StreamName, 0, len(streams))
	for _, s := range streams {
		name := StreamName(strings.TrimSpace(string(s)))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		ordered = append(ordered, name)
	}
	if len(ordered) == 0 {
		return nil, NewError(KindConfiguration, "planner", "work stream plan is empty", nil)
	}
	return &WorkStreamPlan{Goal: goal, Streams: ordered, Rationale: rationale}, nil
}

// Contains reports whether the plan includes the given stream.
func (p *WorkStreamPlan) Contains(name StreamName) bool {
	for _, s := range p.Streams {
		if s == name {
			return true
		}
	}
	return false
}

// String renders the plan for logs and prompts.
func (p *WorkStreamPlan) String() string {
	names := make([]string, len(p.Streams))
	for i, s := range p.Streams {
		names[i] = string(s)
	}
	return fmt.Sprintf("plan(%s)", strings.Join(names, ", "))
}

// NewID generates a unique identifier for runs, artifacts and events.
func NewID() string { return uuid.NewString() }
