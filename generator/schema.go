package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// SchemaFor derives the JSON Schema for a Go result type. Schema derivation
// failures are programmer errors surfaced at construction time, not at call
// time.
func SchemaFor[T any]() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("derive schema: %w", err)
	}
	return schema, nil
}

// MustSchemaFor is SchemaFor for statically known types where failure is a
// bug.
func MustSchemaFor[T any]() *jsonschema.Schema {
	schema, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return schema
}

// WithSchema renders the structured-output contract into the prompt so
// backends without native schema support still return a conforming object.
func WithSchema(prompt string, schema *jsonschema.Schema) string {
	if schema == nil {
		return prompt
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return prompt
	}
	return fmt.Sprintf(
		"%s\n\nRespond with a single JSON object (no prose, no code fences) conforming to this JSON Schema:\n%s",
		prompt, raw)
}

// Decode validates the backend reply against the schema derived for T and
// unmarshals it. A malformed or schema-violating reply is a fatal generator
// failure: the orchestration core never consumes unvalidated free text as
// structured data.
func Decode[T any](component string, resp *Response) (T, error) {
	var out T

	raw := resp.Raw
	if len(raw) == 0 {
		raw = json.RawMessage(extractJSON(resp.Text))
	}
	if len(raw) == 0 {
		return out, Fatal(component, "response contains no JSON object", nil)
	}

	schema, err := SchemaFor[T]()
	if err != nil {
		return out, Fatal(component, "schema derivation failed", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return out, Fatal(component, "schema resolution failed", err)
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return out, Fatal(component, "response is not valid JSON", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return out, Fatal(component, "response violates output schema", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, Fatal(component, "response does not match result type", err)
	}

	return out, nil
}

// extractJSON isolates the outermost JSON object from a reply that may wrap
// it in code fences or prose.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
