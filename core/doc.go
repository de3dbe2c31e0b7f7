// Package core defines the shared value types, error taxonomy and progress
// event model used by every TaskWeave workflow primitive. All entities are
// created per run and treated as immutable after construction; a run's entire
// entity graph is eligible for disposal once the engine returns to its caller.
package core
