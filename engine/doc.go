// Package engine composes the workflow primitives (pipeline executor,
// planner, worker dispatcher, synthesizer, evaluator-optimizer loop) per
// workflow spec and exposes one synchronous Run entry point. It owns
// top-level error translation into the closed failure taxonomy; no internal
// error escapes the engine untagged.
package engine
