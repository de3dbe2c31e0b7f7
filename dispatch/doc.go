// Package dispatch implements the fan-out/fan-in half of the orchestrator:
// a static registry resolving work streams to worker roles, a concurrent
// dispatcher with partial-failure tolerance, and a synthesizer that merges
// worker outputs into one coherent artifact. Dispatch is the sole point of
// true parallelism in a run; workers are independent and must not rely on
// each other's intermediate state.
package dispatch
