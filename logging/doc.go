// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer TaskWeaveLogger with contextual
// helpers (run, component) and domain specific logging helpers for generator
// calls, pipeline stages, worker dispatch and refinement iterations.
package logging
