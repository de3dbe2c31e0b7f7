// Package pipeline implements staged execution with quality gates. Stages
// run strictly in declaration order; each stage's output is checked by a
// pure gate before the next stage starts, and the first execution failure or
// gate rejection halts the pipeline with a terminal result that preserves
// the offending artifact for diagnostics.
package pipeline
