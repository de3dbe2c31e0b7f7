// Package refine implements the bounded generate-evaluate-refine loop. A
// producer emits the initial candidate, an evaluator scores it against a
// numeric rubric, and a refiner reworks it using the evaluator's concrete
// issues until the score passes the threshold or the iteration ceiling is
// reached. The ceiling is enforced by the loop itself, independent of
// whatever the evaluator claims, so a misbehaving evaluator can never cause
// runaway cost.
package refine
