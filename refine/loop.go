package refine

import (
	"context"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/logging"
)

// Producer emits the initial candidate (iteration 0).
type Producer interface {
	Produce(ctx context.Context, goal core.Goal) (core.Artifact, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context, goal core.Goal) (core.Artifact, error)

// Produce implements Producer.
func (f ProducerFunc) Produce(ctx context.Context, goal core.Goal) (core.Artifact, error) {
	return f(ctx, goal)
}

// Evaluator scores a candidate. The returned score's Passing field is
// ignored; the loop derives it from the configured threshold so the two can
// never disagree.
type Evaluator interface {
	Evaluate(ctx context.Context, goal core.Goal, candidate core.Artifact) (core.QualityScore, error)
}

// Refiner reworks a candidate using the evaluator's concrete issues and
// suggestions.
type Refiner interface {
	Refine(ctx context.Context, goal core.Goal, candidate core.Artifact, score core.QualityScore) (core.Artifact, error)
}

// Status is the loop's terminal state.
type Status string

const (
	// Accepted means the score reached the threshold.
	Accepted Status = "accepted"
	// Exhausted means the iteration ceiling was hit without passing. The
	// outcome still carries the best candidate seen; the caller decides
	// acceptance.
	Exhausted Status = "exhausted"
)

// Outcome is the loop's terminal result. Iterations holds the full ordered
// audit trail; Artifact/Score are the accepted candidate, or on exhaustion
// the best-scoring candidate across all iterations (ties prefer the latest).
type Outcome struct {
	Status     Status
	Artifact   core.Artifact
	Score      core.QualityScore
	Iterations []core.RefinementIteration
}

// Options configure a Loop.
type Options struct {
	// Threshold is the passing score (0-100).
	Threshold int
	// MaxIterations is the hard refinement ceiling. Zero means exactly one
	// generate+evaluate cycle with no refinement.
	MaxIterations int
	// Logger defaults to NoOp.
	Logger logging.Logger
	// Recorder receives IterationScored events. May be nil.
	Recorder *core.Recorder
}

// Loop coordinates producer, evaluator and refiner through the
// Generate -> Evaluate -> {Accept | Refine -> Evaluate | Exhausted} state
// machine.
type Loop struct {
	producer  Producer
	evaluator Evaluator
	refiner   Refiner
	opts      Options
}

// NewLoop builds a loop. Defaults: threshold 75, max 3 refinements.
func NewLoop(producer Producer, evaluator Evaluator, refiner Refiner, optFns ...func(o *Options)) *Loop {
	opts := Options{
		Threshold:     75,
		MaxIterations: 3,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Loop{producer: producer, evaluator: evaluator, refiner: refiner, opts: opts}
}

// Run executes the loop for a goal. The iteration counter is checked before
// every refinement transition; the sequence of recorded iterations is always
// at most MaxIterations+1 long regardless of evaluator behavior.
func (l *Loop) Run(ctx context.Context, goal core.Goal) (*Outcome, error) {
	candidate, err := l.producer.Produce(ctx, goal)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{}
	bestIdx := -1

	for i := 0; ; i++ {
		score, err := l.evaluator.Evaluate(ctx, goal, candidate)
		if err != nil {
			return nil, err
		}
		score.Passing = score.Score >= l.opts.Threshold

		outcome.Iterations = append(outcome.Iterations, core.RefinementIteration{
			Index:    i,
			Score:    score,
			Artifact: candidate,
		})
		l.opts.Recorder.IterationScored(i, score)
		l.logIteration(i, score)

		// >= prefers the latest among equal maximum scores.
		if bestIdx < 0 || score.Score >= outcome.Iterations[bestIdx].Score.Score {
			bestIdx = i
		}

		if score.Passing {
			outcome.Status = Accepted
			outcome.Artifact = candidate
			outcome.Score = score
			return outcome, nil
		}

		if i >= l.opts.MaxIterations {
			best := outcome.Iterations[bestIdx]
			outcome.Status = Exhausted
			outcome.Artifact = best.Artifact
			outcome.Score = best.Score
			return outcome, nil
		}

		candidate, err = l.refiner.Refine(ctx, goal, candidate, score)
		if err != nil {
			return nil, err
		}
	}
}

func (l *Loop) logIteration(index int, score core.QualityScore) {
	if tl, ok := l.opts.Logger.(*logging.TaskWeaveLogger); ok {
		tl.LogIteration(index, score.Score, score.Passing)
		return
	}
	l.opts.Logger.Debug("iteration scored", "iteration", index, "score", score.Score, "passing", score.Passing)
}
