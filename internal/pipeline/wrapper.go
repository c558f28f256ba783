package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/provalab/exam-cli/internal/resilience"
)

// StageWrapper guards a stage with input validation, timing, and a
// failure-threshold breaker. Once the breaker opens, Run returns an
// immediate failure without invoking the stage until Reset is called.
type StageWrapper[I, O any] struct {
	stage   Stage[I, O]
	breaker *resilience.StageBreaker
}

// Wrap creates a wrapper around stage. maxFailures <= 0 uses the default
// threshold.
func Wrap[I, O any](stage Stage[I, O], maxFailures int) *StageWrapper[I, O] {
	name := stage.Name()
	breaker := resilience.NewStageBreaker(maxFailures, func(failures int) {
		zap.L().Warn("pipeline: circuit opened",
			zap.String("stage", name),
			zap.Int("failures", failures),
		)
	})
	return &StageWrapper[I, O]{stage: stage, breaker: breaker}
}

// Run invokes the stage and converts every outcome, including panics, into
// a StageResult with elapsed time attached.
func (w *StageWrapper[I, O]) Run(ctx context.Context, input I) (res StageResult[O]) {
	start := time.Now()
	name := w.stage.Name()

	if err := w.breaker.Allow(); err != nil {
		return Fail[O](name, eris.Wrapf(err, "stage %q", name), time.Since(start))
	}

	defer func() {
		if r := recover(); r != nil {
			w.breaker.RecordFailure()
			res = Fail[O](name, eris.Errorf("stage %q panicked: %v", name, r), time.Since(start))
		}
	}()

	if err := w.stage.ValidateInput(input); err != nil {
		w.breaker.RecordFailure()
		return Fail[O](name, eris.Wrapf(err, "stage %q: invalid input", name), time.Since(start))
	}

	out, err := w.stage.Execute(ctx, input)
	elapsed := time.Since(start)
	if err != nil {
		w.breaker.RecordFailure()
		return Fail[O](name, err, elapsed)
	}

	w.breaker.RecordSuccess()
	return Ok(name, out, elapsed)
}

// Reset closes the wrapper's breaker.
func (w *StageWrapper[I, O]) Reset() {
	w.breaker.Reset()
}

// BreakerState exposes the breaker state for reporting.
func (w *StageWrapper[I, O]) BreakerState() resilience.BreakerState {
	return w.breaker.State()
}
