package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provalab/exam-cli/internal/resilience"
)

// stubStage is a controllable Stage double.
type stubStage struct {
	name        string
	validateErr error
	execErr     error
	execPanic   bool
	calls       int
}

func (s *stubStage) Name() string        { return s.name }
func (s *stubStage) Description() string { return "test stage" }

func (s *stubStage) ValidateInput(string) error { return s.validateErr }

func (s *stubStage) Execute(_ context.Context, input string) (string, error) {
	s.calls++
	if s.execPanic {
		panic("boom")
	}
	if s.execErr != nil {
		return "", s.execErr
	}
	return strings.ToUpper(input), nil
}

func TestWrapper_Success(t *testing.T) {
	stage := &stubStage{name: "Upper"}
	w := Wrap[string, string](stage, 3)

	res := w.Run(context.Background(), "abc")

	require.True(t, res.Success)
	assert.Equal(t, "ABC", res.Data)
	assert.Equal(t, "Upper", res.Stage)
	assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))
	assert.Equal(t, resilience.BreakerClosed, w.BreakerState())
}

func TestWrapper_CircuitOpensAfterThreshold(t *testing.T) {
	stage := &stubStage{name: "Flaky", execErr: eris.New("collaborator down")}
	w := Wrap[string, string](stage, 3)

	// Calls 1-3 actually invoke the stage and fail.
	for i := 0; i < 3; i++ {
		res := w.Run(context.Background(), "x")
		assert.False(t, res.Success)
	}
	assert.Equal(t, 3, stage.calls)
	assert.Equal(t, resilience.BreakerOpen, w.BreakerState())

	// Call 4 is rejected without invoking the stage.
	res := w.Run(context.Background(), "x")
	assert.False(t, res.Success)
	assert.Contains(t, res.Err.Error(), "circuit breaker is open")
	assert.Equal(t, 3, stage.calls)

	// Success only after an explicit reset.
	stage.execErr = nil
	w.Reset()
	res = w.Run(context.Background(), "x")
	assert.True(t, res.Success)
	assert.Equal(t, 4, stage.calls)
}

func TestWrapper_ValidationFailureCountsTowardThreshold(t *testing.T) {
	stage := &stubStage{name: "Strict", validateErr: eris.New("bad input")}
	w := Wrap[string, string](stage, 2)

	res := w.Run(context.Background(), "x")
	assert.False(t, res.Success)
	assert.Contains(t, res.Err.Error(), "invalid input")
	assert.Equal(t, 0, stage.calls)

	w.Run(context.Background(), "x")
	assert.Equal(t, resilience.BreakerOpen, w.BreakerState())
}

func TestWrapper_PanicBecomesFailureResult(t *testing.T) {
	stage := &stubStage{name: "Panicky", execPanic: true}
	w := Wrap[string, string](stage, 3)

	res := w.Run(context.Background(), "x")

	assert.False(t, res.Success)
	assert.Contains(t, res.Err.Error(), "panicked")
	assert.Equal(t, "Panicky", res.Stage)
}

func TestWrapper_SuccessResetsFailureCounter(t *testing.T) {
	stage := &stubStage{name: "Recovering", execErr: eris.New("down")}
	w := Wrap[string, string](stage, 3)

	w.Run(context.Background(), "x")
	w.Run(context.Background(), "x")

	stage.execErr = nil
	res := w.Run(context.Background(), "x")
	require.True(t, res.Success)

	// Two more failures do not trip: the counter restarted at 0.
	stage.execErr = eris.New("down again")
	w.Run(context.Background(), "x")
	w.Run(context.Background(), "x")
	assert.Equal(t, resilience.BreakerClosed, w.BreakerState())
}

func TestStageFailure_Error(t *testing.T) {
	res := Fail[string]("Header Parsing", eris.New("no header"), 0)
	f := res.Failure()
	assert.Equal(t, "Header Parsing", f.Stage)
	assert.Equal(t, "no header", f.Message)
	assert.Contains(t, f.Error(), "Header Parsing")
}
