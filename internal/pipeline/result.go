package pipeline

import "time"

// StageResult is the tagged outcome of one stage invocation. Domain
// failures never cross the stage boundary as panics or raw errors; they
// are carried here with the stage name and wall-clock time attached.
type StageResult[T any] struct {
	Success bool
	Data    T
	Stage   string
	Err     error
	Elapsed time.Duration
}

// Ok builds a success result.
func Ok[T any](stage string, data T, elapsed time.Duration) StageResult[T] {
	return StageResult[T]{Success: true, Data: data, Stage: stage, Elapsed: elapsed}
}

// Fail builds a failure result. Data is the zero value.
func Fail[T any](stage string, err error, elapsed time.Duration) StageResult[T] {
	return StageResult[T]{Stage: stage, Err: err, Elapsed: elapsed}
}

// Failure converts a failed result into the pipeline's failure payload.
// Call only when Success is false.
func (r StageResult[T]) Failure() *StageFailure {
	msg := "stage failed"
	if r.Err != nil {
		msg = r.Err.Error()
	}
	return &StageFailure{Stage: r.Stage, Message: msg, Elapsed: r.Elapsed}
}

// StageFailure is the structured failure the orchestrator returns when a
// stage fails. No partial pipeline output accompanies it.
type StageFailure struct {
	Stage   string
	Message string
	Elapsed time.Duration
}

func (f *StageFailure) Error() string {
	return f.Stage + ": " + f.Message
}
