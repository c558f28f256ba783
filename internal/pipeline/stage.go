package pipeline

import "context"

// Stage is one step of the processing pipeline. Implementations are plain
// types composed by the orchestrator in a fixed order; every stage runs
// behind a StageWrapper, never bare.
type Stage[I, O any] interface {
	// Name identifies the stage in results and logs.
	Name() string
	// Description is a one-line human-readable summary.
	Description() string
	// ValidateInput rejects malformed input before Execute runs. A
	// validation error counts as a stage failure.
	ValidateInput(input I) error
	// Execute performs the stage's work. Errors are converted to failure
	// results by the wrapper.
	Execute(ctx context.Context, input I) (O, error)
}
