// Package tagger assigns free-form subject tags to extracted questions.
// Tagging is best-effort: the aggregation stage logs failures and moves on.
package tagger

import (
	"context"

	"github.com/provalab/exam-cli/internal/model"
)

// Tagger infers subject/topic tags for a question.
type Tagger interface {
	Tag(ctx context.Context, q model.Question) ([]string, error)
}
