// Package images holds the collaborator interfaces the pipeline's image
// stages call, plus local implementations that work purely from the
// provider's figure metadata. Cloud-backed implementations (cropping the
// source file, uploading to storage) satisfy the same interfaces.
package images

import (
	"context"

	"github.com/provalab/exam-cli/internal/model"
)

// Extractor turns provider figure metadata into extracted image records.
type Extractor interface {
	Extract(ctx context.Context, layout *model.LayoutResult) ([]model.ExtractedImage, error)
}

// Categorizer splits extracted images into header artwork and content
// images that questions may refer to.
type Categorizer interface {
	Categorize(ctx context.Context, layout *model.LayoutResult, imgs []model.ExtractedImage) (header, content []model.ExtractedImage, err error)
}

// ContextBuilder is the legacy path that produces context blocks directly
// from figure data, used to supplement what the text heuristics found.
type ContextBuilder interface {
	Build(ctx context.Context, layout *model.LayoutResult, existing []model.ContextBlock, content []model.ExtractedImage) ([]model.ContextBlock, error)
}

// Associator links questions and context blocks to the content images they
// reference.
type Associator interface {
	Associate(ctx context.Context, questions []model.Question, blocks []model.ContextBlock, content []model.ExtractedImage) ([]model.Question, []model.ContextBlock, error)
}
