package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/provalab/exam-cli/internal/extract"
	"github.com/provalab/exam-cli/internal/images"
	"github.com/provalab/exam-cli/internal/model"
)

// ContextBuildInput feeds the context-building stage: the text-detected
// extraction plus the analyzed images.
type ContextBuildInput struct {
	Ctx        *ProcessingContext
	Extraction extract.Result
	Images     ImageSet
}

// ContextBuildingStage supplements the text-detected context blocks through
// the legacy figure-based builder. Producing no additional blocks is a
// normal outcome; only a collaborator error fails the stage.
type ContextBuildingStage struct {
	builder images.ContextBuilder
}

func NewContextBuildingStage(builder images.ContextBuilder) *ContextBuildingStage {
	return &ContextBuildingStage{builder: builder}
}

func (s *ContextBuildingStage) Name() string { return "Context Building" }

func (s *ContextBuildingStage) Description() string {
	return "supplements detected context blocks from figure metadata"
}

func (s *ContextBuildingStage) ValidateInput(in ContextBuildInput) error {
	if in.Ctx == nil {
		return eris.New("missing processing context")
	}
	return nil
}

func (s *ContextBuildingStage) Execute(ctx context.Context, in ContextBuildInput) ([]model.ContextBlock, error) {
	extra, err := s.builder.Build(ctx, in.Ctx.Layout(), in.Extraction.ContextBlocks, in.Images.Content)
	if err != nil {
		return nil, eris.Wrap(err, "build figure contexts")
	}
	merged := make([]model.ContextBlock, 0, len(in.Extraction.ContextBlocks)+len(extra))
	merged = append(merged, in.Extraction.ContextBlocks...)
	merged = append(merged, extra...)
	return merged, nil
}
