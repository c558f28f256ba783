package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/provalab/exam-cli/internal/images"
	"github.com/provalab/exam-cli/internal/model"
)

// FigureInput feeds the figure-association stage.
type FigureInput struct {
	Ctx       *ProcessingContext
	Questions []model.Question
	Blocks    []model.ContextBlock
	Images    ImageSet
}

// FigureOutput carries the annotated questions and blocks.
type FigureOutput struct {
	Questions []model.Question
	Blocks    []model.ContextBlock
}

// FigureAssociationStage links questions and context blocks to the content
// images they reference. The orchestrator treats a failure here as soft:
// it keeps the unannotated extraction output instead of failing the run.
type FigureAssociationStage struct {
	assoc images.Associator
}

func NewFigureAssociationStage(assoc images.Associator) *FigureAssociationStage {
	return &FigureAssociationStage{assoc: assoc}
}

func (s *FigureAssociationStage) Name() string { return "Figure Association" }

func (s *FigureAssociationStage) Description() string {
	return "marks visual references and attaches content images"
}

func (s *FigureAssociationStage) ValidateInput(in FigureInput) error {
	if in.Ctx == nil {
		return eris.New("missing processing context")
	}
	return nil
}

func (s *FigureAssociationStage) Execute(ctx context.Context, in FigureInput) (FigureOutput, error) {
	qs, bs, err := s.assoc.Associate(ctx, in.Questions, in.Blocks, in.Images.Content)
	if err != nil {
		return FigureOutput{}, eris.Wrap(err, "associate figures")
	}
	return FigureOutput{Questions: qs, Blocks: bs}, nil
}
