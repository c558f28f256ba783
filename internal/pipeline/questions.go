package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/provalab/exam-cli/internal/extract"
)

// QuestionExtractionStage runs the extraction service over the document
// text. A document with zero recognizable questions is a stage failure:
// downstream consumers have nothing to work with.
type QuestionExtractionStage struct {
	svc *extract.Service
}

func NewQuestionExtractionStage(svc *extract.Service) *QuestionExtractionStage {
	return &QuestionExtractionStage{svc: svc}
}

func (s *QuestionExtractionStage) Name() string { return "Question Extraction" }

func (s *QuestionExtractionStage) Description() string {
	return "detects questions, alternatives, and context blocks in the document text"
}

func (s *QuestionExtractionStage) ValidateInput(pctx *ProcessingContext) error {
	if pctx == nil {
		return eris.New("missing processing context")
	}
	if pctx.Text() == "" {
		return eris.New("processing context carries no text")
	}
	return nil
}

func (s *QuestionExtractionStage) Execute(_ context.Context, pctx *ProcessingContext) (extract.Result, error) {
	res := s.svc.ExtractText(pctx.Text())
	if len(res.Questions) == 0 {
		return extract.Result{}, eris.New("no questions detected in document")
	}
	return res, nil
}
