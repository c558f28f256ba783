package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/textutil"
)

// PrepareInput is the raw material the pipeline starts from.
type PrepareInput struct {
	Layout     *model.LayoutResult
	UserKey    string
	Filename   string
	DocumentID string
}

// PrepareStage validates the provider result, assembles the full extracted
// text, and builds the immutable ProcessingContext.
type PrepareStage struct{}

func NewPrepareStage() *PrepareStage { return &PrepareStage{} }

func (s *PrepareStage) Name() string { return "Context Preparation" }

func (s *PrepareStage) Description() string {
	return "validates the provider result and builds the processing context"
}

func (s *PrepareStage) ValidateInput(in PrepareInput) error {
	if in.Layout == nil {
		return eris.New("missing layout result")
	}
	if len(in.Layout.Paragraphs) == 0 && in.Layout.Content == "" {
		return eris.New("layout result carries no text")
	}
	return nil
}

func (s *PrepareStage) Execute(_ context.Context, in PrepareInput) (*ProcessingContext, error) {
	text := joinContent(in.Layout)
	if strings.TrimSpace(text) == "" {
		return nil, eris.New("extracted text is empty")
	}
	return NewContextBuilder().
		WithText(text).
		WithLayout(in.Layout).
		WithUserKey(in.UserKey).
		WithFilename(in.Filename).
		WithDocumentID(in.DocumentID).
		Build()
}

// joinContent prefers the body paragraphs over the provider's raw content
// string so page furniture never reaches the extraction heuristics.
func joinContent(layout *model.LayoutResult) string {
	paras := layout.ContentParagraphs()
	if len(paras) == 0 {
		return textutil.StripSelectionMarks(layout.Content)
	}
	parts := make([]string, 0, len(paras))
	for _, p := range paras {
		parts = append(parts, p.Content)
	}
	return textutil.StripSelectionMarks(strings.Join(parts, "\n"))
}
