package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/provalab/exam-cli/internal/extract"
	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/tagger"
)

// AggregateInput collects every upstream stage output for final assembly.
type AggregateInput struct {
	Ctx       *ProcessingContext
	Meta      model.DocumentMeta
	Questions []model.Question
	Blocks    []model.ContextBlock
	Images    ImageSet
}

// AggregationStage assembles the ProcessedDocument. It validates the
// context assignments and tags question subjects best-effort; neither
// activity can fail the stage.
type AggregationStage struct {
	tagger tagger.Tagger
	now    func() time.Time
}

func NewAggregationStage(tg tagger.Tagger) *AggregationStage {
	return &AggregationStage{tagger: tg, now: time.Now}
}

func (s *AggregationStage) Name() string { return "Response Aggregation" }

func (s *AggregationStage) Description() string {
	return "assembles the final processed document"
}

func (s *AggregationStage) ValidateInput(in AggregateInput) error {
	if in.Ctx == nil {
		return eris.New("missing processing context")
	}
	if len(in.Questions) == 0 {
		return eris.New("nothing to aggregate")
	}
	return nil
}

func (s *AggregationStage) Execute(ctx context.Context, in AggregateInput) (*model.ProcessedDocument, error) {
	report := extract.ValidateAssignments(in.Questions, in.Blocks)
	if !report.Valid() {
		zap.L().Warn("pipeline: dangling context references",
			zap.Ints("questions", report.Dangling),
		)
	}

	questions := make([]model.Question, len(in.Questions))
	copy(questions, in.Questions)
	s.tagSubjects(ctx, questions)

	return &model.ProcessedDocument{
		ID:            in.Ctx.DocumentID(),
		UserKey:       in.Ctx.UserKey(),
		Filename:      in.Ctx.Filename(),
		Meta:          in.Meta,
		Questions:     questions,
		ContextBlocks: in.Blocks,
		Images:        in.Images.All(),
		ProcessedAt:   s.now().UTC(),
	}, nil
}

func (s *AggregationStage) tagSubjects(ctx context.Context, questions []model.Question) {
	if s.tagger == nil {
		return
	}
	for i := range questions {
		tags, err := s.tagger.Tag(ctx, questions[i])
		if err != nil {
			zap.L().Warn("pipeline: subject tagging failed",
				zap.Int("question", questions[i].Number),
				zap.Error(err),
			)
			continue
		}
		questions[i].Subjects = tags
	}
}
