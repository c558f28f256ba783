// Package pipeline runs the fixed seven-stage document processing
// sequence: context preparation, image analysis, header parsing, question
// extraction, context building, figure association, response aggregation.
// Stages run strictly in order behind circuit-breaker wrappers; the first
// failure short-circuits the run with no partial output.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/provalab/exam-cli/internal/extract"
	"github.com/provalab/exam-cli/internal/images"
	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/tagger"
)

// Options tunes orchestrator behavior.
type Options struct {
	// MaxStageFailures is the per-stage circuit threshold; <= 0 uses the
	// breaker default.
	MaxStageFailures int

	// ParallelStages and RetryFailedStages are accepted from configuration
	// but reserved: the orchestrator runs sequentially and never retries a
	// stage.
	ParallelStages    bool
	RetryFailedStages bool
}

// Input identifies one document-processing run.
type Input struct {
	Layout     *model.LayoutResult
	UserKey    string
	Filename   string
	DocumentID string
}

// Pipeline owns the wrapped stage sequence. Construct once, reuse across
// documents; breaker state carries over until Reset.
type Pipeline struct {
	prepare   *StageWrapper[PrepareInput, *ProcessingContext]
	images    *StageWrapper[*ProcessingContext, ImageSet]
	header    *StageWrapper[*ProcessingContext, model.DocumentMeta]
	questions *StageWrapper[*ProcessingContext, extract.Result]
	contexts  *StageWrapper[ContextBuildInput, []model.ContextBlock]
	figures   *StageWrapper[FigureInput, FigureOutput]
	aggregate *StageWrapper[AggregateInput, *model.ProcessedDocument]
}

// New wires the seven stages with their collaborators.
func New(
	svc *extract.Service,
	extractor images.Extractor,
	categorizer images.Categorizer,
	ctxBuilder images.ContextBuilder,
	associator images.Associator,
	tg tagger.Tagger,
	opts Options,
) *Pipeline {
	if opts.ParallelStages || opts.RetryFailedStages {
		zap.L().Debug("pipeline: parallel_stages and retry_failed_stages are reserved and ignored")
	}
	n := opts.MaxStageFailures
	return &Pipeline{
		prepare:   Wrap[PrepareInput, *ProcessingContext](NewPrepareStage(), n),
		images:    Wrap[*ProcessingContext, ImageSet](NewImageAnalysisStage(extractor, categorizer), n),
		header:    Wrap[*ProcessingContext, model.DocumentMeta](NewHeaderParsingStage(), n),
		questions: Wrap[*ProcessingContext, extract.Result](NewQuestionExtractionStage(svc), n),
		contexts:  Wrap[ContextBuildInput, []model.ContextBlock](NewContextBuildingStage(ctxBuilder), n),
		figures:   Wrap[FigureInput, FigureOutput](NewFigureAssociationStage(associator), n),
		aggregate: Wrap[AggregateInput, *model.ProcessedDocument](NewAggregationStage(tg), n),
	}
}

// Run processes one document. On failure it returns a *StageFailure with
// the failing stage's name, message, and elapsed time, and nothing else.
func (p *Pipeline) Run(ctx context.Context, in Input) (*model.ProcessedDocument, error) {
	log := zap.L().With(
		zap.String("filename", in.Filename),
		zap.String("user_key", in.UserKey),
	)
	log.Info("pipeline: starting document processing")

	prep := p.prepare.Run(ctx, PrepareInput(in))
	if !prep.Success {
		return nil, failStage(log, prep.Failure())
	}
	logStage(log, prep.Stage, prep.Elapsed)
	pctx := prep.Data

	imgRes := p.images.Run(ctx, pctx)
	if !imgRes.Success {
		return nil, failStage(log, imgRes.Failure())
	}
	logStage(log, imgRes.Stage, imgRes.Elapsed)

	headerRes := p.header.Run(ctx, pctx)
	if !headerRes.Success {
		return nil, failStage(log, headerRes.Failure())
	}
	logStage(log, headerRes.Stage, headerRes.Elapsed)

	questionRes := p.questions.Run(ctx, pctx)
	if !questionRes.Success {
		return nil, failStage(log, questionRes.Failure())
	}
	logStage(log, questionRes.Stage, questionRes.Elapsed)

	contextRes := p.contexts.Run(ctx, ContextBuildInput{
		Ctx:        pctx,
		Extraction: questionRes.Data,
		Images:     imgRes.Data,
	})
	if !contextRes.Success {
		return nil, failStage(log, contextRes.Failure())
	}
	logStage(log, contextRes.Stage, contextRes.Elapsed)

	questions := questionRes.Data.Questions
	blocks := contextRes.Data

	figureRes := p.figures.Run(ctx, FigureInput{
		Ctx:       pctx,
		Questions: questions,
		Blocks:    blocks,
		Images:    imgRes.Data,
	})
	if figureRes.Success {
		questions = figureRes.Data.Questions
		blocks = figureRes.Data.Blocks
		logStage(log, figureRes.Stage, figureRes.Elapsed)
	} else {
		// Soft degrade: keep the extraction output unannotated.
		log.Warn("pipeline: figure association failed, keeping extraction output",
			zap.String("stage", figureRes.Stage),
			zap.Error(figureRes.Err),
		)
	}

	aggRes := p.aggregate.Run(ctx, AggregateInput{
		Ctx:       pctx,
		Meta:      headerRes.Data,
		Questions: questions,
		Blocks:    blocks,
		Images:    imgRes.Data,
	})
	if !aggRes.Success {
		return nil, failStage(log, aggRes.Failure())
	}
	logStage(log, aggRes.Stage, aggRes.Elapsed)

	doc := aggRes.Data
	log.Info("pipeline: document processed",
		zap.String("document_id", doc.ID),
		zap.Int("questions", len(doc.Questions)),
		zap.Int("context_blocks", len(doc.ContextBlocks)),
		zap.Int("images", len(doc.Images)),
	)
	return doc, nil
}

// Reset closes every stage breaker, reopening the pipeline after repeated
// failures tripped one.
func (p *Pipeline) Reset() {
	p.prepare.Reset()
	p.images.Reset()
	p.header.Reset()
	p.questions.Reset()
	p.contexts.Reset()
	p.figures.Reset()
	p.aggregate.Reset()
}

func logStage(log *zap.Logger, stage string, elapsed time.Duration) {
	log.Info("pipeline: stage complete",
		zap.String("stage", stage),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
}

func failStage(log *zap.Logger, f *StageFailure) *StageFailure {
	log.Error("pipeline: stage failed",
		zap.String("stage", f.Stage),
		zap.Int64("duration_ms", f.Elapsed.Milliseconds()),
		zap.String("message", f.Message),
	)
	return f
}
