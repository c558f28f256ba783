package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/provalab/exam-cli/internal/images"
	"github.com/provalab/exam-cli/internal/model"
)

// ImageSet is the image-analysis stage output: every extracted image,
// split into header artwork and content images.
type ImageSet struct {
	Header  []model.ExtractedImage
	Content []model.ExtractedImage
}

// All returns header and content images in one slice.
func (s ImageSet) All() []model.ExtractedImage {
	out := make([]model.ExtractedImage, 0, len(s.Header)+len(s.Content))
	out = append(out, s.Header...)
	out = append(out, s.Content...)
	return out
}

// ImageAnalysisStage extracts images from the provider figures and splits
// them into header vs content. Collaborator failures fail the stage.
type ImageAnalysisStage struct {
	extractor   images.Extractor
	categorizer images.Categorizer
}

func NewImageAnalysisStage(ext images.Extractor, cat images.Categorizer) *ImageAnalysisStage {
	return &ImageAnalysisStage{extractor: ext, categorizer: cat}
}

func (s *ImageAnalysisStage) Name() string { return "Image Analysis" }

func (s *ImageAnalysisStage) Description() string {
	return "extracts document figures and categorizes them as header or content"
}

func (s *ImageAnalysisStage) ValidateInput(pctx *ProcessingContext) error {
	if pctx == nil {
		return eris.New("missing processing context")
	}
	return nil
}

func (s *ImageAnalysisStage) Execute(ctx context.Context, pctx *ProcessingContext) (ImageSet, error) {
	imgs, err := s.extractor.Extract(ctx, pctx.Layout())
	if err != nil {
		return ImageSet{}, eris.Wrap(err, "extract images")
	}
	header, content, err := s.categorizer.Categorize(ctx, pctx.Layout(), imgs)
	if err != nil {
		return ImageSet{}, eris.Wrap(err, "categorize images")
	}
	return ImageSet{Header: header, Content: content}, nil
}
