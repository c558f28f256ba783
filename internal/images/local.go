package images

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/registry"
	"github.com/provalab/exam-cli/internal/textutil"
)

// headerBand is the fraction of page height counted as the header area.
const headerBand = 0.15

// LocalExtractor builds image records from figure metadata alone, without
// touching the source file. Storage keys are deterministic per document so
// a later upload pass can fill them in.
type LocalExtractor struct {
	// NewID generates image ids; defaults to uuid.NewString.
	NewID func() string
}

func NewLocalExtractor() *LocalExtractor {
	return &LocalExtractor{NewID: uuid.NewString}
}

func (e *LocalExtractor) Extract(_ context.Context, layout *model.LayoutResult) ([]model.ExtractedImage, error) {
	if layout == nil {
		return nil, eris.New("images: nil layout result")
	}
	newID := e.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	out := make([]model.ExtractedImage, 0, len(layout.Figures))
	for i, fig := range layout.Figures {
		region := fig.FirstRegion()
		page := 1
		if region != nil {
			page = region.PageNumber
		}
		out = append(out, model.ExtractedImage{
			ID:         newID(),
			FigureID:   fig.ID,
			PageNumber: page,
			StorageKey: fmt.Sprintf("figures/%s/%d", fig.ID, i),
		})
	}
	return out, nil
}

// RegionCategorizer classifies an image as header artwork when its figure
// sits in the top band of page 1; everything else is content.
type RegionCategorizer struct{}

func NewRegionCategorizer() *RegionCategorizer {
	return &RegionCategorizer{}
}

func (c *RegionCategorizer) Categorize(_ context.Context, layout *model.LayoutResult, imgs []model.ExtractedImage) ([]model.ExtractedImage, []model.ExtractedImage, error) {
	if layout == nil {
		return nil, nil, eris.New("images: nil layout result")
	}

	figures := make(map[string]*model.Figure, len(layout.Figures))
	for i := range layout.Figures {
		figures[layout.Figures[i].ID] = &layout.Figures[i]
	}

	var header, content []model.ExtractedImage
	for _, img := range imgs {
		img := img
		if inHeaderBand(figures[img.FigureID], layout) {
			img.Kind = model.ImageHeader
			header = append(header, img)
		} else {
			img.Kind = model.ImageContent
			content = append(content, img)
		}
	}
	return header, content, nil
}

func inHeaderBand(fig *model.Figure, layout *model.LayoutResult) bool {
	if fig == nil {
		return false
	}
	region := fig.FirstRegion()
	if region == nil || region.PageNumber != 1 {
		return false
	}
	page := layout.PageByNumber(1)
	if page == nil || page.Height <= 0 {
		return false
	}
	top := topY(region.Polygon)
	return top >= 0 && top <= page.Height*headerBand
}

// topY returns the smallest y coordinate of a flat x,y polygon, or -1 when
// the polygon is malformed.
func topY(polygon []float64) float64 {
	if len(polygon) < 2 || len(polygon)%2 != 0 {
		return -1
	}
	minY := polygon[1]
	for i := 3; i < len(polygon); i += 2 {
		if polygon[i] < minY {
			minY = polygon[i]
		}
	}
	return minY
}

// FigureContextBuilder supplements text-detected context blocks with
// image-type blocks built straight from content figures. When the text
// heuristics already produced an image or mixed block the figures are
// assumed covered and nothing is added.
type FigureContextBuilder struct{}

func NewFigureContextBuilder() *FigureContextBuilder {
	return &FigureContextBuilder{}
}

func (b *FigureContextBuilder) Build(_ context.Context, layout *model.LayoutResult, existing []model.ContextBlock, content []model.ExtractedImage) ([]model.ContextBlock, error) {
	if layout == nil {
		return nil, eris.New("images: nil layout result")
	}
	for _, blk := range existing {
		if blk.Type == model.ContextImage || blk.Type == model.ContextMixed {
			return nil, nil
		}
	}

	nextID := 0
	for _, blk := range existing {
		if blk.ID > nextID {
			nextID = blk.ID
		}
	}

	var out []model.ContextBlock
	for _, img := range content {
		nextID++
		out = append(out, model.ContextBlock{
			ID:           nextID,
			Type:         model.ContextImage,
			Statement:    fmt.Sprintf("Imagem da página %d", img.PageNumber),
			HasVisualRef: true,
		})
	}
	if len(out) > 0 {
		zap.L().Debug("images: built figure context blocks", zap.Int("count", len(out)))
	}
	return out, nil
}

// KeywordAssociator flags questions whose statement mentions an image or
// figure and points image blocks at the content images on their pages.
type KeywordAssociator struct {
	patterns *registry.Patterns
}

func NewKeywordAssociator(p *registry.Patterns) *KeywordAssociator {
	if p == nil {
		p = registry.Default()
	}
	return &KeywordAssociator{patterns: p}
}

func (a *KeywordAssociator) Associate(_ context.Context, questions []model.Question, blocks []model.ContextBlock, content []model.ExtractedImage) ([]model.Question, []model.ContextBlock, error) {
	qs := make([]model.Question, len(questions))
	copy(qs, questions)
	bs := make([]model.ContextBlock, len(blocks))
	copy(bs, blocks)

	for i := range qs {
		if qs[i].HasVisualRef {
			continue
		}
		folded := textutil.Fold(qs[i].Statement)
		for _, kw := range a.patterns.VisualKeywords {
			if kw != "" && containsWord(folded, kw) {
				qs[i].HasVisualRef = true
				break
			}
		}
	}

	if len(content) > 0 {
		for i := range bs {
			if bs[i].Type == model.ContextImage || bs[i].Type == model.ContextMixed {
				bs[i].HasVisualRef = true
			}
		}
	}
	return qs, bs, nil
}

func containsWord(folded, word string) bool {
	for off := 0; ; {
		j := strings.Index(folded[off:], word)
		if j < 0 {
			return false
		}
		j += off
		before := j == 0 || !isLetter(folded[j-1])
		after := j+len(word) >= len(folded) || !isLetter(folded[j+len(word)])
		if before && after {
			return true
		}
		off = j + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
