// Package docintel provides a client for the upstream document-layout
// analysis API, plus a loader for pre-fetched analyze results (the offline
// path the CLI uses by default).
package docintel

import (
	"github.com/provalab/exam-cli/internal/model"
)

// AnalyzeResponse is the provider's operation envelope.
type AnalyzeResponse struct {
	Status        string         `json:"status"`
	AnalyzeResult *AnalyzeResult `json:"analyzeResult,omitempty"`
	Error         *APIError      `json:"error,omitempty"`
}

// APIError is the provider's error payload.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AnalyzeResult is the provider-native layout analysis result.
type AnalyzeResult struct {
	ModelID    string      `json:"modelId"`
	APIVersion string      `json:"apiVersion"`
	Content    string      `json:"content"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Pages      []PageInfo  `json:"pages"`
	Figures    []FigureRef `json:"figures"`
}

// Paragraph is one extracted text unit with its layout role.
type Paragraph struct {
	Content         string           `json:"content"`
	Role            string           `json:"role,omitempty"`
	BoundingRegions []BoundingRegion `json:"boundingRegions,omitempty"`
}

// PageInfo holds per-page dimensions.
type PageInfo struct {
	PageNumber int     `json:"pageNumber"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Unit       string  `json:"unit,omitempty"`
}

// FigureRef is a detected figure with its page locations.
type FigureRef struct {
	ID              string           `json:"id"`
	BoundingRegions []BoundingRegion `json:"boundingRegions"`
}

// BoundingRegion locates content on a page. Polygon is a flat x,y list.
type BoundingRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon"`
}

// ToLayout converts the provider result into the pipeline's layout model.
func (r *AnalyzeResult) ToLayout() *model.LayoutResult {
	out := &model.LayoutResult{
		Content:    r.Content,
		ModelID:    r.ModelID,
		APIVersion: r.APIVersion,
	}
	for _, p := range r.Paragraphs {
		page := 0
		if len(p.BoundingRegions) > 0 {
			page = p.BoundingRegions[0].PageNumber
		}
		out.Paragraphs = append(out.Paragraphs, model.Paragraph{
			Content:    p.Content,
			Role:       model.ParagraphRole(p.Role),
			PageNumber: page,
		})
	}
	for _, p := range r.Pages {
		out.Pages = append(out.Pages, model.Page{
			PageNumber: p.PageNumber,
			Width:      p.Width,
			Height:     p.Height,
			Unit:       p.Unit,
		})
	}
	for _, f := range r.Figures {
		fig := model.Figure{ID: f.ID}
		for _, br := range f.BoundingRegions {
			fig.Regions = append(fig.Regions, model.BoundingRegion{
				PageNumber: br.PageNumber,
				Polygon:    br.Polygon,
			})
		}
		out.Figures = append(out.Figures, fig)
	}
	return out
}
