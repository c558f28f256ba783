package model

// ParagraphRole is the layout role the upstream provider assigns to a
// paragraph. Values mirror the provider's wire format.
type ParagraphRole string

const (
	RolePageHeader ParagraphRole = "pageHeader"
	RolePageFooter ParagraphRole = "pageFooter"
	RolePageNumber ParagraphRole = "pageNumber"
	RoleTitle      ParagraphRole = "title"
	RoleSectionHdr ParagraphRole = "sectionHeading"
)

// Paragraph is one unit of extracted text from the layout provider.
type Paragraph struct {
	Content    string        `json:"content"`
	Role       ParagraphRole `json:"role,omitempty"`
	PageNumber int           `json:"page_number,omitempty"`
}

// Page carries per-page metadata from the provider.
type Page struct {
	PageNumber int     `json:"page_number"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Unit       string  `json:"unit,omitempty"`
}

// BoundingRegion locates part of a figure on a page. Polygon is a flat
// list of x,y pairs in page units, clockwise from top-left.
type BoundingRegion struct {
	PageNumber int       `json:"page_number"`
	Polygon    []float64 `json:"polygon"`
}

// Figure is a visual element the provider detected in the document.
type Figure struct {
	ID      string           `json:"id"`
	Regions []BoundingRegion `json:"regions"`
}

// FirstRegion returns the figure's first bounding region, or nil when the
// provider reported none.
func (f *Figure) FirstRegion() *BoundingRegion {
	if len(f.Regions) == 0 {
		return nil
	}
	return &f.Regions[0]
}

// LayoutResult is the provider-native analyze result the pipeline consumes.
type LayoutResult struct {
	Content    string      `json:"content"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Pages      []Page      `json:"pages"`
	Figures    []Figure    `json:"figures"`
	ModelID    string      `json:"model_id,omitempty"`
	APIVersion string      `json:"api_version,omitempty"`
}

// ContentParagraphs returns the paragraphs that belong to the document body,
// skipping page furniture (headers, footers, page numbers).
func (r *LayoutResult) ContentParagraphs() []Paragraph {
	out := make([]Paragraph, 0, len(r.Paragraphs))
	for _, p := range r.Paragraphs {
		switch p.Role {
		case RolePageHeader, RolePageFooter, RolePageNumber:
			continue
		}
		out = append(out, p)
	}
	return out
}

// HeaderParagraphs returns the paragraphs the provider tagged as page
// headers, in document order.
func (r *LayoutResult) HeaderParagraphs() []Paragraph {
	var out []Paragraph
	for _, p := range r.Paragraphs {
		if p.Role == RolePageHeader {
			out = append(out, p)
		}
	}
	return out
}

// PageByNumber returns the page metadata for a page number, or nil.
func (r *LayoutResult) PageByNumber(n int) *Page {
	for i := range r.Pages {
		if r.Pages[i].PageNumber == n {
			return &r.Pages[i]
		}
	}
	return nil
}
