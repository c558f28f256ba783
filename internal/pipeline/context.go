package pipeline

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/provalab/exam-cli/internal/model"
)

// ProcessingContext is the one value shared across stages 2-7. It is built
// once from stage 1's output and never mutated afterward; all fields are
// unexported and reachable only through getters.
type ProcessingContext struct {
	text       string
	layout     *model.LayoutResult
	userKey    string
	filename   string
	documentID string
}

// Text returns the full extracted document text.
func (c *ProcessingContext) Text() string { return c.text }

// Layout returns the provider-native analyze result.
func (c *ProcessingContext) Layout() *model.LayoutResult { return c.layout }

func (c *ProcessingContext) UserKey() string    { return c.userKey }
func (c *ProcessingContext) Filename() string   { return c.filename }
func (c *ProcessingContext) DocumentID() string { return c.documentID }

// ContextBuilder accumulates fields before the immutable ProcessingContext
// is produced. Only the context-preparation stage uses it.
type ContextBuilder struct {
	text       string
	layout     *model.LayoutResult
	userKey    string
	filename   string
	documentID string
}

func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{}
}

func (b *ContextBuilder) WithText(text string) *ContextBuilder {
	b.text = text
	return b
}

func (b *ContextBuilder) WithLayout(layout *model.LayoutResult) *ContextBuilder {
	b.layout = layout
	return b
}

func (b *ContextBuilder) WithUserKey(key string) *ContextBuilder {
	b.userKey = key
	return b
}

func (b *ContextBuilder) WithFilename(name string) *ContextBuilder {
	b.filename = name
	return b
}

func (b *ContextBuilder) WithDocumentID(id string) *ContextBuilder {
	b.documentID = id
	return b
}

// Build validates the accumulated fields and produces the immutable
// context. A missing document id is generated.
func (b *ContextBuilder) Build() (*ProcessingContext, error) {
	if b.layout == nil {
		return nil, eris.New("pipeline: context requires a layout result")
	}
	if b.text == "" {
		return nil, eris.New("pipeline: context requires extracted text")
	}
	id := b.documentID
	if id == "" {
		id = uuid.NewString()
	}
	return &ProcessingContext{
		text:       b.text,
		layout:     b.layout,
		userKey:    b.userKey,
		filename:   b.filename,
		documentID: id,
	}, nil
}
