package model

import "strings"

// ContextType classifies what kind of material a context block carries.
type ContextType string

const (
	ContextText  ContextType = "text"
	ContextImage ContextType = "image"
	ContextMixed ContextType = "mixed"
)

// ContextBlock is a reading passage or visual element that one or more
// questions depend on. IDs are assigned sequentially (1-based) after
// de-duplication.
type ContextBlock struct {
	ID           int         `json:"id"`
	Type         ContextType `json:"type"`
	Title        string      `json:"title,omitempty"`
	Statement    string      `json:"statement,omitempty"`
	Paragraphs   []string    `json:"paragraphs"`
	HasVisualRef bool        `json:"has_visual_reference"`

	// ExpectedQuestions is how many questions the introduction announced
	// ("...para responder as duas próximas questões"). Zero when the phrase
	// carried no count.
	ExpectedQuestions int `json:"expected_questions,omitempty"`

	// Position is the rune offset of the introduction in the full document
	// text. Used by the context-question mapper, not serialized.
	Position int `json:"-"`
}

// Body returns the block's paragraphs joined into a single string.
func (c *ContextBlock) Body() string {
	return strings.Join(c.Paragraphs, "\n")
}
