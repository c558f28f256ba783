package extract

import (
	"strings"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/registry"
)

// Result is the output of one extraction pass: questions already linked to
// the context blocks they depend on.
type Result struct {
	Questions     []model.Question     `json:"questions"`
	ContextBlocks []model.ContextBlock `json:"context_blocks"`
}

// Service composes the leaf extractors into a single pass over an input
// paragraph sequence. It holds no mutable state and is safe for concurrent
// use.
type Service struct {
	patterns *registry.Patterns
}

// NewService creates an extraction service. A nil registry selects the
// embedded defaults.
func NewService(p *registry.Patterns) *Service {
	if p == nil {
		p = registry.Default()
	}
	return &Service{patterns: p}
}

// Extract runs the full question/context pass over the paragraph sequence.
func (s *Service) Extract(paragraphs []model.Paragraph) Result {
	contents := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		contents = append(contents, p.Content)
	}
	return s.ExtractText(strings.Join(contents, "\n"))
}

// ExtractText runs the full question/context pass over raw document text.
func (s *Service) ExtractText(text string) Result {
	blocks := DetectContextBlocks(text, s.patterns)
	questions := DetectQuestions(text, s.patterns)
	questions = MapContexts(text, questions, blocks, s.patterns)
	return Result{Questions: questions, ContextBlocks: blocks}
}
