package tagger

import (
	"context"
	"sort"
	"strings"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/textutil"
)

// subjectKeywords maps folded keyword to subject tag. Coarse on purpose:
// the keyword tagger is the offline fallback when no model is configured.
var subjectKeywords = map[string]string{
	"calcule":      "matemática",
	"equacao":      "matemática",
	"fracao":       "matemática",
	"porcentagem":  "matemática",
	"triangulo":    "geometria",
	"angulo":       "geometria",
	"verbo":        "gramática",
	"substantivo":  "gramática",
	"ortografia":   "gramática",
	"texto":        "interpretação de texto",
	"autor":        "interpretação de texto",
	"narrador":     "interpretação de texto",
	"celula":       "ciências",
	"fotossintese": "ciências",
	"ecossistema":  "ciências",
	"guerra":       "história",
	"imperio":      "história",
	"revolucao":    "história",
	"mapa":         "geografia",
	"relevo":       "geografia",
	"clima":        "geografia",
}

// KeywordTagger tags questions by matching folded statement words against a
// fixed keyword table.
type KeywordTagger struct{}

func NewKeywordTagger() *KeywordTagger {
	return &KeywordTagger{}
}

func (t *KeywordTagger) Tag(_ context.Context, q model.Question) ([]string, error) {
	seen := map[string]bool{}
	text := textutil.Fold(q.Statement)
	for _, alt := range q.Alternatives {
		text += " " + textutil.Fold(alt.Text)
	}

	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) {
		if subject, ok := subjectKeywords[word]; ok {
			seen[subject] = true
		}
	}

	if len(seen) == 0 {
		return nil, nil
	}
	tags := make([]string, 0, len(seen))
	for s := range seen {
		tags = append(tags, s)
	}
	sort.Strings(tags)
	return tags, nil
}
