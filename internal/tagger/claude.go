package tagger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/textutil"
	"github.com/provalab/exam-cli/pkg/anthropic"
)

// allowedSubjects is the closed vocabulary the model may answer with.
// Responses outside it are dropped rather than propagated.
var allowedSubjects = []string{
	"matemática",
	"geometria",
	"gramática",
	"interpretação de texto",
	"ciências",
	"história",
	"geografia",
	"inglês",
	"artes",
	"educação física",
}

const classifySystemPrompt = `Você classifica questões de provas escolares brasileiras por disciplina.
Responda APENAS com os nomes das disciplinas, separados por vírgula, escolhidos desta lista:
matemática, geometria, gramática, interpretação de texto, ciências, história, geografia, inglês, artes, educação física.
Se nenhuma disciplina se aplicar, responda "nenhuma".`

// ClaudeTagger classifies questions with a Claude model. The system prompt is
// identical for every question, so it is sent with a cache breakpoint and all
// requests after the first in a document hit the warm cache.
type ClaudeTagger struct {
	client anthropic.Client
	model  string
}

func NewClaudeTagger(client anthropic.Client, model string) *ClaudeTagger {
	return &ClaudeTagger{client: client, model: model}
}

func (t *ClaudeTagger) Tag(ctx context.Context, q model.Question) ([]string, error) {
	temp := 0.0
	resp, err := t.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       t.model,
		MaxTokens:   64,
		System:      anthropic.BuildCachedSystemBlocks(classifySystemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: questionPrompt(q)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "tagger: classify question %d", q.Number)
	}
	resp.Usage.LogCost(t.model, "tagging")

	return parseSubjects(resp.FirstText()), nil
}

func questionPrompt(q model.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Questão: %s\n", q.Statement)
	for _, alt := range q.Alternatives {
		fmt.Fprintf(&b, "%s) %s\n", alt.Letter, alt.Text)
	}
	return b.String()
}

// parseSubjects keeps only answers from the allowed vocabulary, matching
// case- and accent-insensitively, deduplicated and sorted.
func parseSubjects(answer string) []string {
	folded := map[string]string{}
	for _, s := range allowedSubjects {
		folded[textutil.Fold(s)] = s
	}

	seen := map[string]bool{}
	for _, part := range strings.FieldsFunc(answer, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	}) {
		key := textutil.Fold(strings.TrimSpace(part))
		if subject, ok := folded[key]; ok {
			seen[subject] = true
		}
	}

	if len(seen) == 0 {
		return nil
	}
	tags := make([]string, 0, len(seen))
	for s := range seen {
		tags = append(tags, s)
	}
	sort.Strings(tags)
	return tags
}
