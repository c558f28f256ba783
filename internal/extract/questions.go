package extract

import (
	"strconv"
	"strings"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/registry"
	"github.com/provalab/exam-cli/internal/textutil"
)

// segmentSeparators are trimmed from the front of a question span, between
// the number and the statement.
const segmentSeparators = ").:;-–— \t\n"

// DetectQuestions splits the full document text into per-question segments
// on question markers and extracts statement plus alternatives for each.
// Segments whose marker carries no parsable positive number are dropped,
// not reported as errors.
func DetectQuestions(text string, p *registry.Patterns) []model.Question {
	locs := p.QuestionMarker.FindAllStringSubmatchIndex(text, -1)
	var questions []model.Question
	for i, loc := range locs {
		num, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || num <= 0 {
			continue
		}

		segEnd := len(text)
		if i+1 < len(locs) {
			segEnd = locs[i+1][0]
		}
		span := strings.TrimLeft(text[loc[1]:segEnd], segmentSeparators)

		statement, alts := ExtractAlternatives(span)
		questions = append(questions, model.Question{
			Number:       num,
			Statement:    statement,
			Alternatives: alts,
			HasVisualRef: containsAnyFolded(statement, p.VisualKeywords),
		})
	}
	return questions
}

// questionPositions returns the text offset of each detected question
// marker, applying the same drop rule as DetectQuestions so the result is
// parallel to its output.
func questionPositions(text string, p *registry.Patterns) []int {
	locs := p.QuestionMarker.FindAllStringSubmatchIndex(text, -1)
	var positions []int
	for _, loc := range locs {
		num, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || num <= 0 {
			continue
		}
		positions = append(positions, loc[0])
	}
	return positions
}

func containsAnyFolded(s string, folded []string) bool {
	fs := textutil.Fold(s)
	for _, kw := range folded {
		if strings.Contains(fs, kw) {
			return true
		}
	}
	return false
}
