// Package extract implements the heuristic text-segmentation engine:
// question detection, alternative extraction, context-block detection, and
// context-to-question mapping. All functions here are pure and synchronous;
// "not found" is an empty result, never an error.
package extract

import (
	"regexp"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/textutil"
)

// markerPattern is one candidate alternative-marker shape. Patterns are
// ranked: when two patterns yield the same number of valid matches, the
// lower rank wins (parenthesized capital beats bare lowercase).
type markerPattern struct {
	name string
	re   *regexp.Regexp // capture group 1 is the letter
}

var markerPatterns = []markerPattern{
	{"paren-upper", regexp.MustCompile(`\(([A-E])\)`)},
	{"paren-lower", regexp.MustCompile(`\(([a-e])\)`)},
	{"upper-delim", regexp.MustCompile(`([A-E])[).]`)},
	{"lower-delim", regexp.MustCompile(`([a-e])[).]`)},
}

// pointValueRe matches a trailing point-value annotation such as
// "(2,0 pontos)" or "(1.5 points)". A marker directly after one is valid
// even with no separating whitespace.
var pointValueRe = regexp.MustCompile(`(?i)\(\s*\d+(?:[.,]\d+)?\s*(?:pontos?|points?|pts?\.?)?\s*\)\s*$`)

// strayLabelRe strips a dangling opening fragment of the next label from
// the end of a statement ("(", "(a").
var strayLabelRe = regexp.MustCompile(`\s*\(\s*[a-eA-E]?\s*$`)

// singleAltMinChars and singleAltMinWords gate the one-alternative case: a
// lone "a)" is accepted only when its body is long and well formed.
const (
	singleAltMinChars = 20
	singleAltMinWords = 5

	// maxDigitBody rejects long bare digit runs (page artifacts) while
	// keeping short numeric answers like "3" or "1964".
	maxDigitBody = 4
)

type candidate struct {
	letter     string
	start, end int // span offsets of the marker itself
	body       string
}

// ExtractAlternatives scans a question span (statement plus trailing
// alternatives) and splits it into a cleaned statement and the ordered
// alternative list. When no pattern produces a structurally valid,
// letter-sequential set, the whole span is returned as the statement.
func ExtractAlternatives(span string) (string, []model.Alternative) {
	var (
		best     []candidate
		bestRank = len(markerPatterns)
	)
	for rank, mp := range markerPatterns {
		cands := collectCandidates(span, mp.re)
		if !acceptCandidates(cands) {
			continue
		}
		if len(cands) > len(best) || (len(cands) == len(best) && rank < bestRank) {
			best = cands
			bestRank = rank
		}
	}

	if len(best) == 0 {
		return textutil.CollapseWhitespace(span), nil
	}

	statement := span[:best[0].start]
	statement = strayLabelRe.ReplaceAllString(statement, "")
	statement = textutil.CollapseWhitespace(textutil.StripSelectionMarks(statement))

	alts := make([]model.Alternative, 0, len(best))
	for _, c := range best {
		alts = append(alts, model.Alternative{Letter: c.letter, Text: c.body})
	}
	return statement, alts
}

// collectCandidates gathers all structurally valid markers for one pattern
// and the body text each one governs.
func collectCandidates(span string, re *regexp.Regexp) []candidate {
	locs := re.FindAllStringSubmatchIndex(span, -1)
	var valid []candidate
	for _, loc := range locs {
		if !validMarkerPosition(span, loc[0]) {
			continue
		}
		valid = append(valid, candidate{
			letter: span[loc[2]:loc[3]],
			start:  loc[0],
			end:    loc[1],
		})
	}

	var out []candidate
	for i, c := range valid {
		bodyEnd := len(span)
		if i+1 < len(valid) {
			bodyEnd = valid[i+1].start
		}
		body := textutil.CollapseWhitespace(textutil.StripSelectionMarks(span[c.end:bodyEnd]))
		if !validBody(body) {
			continue
		}
		c.body = body
		out = append(out, c)
	}
	return out
}

// validMarkerPosition applies rule (a): the marker must begin a line,
// follow a line break, follow a point-value annotation, or be preceded by
// enough whitespace to not be part of a word. This rules out false
// positives like the "(a)" inside "he/she(a)".
func validMarkerPosition(span string, start int) bool {
	i := start
	spaces := 0
	for i > 0 {
		c := span[i-1]
		if c == ' ' || c == '\t' {
			spaces++
			i--
			continue
		}
		break
	}
	if i == 0 || span[i-1] == '\n' {
		return true
	}
	if spaces >= 2 {
		return true
	}
	return pointValueRe.MatchString(span[:start])
}

// validBody applies rule (b): the text a marker governs must be
// non-trivial. Short digit bodies stay valid (numeric answers).
func validBody(body string) bool {
	if body == "" {
		return false
	}
	if textutil.IsPunctuationOnly(body) {
		return false
	}
	if textutil.IsDigitsOnly(body) && len(body) > maxDigitBody {
		return false
	}
	return true
}

// acceptCandidates applies the acceptance rule: at least two matches with
// strictly sequential letters, or exactly one long, well-formed
// alternative starting at 'a'. A non-sequential set is rejected wholesale.
func acceptCandidates(cands []candidate) bool {
	if len(cands) == 0 {
		return false
	}
	alts := make([]model.Alternative, len(cands))
	for i, c := range cands {
		alts[i] = model.Alternative{Letter: c.letter}
	}
	if !model.SequentialLetters(alts) {
		return false
	}
	if len(cands) >= 2 {
		return true
	}
	body := cands[0].body
	return len(body) >= singleAltMinChars && textutil.WordCount(body) >= singleAltMinWords
}
