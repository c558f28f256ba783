package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/registry"
	"github.com/provalab/exam-cli/internal/textutil"
)

const (
	// minContextBody is the minimum normalized body length for a block.
	minContextBody = 50

	// fallbackThreshold triggers the secondary title-based pass when the
	// pattern pass found fewer blocks than this.
	fallbackThreshold = 3

	// bodySimThreshold and titleSimThreshold drive de-duplication.
	bodySimThreshold  = 0.8
	titleSimThreshold = 0.9

	// bodySimWindow limits similarity comparison to the body's head.
	bodySimWindow = 200

	maxTitleLen = 60
)

// altMarkerLineRe matches a line that is essentially a bare alternative
// marker. A "context" made mostly of these is an alternatives list that a
// reading-intro phrase happened to precede.
var altMarkerLineRe = regexp.MustCompile(`^\(?[a-eA-E][).]`)

type introMatch struct {
	start, end int
	count      int
	ctype      model.ContextType
	statement  string
}

// DetectContextBlocks finds reading-passage and image introductions in the
// full document text and extracts their bodies. Surviving blocks are
// renumbered 1..N in document order.
func DetectContextBlocks(text string, p *registry.Patterns) []model.ContextBlock {
	matches := findIntroMatches(text, p)
	qPositions := questionPositions(text, p)

	var blocks []model.ContextBlock
	for i, m := range matches {
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1].start
		}
		if qp := nextPosition(qPositions, m.end); qp >= 0 && qp < bodyEnd {
			bodyEnd = qp
		}

		block, ok := buildBlock(text[m.end:bodyEnd], m)
		if !ok {
			continue
		}
		blocks = append(blocks, block)
	}

	if len(blocks) < fallbackThreshold {
		blocks = append(blocks, fallbackTitleBlocks(text, p, qPositions)...)
	}

	blocks = dedupeBlocks(blocks)

	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Position < blocks[j].Position })
	for i := range blocks {
		blocks[i].ID = i + 1
	}
	return blocks
}

// findIntroMatches runs every intro pattern over the text and returns the
// matches sorted by position, keeping the longest match when several
// patterns fire at the same spot.
func findIntroMatches(text string, p *registry.Patterns) []introMatch {
	var all []introMatch
	for _, intro := range p.Intros {
		for _, loc := range intro.Re.FindAllStringSubmatchIndex(text, -1) {
			m := introMatch{
				start:     loc[0],
				end:       loc[1],
				count:     intro.DefaultCount,
				ctype:     intro.Type,
				statement: textutil.CollapseWhitespace(text[loc[0]:loc[1]]),
			}
			if g := intro.CountGroup; g > 0 && 2*g+1 < len(loc) && loc[2*g] >= 0 {
				if n, ok := p.CountFromWord(text[loc[2*g]:loc[2*g+1]]); ok {
					m.count = n
				}
			}
			all = append(all, m)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end > all[j].end
	})

	// Drop matches swallowed by an earlier, longer one.
	var out []introMatch
	lastEnd := -1
	for _, m := range all {
		if m.start < lastEnd {
			continue
		}
		out = append(out, m)
		lastEnd = m.end
	}
	return out
}

// buildBlock normalizes and validates one body span.
func buildBlock(raw string, m introMatch) (model.ContextBlock, bool) {
	paragraphs, title := splitBody(raw)

	body := strings.Join(paragraphs, "\n")
	if len(body) < minContextBody {
		return model.ContextBlock{}, false
	}
	if mostlyAlternativeMarkers(paragraphs) {
		return model.ContextBlock{}, false
	}

	return model.ContextBlock{
		Type:              m.ctype,
		Title:             title,
		Statement:         m.statement,
		Paragraphs:        paragraphs,
		HasVisualRef:      m.ctype != model.ContextText,
		ExpectedQuestions: m.count,
		Position:          m.start,
	}, true
}

// splitBody cleans a raw body span into normalized paragraphs, peeling off
// a leading title line when one is present.
func splitBody(raw string) (paragraphs []string, title string) {
	for _, line := range strings.Split(textutil.StripSelectionMarks(raw), "\n") {
		line = textutil.CollapseWhitespace(line)
		if line == "" || textutil.IsPunctuationOnly(line) {
			continue
		}
		if len(paragraphs) == 0 && title == "" && looksLikeTitle(line) {
			title = line
			continue
		}
		paragraphs = append(paragraphs, line)
	}
	return paragraphs, title
}

// looksLikeTitle accepts short all-caps lines with at least one letter.
func looksLikeTitle(line string) bool {
	if len(line) > maxTitleLen {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func mostlyAlternativeMarkers(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	markers := 0
	for _, l := range lines {
		if altMarkerLineRe.MatchString(l) {
			markers++
		}
	}
	return markers*2 > len(lines)
}

// fallbackTitleBlocks is the secondary pass: scan for allow-listed
// recurring passage titles and treat the text after each as a context
// body. The allow-list is document-set specific and known to be brittle;
// it only runs when the pattern pass came up short.
func fallbackTitleBlocks(text string, p *registry.Patterns, qPositions []int) []model.ContextBlock {
	var blocks []model.ContextBlock
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(line)

		trimmed := textutil.CollapseWhitespace(line)
		if trimmed == "" || len(trimmed) > maxTitleLen {
			continue
		}
		folded := textutil.Fold(trimmed)
		if !matchesFallbackTitle(folded, p.FallbackTitles) {
			continue
		}

		bodyEnd := len(text)
		if qp := nextPosition(qPositions, lineStart+len(line)); qp >= 0 {
			bodyEnd = qp
		}
		block, ok := buildBlock(text[lineStart+len(line):bodyEnd], introMatch{
			start: lineStart,
			ctype: model.ContextText,
		})
		if !ok {
			continue
		}
		block.Title = trimmed
		blocks = append(blocks, block)
	}
	return blocks
}

func matchesFallbackTitle(folded string, titles []string) bool {
	for _, t := range titles {
		if folded == t || strings.HasPrefix(folded, t+" ") || strings.HasPrefix(folded, t+":") {
			return true
		}
	}
	return false
}

// dedupeBlocks merges near-duplicate blocks, keeping the longer or
// better-titled version.
func dedupeBlocks(blocks []model.ContextBlock) []model.ContextBlock {
	var kept []model.ContextBlock
	for _, b := range blocks {
		merged := false
		for i := range kept {
			if !similarBlocks(&kept[i], &b) {
				continue
			}
			if betterBlock(&b, &kept[i]) {
				kept[i] = b
			}
			merged = true
			break
		}
		if !merged {
			kept = append(kept, b)
		}
	}
	return kept
}

func similarBlocks(a, b *model.ContextBlock) bool {
	if wordOverlap(head(a.Body(), bodySimWindow), head(b.Body(), bodySimWindow)) > bodySimThreshold {
		return true
	}
	if a.Title != "" && b.Title != "" && wordOverlap(a.Title, b.Title) > titleSimThreshold {
		return true
	}
	return false
}

func betterBlock(candidate, incumbent *model.ContextBlock) bool {
	if candidate.Title != "" && incumbent.Title == "" {
		return true
	}
	if candidate.Title == "" && incumbent.Title != "" {
		return false
	}
	return len(candidate.Body()) > len(incumbent.Body())
}

// wordOverlap computes Jaccard similarity over folded word sets.
func wordOverlap(a, b string) float64 {
	wa := fieldSet(a)
	wb := fieldSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func fieldSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(textutil.Fold(s)) {
		set[w] = struct{}{}
	}
	return set
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// nextPosition returns the first position in sorted positions that is >=
// from, or -1.
func nextPosition(positions []int, from int) int {
	for _, p := range positions {
		if p >= from {
			return p
		}
	}
	return -1
}
