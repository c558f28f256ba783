package extract

import (
	"sort"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/registry"
)

// Asymmetric distance weights for the proximity fallback: a context that
// precedes a question is the natural reading order, so it wins over a
// closer context that follows it.
const (
	weightBefore = 0.8
	weightAfter  = 1.2
)

// MapContexts decides which context block each question belongs to and
// returns the questions with their ContextID set. The input slices are not
// modified.
func MapContexts(text string, questions []model.Question, blocks []model.ContextBlock, p *registry.Patterns) []model.Question {
	out := make([]model.Question, len(questions))
	copy(out, questions)
	if len(out) == 0 || len(blocks) == 0 {
		return out
	}

	positions := questionPositions(text, p)
	qPos := func(i int) int {
		if i < len(positions) {
			return positions[i]
		}
		return len(text)
	}

	ordered := make([]model.ContextBlock, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	assigned := make([]bool, len(out))

	// Special-case override: an image block whose statement announced an
	// image to analyze captures every question phrased as referring to it,
	// regardless of position.
	for bi := range ordered {
		b := &ordered[bi]
		if b.Type != model.ContextImage {
			continue
		}
		for qi := range out {
			if assigned[qi] {
				continue
			}
			if containsAnyFolded(out[qi].Statement, p.ImageRefs) {
				assign(&out[qi], b)
				assigned[qi] = true
			}
		}
	}

	// Pass 1: pattern-driven assignment by announced or inferred count.
	for bi := range ordered {
		b := &ordered[bi]
		k := b.ExpectedQuestions
		if k <= 0 {
			k = countBetween(positions, b.Position, nextBlockPosition(ordered, bi, len(text)))
		}
		for qi := 0; qi < len(out) && k > 0; qi++ {
			if assigned[qi] || qPos(qi) <= b.Position {
				continue
			}
			assign(&out[qi], b)
			assigned[qi] = true
			k--
		}
	}

	// Pass 2: proximity fallback with asymmetric distance.
	for qi := range out {
		if assigned[qi] {
			continue
		}
		pos := qPos(qi)
		best := -1
		bestDist := 0.0
		for bi := range ordered {
			d := distance(ordered[bi].Position, pos)
			if best < 0 || d < bestDist {
				best = bi
				bestDist = d
			}
		}
		if best >= 0 {
			assign(&out[qi], &ordered[best])
		}
	}

	return out
}

func assign(q *model.Question, b *model.ContextBlock) {
	id := b.ID
	q.ContextID = &id
	if b.HasVisualRef {
		q.HasVisualRef = true
	}
}

func distance(blockPos, qPos int) float64 {
	if blockPos <= qPos {
		return float64(qPos-blockPos) * weightBefore
	}
	return float64(blockPos-qPos) * weightAfter
}

// countBetween counts question positions strictly inside (from, to).
func countBetween(positions []int, from, to int) int {
	n := 0
	for _, p := range positions {
		if p > from && p < to {
			n++
		}
	}
	return n
}

func nextBlockPosition(ordered []model.ContextBlock, i, textLen int) int {
	if i+1 < len(ordered) {
		return ordered[i+1].Position
	}
	return textLen
}
