package model

// Alternative is one lettered answer option belonging to a question.
type Alternative struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question is one extracted exam question in document order.
type Question struct {
	Number       int           `json:"number"`
	Statement    string        `json:"statement"`
	Alternatives []Alternative `json:"alternatives"`
	ContextID    *int          `json:"context_id,omitempty"`
	HasVisualRef bool          `json:"has_visual_reference"`
	Subjects     []string      `json:"subjects,omitempty"`
}

// HasContext reports whether the question is linked to a context block.
func (q *Question) HasContext() bool {
	return q.ContextID != nil
}

// SequentialLetters reports whether the alternatives form a contiguous
// ascending letter sequence starting at 'a'/'A'. An empty set is not
// sequential.
func SequentialLetters(alts []Alternative) bool {
	if len(alts) == 0 {
		return false
	}
	for i, a := range alts {
		if len(a.Letter) != 1 {
			return false
		}
		c := a.Letter[0]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != byte('a'+i) {
			return false
		}
	}
	return true
}
