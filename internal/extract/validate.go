package extract

import "github.com/provalab/exam-cli/internal/model"

// AssignmentReport summarizes context coverage for an extraction result.
type AssignmentReport struct {
	WithContext    int   `json:"with_context"`
	WithoutContext int   `json:"without_context"`
	// Dangling lists question numbers whose context reference points at a
	// block id that does not exist in the result.
	Dangling []int `json:"dangling,omitempty"`
}

// ValidateAssignments checks every question's context reference against the
// block list.
func ValidateAssignments(questions []model.Question, blocks []model.ContextBlock) AssignmentReport {
	ids := make(map[int]struct{}, len(blocks))
	for _, b := range blocks {
		ids[b.ID] = struct{}{}
	}

	var report AssignmentReport
	for _, q := range questions {
		if q.ContextID == nil {
			report.WithoutContext++
			continue
		}
		report.WithContext++
		if _, ok := ids[*q.ContextID]; !ok {
			report.Dangling = append(report.Dangling, q.Number)
		}
	}
	return report
}

// Valid reports whether the extraction result has no dangling references.
func (r AssignmentReport) Valid() bool {
	return len(r.Dangling) == 0
}
