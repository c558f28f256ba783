package model

import "time"

// DocumentMeta holds the header fields parsed from the exam paper.
type DocumentMeta struct {
	School  string `json:"school,omitempty"`
	Subject string `json:"subject,omitempty"`
	Grade   string `json:"grade,omitempty"`
	Year    string `json:"year,omitempty"`
	Teacher string `json:"teacher,omitempty"`

	// HasStudentField is true when the header carries a blank student-name
	// line (Nome/Aluno), the usual sign of a printable exam sheet.
	HasStudentField bool `json:"has_student_field,omitempty"`
}

// ImageKind separates header artwork (logos, letterhead) from content
// images that questions refer to.
type ImageKind string

const (
	ImageHeader  ImageKind = "header"
	ImageContent ImageKind = "content"
)

// ExtractedImage is one image produced by the image-analysis stage.
type ExtractedImage struct {
	ID         string    `json:"id"`
	FigureID   string    `json:"figure_id"`
	PageNumber int       `json:"page_number"`
	Kind       ImageKind `json:"kind"`
	StorageKey string    `json:"storage_key,omitempty"`
}

// ProcessedDocument is the final aggregate the pipeline hands to the
// persistence and formatting layers. It is never mutated after the
// aggregation stage produces it.
type ProcessedDocument struct {
	ID            string           `json:"id"`
	UserKey       string           `json:"user_key"`
	Filename      string           `json:"filename"`
	Meta          DocumentMeta     `json:"meta"`
	Questions     []Question       `json:"questions"`
	ContextBlocks []ContextBlock   `json:"context_blocks"`
	Images        []ExtractedImage `json:"images"`
	ProcessedAt   time.Time        `json:"processed_at"`
}

// QuestionCount is a convenience for logging and reports.
func (d *ProcessedDocument) QuestionCount() int {
	return len(d.Questions)
}

// ContextBlockByID returns the context block with the given id, or nil.
func (d *ProcessedDocument) ContextBlockByID(id int) *ContextBlock {
	for i := range d.ContextBlocks {
		if d.ContextBlocks[i].ID == id {
			return &d.ContextBlocks[i]
		}
	}
	return nil
}
