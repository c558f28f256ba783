package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/provalab/exam-cli/internal/model"
)

// Header field patterns. Exam sheets label these fields inconsistently, so
// matching is line-based and accent-tolerant.
var (
	schoolLineRe  = regexp.MustCompile(`(?i)\b(?:escola|col[ée]gio|centro educacional|instituto|school)\b`)
	subjectRe     = regexp.MustCompile(`(?i)^\s*(?:disciplina|mat[ée]ria|subject)\s*[:\-]\s*(.+)$`)
	gradeLabelRe  = regexp.MustCompile(`(?i)^\s*(?:s[ée]rie|turma|grade)\s*[:\-]\s*(.+)$`)
	gradeInlineRe = regexp.MustCompile(`(?i)\b(\d+\s*[ºo°]\s*ano)\b`)
	teacherRe     = regexp.MustCompile(`(?i)^\s*(?:professor(?:a)?|teacher|prof\.?)\s*[:\-]\s*(.+)$`)
	yearRe        = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	studentRe     = regexp.MustCompile(`(?i)^\s*(?:nome|aluno(?:\(a\))?|student)\b\s*[:\-]?\s*_*\s*$`)
)

// headerScanLines caps how deep into the first page the parser looks when
// the provider tagged no header paragraphs.
const headerScanLines = 15

// HeaderParsingStage fills DocumentMeta from page-header paragraphs and the
// top of the first page. Fields it cannot find stay empty; the stage fails
// only on a missing context.
type HeaderParsingStage struct{}

func NewHeaderParsingStage() *HeaderParsingStage { return &HeaderParsingStage{} }

func (s *HeaderParsingStage) Name() string { return "Header Parsing" }

func (s *HeaderParsingStage) Description() string {
	return "parses school, subject, grade, and teacher from the document header"
}

func (s *HeaderParsingStage) ValidateInput(pctx *ProcessingContext) error {
	if pctx == nil {
		return eris.New("missing processing context")
	}
	return nil
}

func (s *HeaderParsingStage) Execute(_ context.Context, pctx *ProcessingContext) (model.DocumentMeta, error) {
	var meta model.DocumentMeta
	for _, line := range headerLines(pctx) {
		applyHeaderLine(&meta, line)
	}
	return meta, nil
}

func headerLines(pctx *ProcessingContext) []string {
	var lines []string
	for _, p := range pctx.Layout().HeaderParagraphs() {
		for _, l := range strings.Split(p.Content, "\n") {
			lines = append(lines, strings.TrimSpace(l))
		}
	}

	top := strings.Split(pctx.Text(), "\n")
	if len(top) > headerScanLines {
		top = top[:headerScanLines]
	}
	for _, l := range top {
		lines = append(lines, strings.TrimSpace(l))
	}
	return lines
}

func applyHeaderLine(meta *model.DocumentMeta, line string) {
	if line == "" {
		return
	}
	if meta.School == "" && schoolLineRe.MatchString(line) {
		meta.School = line
	}
	if meta.Subject == "" {
		if m := subjectRe.FindStringSubmatch(line); m != nil {
			meta.Subject = strings.TrimSpace(m[1])
		}
	}
	if meta.Grade == "" {
		if m := gradeLabelRe.FindStringSubmatch(line); m != nil {
			meta.Grade = strings.TrimSpace(m[1])
		} else if m := gradeInlineRe.FindStringSubmatch(line); m != nil {
			meta.Grade = strings.TrimSpace(m[1])
		}
	}
	if meta.Teacher == "" {
		if m := teacherRe.FindStringSubmatch(line); m != nil {
			meta.Teacher = strings.TrimSpace(m[1])
		}
	}
	if meta.Year == "" {
		if m := yearRe.FindString(line); m != "" {
			meta.Year = m
		}
	}
	if !meta.HasStudentField && studentRe.MatchString(line) {
		meta.HasStudentField = true
	}
}
