// Package export renders processed documents as spreadsheets for teachers
// who review the extraction by hand.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/provalab/exam-cli/internal/model"
)

// maxAlternativeColumns caps how many lettered options get their own column.
// Five covers A through E, the widest layout Brazilian exams use.
const maxAlternativeColumns = 5

// XLSXWriter renders a processed document as a two-sheet workbook: one row
// per question plus a sheet of context blocks.
type XLSXWriter struct {
	// SheetName names the question sheet. Empty means "Questões".
	SheetName string
}

func (w *XLSXWriter) sheetName() string {
	if w.SheetName == "" {
		return "Questões"
	}
	return w.SheetName
}

// Write renders doc into out as an XLSX workbook.
func (w *XLSXWriter) Write(out io.Writer, doc *model.ProcessedDocument) error {
	f := xlsx.NewFile()

	if err := w.writeQuestions(f, doc); err != nil {
		return err
	}
	if err := w.writeContexts(f, doc); err != nil {
		return err
	}

	if err := f.Write(out); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func (w *XLSXWriter) writeQuestions(f *xlsx.File, doc *model.ProcessedDocument) error {
	sheet, err := f.AddSheet(w.sheetName())
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %q", w.sheetName())
	}

	header := sheet.AddRow()
	for _, h := range []string{"Número", "Enunciado"} {
		header.AddCell().Value = h
	}
	for i := 0; i < maxAlternativeColumns; i++ {
		header.AddCell().Value = string(rune('A' + i))
	}
	for _, h := range []string{"Contexto", "Disciplinas", "Referência visual"} {
		header.AddCell().Value = h
	}

	for _, q := range doc.Questions {
		row := sheet.AddRow()
		row.AddCell().SetInt(q.Number)
		row.AddCell().Value = q.Statement

		for i := 0; i < maxAlternativeColumns; i++ {
			cell := row.AddCell()
			if i < len(q.Alternatives) {
				cell.Value = q.Alternatives[i].Text
			}
		}

		contextCell := row.AddCell()
		if q.ContextID != nil {
			contextCell.SetInt(*q.ContextID)
		}
		row.AddCell().Value = strings.Join(q.Subjects, ", ")
		row.AddCell().Value = boolMark(q.HasVisualRef)
	}

	return nil
}

func (w *XLSXWriter) writeContexts(f *xlsx.File, doc *model.ProcessedDocument) error {
	sheet, err := f.AddSheet("Contextos")
	if err != nil {
		return eris.Wrap(err, "export: add contexts sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"ID", "Tipo", "Título", "Enunciado", "Conteúdo", "Questões esperadas"} {
		header.AddCell().Value = h
	}

	for _, c := range doc.ContextBlocks {
		row := sheet.AddRow()
		row.AddCell().SetInt(c.ID)
		row.AddCell().Value = string(c.Type)
		row.AddCell().Value = c.Title
		row.AddCell().Value = c.Statement
		row.AddCell().Value = c.Body()
		if c.ExpectedQuestions > 0 {
			row.AddCell().SetInt(c.ExpectedQuestions)
		} else {
			row.AddCell()
		}
	}

	return nil
}

func boolMark(b bool) string {
	if b {
		return "sim"
	}
	return ""
}

// Filename suggests a workbook filename derived from the source document.
func Filename(doc *model.ProcessedDocument) string {
	base := strings.TrimSuffix(doc.Filename, ".json")
	if base == "" {
		base = doc.ID
	}
	return fmt.Sprintf("%s.xlsx", base)
}
