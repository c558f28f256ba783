package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/provalab/exam-cli/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <document-id>",
	Short: "Export a processed document as an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		doc, err := st.GetDocument(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "load document %s", args[0])
		}

		out := exportOut
		if out == "" {
			out = export.Filename(doc)
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close()

		w := &export.XLSXWriter{SheetName: cfg.Export.SheetName}
		if err := w.Write(f, doc); err != nil {
			return err
		}

		zap.L().Info("document exported",
			zap.String("document_id", doc.ID),
			zap.String("path", out),
			zap.Int("questions", doc.QuestionCount()),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default derived from the document filename)")
	rootCmd.AddCommand(exportCmd)
}
