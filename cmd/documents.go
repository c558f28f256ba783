package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/provalab/exam-cli/internal/store"
)

var (
	documentsUser  string
	documentsLimit int
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List processed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		docs, err := st.ListDocuments(ctx, store.DocumentFilter{
			UserKey: documentsUser,
			Limit:   documentsLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired result-cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.DeleteExpiredResults(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("expired cache entries deleted", zap.Int("count", n))
		return nil
	},
}

func init() {
	documentsCmd.Flags().StringVar(&documentsUser, "user", "", "filter by user key")
	documentsCmd.Flags().IntVar(&documentsLimit, "limit", 50, "max documents to list")
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(pruneCmd)
}
