package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"sort"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	batchUserKey string
	batchLimit   int
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Process a directory of analyze results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		files, err := filepath.Glob(filepath.Join(args[0], "*.json"))
		if err != nil {
			return eris.Wrapf(err, "list %s", args[0])
		}
		sort.Strings(files)

		return processBatch(ctx, env, files, batchLimit, cfg.Batch.MaxConcurrentDocuments, batchUserKey)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchUserKey, "user", "", "user key to attribute the documents to")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of files to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}

// processBatch applies limit, then runs files through the pipeline
// concurrently. Individual failures are logged and counted, never abort
// the batch.
func processBatch(ctx context.Context, env *pipelineEnv, files []string, limit, concurrency int, userKey string) error {
	if len(files) == 0 {
		zap.L().Info("no analyze results found")
		return nil
	}

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("files", len(files)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, file := range files {
		g.Go(func() error {
			log := zap.L().With(zap.String("filename", filepath.Base(file)))

			doc, err := processDocument(gctx, env, file, userKey)
			if err != nil {
				failed.Add(1)
				log.Error("document processing failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("document processed",
				zap.String("document_id", doc.ID),
				zap.Int("questions", doc.QuestionCount()),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}
