package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/provalab/exam-cli/internal/model"
	"github.com/provalab/exam-cli/internal/pipeline"
	"github.com/provalab/exam-cli/internal/store"
	"github.com/provalab/exam-cli/pkg/docintel"
)

var (
	processUserKey string
	processNoCache bool
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Process a single exam document",
	Long:  "Accepts either a pre-fetched layout-analysis result (.json) or a raw document (.pdf, .png, .jpg) to analyze through the configured provider.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		doc, err := processDocument(ctx, env, args[0], processUserKey)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

func init() {
	processCmd.Flags().StringVar(&processUserKey, "user", "", "user key to attribute the document to")
	processCmd.Flags().BoolVar(&processNoCache, "no-cache", false, "skip the result cache")
	rootCmd.AddCommand(processCmd)
}

// processDocument runs one file through the pipeline: cache lookup by
// content hash, layout acquisition, the stage sequence, then persistence.
func processDocument(ctx context.Context, env *pipelineEnv, path, userKey string) (*model.ProcessedDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	hash := store.ContentHash(raw)
	log := zap.L().With(zap.String("filename", filepath.Base(path)))

	if !processNoCache {
		cached, err := env.Store.GetCachedResult(ctx, hash)
		switch {
		case err == nil:
			log.Info("result cache hit", zap.String("content_hash", hash[:12]))
			return cached, nil
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("result cache lookup failed", zap.Error(err))
		}
	}

	layout, err := loadLayout(ctx, env, path, raw)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Pipeline.TimeoutSecs)*time.Second)
	defer cancel()

	doc, err := env.Pipeline.Run(runCtx, pipeline.Input{
		Layout:   layout,
		UserKey:  userKey,
		Filename: filepath.Base(path),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "process %s", path)
	}

	if err := env.Store.SaveDocument(ctx, doc); err != nil {
		return nil, eris.Wrap(err, "save document")
	}

	ttl := time.Duration(cfg.Store.CacheTTLHours) * time.Hour
	if err := env.Store.SetCachedResult(ctx, hash, doc, ttl); err != nil {
		log.Warn("result cache write failed", zap.Error(err))
	}

	log.Info("document processed",
		zap.String("document_id", doc.ID),
		zap.Int("questions", doc.QuestionCount()),
		zap.Int("context_blocks", len(doc.ContextBlocks)),
	)
	return doc, nil
}

// loadLayout parses a pre-fetched analyze result, or sends the raw document
// to the provider when the file is not JSON.
func loadLayout(ctx context.Context, env *pipelineEnv, path string, raw []byte) (*model.LayoutResult, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		result, err := docintel.ParseResult(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "parse analyze result %s", path)
		}
		return result.ToLayout(), nil
	}

	if env.Provider == nil {
		return nil, eris.Errorf("%s is not an analyze result and no provider endpoint is configured", path)
	}

	result, err := env.Provider.Analyze(ctx, raw, contentTypeFor(path))
	if err != nil {
		return nil, eris.Wrapf(err, "analyze %s", path)
	}
	return result.ToLayout(), nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tiff", ".tif":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
