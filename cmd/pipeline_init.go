package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/provalab/exam-cli/internal/extract"
	"github.com/provalab/exam-cli/internal/images"
	"github.com/provalab/exam-cli/internal/pipeline"
	"github.com/provalab/exam-cli/internal/registry"
	"github.com/provalab/exam-cli/internal/store"
	"github.com/provalab/exam-cli/internal/tagger"
	anthropicpkg "github.com/provalab/exam-cli/pkg/anthropic"
	"github.com/provalab/exam-cli/pkg/docintel"
)

// pipelineEnv holds the initialized store and pipeline needed by the
// process/batch/serve/export commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Provider docintel.Client // nil when no endpoint is configured
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, pattern registry, tagger, and stage
// pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	patterns, err := initPatterns()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	p := pipeline.New(
		extract.NewService(patterns),
		images.NewLocalExtractor(),
		images.NewRegionCategorizer(),
		images.NewFigureContextBuilder(),
		images.NewKeywordAssociator(patterns),
		initTagger(),
		pipeline.Options{
			MaxStageFailures:  cfg.Pipeline.MaxStageFailures,
			ParallelStages:    cfg.Pipeline.ParallelStages,
			RetryFailedStages: cfg.Pipeline.RetryFailedStages,
		},
	)

	env := &pipelineEnv{Store: st, Pipeline: p}

	if cfg.Provider.Endpoint != "" {
		env.Provider = docintel.NewClient(cfg.Provider.Endpoint, cfg.Provider.Key,
			docintel.WithModel(cfg.Provider.Model),
			docintel.WithRateLimit(cfg.Provider.RequestsPerSec),
		)
		zap.L().Info("layout provider enabled", zap.String("model", cfg.Provider.Model))
	} else {
		zap.L().Debug("EXAM_PROVIDER_ENDPOINT not set, only pre-fetched analyze results can be processed")
	}

	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "exam.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initPatterns() (*registry.Patterns, error) {
	if cfg.Pipeline.PatternsPath == "" {
		return registry.Default(), nil
	}
	p, err := registry.LoadFile(cfg.Pipeline.PatternsPath)
	if err != nil {
		return nil, eris.Wrap(err, "load pattern registry")
	}
	zap.L().Info("pattern registry loaded from file", zap.String("path", cfg.Pipeline.PatternsPath))
	return p, nil
}

func initTagger() tagger.Tagger {
	switch cfg.Tagger.Mode {
	case "claude":
		if cfg.Tagger.Key == "" {
			zap.L().Warn("tagger mode is claude but EXAM_TAGGER_KEY is unset, falling back to keyword tagger")
			return tagger.NewKeywordTagger()
		}
		return tagger.NewClaudeTagger(anthropicpkg.NewClient(cfg.Tagger.Key), cfg.Tagger.Model)
	case "none":
		return nil
	default:
		return tagger.NewKeywordTagger()
	}
}
