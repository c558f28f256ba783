package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Provider ProviderConfig `yaml:"provider" mapstructure:"provider"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Tagger   TaggerConfig   `yaml:"tagger" mapstructure:"tagger"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`

	// CacheTTLHours bounds how long a cached processing result stays valid.
	CacheTTLHours int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// ProviderConfig holds the upstream layout-provider API settings. Endpoint
// and key are unset in the offline path, where pre-fetched analyze results
// are loaded from disk.
type ProviderConfig struct {
	Endpoint       string  `yaml:"endpoint" mapstructure:"endpoint"`
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PipelineConfig configures the stage orchestrator.
type PipelineConfig struct {
	MaxStageFailures int    `yaml:"max_stage_failures" mapstructure:"max_stage_failures"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PatternsPath     string `yaml:"patterns_path" mapstructure:"patterns_path"`

	// ParallelStages and RetryFailedStages are reserved; the orchestrator
	// accepts them but runs sequentially and never retries.
	ParallelStages    bool `yaml:"parallel_stages" mapstructure:"parallel_stages"`
	RetryFailedStages bool `yaml:"retry_failed_stages" mapstructure:"retry_failed_stages"`
}

// TaggerConfig selects how question subjects are tagged.
type TaggerConfig struct {
	Mode  string `yaml:"mode" mapstructure:"mode"`
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// ExportConfig configures spreadsheet export.
type ExportConfig struct {
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EXAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "exam.db")
	v.SetDefault("store.cache_ttl_hours", 24)
	v.SetDefault("provider.model", "prebuilt-layout")
	v.SetDefault("provider.requests_per_sec", 2.0)
	v.SetDefault("provider.timeout_secs", 60)
	v.SetDefault("pipeline.max_stage_failures", 3)
	v.SetDefault("pipeline.timeout_secs", 120)
	v.SetDefault("tagger.mode", "keyword")
	v.SetDefault("tagger.model", "claude-haiku-4-5-20251001")
	v.SetDefault("batch.max_concurrent_documents", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("export.sheet_name", "Questões")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
