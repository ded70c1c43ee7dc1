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
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Sweep    SweepConfig    `yaml:"sweep" mapstructure:"sweep"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CatalogConfig locates the disease catalog spreadsheet.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// DataConfig locates the on-disk JSON state directories.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Model       string  `yaml:"model" mapstructure:"model"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SearchConfig configures the external web search endpoint.
type SearchConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	MaxResults  int     `yaml:"max_results" mapstructure:"max_results"`
	QueriesPerS float64 `yaml:"queries_per_second" mapstructure:"queries_per_second"`
	Retries     int     `yaml:"retries" mapstructure:"retries"`
}

// FetchConfig configures page content fetching and the content cache.
type FetchConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBodyKB   int `yaml:"max_body_kb" mapstructure:"max_body_kb"`
}

// PipelineConfig tunes the relevance and extraction engine.
type PipelineConfig struct {
	MatchThreshold           float64 `yaml:"match_threshold" mapstructure:"match_threshold"`
	SingleStepMatchThreshold float64 `yaml:"single_step_match_threshold" mapstructure:"single_step_match_threshold"`
	MaxResults               int     `yaml:"max_results" mapstructure:"max_results"`
	MaxContentChars          int     `yaml:"max_content_chars" mapstructure:"max_content_chars"`
}

// SweepConfig configures full-catalog background sweeps.
type SweepConfig struct {
	BatchSize      int `yaml:"batch_size" mapstructure:"batch_size"`
	BatchPauseSecs int `yaml:"batch_pause_secs" mapstructure:"batch_pause_secs"`
}

// ServerConfig configures the operational HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("DISCOVERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.path", "data/nando.xlsx")
	v.SetDefault("data.dir", "data")
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.model", "mistral:latest")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("search.base_url", "http://localhost:8888")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.queries_per_second", 1.0)
	v.SetDefault("search.retries", 1)
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.max_body_kb", 512)
	v.SetDefault("pipeline.match_threshold", 0.5)
	v.SetDefault("pipeline.single_step_match_threshold", 0.6)
	v.SetDefault("pipeline.max_results", 10)
	v.SetDefault("pipeline.max_content_chars", 16000)
	v.SetDefault("sweep.batch_size", 4)
	v.SetDefault("sweep.batch_pause_secs", 2)
	v.SetDefault("server.port", 8080)
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
