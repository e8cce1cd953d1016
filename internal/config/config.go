// Package config loads application configuration from file and environment.
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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Documents  DocumentsConfig  `yaml:"documents" mapstructure:"documents"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string  `yaml:"key" mapstructure:"key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	Model   string  `yaml:"model" mapstructure:"model"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// NotionConfig holds Notion API credentials for signal ingestion.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	SignalDB string `yaml:"signal_db" mapstructure:"signal_db"`
}

// ClassifyConfig tunes the classification pipeline.
type ClassifyConfig struct {
	MaxTokens            int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	VerificationPenalty  float64 `yaml:"verification_penalty" mapstructure:"verification_penalty"`
	NoWebsitePenalty     float64 `yaml:"no_website_penalty" mapstructure:"no_website_penalty"`
	SummaryEnabled       bool    `yaml:"summary_enabled" mapstructure:"summary_enabled"`
	ScrapeTimeoutSecs    int     `yaml:"scrape_timeout_secs" mapstructure:"scrape_timeout_secs"`
	ResearchTimeoutSecs  int     `yaml:"research_timeout_secs" mapstructure:"research_timeout_secs"`
}

// DocumentsConfig configures research document storage.
type DocumentsConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// A failed verification must drop a mapping into a strictly lower confidence
// bucket. With buckets at 0.85 and 0.70 that holds only for penalties below
// 0.70/0.85 (~0.8235), so the ceiling sits just under it.
const maxVerificationPenalty = 0.82

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("THEMESCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.rps", 1)
	v.SetDefault("classify.max_tokens", 2048)
	v.SetDefault("classify.verification_penalty", 0.70)
	v.SetDefault("classify.no_website_penalty", 0.90)
	v.SetDefault("classify.summary_enabled", true)
	v.SetDefault("classify.scrape_timeout_secs", 60)
	v.SetDefault("classify.research_timeout_secs", 90)
	v.SetDefault("documents.root", "./data/documents")

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

// Validate checks that the named sections carry the settings they need.
// Sections: "store", "classify", "notion".
func (c *Config) Validate(sections ...string) error {
	var errs []string
	for _, s := range sections {
		switch s {
		case "store":
			if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
				errs = append(errs, "store.driver must be postgres or sqlite")
			}
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		case "classify":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
			if c.Classify.VerificationPenalty <= 0 || c.Classify.VerificationPenalty > maxVerificationPenalty {
				errs = append(errs, "classify.verification_penalty must be in (0, 0.82]")
			}
			if c.Classify.NoWebsitePenalty <= 0 || c.Classify.NoWebsitePenalty > 1 {
				errs = append(errs, "classify.no_website_penalty must be in (0, 1]")
			}
		case "notion":
			if c.Notion.Token == "" {
				errs = append(errs, "notion.token is required")
			}
			if c.Notion.SignalDB == "" {
				errs = append(errs, "notion.signal_db is required")
			}
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
