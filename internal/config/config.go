package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Render    RenderConfig    `yaml:"render" mapstructure:"render"`
	Profile   ProfileConfig   `yaml:"profile" mapstructure:"profile"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CrawlConfig configures page discovery and the browse loop.
type CrawlConfig struct {
	MaxPages        int      `yaml:"max_pages" mapstructure:"max_pages"`
	PageTimeoutSecs int      `yaml:"page_timeout_secs" mapstructure:"page_timeout_secs"`
	PaceMillis      int      `yaml:"pace_millis" mapstructure:"pace_millis"`
	RulesFile       string   `yaml:"rules_file" mapstructure:"rules_file"`
	MaxTextChars    int      `yaml:"max_text_chars" mapstructure:"max_text_chars"`
	ExcludePaths    []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// RenderConfig configures how pages are loaded. Engine is "chrome" for a
// headless browser or "http" for plain fetches without interaction.
type RenderConfig struct {
	Engine          string `yaml:"engine" mapstructure:"engine"`
	Headless        bool   `yaml:"headless" mapstructure:"headless"`
	ViewportWidth   int    `yaml:"viewport_width" mapstructure:"viewport_width"`
	ViewportHeight  int    `yaml:"viewport_height" mapstructure:"viewport_height"`
	ExpandMaxClicks int    `yaml:"expand_max_clicks" mapstructure:"expand_max_clicks"`
	MaxScrolls      int    `yaml:"max_scrolls" mapstructure:"max_scrolls"`
	LoadMoreClicks  int    `yaml:"load_more_clicks" mapstructure:"load_more_clicks"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ProfileConfig sets the classification stamped on every profile.
type ProfileConfig struct {
	Category    string `yaml:"category" mapstructure:"category"`
	Subcategory string `yaml:"subcategory" mapstructure:"subcategory"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxRuns        int      `yaml:"max_runs" mapstructure:"max_runs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EXTRACTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.timeout_secs", 90)
	v.SetDefault("crawl.max_pages", 15)
	v.SetDefault("crawl.page_timeout_secs", 45)
	v.SetDefault("crawl.pace_millis", 1000)
	v.SetDefault("crawl.rules_file", "")
	v.SetDefault("crawl.max_text_chars", 5000)
	v.SetDefault("crawl.exclude_paths", []string{"/wp-admin/*", "/wp-login.php", "/cart/*", "/checkout/*", "/feed/*", "/my-account/*"})
	v.SetDefault("render.engine", "chrome")
	v.SetDefault("render.headless", true)
	v.SetDefault("render.viewport_width", 1920)
	v.SetDefault("render.viewport_height", 1080)
	v.SetDefault("render.expand_max_clicks", 10)
	v.SetDefault("render.max_scrolls", 50)
	v.SetDefault("render.load_more_clicks", 8)
	v.SetDefault("render.user_agent", "")
	v.SetDefault("profile.category", "SPORTS")
	v.SetDefault("profile.subcategory", "GYMNASTICS")
	v.SetDefault("batch.max_concurrent", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_runs", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Key has no default; bind explicitly so AutomaticEnv sees it on Unmarshal.
	_ = v.BindEnv("anthropic.key", "EXTRACTOR_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")

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

// Validate checks the fields required by the given command mode
// ("run", "batch", "serve", "classify").
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run", "batch":
		errs = append(errs, c.validateExtraction()...)
	case "serve":
		errs = append(errs, c.validateExtraction()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "classify":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "batch" && (c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 20) {
		errs = append(errs, "batch.max_concurrent must be between 1 and 20")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: %s", strings.Join(errs, "; ")))
	}
	return nil
}

func (c *Config) validateExtraction() []string {
	var errs []string
	if c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required")
	}
	if c.Crawl.MaxPages < 1 {
		errs = append(errs, "crawl.max_pages must be >= 1")
	}
	if c.Crawl.PageTimeoutSecs < 1 {
		errs = append(errs, "crawl.page_timeout_secs must be >= 1")
	}
	if c.Crawl.PaceMillis < 0 {
		errs = append(errs, "crawl.pace_millis must be >= 0")
	}
	switch c.Render.Engine {
	case "chrome", "http":
	default:
		errs = append(errs, fmt.Sprintf("render.engine must be chrome or http, got %q", c.Render.Engine))
	}
	return errs
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
