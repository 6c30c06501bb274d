package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2, cfg.Server.MaxRuns)
	assert.Equal(t, 3, cfg.Batch.MaxConcurrent)
	assert.Equal(t, 15, cfg.Crawl.MaxPages)
	assert.Equal(t, 45, cfg.Crawl.PageTimeoutSecs)
	assert.Equal(t, 1000, cfg.Crawl.PaceMillis)
	assert.Equal(t, 5000, cfg.Crawl.MaxTextChars)
	assert.Contains(t, cfg.Crawl.ExcludePaths, "/wp-admin/*")
	assert.Equal(t, "chrome", cfg.Render.Engine)
	assert.True(t, cfg.Render.Headless)
	assert.Equal(t, 10, cfg.Render.ExpandMaxClicks)
	assert.Equal(t, 50, cfg.Render.MaxScrolls)
	assert.Equal(t, 8, cfg.Render.LoadMoreClicks)
	assert.Equal(t, "SPORTS", cfg.Profile.Category)
	assert.Equal(t, "GYMNASTICS", cfg.Profile.Subcategory)
	assert.Equal(t, 4096, cfg.Anthropic.MaxTokens)
	assert.NotEmpty(t, cfg.Anthropic.Model)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
crawl:
  max_pages: 8
profile:
  subcategory: DANCE
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Crawl.MaxPages)
	assert.Equal(t, "DANCE", cfg.Profile.Subcategory)
	// Defaults still apply for unset values
	assert.Equal(t, 45, cfg.Crawl.PageTimeoutSecs)
	assert.Equal(t, "SPORTS", cfg.Profile.Category)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
crawl:
  max_pages: 8
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("EXTRACTOR_CRAWL_MAX_PAGES", "20")
	t.Setenv("EXTRACTOR_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Crawl.MaxPages)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("EXTRACTOR_ANTHROPIC_KEY", "")
	os.Unsetenv("EXTRACTOR_ANTHROPIC_KEY")
	t.Setenv("ANTHROPIC_API_KEY", "")
	os.Unsetenv("ANTHROPIC_API_KEY")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EXTRACTOR_ANTHROPIC_KEY=sk-from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("EXTRACTOR_ANTHROPIC_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", cfg.Anthropic.Key)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("EXTRACTOR_SERVER_PORT", "3000")
	t.Setenv("EXTRACTOR_RENDER_HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.False(t, cfg.Render.Headless)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Crawl.MaxPages = 15
	cfg.Crawl.PageTimeoutSecs = 45
	cfg.Crawl.PaceMillis = 1000
	cfg.Render.Engine = "chrome"
	cfg.Batch.MaxConcurrent = 3
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Crawl.MaxPages = 0

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "crawl.max_pages must be >= 1")
}

func TestValidateRun_UnknownEngine(t *testing.T) {
	cfg := validDefaults()
	cfg.Render.Engine = "firefox"

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "render.engine must be chrome or http")

	cfg.Render.Engine = "http"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateClassify_NoKeyNeeded(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate("classify"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateBatchConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.MaxConcurrent = 0
	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent must be between 1 and 20")

	cfg.Batch.MaxConcurrent = 21
	assert.Error(t, cfg.Validate("batch"))

	cfg.Batch.MaxConcurrent = 20
	assert.NoError(t, cfg.Validate("batch"))
}
