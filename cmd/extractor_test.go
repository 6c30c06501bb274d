package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/program-extractor/internal/classify"
	"github.com/sells-group/program-extractor/internal/config"
	"github.com/sells-group/program-extractor/internal/model"
	"github.com/sells-group/program-extractor/internal/render"
	"github.com/sells-group/program-extractor/internal/server"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.Anthropic.Key = "sk-ant-test"
	c.Anthropic.Model = "claude-sonnet-4-5-20250929"
	c.Anthropic.MaxTokens = 4096
	c.Crawl.MaxPages = 15
	c.Crawl.PageTimeoutSecs = 45
	c.Crawl.PaceMillis = 0
	c.Render.Engine = "http"
	c.Batch.MaxConcurrent = 3
	c.Server.Port = 8080
	return c
}

func TestRendererFactory(t *testing.T) {
	c := testConfig()

	factory, err := rendererFactory(c)
	require.NoError(t, err)
	r, err := factory(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &render.HTTPRenderer{}, r)
	require.NoError(t, r.Close())

	c.Render.Engine = "chrome"
	_, err = rendererFactory(c)
	require.NoError(t, err)

	c.Render.Engine = "lynx"
	_, err = rendererFactory(c)
	require.Error(t, err)
}

func TestChromeOptions(t *testing.T) {
	opts := chromeOptions(config.RenderConfig{
		Headless:        false,
		ViewportWidth:   1280,
		ExpandMaxClicks: 0,
		LoadMoreClicks:  3,
		UserAgent:       "test-agent",
	})
	assert.False(t, opts.Headless)
	assert.Equal(t, 1280, opts.ViewportWidth)
	assert.Equal(t, 1080, opts.ViewportHeight)
	assert.Equal(t, 0, opts.ExpandMaxClicks)
	assert.Equal(t, 50, opts.MaxScrolls)
	assert.Equal(t, 3, opts.LoadMoreClicks)
	assert.Equal(t, "test-agent", opts.UserAgent)
}

func TestFixtureFactory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<html><head><title>Flip City</title></head><body>Welcome</body></html>`), 0o644))

	factory, err := fixtureFactory(dir, "https://flipcity.test")
	require.NoError(t, err)
	r, err := factory(context.Background())
	require.NoError(t, err)

	page, err := r.Reveal(context.Background(), "https://flipcity.test/")
	require.NoError(t, err)
	assert.Equal(t, "Flip City", page.Title)

	_, err = fixtureFactory(dir, "not a url")
	require.Error(t, err)
}

func TestInitExtractor(t *testing.T) {
	cfg = testConfig()
	t.Cleanup(func() { cfg = nil })

	env, err := initExtractor("run", extractorOptions{HeuristicLinks: true})
	require.NoError(t, err)
	assert.NotNil(t, env.Extractor)
	assert.Len(t, env.Classifier.Rules(), len(classify.DefaultRules()))

	cfg.Anthropic.Key = ""
	_, err = initExtractor("run", extractorOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestInitExtractor_BadRulesFile(t *testing.T) {
	cfg = testConfig()
	cfg.Crawl.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { cfg = nil })

	_, err := initExtractor("run", extractorOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load classification rules")
}

func TestPrintClassifications(t *testing.T) {
	results := server.Classify(classify.Default(), []string{
		"https://flipcity.test/schedule",
		"https://flipcity.test/contact",
	})

	var buf bytes.Buffer
	require.NoError(t, printClassifications(&buf, results, "table"))
	out := buf.String()
	assert.Contains(t, out, "https://flipcity.test/schedule")
	assert.Contains(t, out, "schedule")
	assert.Contains(t, out, "rejected")

	buf.Reset()
	require.NoError(t, printClassifications(&buf, results, "json"))
	var decoded []server.ClassifyResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, model.CategorySchedule, decoded[0].Category)
	assert.True(t, decoded[1].Rejected)

	assert.Error(t, printClassifications(&buf, results, "csv"))
}
