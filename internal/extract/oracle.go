// Package extract turns one rendered page into a typed fragment by asking
// an extraction oracle for category-specific JSON.
package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/model"
	"github.com/sells-group/program-extractor/internal/resilience"
	"github.com/sells-group/program-extractor/pkg/anthropic"
)

// Request is one page handed to the oracle.
type Request struct {
	URL          string
	Category     model.PageCategory
	Platform     string
	BusinessName string
	Text         string
	Images       [][]byte
}

// Oracle answers an extraction request with raw text that should contain
// a JSON object.
type Oracle interface {
	Extract(ctx context.Context, req Request) (string, model.TokenUsage, error)
}

// AnthropicOracle implements Oracle over the Messages API, sending page
// screenshots as image blocks ahead of the prompt.
type AnthropicOracle struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicOracle creates an oracle bound to a model.
func NewAnthropicOracle(client anthropic.Client, model string, maxTokens int64) *AnthropicOracle {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicOracle{client: client, model: model, maxTokens: maxTokens}
}

// Extract implements Oracle. Rate limiting and server faults come back as
// resilience.TransientError so the caller's retry policy picks them up.
func (o *AnthropicOracle) Extract(ctx context.Context, req Request) (string, model.TokenUsage, error) {
	temp := 0.1
	resp, err := o.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: BuildPrompt(req),
			Images:  req.Images,
		}},
		Temperature: &temp,
	})
	if err != nil {
		if anthropic.IsRetryable(err) {
			return "", model.TokenUsage{}, resilience.NewTransientError(err, anthropic.StatusCode(err))
		}
		return "", model.TokenUsage{}, eris.Wrapf(err, "extract: oracle call for %s", req.URL)
	}

	resp.Usage.LogCost(o.model, "extract")
	usage := UsageFrom(resp.Usage, o.model)
	if resp.StopReason == "max_tokens" {
		zap.L().Warn("extract: oracle output truncated, repairing",
			zap.String("url", req.URL),
			zap.Int64("max_tokens", o.maxTokens),
		)
	}
	return resp.Text(), usage, nil
}

// UsageFrom converts API token counts into run token usage.
func UsageFrom(u anthropic.TokenUsage, modelID string) model.TokenUsage {
	return model.TokenUsage{
		InputTokens:  int(u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens),
		OutputTokens: int(u.OutputTokens),
		Cost:         u.EstimateCost(modelID),
	}
}
