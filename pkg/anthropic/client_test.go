package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func newTestClient(baseURL string) Client {
	return NewClient("test-key", option.WithBaseURL(baseURL))
}

func writeMessage(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                10,
			"output_tokens":               5,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     3,
		},
	})
}

func TestCreateMessage_MockClient(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	req := MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	}
	mc.On("CreateMessage", ctx, req).Return(&MessageResponse{
		ID:      "msg_123",
		Content: []ContentBlock{{Type: "text", Text: "Hi there!"}},
	}, nil)

	resp, err := mc.CreateMessage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", resp.Text())
	mc.AssertExpectations(t)
}

func TestSDKClient_CreateMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		writeMessage(w, "Hello from test")
	}))
	defer ts.Close()

	resp, err := newTestClient(ts.URL).CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "Hello from test", resp.Text())
	assert.Equal(t, int64(10), resp.Usage.InputTokens)
	assert.Equal(t, int64(3), resp.Usage.CacheReadInputTokens)
}

func TestSDKClient_SendsImagesBeforeText(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		writeMessage(w, "{}")
	}))
	defer ts.Close()

	temp := 0.0
	_, err := newTestClient(ts.URL).CreateMessage(context.Background(), MessageRequest{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   256,
		System:      BuildCachedSystemBlocks("extract programs"),
		Messages:    []Message{{Role: "user", Content: "page text", Images: [][]byte{{0x89, 'P', 'N', 'G'}, nil}}},
		Temperature: &temp,
	})
	require.NoError(t, err)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	content := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2, "empty images are skipped")
	assert.Equal(t, "image", content[0].(map[string]any)["type"])
	assert.Equal(t, "text", content[1].(map[string]any)["type"])

	system := body["system"].([]any)
	require.Len(t, system, 1)
	assert.NotNil(t, system[0].(map[string]any)["cache_control"])
}

func TestSDKClient_CreateMessage_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"type":  "error",
			"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
		})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 16,
		Messages:  []Message{{Role: "user", Content: "Hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
	assert.True(t, IsRetryable(err))
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(eris.New("plain")))
	assert.True(t, IsRetryable(&sdk.Error{StatusCode: 529}))
	assert.True(t, IsRetryable(&sdk.Error{StatusCode: 500}))
	assert.False(t, IsRetryable(&sdk.Error{StatusCode: 400}))
	assert.Equal(t, 0, StatusCode(eris.New("plain")))
}

func TestResponseText(t *testing.T) {
	var nilResp *MessageResponse
	assert.Empty(t, nilResp.Text())

	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "a"},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "b"},
	}}
	assert.Equal(t, "ab", resp.Text())
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	assert.Nil(t, BuildCachedSystemBlocks(""))
	blocks := BuildCachedSystemBlocks("prompt")
	require.Len(t, blocks, 1)
	assert.Equal(t, "5m", blocks[0].CacheControl.TTL)
}

func TestToSDKSystemBlocks(t *testing.T) {
	blocks := toSDKSystemBlocks([]SystemBlock{
		{Text: "First block"},
		{Text: "Second block", CacheControl: &CacheControl{}},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "First block", blocks[0].Text)
	assert.NotNil(t, blocks[1].CacheControl)
}

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 4.80, usage.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
	assert.InDelta(t, 18.00, usage.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
	assert.Equal(t, 0.0, usage.EstimateCost("unknown-model"))

	cached := TokenUsage{
		InputTokens:              500_000,
		OutputTokens:             100_000,
		CacheCreationInputTokens: 200_000,
		CacheReadInputTokens:     300_000,
	}
	// 0.40 + 0.40 + 0.20 + 0.024
	assert.InDelta(t, 1.024, cached.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 100, OutputTokens: 50}.LogCost("unknown-model", "extract")
	})
}
