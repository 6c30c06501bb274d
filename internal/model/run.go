package model

// RunInput describes one business to extract.
type RunInput struct {
	BusinessName string `json:"business_name"`
	BaseURL      string `json:"base_url"`
	Platform     string `json:"platform,omitempty"`
	MaxPages     int    `json:"max_pages,omitempty"`
}

// PhaseStatus represents the current state of a run phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a run phase.
type PhaseResult struct {
	Name       string         `json:"name" yaml:"name"`
	Status     PhaseStatus    `json:"status" yaml:"status"`
	Duration   int64          `json:"duration_ms" yaml:"duration_ms"`
	TokenUsage TokenUsage     `json:"token_usage" yaml:"token_usage"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int     `json:"output_tokens" yaml:"output_tokens"`
	Cost         float64 `json:"cost" yaml:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.Cost += other.Cost
}
