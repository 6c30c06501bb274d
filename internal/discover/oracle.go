package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/program-extractor/internal/extract"
	"github.com/sells-group/program-extractor/internal/model"
	"github.com/sells-group/program-extractor/internal/resilience"
	"github.com/sells-group/program-extractor/pkg/anthropic"
)

// Per-location caps on the links shown to the oracle.
var promptCaps = []struct {
	label string
	locs  []model.LinkLocation
	limit int
}{
	{"HEADER/NAVIGATION LINKS (HIGHEST PRIORITY)", []model.LinkLocation{model.LocationHeader, model.LocationMenu}, 20},
	{"SIDEBAR LINKS (MEDIUM PRIORITY)", []model.LinkLocation{model.LocationSidebar}, 10},
	{"CONTENT LINKS (LOWER PRIORITY)", []model.LinkLocation{model.LocationContent}, 10},
	{"FOOTER LINKS (LOWEST PRIORITY)", []model.LinkLocation{model.LocationFooter}, 5},
}

// RankRequest is what the ranker sees of the landing page.
type RankRequest struct {
	BusinessName string
	BaseURL      string
	Links        []model.LocatedLink
	Screenshot   []byte
}

// RankedLink is one link the ranker chose.
type RankedLink struct {
	URL        string `json:"url"`
	Text       string `json:"text"`
	Location   string `json:"location"`
	Importance string `json:"importance"`
	Reason     string `json:"reason"`
}

// Ranker picks the links worth visiting.
type Ranker interface {
	Rank(ctx context.Context, req RankRequest) ([]RankedLink, model.TokenUsage, error)
}

// AnthropicRanker asks the Messages API to pick links, showing it the
// landing page screenshot and the located links grouped by location.
type AnthropicRanker struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicRanker creates a ranker bound to a model.
func NewAnthropicRanker(client anthropic.Client, model string) *AnthropicRanker {
	return &AnthropicRanker{client: client, model: model, maxTokens: 3000}
}

// Rank implements Ranker.
func (r *AnthropicRanker) Rank(ctx context.Context, req RankRequest) ([]RankedLink, model.TokenUsage, error) {
	var images [][]byte
	if len(req.Screenshot) > 0 {
		images = [][]byte{req.Screenshot}
	}
	temp := 0.1
	resp, err := r.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: BuildRankPrompt(req),
			Images:  images,
		}},
		Temperature: &temp,
	})
	if err != nil {
		if anthropic.IsRetryable(err) {
			return nil, model.TokenUsage{}, resilience.NewTransientError(err, anthropic.StatusCode(err))
		}
		return nil, model.TokenUsage{}, eris.Wrap(err, "discover: rank links")
	}
	resp.Usage.LogCost(r.model, "discover")
	usage := extract.UsageFrom(resp.Usage, r.model)

	links, err := ParseRanking(resp.Text())
	if err != nil {
		return nil, usage, err
	}
	return links, usage, nil
}

// ParseRanking reads the oracle's important_links answer. Links of any
// importance are accepted.
func ParseRanking(text string) ([]RankedLink, error) {
	var out struct {
		ImportantLinks []RankedLink `json:"important_links"`
	}
	if err := extract.DecodeObject(text, &out); err != nil {
		return nil, eris.Wrap(err, "discover: parse ranking")
	}
	var links []RankedLink
	for _, l := range out.ImportantLinks {
		switch strings.ToLower(l.Importance) {
		case "high", "medium", "low":
		default:
			continue
		}
		if strings.TrimSpace(l.URL) == "" {
			continue
		}
		links = append(links, l)
	}
	return links, nil
}

type promptLink struct {
	URL   string `json:"href"`
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
}

// BuildRankPrompt renders the link-ranking prompt.
func BuildRankPrompt(req RankRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the website of %s (%s) and identify the most important internal links to visit for complete class and program information extraction.\n\n", req.BusinessName, req.BaseURL)
	b.WriteString("NAVIGATION HIERARCHY (prioritize in this order):\n")
	for i, c := range promptCaps {
		var group []promptLink
		for _, l := range req.Links {
			if len(group) >= c.limit {
				break
			}
			for _, loc := range c.locs {
				if l.Location == loc {
					group = append(group, promptLink{URL: l.URL, Text: l.AnchorText, Title: l.Title})
					break
				}
			}
		}
		raw, _ := json.MarshalIndent(group, "", "  ")
		if group == nil {
			raw = []byte("[]")
		}
		fmt.Fprintf(&b, "%d. %s: %s\n\n", i+1, c.label, raw)
	}
	b.WriteString(rankInstructions)
	return b.String()
}

const rankInstructions = `Return JSON with the most important links:
{
  "important_links": [
    {
      "url": "full URL",
      "text": "link text",
      "location": "header|menu|sidebar|content|footer",
      "importance": "high|medium|low",
      "reason": "why this link is important"
    }
  ]
}

Rules:
- Include every header/navigation link that might describe programs, classes, schedules, staff, pricing, policies or the business itself, before any other link.
- Never skip header/navigation links in favor of content or footer links.
- Aim to return 8-15 links.
- Only return URLs from the lists above.

Avoid contact pages, tel: and mailto: links, external links, social media and duplicate content.
Return ONLY the JSON object.`
