package discover

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/program-extractor/internal/locate"
	"github.com/sells-group/program-extractor/internal/model"
	"github.com/sells-group/program-extractor/internal/resilience"
	"github.com/sells-group/program-extractor/pkg/anthropic"
)

const base = "https://flipcity.test"

func ll(path, text string, loc model.LinkLocation) model.LocatedLink {
	return model.LocatedLink{URL: base + path, AnchorText: text, Location: loc, BasePriority: loc.BasePriority()}
}

func paths(links []model.LocatedLink) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = strings.TrimPrefix(l.URL, base)
	}
	return out
}

func sampleLinks() []model.LocatedLink {
	return []model.LocatedLink{
		ll("/", "Home", model.LocationHeader),
		ll("/programs", "Programs", model.LocationHeader),
		ll("/schedule", "Class Schedule", model.LocationContent),
		ll("/coaches", "Coaches", model.LocationSidebar),
		ll("/privacy", "Privacy", model.LocationFooter),
		ll("/blog", "Read our blog", model.LocationContent),
	}
}

type fakeRanker struct {
	mock.Mock
}

func (f *fakeRanker) Rank(ctx context.Context, req RankRequest) ([]RankedLink, model.TokenUsage, error) {
	args := f.Called(ctx, req)
	links, _ := args.Get(0).([]RankedLink)
	return links, args.Get(1).(model.TokenUsage), args.Error(2)
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func TestScore(t *testing.T) {
	tests := []struct {
		link model.LocatedLink
		want int
	}{
		{ll("/", "Home", model.LocationHeader), 100},
		{ll("/programs", "Programs", model.LocationMenu), 150},
		{ll("/schedule", "Class Schedule", model.LocationContent), 95},
		{ll("/coaches", "Coaches", model.LocationSidebar), 70},
		{ll("/privacy", "Privacy", model.LocationFooter), 10},
		{ll("/x", "Other", ""), 25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Score(tt.link), tt.link.AnchorText)
	}

	withTitle := ll("/p", "Learn more", model.LocationContent)
	withTitle.Title = "Pricing"
	assert.Equal(t, 75, Score(withTitle))
}

func TestHeuristic(t *testing.T) {
	got := Heuristic(sampleLinks())
	assert.Equal(t, []string{"/programs", "/", "/schedule", "/coaches"}, paths(got))
}

func TestHeuristicCaps(t *testing.T) {
	var links []model.LocatedLink
	for i := 0; i < 20; i++ {
		links = append(links, ll(fmt.Sprintf("/nav-%d", i), "Page", model.LocationHeader))
	}
	for i := 0; i < 12; i++ {
		links = append(links, ll(fmt.Sprintf("/c-%d", i), "Classes", model.LocationContent))
	}
	links = append(links, ll("/nav-0", "Page", model.LocationHeader))

	got := Heuristic(links)
	require.Len(t, got, MaxNavLinks+MaxOtherLinks)
	assert.Equal(t, "/nav-0", paths(got)[0])
	assert.Equal(t, "/nav-14", paths(got)[MaxNavLinks-1])
	assert.Equal(t, "/c-0", paths(got)[MaxNavLinks])
}

func TestSelectWithoutRanker(t *testing.T) {
	d := New(nil, nil)
	sel := d.Select(context.Background(), "Flip City", base, &locate.Result{Links: sampleLinks()}, nil)
	assert.Equal(t, MethodHeuristic, sel.Method)
	assert.Len(t, sel.Links, 4)
	assert.NoError(t, sel.Err)

	sel = d.Select(context.Background(), "Flip City", base, &locate.Result{}, nil)
	assert.Equal(t, MethodNone, sel.Method)
	assert.Empty(t, sel.Links)
}

func TestSelectOracle(t *testing.T) {
	r := new(fakeRanker)
	r.On("Rank", mock.Anything, mock.MatchedBy(func(req RankRequest) bool {
		return req.BusinessName == "Flip City" && len(req.Links) == 6 && len(req.Screenshot) == 2
	})).Return([]RankedLink{
		{URL: base + "/schedule", Importance: "high"},
		{URL: base + "/schedule/#fall", Importance: "high"},
		{URL: base + "/made-up", Importance: "high"},
		{URL: base + "/blog/", Importance: "low"},
	}, model.TokenUsage{InputTokens: 10, OutputTokens: 5}, nil)

	sel := New(r, nil).Select(context.Background(), "Flip City", base, &locate.Result{Links: sampleLinks()}, []byte{1, 2})
	assert.Equal(t, MethodOracle, sel.Method)
	assert.Equal(t, []string{"/schedule", "/blog"}, paths(sel.Links))
	assert.Equal(t, model.LocationContent, sel.Links[0].Location)
	assert.Equal(t, 10, sel.Usage.InputTokens)
}

func TestSelectOracleFailureFallsBack(t *testing.T) {
	r := new(fakeRanker)
	r.On("Rank", mock.Anything, mock.Anything).
		Return(nil, model.TokenUsage{}, resilience.NewTransientError(errors.New("overloaded"), 529))

	guard := resilience.NewGuard(resilience.GuardConfig{
		Name:  "discover",
		Retry: resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	})
	sel := New(r, guard).Select(context.Background(), "Flip City", base, &locate.Result{Links: sampleLinks()}, nil)
	assert.Equal(t, MethodHeuristic, sel.Method)
	require.Error(t, sel.Err)
	assert.Equal(t, []string{"/programs", "/", "/schedule", "/coaches"}, paths(sel.Links))
	r.AssertNumberOfCalls(t, "Rank", 2)
}

func TestSelectOracleUnknownLinksFallsBack(t *testing.T) {
	r := new(fakeRanker)
	r.On("Rank", mock.Anything, mock.Anything).
		Return([]RankedLink{{URL: "https://elsewhere.test/", Importance: "high"}}, model.TokenUsage{}, nil)

	sel := New(r, nil).Select(context.Background(), "Flip City", base, &locate.Result{Links: sampleLinks()}, nil)
	assert.Equal(t, MethodHeuristic, sel.Method)
	assert.NoError(t, sel.Err)
}

func TestParseRanking(t *testing.T) {
	links, err := ParseRanking("```json\n" + `{"important_links": [
		{"url": "https://flipcity.test/a", "importance": "High"},
		{"url": "https://flipcity.test/b", "importance": "none"},
		{"url": "", "importance": "low"},
		{"url": "https://flipcity.test/c", "importance": "medium",},
	]}` + "\n```")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "https://flipcity.test/a", links[0].URL)
	assert.Equal(t, "https://flipcity.test/c", links[1].URL)

	_, err = ParseRanking("I could not find any links.")
	require.Error(t, err)
}

func TestBuildRankPrompt(t *testing.T) {
	p := BuildRankPrompt(RankRequest{BusinessName: "Flip City", BaseURL: base, Links: sampleLinks()})
	assert.Contains(t, p, "Flip City")
	assert.Contains(t, p, `"href": "https://flipcity.test/programs"`)
	assert.Contains(t, p, "4. FOOTER LINKS (LOWEST PRIORITY): [\n")
	assert.Contains(t, p, "/privacy")

	empty := BuildRankPrompt(RankRequest{BusinessName: "Flip City", Links: sampleLinks()[:2]})
	assert.Contains(t, empty, "2. SIDEBAR LINKS (MEDIUM PRIORITY): []")
	assert.Less(t, strings.Index(p, "/programs"), strings.Index(p, "/coaches"))
	assert.Contains(t, p, "important_links")
}

func TestAnthropicRanker(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(r anthropic.MessageRequest) bool {
		return r.Model == "claude-haiku-4-5-20251001" &&
			len(r.Messages) == 1 &&
			len(r.Messages[0].Images) == 1 &&
			strings.Contains(r.Messages[0].Content, "Flip City")
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"important_links": [{"url": "https://flipcity.test/programs", "importance": "high"}]}`}},
		Usage:   anthropic.TokenUsage{InputTokens: 900, OutputTokens: 40},
	}, nil)

	links, usage, err := NewAnthropicRanker(client, "claude-haiku-4-5-20251001").Rank(context.Background(), RankRequest{
		BusinessName: "Flip City",
		BaseURL:      base,
		Links:        sampleLinks(),
		Screenshot:   []byte{1},
	})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 900, usage.InputTokens)
	assert.Equal(t, 40, usage.OutputTokens)
}
