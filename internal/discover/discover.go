// Package discover chooses which located links of a landing page are worth
// browsing. An oracle ranks them when one is configured; a location and
// keyword score is used otherwise or when the oracle fails.
package discover

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/locate"
	"github.com/sells-group/program-extractor/internal/model"
	"github.com/sells-group/program-extractor/internal/resilience"
)

// Selection methods.
const (
	MethodOracle    = "oracle"
	MethodHeuristic = "heuristic"
	MethodNone      = "none"
)

// Selection is the set of links chosen for the frontier.
type Selection struct {
	Links  []model.LocatedLink
	Method string
	Usage  model.TokenUsage
	// Err is the oracle failure that forced the heuristic, if any.
	Err error
}

// Discoverer selects links. A nil ranker always uses the heuristic.
type Discoverer struct {
	ranker Ranker
	guard  *resilience.Guard
}

// New creates a Discoverer.
func New(ranker Ranker, guard *resilience.Guard) *Discoverer {
	return &Discoverer{ranker: ranker, guard: guard}
}

type rankReply struct {
	links []RankedLink
	usage model.TokenUsage
}

// Select picks links from a located landing page. Only links the locator
// found are returned; the oracle can choose among them and reorder them,
// never add new ones.
func (d *Discoverer) Select(ctx context.Context, businessName, baseURL string, located *locate.Result, screenshot []byte) Selection {
	if located == nil || len(located.Links) == 0 {
		return Selection{Method: MethodNone}
	}
	if d.ranker == nil {
		return d.heuristic(located, nil)
	}

	req := RankRequest{BusinessName: businessName, BaseURL: baseURL, Links: located.Links, Screenshot: screenshot}
	call := func(ctx context.Context) (rankReply, error) {
		links, usage, err := d.ranker.Rank(ctx, req)
		return rankReply{links: links, usage: usage}, err
	}
	var (
		reply rankReply
		err   error
	)
	if d.guard != nil {
		reply, err = resilience.Call(ctx, d.guard, baseURL, call)
	} else {
		reply, err = call(ctx)
	}
	if err != nil {
		zap.L().Warn("discover: oracle ranking failed, using heuristic",
			zap.String("url", baseURL),
			zap.String("kind", resilience.Kind(err)),
			zap.Error(err),
		)
		sel := d.heuristic(located, err)
		sel.Usage = reply.usage
		return sel
	}

	picked := matchRanked(reply.links, located.Links)
	if len(picked) == 0 {
		zap.L().Warn("discover: oracle picked no known links, using heuristic",
			zap.String("url", baseURL),
			zap.Int("ranked", len(reply.links)),
		)
		sel := d.heuristic(located, nil)
		sel.Usage = reply.usage
		return sel
	}

	nav := 0
	for _, l := range picked {
		if located.Nav.Has(l.URL) || l.Location.IsNav() {
			nav++
		}
	}
	zap.L().Info("discover: oracle selected links",
		zap.String("url", baseURL),
		zap.Int("selected", len(picked)),
		zap.Int("nav", nav),
		zap.Int("located", len(located.Links)),
	)
	return Selection{Links: picked, Method: MethodOracle, Usage: reply.usage}
}

func (d *Discoverer) heuristic(located *locate.Result, cause error) Selection {
	links := Heuristic(located.Links)
	zap.L().Info("discover: heuristic selected links",
		zap.Int("selected", len(links)),
		zap.Int("located", len(located.Links)),
	)
	return Selection{Links: links, Method: MethodHeuristic, Err: cause}
}

// matchRanked maps ranked URLs back to located links in ranked order,
// dropping unknown URLs and duplicates. At most MaxLinks are kept.
func matchRanked(ranked []RankedLink, located []model.LocatedLink) []model.LocatedLink {
	byURL := make(map[string]model.LocatedLink, len(located))
	for _, l := range located {
		byURL[locate.NormalizeURL(l.URL)] = l
	}
	seen := make(map[string]bool)
	var out []model.LocatedLink
	for _, r := range ranked {
		key := locate.NormalizeURL(r.URL)
		l, ok := byURL[key]
		if !ok {
			zap.L().Debug("discover: ignoring unknown ranked url", zap.String("url", r.URL))
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
		if len(out) >= MaxLinks {
			break
		}
	}
	return out
}
