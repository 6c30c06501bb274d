// Package frontier holds the ordered, budget-bounded plan of pages to visit
// for one run. A Frontier is owned by a single goroutine.
package frontier

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/classify"
	"github.com/sells-group/program-extractor/internal/model"
)

// Frontier dedups discovered links, buckets them by navigation structure,
// and freezes a visit plan on the first call to Plan.
type Frontier struct {
	budget     int
	classifier *classify.Classifier

	byURL  map[string]*model.PageCandidate
	header []*model.PageCandidate
	other  []*model.PageCandidate

	plan   []*model.PageCandidate
	frozen bool

	rejected int
}

// New creates a Frontier that plans at most budget pages.
func New(budget int, classifier *classify.Classifier) *Frontier {
	if budget < 0 {
		budget = 0
	}
	if classifier == nil {
		classifier = classify.Default()
	}
	return &Frontier{
		budget:     budget,
		classifier: classifier,
		byURL:      make(map[string]*model.PageCandidate),
	}
}

// Discover admits a link into the frontier. Links already seen, rejected
// by the classifier, or offered after the plan is frozen are ignored.
// A link in the NavSet or found in a header/menu becomes tier 1 and goes
// to the header bucket regardless of its classified tier.
func (f *Frontier) Discover(link model.LocatedLink, nav model.NavSet) bool {
	if f.frozen {
		zap.L().Debug("frontier: plan frozen, ignoring link", zap.String("url", link.URL))
		return false
	}
	if _, seen := f.byURL[link.URL]; seen {
		return false
	}

	cls, ok := f.classifier.Classify(link.URL, link.AnchorText)
	if !ok {
		f.rejected++
		zap.L().Debug("frontier: rejected", zap.String("url", link.URL))
		return false
	}

	c := &model.PageCandidate{
		URL:      link.URL,
		Title:    cls.Title,
		Category: cls.Category,
		Tier:     cls.Tier,
	}
	if link.AnchorText != "" {
		c.Title = link.AnchorText
	}

	if nav.Has(link.URL) || link.Location.IsNav() {
		c.Tier = 1
		c.FromNav = true
		f.header = append(f.header, c)
	} else {
		f.other = append(f.other, c)
	}
	f.byURL[link.URL] = c
	return true
}

// Plan returns the visit plan: header bucket then other bucket, each
// stable-sorted by tier, truncated to the budget. The first call freezes
// the plan; later calls return the same slice.
func (f *Frontier) Plan() []*model.PageCandidate {
	if f.frozen {
		return f.plan
	}
	f.frozen = true

	header := sortedByTier(f.header)
	other := sortedByTier(f.other)

	plan := make([]*model.PageCandidate, 0, len(header)+len(other))
	plan = append(plan, header...)
	plan = append(plan, other...)
	if len(plan) > f.budget {
		plan = plan[:f.budget]
	}
	f.plan = plan

	zap.L().Info("frontier: plan frozen",
		zap.Int("discovered", len(f.byURL)),
		zap.Int("header", len(f.header)),
		zap.Int("other", len(f.other)),
		zap.Int("rejected", f.rejected),
		zap.Int("planned", len(plan)),
		zap.Int("budget", f.budget),
	)
	return f.plan
}

func sortedByTier(in []*model.PageCandidate) []*model.PageCandidate {
	out := make([]*model.PageCandidate, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}

// MarkVisited flags a candidate as visited. It returns false if the URL is
// unknown or was already visited.
func (f *Frontier) MarkVisited(url string) bool {
	c, ok := f.byURL[url]
	if !ok || c.Visited {
		return false
	}
	c.Visited = true
	return true
}

// MarkExtracted flags a visited candidate as successfully extracted.
func (f *Frontier) MarkExtracted(url string) bool {
	c, ok := f.byURL[url]
	if !ok || !c.Visited || c.Extracted {
		return false
	}
	c.Extracted = true
	return true
}

// Get returns the candidate for a URL.
func (f *Frontier) Get(url string) (*model.PageCandidate, bool) {
	c, ok := f.byURL[url]
	return c, ok
}

// Frozen reports whether Plan has been called.
func (f *Frontier) Frozen() bool { return f.frozen }

// Discovered is the number of admitted candidates, including those cut by
// the budget.
func (f *Frontier) Discovered() int { return len(f.byURL) }

// Rejected is the number of links the classifier refused.
func (f *Frontier) Rejected() int { return f.rejected }

// Extracted is the number of candidates with a successful extraction.
func (f *Frontier) Extracted() int {
	n := 0
	for _, c := range f.byURL {
		if c.Extracted {
			n++
		}
	}
	return n
}

// Visited returns the URLs of visited candidates in plan order.
func (f *Frontier) Visited() []string {
	var out []string
	for _, c := range f.plan {
		if c.Visited {
			out = append(out, c.URL)
		}
	}
	return out
}

// Candidates returns all admitted candidates, header bucket first, in
// discovery order.
func (f *Frontier) Candidates() []*model.PageCandidate {
	out := make([]*model.PageCandidate, 0, len(f.header)+len(f.other))
	out = append(out, f.header...)
	return append(out, f.other...)
}
