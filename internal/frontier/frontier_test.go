package frontier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/program-extractor/internal/classify"
	"github.com/sells-group/program-extractor/internal/model"
)

func link(path string, loc model.LinkLocation) model.LocatedLink {
	return model.LocatedLink{
		URL:          "https://flipcity.test" + path,
		Location:     loc,
		BasePriority: loc.BasePriority(),
	}
}

func urls(cs []*model.PageCandidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.URL[len("https://flipcity.test"):]
	}
	return out
}

func TestDiscoverDedup(t *testing.T) {
	t.Parallel()

	f := New(10, classify.Default())
	assert.True(t, f.Discover(link("/programs", model.LocationContent), nil))
	assert.False(t, f.Discover(link("/programs", model.LocationHeader), nil))
	assert.Equal(t, 1, f.Discovered())
}

func TestDiscoverRejectsContact(t *testing.T) {
	t.Parallel()

	f := New(10, classify.Default())
	assert.False(t, f.Discover(link("/contact", model.LocationHeader), nil))
	assert.Equal(t, 0, f.Discovered())
	assert.Equal(t, 1, f.Rejected())
}

func TestHeaderLinksForcedToTierOne(t *testing.T) {
	t.Parallel()

	f := New(10, classify.Default())
	f.Discover(link("/about", model.LocationHeader), nil)
	f.Discover(link("/careers", model.LocationMenu), nil)

	nav := model.NavSet{}
	nav.Add("https://flipcity.test/policies")
	f.Discover(link("/policies", model.LocationContent), nav)

	f.Discover(link("/staff", model.LocationFooter), nil)

	for _, c := range f.Candidates() {
		if c.URL == "https://flipcity.test/staff" {
			assert.Equal(t, 3, c.Tier)
			assert.False(t, c.FromNav)
			continue
		}
		assert.Equal(t, 1, c.Tier, c.URL)
		assert.True(t, c.FromNav, c.URL)
	}

	// Category stays keyword-derived.
	c, ok := f.Get("https://flipcity.test/about")
	require.True(t, ok)
	assert.Equal(t, model.CategoryAbout, c.Category)
}

func TestPlanOrdering(t *testing.T) {
	t.Parallel()

	f := New(20, classify.Default())
	f.Discover(link("/staff", model.LocationContent), nil)   // other, tier 3
	f.Discover(link("/about", model.LocationHeader), nil)    // header
	f.Discover(link("/calendar", model.LocationFooter), nil) // other, tier 1
	f.Discover(link("/programs", model.LocationHeader), nil) // header
	f.Discover(link("/pricing", model.LocationSidebar), nil) // other, tier 2
	f.Discover(link("/news", model.LocationContent), nil)    // other, tier 4
	f.Discover(link("/tuition", model.LocationContent), nil) // other, tier 2

	plan := f.Plan()
	assert.Equal(t, []string{
		"/about", "/programs", // header bucket, discovery order
		"/calendar", "/pricing", "/tuition", "/staff", "/news",
	}, urls(plan))
}

func TestPlanTierOneFirstWithinBudget(t *testing.T) {
	t.Parallel()

	f := New(4, classify.Default())
	f.Discover(link("/news", model.LocationContent), nil)
	f.Discover(link("/programs", model.LocationContent), nil)
	f.Discover(link("/schedule", model.LocationContent), nil)
	f.Discover(link("/about", model.LocationHeader), nil)
	f.Discover(link("/staff", model.LocationContent), nil)
	f.Discover(link("/sessions", model.LocationContent), nil)

	plan := f.Plan()
	require.Len(t, plan, 4)

	seenHigher := false
	for _, c := range plan {
		if c.Tier > 1 {
			seenHigher = true
			continue
		}
		assert.False(t, seenHigher, "tier-1 candidate %s after a higher tier", c.URL)
	}
	assert.Equal(t, []string{"/about", "/schedule", "/sessions", "/programs"}, urls(plan))
	assert.Equal(t, 6, f.Discovered())
}

func TestPlanBudgetRespected(t *testing.T) {
	t.Parallel()

	for _, budget := range []int{0, 1, 5, 15, 100} {
		f := New(budget, nil)
		for i := 0; i < 30; i++ {
			loc := model.LocationContent
			if i%5 == 0 {
				loc = model.LocationHeader
			}
			f.Discover(link(fmt.Sprintf("/page-%d", i), loc), nil)
		}
		plan := f.Plan()
		assert.LessOrEqual(t, len(plan), budget)
		if budget < 30 {
			assert.Len(t, plan, budget)
		}
	}
}

func TestPlanFrozen(t *testing.T) {
	t.Parallel()

	f := New(10, classify.Default())
	f.Discover(link("/programs", model.LocationContent), nil)
	first := f.Plan()
	assert.True(t, f.Frozen())

	assert.False(t, f.Discover(link("/schedule", model.LocationHeader), nil))
	second := f.Plan()
	assert.Equal(t, first, second)
	assert.Len(t, second, 1)
}

func TestVisitedExactlyOnce(t *testing.T) {
	t.Parallel()

	f := New(10, classify.Default())
	f.Discover(link("/programs", model.LocationContent), nil)
	f.Discover(link("/staff", model.LocationContent), nil)
	f.Plan()

	u := "https://flipcity.test/programs"
	assert.False(t, f.MarkExtracted(u), "cannot extract before visiting")
	assert.True(t, f.MarkVisited(u))
	assert.False(t, f.MarkVisited(u))
	assert.True(t, f.MarkExtracted(u))
	assert.False(t, f.MarkExtracted(u))
	assert.False(t, f.MarkVisited("https://flipcity.test/unknown"))

	assert.True(t, f.MarkVisited("https://flipcity.test/staff"))

	assert.Equal(t, 1, f.Extracted())
	assert.Equal(t, 2, f.Discovered())
	assert.Equal(t, []string{"https://flipcity.test/programs", "https://flipcity.test/staff"}, f.Visited())
}

func TestAnchorTextBecomesTitle(t *testing.T) {
	t.Parallel()

	f := New(10, classify.Default())
	l := link("/kids-ninja", model.LocationContent)
	f.Discover(l, nil)
	l2 := link("/summer-camp", model.LocationContent)
	l2.AnchorText = "Summer Camps 2025"
	f.Discover(l2, nil)

	c, _ := f.Get(l.URL)
	assert.Equal(t, "Kids Ninja", c.Title)
	c, _ = f.Get(l2.URL)
	assert.Equal(t, "Summer Camps 2025", c.Title)
}
