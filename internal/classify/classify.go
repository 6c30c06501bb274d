// Package classify maps site URLs to a page category and crawl tier using
// an ordered table of keyword rules.
package classify

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/program-extractor/internal/model"
)

// Rule is one row of the classification table. A rule with no keywords
// matches everything.
type Rule struct {
	Name     string             `yaml:"name"`
	Keywords []string           `yaml:"keywords"`
	Category model.PageCategory `yaml:"category"`
	Tier     int                `yaml:"tier"`
	Reject   bool               `yaml:"reject"`
}

// Matches reports whether any keyword occurs in the lowercased text.
func (r Rule) Matches(text string) bool {
	if len(r.Keywords) == 0 {
		return true
	}
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// IsCatchAll reports whether the rule matches every input.
func (r Rule) IsCatchAll() bool {
	return len(r.Keywords) == 0
}

// Classification is the outcome of classifying one URL.
type Classification struct {
	Category model.PageCategory `json:"category"`
	Tier     int                `json:"tier"`
	Rule     string             `json:"rule"`
	Title    string             `json:"title"`
}

// catchAll is appended to any table that lacks one so unknown pages are
// never rejected outright.
var catchAll = Rule{Name: "general", Category: model.CategoryGeneral, Tier: 4}

// DefaultRules returns the built-in table in precedence order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "schedule-detail",
			Keywords: []string{"/portal/class", "/portal/schedule", "/classes/", "/class-schedule", "/sessions", "/register"},
			Category: model.CategorySchedule,
			Tier:     1,
		},
		{
			Name:     "schedule",
			Keywords: []string{"schedule", "calendar", "timetable", "hours"},
			Category: model.CategorySchedule,
			Tier:     1,
		},
		{
			Name:     "pricing",
			Keywords: []string{"pricing", "price", "fee", "cost", "tuition", "payment", "rates"},
			Category: model.CategoryPricing,
			Tier:     2,
		},
		{
			Name: "programs",
			Keywords: []string{
				"program", "class", "course", "lesson", "academy", "gymnastics", "tumbling", "ninja",
				"preschool", "camp", "adaptive", "boys", "girls", "xcel", "team", "dance", "cheer",
			},
			Category: model.CategoryPrograms,
			Tier:     2,
		},
		{
			Name:     "events",
			Keywords: []string{"event", "open-gym", "field-trip", "special", "play-group", "party", "parties"},
			Category: model.CategoryPrograms,
			Tier:     2,
		},
		{
			Name:     "staff",
			Keywords: []string{"staff", "instructor", "coach", "teacher", "employee"},
			Category: model.CategoryStaff,
			Tier:     3,
		},
		{
			Name:     "about",
			Keywords: []string{"about", "story", "mission", "history", "who-we-are"},
			Category: model.CategoryAbout,
			Tier:     4,
		},
		{
			Name:     "policies",
			Keywords: []string{"policy", "policies", "rule", "requirement", "waiver", "faq"},
			Category: model.CategoryPolicies,
			Tier:     4,
		},
		{
			Name:     "contact",
			Keywords: []string{"contact", "location", "address", "direction"},
			Reject:   true,
		},
		{
			Name:     "careers",
			Keywords: []string{"job", "career", "employment", "application"},
			Category: model.CategoryAbout,
			Tier:     5,
		},
		catchAll,
	}
}

// Classifier evaluates rules in order; the first match wins.
type Classifier struct {
	rules []Rule
}

// New creates a Classifier over rules. A catch-all rule is appended when
// the table does not end in one.
func New(rules []Rule) *Classifier {
	out := make([]Rule, 0, len(rules)+1)
	out = append(out, rules...)
	if len(out) == 0 || !out[len(out)-1].IsCatchAll() {
		out = append(out, catchAll)
	}
	return &Classifier{rules: out}
}

// Default creates a Classifier over DefaultRules.
func Default() *Classifier {
	return New(DefaultRules())
}

// Rules returns a copy of the rule table.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify maps a URL (and optional anchor text) to a category and tier.
// The URL path decides first; anchor text is consulted only when the path
// falls through to the catch-all. ok is false for rejected pages.
func (c *Classifier) Classify(rawURL, anchor string) (Classification, bool) {
	rule := c.match(urlText(rawURL))
	if rule.IsCatchAll() && anchor != "" {
		rule = c.match(strings.ToLower(strings.TrimSpace(anchor)))
	}

	if rule.Reject || rule.Tier > model.MaxTier {
		return Classification{}, false
	}

	tier := rule.Tier
	if tier < 1 {
		tier = 1
	}

	return Classification{
		Category: rule.Category,
		Tier:     tier,
		Rule:     rule.Name,
		Title:    TitleFromURL(rawURL),
	}, true
}

func (c *Classifier) match(text string) Rule {
	for _, r := range c.rules {
		if r.Matches(text) {
			return r
		}
	}
	return catchAll
}

// urlText is the lowercased path and query of a URL. The host is left
// out so a business name in the domain cannot trigger a rule.
func urlText(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.ToLower(rawURL)
	}
	text := u.EscapedPath()
	if u.RawQuery != "" {
		text += "?" + u.RawQuery
	}
	return strings.ToLower(text)
}

var titleCaser = cases.Title(language.English)

// TitleFromURL derives a display title from the last path segment:
// "/summer-camp_2025" becomes "Summer Camp 2025". The site root is "Home".
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return "Home"
	}
	if unescaped, err := url.PathUnescape(last); err == nil {
		last = unescaped
	}
	last = strings.NewReplacer("-", " ", "_", " ").Replace(last)
	return titleCaser.String(strings.Join(strings.Fields(last), " "))
}
