package discover

import (
	"sort"
	"strings"

	"github.com/sells-group/program-extractor/internal/model"
)

// Heuristic limits.
const (
	MinScore      = 30
	MaxNavLinks   = 15
	MaxOtherLinks = 10
	MaxLinks      = 25
)

var locationScores = map[model.LinkLocation]int{
	model.LocationHeader:  100,
	model.LocationMenu:    100,
	model.LocationSidebar: 50,
	model.LocationContent: 25,
	model.LocationFooter:  10,
}

// importantKeywords add 20 each when found in a link's text.
var importantKeywords = []string{
	"program", "class", "course", "lesson", "staff", "instructor", "coach", "teacher",
	"about", "schedule", "calendar", "pricing", "price", "fee", "cost", "policy",
	"registration", "enroll", "contact", "location", "facility",
}

// navTerms add 30 each.
var navTerms = []string{"programs", "classes", "staff", "about", "contact", "schedule", "pricing"}

// Score rates a link by where it sits and what its anchor text and title
// say. Substring matches count, so "classes" scores as both "class" and
// "classes".
func Score(l model.LocatedLink) int {
	score, ok := locationScores[l.Location]
	if !ok {
		score = locationScores[model.LocationContent]
	}
	text := strings.ToLower(l.AnchorText + " " + l.Title)
	for _, kw := range importantKeywords {
		if strings.Contains(text, kw) {
			score += 20
		}
	}
	for _, term := range navTerms {
		if strings.Contains(text, term) {
			score += 30
		}
	}
	return score
}

// Heuristic picks links without an oracle: keep those scoring above
// MinScore, best first, with header/menu links ahead of the rest.
func Heuristic(links []model.LocatedLink) []model.LocatedLink {
	type scored struct {
		link  model.LocatedLink
		score int
	}
	var kept []scored
	for _, l := range links {
		if s := Score(l); s > MinScore {
			kept = append(kept, scored{link: l, score: s})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	var nav, other []model.LocatedLink
	for _, k := range kept {
		if k.link.Location.IsNav() {
			nav = append(nav, k.link)
		} else {
			other = append(other, k.link)
		}
	}
	nav = nav[:min(len(nav), MaxNavLinks)]
	other = other[:min(len(other), MaxOtherLinks)]

	seen := make(map[string]bool)
	out := make([]model.LocatedLink, 0, len(nav)+len(other))
	for _, l := range append(nav, other...) {
		if seen[l.URL] || len(out) >= MaxLinks {
			continue
		}
		seen[l.URL] = true
		out = append(out, l)
	}
	return out
}
