package model

// LinkLocation is the structural region of a page a link was found in.
type LinkLocation string

const (
	LocationHeader  LinkLocation = "header"
	LocationMenu    LinkLocation = "menu"
	LocationSidebar LinkLocation = "sidebar"
	LocationContent LinkLocation = "content"
	LocationFooter  LinkLocation = "footer"
)

// BasePriority maps a location to its crawl priority (lower is more
// important): header/menu 1, sidebar 2, content 3, footer 4.
func (l LinkLocation) BasePriority() int {
	switch l {
	case LocationHeader, LocationMenu:
		return 1
	case LocationSidebar:
		return 2
	case LocationFooter:
		return 4
	default:
		return 3
	}
}

// IsNav reports whether the location is part of the primary navigation.
func (l LinkLocation) IsNav() bool {
	return l == LocationHeader || l == LocationMenu
}

// LocatedLink is a same-site link annotated with where it was found.
type LocatedLink struct {
	URL          string       `json:"url"`
	AnchorText   string       `json:"anchor_text"`
	Title        string       `json:"title,omitempty"`
	Location     LinkLocation `json:"location"`
	BasePriority int          `json:"base_priority"`
}

// PageCategory is the classified purpose of a page.
type PageCategory string

const (
	CategorySchedule PageCategory = "schedule"
	CategoryPrograms PageCategory = "programs"
	CategoryStaff    PageCategory = "staff"
	CategoryPricing  PageCategory = "pricing"
	CategoryAbout    PageCategory = "about"
	CategoryPolicies PageCategory = "policies"
	CategoryGeneral  PageCategory = "general"
)

// AllPageCategories returns every page category in tier order.
func AllPageCategories() []PageCategory {
	return []PageCategory{
		CategorySchedule,
		CategoryPrograms,
		CategoryPricing,
		CategoryStaff,
		CategoryAbout,
		CategoryPolicies,
		CategoryGeneral,
	}
}

// ParsePageCategory converts a raw string into a known category.
func ParsePageCategory(s string) (PageCategory, bool) {
	for _, c := range AllPageCategories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// MaxTier is the largest tier admitted to the crawl plan.
const MaxTier = 5

// PageCandidate is a page selected (or eligible) for a visit.
// The URL is its identity within a run.
type PageCandidate struct {
	URL       string       `json:"url"`
	Title     string       `json:"title"`
	Category  PageCategory `json:"category"`
	Tier      int          `json:"tier"`
	FromNav   bool         `json:"from_nav"`
	Visited   bool         `json:"visited"`
	Extracted bool         `json:"extracted"`
}

// NavSet is the set of URLs found in a page's header or menu.
type NavSet map[string]struct{}

// Add records a URL.
func (n NavSet) Add(u string) { n[u] = struct{}{} }

// Has reports whether the URL was found in navigation.
func (n NavSet) Has(u string) bool {
	_, ok := n[u]
	return ok
}
