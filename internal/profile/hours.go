package profile

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/program-extractor/internal/model"
)

// DefaultHours is the weekly table used when no hours could be read.
func DefaultHours() model.OperatingHours {
	h := make(model.OperatingHours, len(model.Weekdays))
	for _, d := range model.Weekdays[:5] {
		h[d] = model.DayHours{Open: "09:00", Close: "18:00"}
	}
	h["saturday"] = model.DayHours{Open: "09:00", Close: "17:00"}
	h["sunday"] = model.DayHours{Open: "10:00", Close: "16:00"}
	return h
}

// OperatingHoursFor parses free-form hours, falling back to DefaultHours.
func OperatingHoursFor(text string) model.OperatingHours {
	if h, ok := ParseHours(text); ok {
		return h
	}
	return DefaultHours()
}

var (
	dayToken   = regexp.MustCompile(`\b(mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?`)
	rangeJoin  = regexp.MustCompile(`^\s*(-|to|through|thru)\s*$`)
	timeRange  = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?\s*(?:-|to)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)
	closedWord = regexp.MustCompile(`\bclosed\b`)
	everyDay   = regexp.MustCompile(`\b(daily|every day|7 days)\b`)
	segmentSep = regexp.MustCompile(`[;\n|]+`)
)

var dayIndex = map[string]int{"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6}

// anchor is a time range or "closed" inside a segment.
type anchor struct {
	start, end int
	hours      model.DayHours
}

// ParseHours reads text like "Mon-Fri 9am-6pm, Sat 9am-5pm, Sun closed".
// Days are taken from the text before each time range, or after it when
// nothing precedes it ("9am-6pm Mon-Fri"). Only days the text mentions
// appear in the result; ok is false when no day could be read.
func ParseHours(text string) (model.OperatingHours, bool) {
	text = strings.ToLower(text)
	text = strings.NewReplacer("–", "-", "—", "-", "noon", "12pm").Replace(text)

	out := model.OperatingHours{}
	for _, seg := range segmentSep.Split(text, -1) {
		anchors := anchorsIn(seg)
		from := 0
		for i, a := range anchors {
			days := daysIn(seg[from:a.start])
			from = a.end
			if len(days) == 0 {
				next := len(seg)
				if i+1 < len(anchors) {
					next = anchors[i+1].start
				}
				days = daysIn(seg[a.end:next])
				from = next
			}
			for _, d := range days {
				out[model.Weekdays[d]] = a.hours
			}
		}
	}
	return out, len(out) > 0
}

func anchorsIn(seg string) []anchor {
	var anchors []anchor
	for _, m := range timeRange.FindAllStringSubmatchIndex(seg, -1) {
		groups := make([]string, 7)
		for g := 0; g < 7; g++ {
			if m[2*g] >= 0 {
				groups[g] = seg[m[2*g]:m[2*g+1]]
			}
		}
		openAt, closeAt, ok := parseTimes(groups)
		if !ok {
			continue
		}
		anchors = append(anchors, anchor{start: m[0], end: m[1], hours: model.DayHours{Open: openAt, Close: closeAt}})
	}
	for _, m := range closedWord.FindAllStringIndex(seg, -1) {
		anchors = append(anchors, anchor{start: m[0], end: m[1], hours: model.DayHours{Closed: true}})
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].start < anchors[j].start })
	return anchors
}

// daysIn returns weekday indexes named in s, expanding ranges like
// "mon-fri" and wrapping "fri-mon".
func daysIn(s string) []int {
	if everyDay.MatchString(s) {
		return []int{0, 1, 2, 3, 4, 5, 6}
	}

	locs := dayToken.FindAllStringSubmatchIndex(s, -1)
	var days []int
	for i := 0; i < len(locs); i++ {
		start := dayIndex[s[locs[i][2]:locs[i][3]]]
		if i+1 < len(locs) && rangeJoin.MatchString(s[locs[i][1]:locs[i+1][0]]) {
			end := dayIndex[s[locs[i+1][2]:locs[i+1][3]]]
			for d := start; ; d = (d + 1) % 7 {
				days = append(days, d)
				if d == end {
					break
				}
			}
			i++
			continue
		}
		days = append(days, start)
	}
	return days
}

// parseTimes converts a timeRange match to "HH:MM" strings. A missing
// meridiem on the opening time is borrowed from the closing time unless
// that would put opening after closing.
func parseTimes(m []string) (string, string, bool) {
	oh, _ := strconv.Atoi(m[1])
	om, _ := strconv.Atoi(orZero(m[2]))
	ch, _ := strconv.Atoi(m[4])
	cm, _ := strconv.Atoi(orZero(m[5]))
	oMer, cMer := meridiem(m[3]), meridiem(m[6])

	if oMer == "" && cMer != "" {
		oMer = cMer
		if to24(oh, oMer)*60+om > to24(ch, cMer)*60+cm {
			oMer = "am"
		}
	}
	openAt := to24(oh, oMer)
	closeAt := to24(ch, cMer)
	if cMer == "" && closeAt*60+cm <= openAt*60+om && closeAt < 12 {
		closeAt += 12
	}

	if openAt > 23 || closeAt > 24 || om > 59 || cm > 59 {
		return "", "", false
	}
	return fmt.Sprintf("%02d:%02d", openAt, om), fmt.Sprintf("%02d:%02d", closeAt, cm), true
}

func meridiem(s string) string {
	return strings.ReplaceAll(s, ".", "")
}

func to24(h int, mer string) int {
	switch mer {
	case "am":
		if h == 12 {
			return 0
		}
	case "pm":
		if h < 12 {
			return h + 12
		}
	}
	return h
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
