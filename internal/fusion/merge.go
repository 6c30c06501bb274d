package fusion

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/program-extractor/internal/model"
)

// Sentinels for open age bounds while widening.
const (
	ageFloor   = 0
	ageCeiling = 999
)

var (
	genericLevels = map[string]bool{"all levels": true, "various": true, "mixed": true}
	genericPrices = map[string]bool{"contact for pricing": true, "varies": true, "call for rates": true}

	statusRank = map[string]int{
		"closed":   5,
		"full":     4,
		"waitlist": 3,
		"open":     2,
		"upcoming": 1,
	}

	numberPattern = regexp.MustCompile(`\d+`)
)

// mergeRecords folds b into a. Every field has an explicit rule; a
// non-empty value is never dropped unless the other side supersedes it.
func mergeRecords(a, b model.ProgramRecord) model.ProgramRecord {
	out := a

	out.Name = longer(a.Name, b.Name)
	out.Description = joinText(a.Description, b.Description, ". ")
	out.Prerequisites = joinText(a.Prerequisites, b.Prerequisites, ". ")
	out.AdditionalInfo = joinText(a.AdditionalInfo, b.AdditionalInfo, ". ")
	out.AgeRange = mergeAgeRange(a.AgeRange, b.AgeRange)
	out.Level = mergeLevel(a.Level, b.Level)
	out.DurationMinutes = maxInt(a.DurationMinutes, b.DurationMinutes)
	out.MaxParticipants = maxInt(a.MaxParticipants, b.MaxParticipants)
	out.TotalSpots = maxInt(a.TotalSpots, b.TotalSpots)
	out.Skills = union(a.Skills, b.Skills)
	out.Instructors = union(a.Instructors, b.Instructors)
	out.Schedule = mergeSchedule(a.Schedule, b.Schedule)
	out.ScheduleDetails = mergeScheduleDetails(a.ScheduleDetails, b.ScheduleDetails)
	out.Price = mergePrice(a.Price, b.Price)
	out.BillingFrequency = firstNonEmpty(a.BillingFrequency, b.BillingFrequency)
	out.Category = mergeCategory(a.Category, b.Category)
	out.SessionName = mergeSession(a.SessionName, b.SessionName)
	out.StartDate = mergeDate(a.StartDate, b.StartDate)
	out.EndDate = mergeDate(a.EndDate, b.EndDate)
	out.RegistrationDeadline = mergeDate(a.RegistrationDeadline, b.RegistrationDeadline)
	out.SpotsAvailable = mergeAvailability(a.SpotsAvailable, b.SpotsAvailable)
	out.Status = mergeStatus(a.Status, b.Status)
	out.Location = firstNonEmpty(a.Location, b.Location)
	out.SourceURL = firstNonEmpty(a.SourceURL, b.SourceURL)

	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// longer compares character counts and keeps a on ties.
func longer(a, b string) string {
	if utf8.RuneCountInString(b) > utf8.RuneCountInString(a) {
		return b
	}
	return a
}

func joinText(a, b, sep string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if strings.EqualFold(a, b) {
		return longer(a, b)
	}
	return a + sep + b
}

func mergeSchedule(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" || strings.EqualFold(a, b) {
		return a
	}
	return a + "; " + b
}

// mergeAgeRange widens over the known bounds. A bound missing on one side
// defers to the other side; a result at a sentinel becomes null.
func mergeAgeRange(a, b *model.AgeRange) *model.AgeRange {
	if a.IsZero() {
		return cloneAgeRange(b)
	}
	if b.IsZero() {
		return cloneAgeRange(a)
	}

	out := &model.AgeRange{}
	if lo, ok := widen(a.Min, b.Min, true); ok && lo > ageFloor {
		out.Min = &lo
	}
	if hi, ok := widen(a.Max, b.Max, false); ok && hi < ageCeiling {
		out.Max = &hi
	}
	if out.Min == nil && out.Max == nil {
		return nil
	}
	return out
}

func widen(a, b *int, lower bool) (int, bool) {
	switch {
	case a != nil && b != nil:
		if lower {
			return min(*a, *b), true
		}
		return max(*a, *b), true
	case a != nil:
		return *a, true
	case b != nil:
		return *b, true
	}
	return 0, false
}

func cloneAgeRange(a *model.AgeRange) *model.AgeRange {
	if a.IsZero() {
		return nil
	}
	out := &model.AgeRange{}
	if a.Min != nil {
		v := *a.Min
		out.Min = &v
	}
	if a.Max != nil {
		v := *a.Max
		out.Max = &v
	}
	return out
}

func mergeLevel(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	ga, gb := genericLevels[strings.ToLower(strings.TrimSpace(a))], genericLevels[strings.ToLower(strings.TrimSpace(b))]
	if ga && !gb {
		return b
	}
	return a
}

func mergePrice(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	ga, gb := genericPrices[strings.ToLower(strings.TrimSpace(a))], genericPrices[strings.ToLower(strings.TrimSpace(b))]
	switch {
	case ga && !gb:
		return b
	case gb && !ga:
		return a
	case strings.EqualFold(a, b):
		return a
	}
	return a + " / " + b
}

func mergeCategory(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if strings.EqualFold(a, "general") && !strings.EqualFold(b, "general") {
		return b
	}
	return a
}

// mergeSession keeps a unless b is strictly longer.
func mergeSession(a, b string) string {
	return longer(a, b)
}

func mergeDate(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	da, db := hasDigit(a), hasDigit(b)
	if db && !da {
		return b
	}
	if da && !db {
		return a
	}
	return longer(a, b)
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

// mergeAvailability prefers a value with a number in it; when both or
// neither have one, the later-seen value wins.
func mergeAvailability(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	_, na := ParseSpots(a)
	_, nb := ParseSpots(b)
	if na && !nb {
		return a
	}
	return b
}

// ParseSpots reads the first integer in an availability string
// ("3 left" is 3).
func ParseSpots(s string) (int, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// StatusRank orders registration states by severity; unknown is 0.
func StatusRank(status string) int {
	return statusRank[strings.ToLower(strings.TrimSpace(status))]
}

// mergeStatus keeps a on equal rank.
func mergeStatus(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if StatusRank(a) >= StatusRank(b) {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	return max(a, b)
}

// union merges two lists, dropping case-insensitive duplicates and empty
// entries while keeping the first-seen spelling and order.
func union(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			key := strings.ToLower(v)
			if v == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

func mergeScheduleDetails(a, b *model.ScheduleDetails) *model.ScheduleDetails {
	if a.IsZero() && b.IsZero() {
		return nil
	}
	if a == nil {
		a = &model.ScheduleDetails{}
	}
	if b == nil {
		b = &model.ScheduleDetails{}
	}
	return &model.ScheduleDetails{
		Days:        union(a.Days, b.Days),
		Times:       union(a.Times, b.Times),
		SessionInfo: firstNonEmpty(a.SessionInfo, b.SessionInfo),
	}
}
