package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/titanous/json5"

	"github.com/sells-group/program-extractor/internal/model"
)

// payload is the union of every category schema the oracle is asked for.
type payload struct {
	Programs     []rawProgram    `json:"programs"`
	Instructors  []rawInstructor `json:"instructors"`
	Schedules    []rawSchedule   `json:"schedules"`
	Pricing      []rawPricing    `json:"pricing"`
	Policies     []flexString    `json:"policies"`
	BusinessInfo *rawBusiness    `json:"business_info"`
}

type rawProgram struct {
	Name                 flexString  `json:"name"`
	Description          flexString  `json:"description"`
	Prerequisites        flexString  `json:"prerequisites"`
	AdditionalInfo       flexString  `json:"additional_info"`
	AgeRange             flexAge     `json:"age_range"`
	Level                flexString  `json:"level"`
	Duration             flexInt     `json:"duration"`
	MaxParticipants      flexInt     `json:"max_participants"`
	Skills               flexList    `json:"skills"`
	Instructors          flexList    `json:"instructors"`
	Schedule             flexString  `json:"schedule"`
	ScheduleDetails      *rawDetails `json:"schedule_details"`
	Price                flexString  `json:"price"`
	BillingFrequency     flexString  `json:"billing_frequency"`
	Category             flexString  `json:"category"`
	SessionName          flexString  `json:"session_name"`
	StartDate            flexString  `json:"start_date"`
	EndDate              flexString  `json:"end_date"`
	RegistrationDeadline flexString  `json:"registration_deadline"`
	SpotsAvailable       flexString  `json:"spots_available"`
	TotalSpots           flexInt     `json:"total_spots"`
	Status               flexString  `json:"status"`
	Location             flexString  `json:"location"`
}

type rawDetails struct {
	Days        flexList   `json:"days"`
	Times       flexList   `json:"times"`
	SessionInfo flexString `json:"session_info"`
}

type rawInstructor struct {
	Name           flexString `json:"name"`
	Title          flexString `json:"title"`
	Specialties    flexList   `json:"specialties"`
	Experience     flexString `json:"experience"`
	Certifications flexList   `json:"certifications"`
	Bio            flexString `json:"bio"`
	PhotoURL       flexString `json:"photo_url"`
}

type rawSchedule struct {
	Program              flexString `json:"program"`
	SessionName          flexString `json:"session_name"`
	Day                  flexString `json:"day"`
	Time                 flexString `json:"time"`
	EndTime              flexString `json:"end_time"`
	Duration             flexInt    `json:"duration"`
	StartDate            flexString `json:"start_date"`
	EndDate              flexString `json:"end_date"`
	AgeRange             flexAge    `json:"age_range"`
	Level                flexString `json:"level"`
	Instructor           flexString `json:"instructor"`
	Location             flexString `json:"location"`
	SpotsAvailable       flexString `json:"spots_available"`
	TotalSpots           flexInt    `json:"total_spots"`
	Status               flexString `json:"status"`
	Price                flexString `json:"price"`
	RegistrationDeadline flexString `json:"registration_deadline"`
	AdditionalInfo       flexString `json:"additional_info"`
}

type rawPricing struct {
	Program          flexString `json:"program"`
	Price            flexString `json:"price"`
	BillingFrequency flexString `json:"billing_frequency"`
	Packages         flexList   `json:"packages"`
	Discounts        flexList   `json:"discounts"`
	AdditionalFees   flexList   `json:"additional_fees"`
}

type rawBusiness struct {
	Name            flexString `json:"name"`
	Description     flexString `json:"description"`
	Address         flexString `json:"address"`
	City            flexString `json:"city"`
	State           flexString `json:"state"`
	ZipCode         flexString `json:"zip_code"`
	Phone           flexString `json:"phone"`
	Email           flexString `json:"email"`
	Hours           flexString `json:"hours"`
	History         flexString `json:"history"`
	Mission         flexString `json:"mission"`
	FacilityDetails flexString `json:"facility_details"`
}

// parsePayload decodes oracle output. Strict JSON is tried first; JSON5
// (comments, trailing commas, single quotes, unquoted keys) is the
// fallback.
func parsePayload(text string) (*payload, error) {
	var p payload
	if err := DecodeObject(text, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeObject reads the JSON object embedded in free-form oracle output
// into v. Strict decoding is tried first, then JSON5.
func DecodeObject(text string, v any) error {
	cleaned := cleanJSON(text)
	if cleaned == "" || cleaned[0] != '{' {
		return eris.New("extract: no JSON object in oracle output")
	}

	strictErr := json.Unmarshal([]byte(cleaned), v)
	if strictErr == nil {
		return nil
	}

	var loose any
	if err := json5.Unmarshal([]byte(cleaned), &loose); err != nil {
		return eris.Wrapf(strictErr, "extract: unparseable oracle output (json5: %v)", err)
	}
	canonical, err := json.Marshal(loose)
	if err != nil {
		return eris.Wrap(err, "extract: re-encode json5 output")
	}
	if err := json.Unmarshal(canonical, v); err != nil {
		return eris.Wrap(err, "extract: decode json5 output")
	}
	return nil
}

// cleanJSON strips markdown fences, extracts the outermost JSON object, and
// repairs truncation.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Trailing prose is cut only when the object before it is complete;
	// otherwise the partial tail is kept for repair.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	switch {
	case start >= 0 && end > start && balanced(text[start:end+1]):
		text = text[start : end+1]
	case start >= 0:
		text = text[start:]
	}

	return repairTruncatedJSON(strings.TrimSpace(text))
}

// repairTruncatedJSON closes any unclosed brackets or braces in truncated JSON.
func repairTruncatedJSON(text string) string {
	if len(text) == 0 {
		return text
	}

	stack, inString := openScopes(text)
	if inString {
		text += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		text = strings.TrimRight(text, " \t\n\r,")
		text += string(stack[i])
	}
	return text
}

func balanced(text string) bool {
	stack, inString := openScopes(text)
	return len(stack) == 0 && !inString
}

// openScopes returns the closers still owed at the end of text and whether
// it ends inside a string.
func openScopes(text string) ([]byte, bool) {
	var stack []byte
	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' && inString {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack, inString
}

var (
	digits    = regexp.MustCompile(`-?\d+`)
	ageRange  = regexp.MustCompile(`(?i)(\d+)\s*(months?|mos?|years?|yrs?)?\s*(?:-|–|to)\s*(\d+)\s*(months?|mos?|years?|yrs?)?`)
	agePlus   = regexp.MustCompile(`(?i)(\d+)\s*(months?|mos?|years?|yrs?)?\s*(?:\+|and up|& up|and older)`)
	ageUnder  = regexp.MustCompile(`(?i)(?:under|up to)\s*(\d+)`)
	ageSingle = regexp.MustCompile(`(?i)^(?:ages?\s*)?(\d+)\s*(months?|mos?|years?|yrs?)?(?:\s*old)?$`)
)

// flexString accepts a string, number, bool, null or list of scalars.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case '[':
		var l flexList
		if err := json.Unmarshal(b, &l); err != nil {
			return err
		}
		*f = flexString(strings.Join(l, ", "))
	case '{':
		*f = ""
	default:
		*f = flexString(string(b))
	}
	return nil
}

// flexInt accepts a number, a string containing a number ("60 min"), or
// null. Anything else decodes to 0, which means absent.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return nil
	}
	if fl, err := strconv.ParseFloat(string(s), 64); err == nil {
		*f = flexInt(int(fl))
		return nil
	}
	if m := digits.FindString(string(s)); m != "" {
		n, _ := strconv.Atoi(m)
		*f = flexInt(n)
		return nil
	}
	*f = 0
	return nil
}

// flexList accepts a list of scalars or a single comma-separated string.
type flexList []string

func (f *flexList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = nil
		return nil
	}
	if b[0] != '[' {
		var s flexString
		if err := s.UnmarshalJSON(b); err != nil {
			return err
		}
		*f = splitList(string(s))
		return nil
	}
	var items []flexString
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if v := strings.TrimSpace(string(it)); v != "" {
			out = append(out, v)
		}
	}
	*f = out
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// flexAge accepts [min, max], {"min": .., "max": ..} or free text such as
// "5-7 years", "6+", "18 months - 3 years".
type flexAge struct {
	r *model.AgeRange
}

func (f *flexAge) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	f.r = nil
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '[':
		var pair []*flexInt
		if err := json.Unmarshal(b, &pair); err != nil {
			return nil
		}
		var lo, hi *flexInt
		if len(pair) > 0 {
			lo = pair[0]
		}
		if len(pair) > 1 {
			hi = pair[1]
		}
		f.r = ageFromBounds(lo, hi)
	case '{':
		var obj struct {
			Min *flexInt `json:"min"`
			Max *flexInt `json:"max"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil
		}
		f.r = ageFromBounds(obj.Min, obj.Max)
	default:
		var s flexString
		if err := s.UnmarshalJSON(b); err != nil {
			return nil
		}
		f.r = ParseAgeText(string(s))
	}
	return nil
}

func ageFromBounds(lo, hi *flexInt) *model.AgeRange {
	r := &model.AgeRange{}
	if lo != nil && *lo > 0 {
		v := int(*lo)
		r.Min = &v
	}
	if hi != nil && *hi > 0 {
		v := int(*hi)
		r.Max = &v
	}
	if r.IsZero() {
		return nil
	}
	return r
}

// ParseAgeText reads an age range out of free text. Month figures are
// converted to whole years. It returns nil when no age is found.
func ParseAgeText(s string) *model.AgeRange {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if m := ageRange.FindStringSubmatch(s); m != nil {
		unitLo, unitHi := m[2], m[4]
		if unitLo == "" {
			unitLo = unitHi
		}
		lo, hi := toYears(m[1], unitLo), toYears(m[3], unitHi)
		return buildAge(&lo, &hi)
	}
	if m := agePlus.FindStringSubmatch(s); m != nil {
		lo := toYears(m[1], m[2])
		return buildAge(&lo, nil)
	}
	if m := ageUnder.FindStringSubmatch(s); m != nil {
		hi := toYears(m[1], "")
		return buildAge(nil, &hi)
	}
	if m := ageSingle.FindStringSubmatch(s); m != nil {
		v := toYears(m[1], m[2])
		return buildAge(&v, &v)
	}
	return nil
}

func toYears(num, unit string) int {
	n, _ := strconv.Atoi(num)
	if strings.HasPrefix(strings.ToLower(unit), "mo") {
		return n / 12
	}
	return n
}

func buildAge(lo, hi *int) *model.AgeRange {
	r := &model.AgeRange{}
	if lo != nil && *lo > 0 {
		r.Min = lo
	}
	if hi != nil && *hi > 0 {
		r.Max = hi
	}
	if r.IsZero() {
		return nil
	}
	return r
}
