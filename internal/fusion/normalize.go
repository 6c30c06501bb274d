package fusion

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// leadingLabels are stripped from the front of a name, repeatedly.
var leadingLabels = []string{"class:", "program:", "course:", "lesson:"}

// genericNouns are stripped from the end of a name, repeatedly, as long as
// at least one other token remains.
var genericNouns = map[string]bool{
	"classes": true, "programs": true, "courses": true, "lessons": true,
	"class": true, "program": true, "course": true, "lesson": true,
}

// synonyms map whole tokens to their canonical spelling. No value is also
// a key, which keeps NormalizeName idempotent.
var synonyms = map[string]string{
	"gym":        "gymnastics",
	"gymnastic":  "gymnastics",
	"tumble":     "tumbling",
	"begin":      "beginner",
	"beginners":  "beginner",
	"starter":    "beginner",
	"intro":      "beginner",
	"basic":      "beginner",
	"inter":      "intermediate",
	"middle":     "intermediate",
	"adv":        "advanced",
	"expert":     "advanced",
	"pre-school": "preschool",
	"toddler":    "preschool",
	"toddlers":   "preschool",
}

// NormalizeName returns the grouping key for a program name. It is a
// heuristic: names outside the known vocabulary may under- or over-merge
// ("Level 1 Xcel" and "Xcel Level 1" stay distinct).
func NormalizeName(name string) string {
	s := norm.NFKC.String(strings.ToLower(norm.NFKC.String(name)))
	s = strings.TrimSpace(s)

	for stripped := true; stripped; {
		stripped = false
		for _, label := range leadingLabels {
			if strings.HasPrefix(s, label) {
				s = strings.TrimSpace(s[len(label):])
				stripped = true
			}
		}
	}

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r != '-' && r != '&' && r != '+' && !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	joined := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if tokens[i] == "pre" && i+1 < len(tokens) && tokens[i+1] == "school" {
			joined = append(joined, "preschool")
			i++
			continue
		}
		joined = append(joined, tokens[i])
	}

	for i, tok := range joined {
		if canon, ok := synonyms[tok]; ok {
			joined[i] = canon
		}
	}

	for len(joined) > 1 && genericNouns[joined[len(joined)-1]] {
		joined = joined[:len(joined)-1]
	}

	return strings.Join(joined, " ")
}
