package locate

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns are used when no custom patterns are provided.
var defaultExcludePatterns = []string{
	"/wp-admin/*",
	"/wp-login.php",
	"/cart/*",
	"/checkout/*",
	"/feed/*",
	"/my-account/*",
}

// assetExtensions are never pages worth rendering.
var assetExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".zip": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".mp4": true, ".mp3": true, ".ics": true, ".css": true, ".js": true,
}

// PathMatcher filters URLs by glob-style path patterns and by file
// extension. "/cart/*" matches "/cart" and anything below it.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher from glob patterns. Falls back to
// default patterns if none are provided.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &PathMatcher{patterns: lowered}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether a URL is an asset or matches an exclude pattern.
// Unparseable URLs are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	if assetExtensions[path.Ext(p)] {
		return true
	}
	for _, pattern := range m.patterns {
		if matchSegmented(pattern, p) {
			return true
		}
	}
	return false
}

func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	return false
}
