package analysis

import (
	"regexp"
	"strings"
	"sync"
)

var (
	tagPatterns   = map[string]*regexp.Regexp{}
	tagPatternsMu sync.Mutex

	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractSection returns the trimmed content of the first <tag>...</tag>
// block in body, matching case-insensitively across newlines. Returns
// "" when the tag is absent.
func ExtractSection(body, tag string) string {
	tagPatternsMu.Lock()
	re, ok := tagPatterns[tag]
	if !ok {
		re = regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(tag) + `>(.*?)</` + regexp.QuoteMeta(tag) + `>`)
		tagPatterns[tag] = re
	}
	tagPatternsMu.Unlock()

	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ExtractJSONObject returns the first {...} blob in body, or "" when
// none is present. Models wrap JSON in prose and code fences often
// enough that a permissive scan beats strict parsing.
func ExtractJSONObject(body string) string {
	return jsonObjectPattern.FindString(body)
}
