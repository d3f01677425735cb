package schema

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	titlePolicyOnce sync.Once
	titlePolicy     *bluemonday.Policy
)

// sanitizeTitle strips markup from a display title.
// bluemonday escapes what it keeps, so entities are decoded again; the
// templates escape on output.
func sanitizeTitle(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	cleaned := titleSanitizer().Sanitize(trimmed)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func titleSanitizer() *bluemonday.Policy {
	titlePolicyOnce.Do(func() {
		titlePolicy = bluemonday.StrictPolicy()
	})
	return titlePolicy
}
