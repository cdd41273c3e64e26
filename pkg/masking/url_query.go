package masking

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`\b(?:wss?|https?)://[^\s"'<>]+`)

// URLQueryMasker masks the values of sensitive query parameters in every URL
// found in the data. Parameter order and the rest of the URL are preserved.
type URLQueryMasker struct {
	keys map[string]bool
}

// NewURLQueryMasker creates a masker for the given parameter names.
func NewURLQueryMasker(keys []string) *URLQueryMasker {
	return &URLQueryMasker{keys: keySet(keys)}
}

// Name returns the unique identifier for this masker.
func (m *URLQueryMasker) Name() string { return "url_query" }

// AppliesTo reports whether data may contain a URL with a query string.
func (m *URLQueryMasker) AppliesTo(data string) bool {
	return strings.Contains(data, "://") && strings.Contains(data, "?")
}

// Mask rewrites every URL in data.
func (m *URLQueryMasker) Mask(data string) string {
	return urlPattern.ReplaceAllStringFunc(data, m.maskURL)
}

func (m *URLQueryMasker) maskURL(match string) string {
	raw := strings.TrimRight(match, ".,;:!?)")
	suffix := match[len(raw):]

	base, query, ok := strings.Cut(raw, "?")
	if !ok {
		return match
	}
	query, fragment, hasFragment := strings.Cut(query, "#")

	parts := strings.Split(query, "&")
	changed := false
	for i, part := range parts {
		key, _, hasValue := strings.Cut(part, "=")
		if !hasValue {
			continue
		}
		name, err := url.QueryUnescape(key)
		if err != nil {
			name = key
		}
		if m.keys[strings.ToLower(name)] {
			parts[i] = key + "=" + MaskedValue
			changed = true
		}
	}
	if !changed {
		return match
	}

	out := base + "?" + strings.Join(parts, "&")
	if hasFragment {
		out += "#" + fragment
	}
	return out + suffix
}

func keySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			set[k] = true
		}
	}
	return set
}
