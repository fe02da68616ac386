package model

import (
	"fmt"
	"strings"
)

// TagPlaceholder is the literal marker inside a proxy tag pattern standing in
// for the message body, e.g. "luna: text" or "[text]".
const TagPlaceholder = "text"

// ProxyTag is a prefix/suffix pair around the message body. A tag with both
// parts empty (a bare "text" pattern) matches anything and is only used as a
// last-resort fallback during matching.
type ProxyTag struct {
	Prefix string
	Suffix string
}

// ParseProxyTag parses a pattern like "name:text" or "[text]" into a ProxyTag.
// The pattern must contain the placeholder exactly once.
func ParseProxyTag(pattern string) (ProxyTag, error) {
	idx := strings.Index(pattern, TagPlaceholder)
	if idx < 0 {
		return ProxyTag{}, fmt.Errorf("tag pattern %q does not contain %q", pattern, TagPlaceholder)
	}
	if strings.Contains(pattern[idx+len(TagPlaceholder):], TagPlaceholder) {
		return ProxyTag{}, fmt.Errorf("tag pattern %q contains %q more than once", pattern, TagPlaceholder)
	}
	return ProxyTag{
		Prefix: pattern[:idx],
		Suffix: pattern[idx+len(TagPlaceholder):],
	}, nil
}

// ParseProxyTags parses a list of patterns, rejecting the whole list on the
// first invalid entry.
func ParseProxyTags(patterns []string) ([]ProxyTag, error) {
	tags := make([]ProxyTag, 0, len(patterns))
	for _, p := range patterns {
		t, err := ParseProxyTag(p)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// String reassembles the original pattern form.
func (t ProxyTag) String() string { return t.Prefix + TagPlaceholder + t.Suffix }

// Bare reports whether the tag has neither prefix nor suffix.
func (t ProxyTag) Bare() bool { return t.Prefix == "" && t.Suffix == "" }
