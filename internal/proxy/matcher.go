package proxy

import (
	"strings"

	"plurald/internal/model"
)

// MatchResult is the outcome of a successful tag match.
type MatchResult struct {
	Persona      *model.Persona
	Tag          model.ProxyTag
	StrippedText string
}

// Match finds the persona whose proxy tag matches text. Matching is a pure
// function: no side effects, no time dependence.
//
// Two passes are made over the persona list. The first pass considers only
// affixed tags (at least one of prefix/suffix non-empty); the second pass
// considers bare "text"-only tags, which match everything and would otherwise
// shadow every other persona. Within each pass the first persona/tag pair in
// list order wins; callers control priority through the order of the slice.
//
// Returns nil when nothing matches. That is the common case, not an error.
func Match(text string, personas []*model.Persona) *MatchResult {
	for _, p := range personas {
		for _, tag := range p.Tags {
			if tag.Bare() {
				continue
			}
			if stripped, ok := applyTag(text, tag); ok {
				return &MatchResult{Persona: p, Tag: tag, StrippedText: stripped}
			}
		}
	}
	for _, p := range personas {
		for _, tag := range p.Tags {
			if tag.Bare() {
				return &MatchResult{Persona: p, Tag: tag, StrippedText: strings.TrimSpace(text)}
			}
		}
	}
	return nil
}

// applyTag checks text against a single affixed tag and returns the trimmed
// middle section. A match requires the prefix and suffix to both be present
// without overlapping, and the middle to be non-empty after trimming.
func applyTag(text string, tag model.ProxyTag) (string, bool) {
	if len(text) < len(tag.Prefix)+len(tag.Suffix) {
		return "", false
	}
	if !strings.HasPrefix(text, tag.Prefix) || !strings.HasSuffix(text, tag.Suffix) {
		return "", false
	}
	middle := strings.TrimSpace(text[len(tag.Prefix) : len(text)-len(tag.Suffix)])
	if middle == "" {
		return "", false
	}
	return middle, true
}
