package proxy

import (
	"regexp"
	"strconv"
	"strings"

	"plurald/internal/model"
)

// placeholderPattern matches the recognized layout placeholders. Substitution
// is case-insensitive; anything else in braces passes through literally.
var placeholderPattern = regexp.MustCompile(`(?i)\{(name|sys-name|pronouns|caution|tag[0-9]+)\}`)

// RenderLayout expands a system's display-name template for a persona.
// An empty layout falls back to model.DefaultLayout. {tagN} resolves against
// the system's tag list, 1-based; out-of-range indexes render empty.
func RenderLayout(layout string, p *model.Persona, sys *model.System) string {
	if layout == "" {
		layout = model.DefaultLayout
	}
	return placeholderPattern.ReplaceAllStringFunc(layout, func(m string) string {
		key := strings.ToLower(m[1 : len(m)-1])
		switch key {
		case "name":
			return p.Shown()
		case "sys-name":
			return sys.Name
		case "pronouns":
			return p.Pronouns
		case "caution":
			return p.Caution
		}
		// tagN
		n, err := strconv.Atoi(key[len("tag"):])
		if err != nil || n < 1 || n > len(sys.Tags) {
			return ""
		}
		return sys.Tags[n-1]
	})
}
