package proxy

import (
	"strings"

	"plurald/internal/model"
)

// ResolveAutoproxy decides the fallback persona for a message that matched no
// explicit tag. personas is the system's full persona list; active holds the
// open shifts of the primary layer. Returns nil when no persona should be
// used, in which case the message is sent unmodified as the human author.
//
// Style semantics:
//   - off: always nil.
//   - front: the single active fronter, but only when exactly one persona is
//     active. Zero or several fronters is ambiguous and resolves to nil
//     rather than silently picking one.
//   - latch/last: the head of the recent-proxy list, nil when the list is
//     empty or the head persona has since been deleted.
//   - anything else: a pinned persona name, re-resolved on every call so a
//     deleted persona degrades to nil instead of a stale pick.
//
// Escape handling ("\" and "\\" message prefixes) is a text-level convention
// applied by the send path before this is called.
func ResolveAutoproxy(sys *model.System, personas []*model.Persona, active []*model.Shift) *model.Persona {
	switch sys.Proxy.Style {
	case model.StyleOff, "":
		return nil
	case model.StyleFront:
		if len(active) != 1 {
			return nil
		}
		return personaByRef(personas, active[0].Persona)
	case model.StyleLatch, model.StyleLast:
		if len(sys.Proxy.Recent) == 0 {
			return nil
		}
		return personaByRef(personas, sys.Proxy.Recent[0])
	default:
		return personaByName(personas, sys.Proxy.Style)
	}
}

func personaByRef(personas []*model.Persona, ref model.PersonaRef) *model.Persona {
	for _, p := range personas {
		if p.Kind == ref.Kind && p.ID == ref.ID {
			return p
		}
	}
	return nil
}

func personaByName(personas []*model.Persona, name string) *model.Persona {
	for _, p := range personas {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// pushRecent returns the recent list with ref moved or inserted at the head,
// deduplicated by persona key and capped at limit.
func pushRecent(recent []model.PersonaRef, ref model.PersonaRef, limit int) []model.PersonaRef {
	out := make([]model.PersonaRef, 0, len(recent)+1)
	out = append(out, ref)
	for _, r := range recent {
		if r.Key() == ref.Key() {
			continue
		}
		out = append(out, r)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
