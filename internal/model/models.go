package model

import "time"

// PersonaKind discriminates the persona variants. Alters, states, and groups
// share the same matching and fronting behavior; the kind only matters for
// presentation and for addressing a persona record.
type PersonaKind string

const (
	KindAlter PersonaKind = "alter"
	KindState PersonaKind = "state"
	KindGroup PersonaKind = "group"
)

// Valid reports whether k is one of the known persona kinds.
func (k PersonaKind) Valid() bool {
	switch k {
	case KindAlter, KindState, KindGroup:
		return true
	}
	return false
}

// PersonaRef addresses a persona by kind and id. Shifts and message records
// hold refs rather than pointers; a ref may dangle after a persona is deleted
// and lookups must degrade to "Unknown" rather than fail.
type PersonaRef struct {
	Kind PersonaKind
	ID   string
}

// Key returns a stable string form ("alter:<id>") used for dedup and caching.
func (r PersonaRef) Key() string { return string(r.Kind) + ":" + r.ID }

// Zero reports whether the ref is unset.
func (r PersonaRef) Zero() bool { return r.ID == "" }

// Persona is any entity a message can be proxied as.
type Persona struct {
	ID          string
	SystemID    string
	Kind        PersonaKind
	Name        string // indexable name used in commands
	DisplayName string // shown on proxied messages; falls back to Name
	Pronouns    string
	Caution     string
	Color       string
	AvatarURL   string
	Tags        []ProxyTag
	CreatedAt   time.Time
}

// Ref returns the persona's address.
func (p *Persona) Ref() PersonaRef { return PersonaRef{Kind: p.Kind, ID: p.ID} }

// Shown returns the name to display for this persona.
func (p *Persona) Shown() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// Autoproxy styles. Any other style value is interpreted as a pinned persona
// name, re-resolved on every send.
const (
	StyleOff   = "off"
	StyleFront = "front"
	StyleLatch = "latch"
	StyleLast  = "last" // accepted alias for latch
)

// ProxyConfig holds a system's proxy behavior settings.
type ProxyConfig struct {
	Style  string       // off, front, latch, or a pinned persona name
	Layout string       // display-name template; empty means DefaultLayout
	Recent []PersonaRef // most-recently matched personas, newest first
}

// DefaultLayout is used when a system has no layout configured.
const DefaultLayout = "{name}"

// System owns personas, one front structure, and one proxy configuration.
type System struct {
	ID          string
	OwnerUserID string
	Name        string
	Tags        []string // substituted for {tag1}..{tagN} in layouts
	Proxy       ProxyConfig
	CreatedAt   time.Time
}

// DefaultLayerName is the name of the layer created for every new system.
// Ledger operations that do not name a layer act on the primary layer.
const DefaultLayerName = "Main"

// Layer is an independent lane of concurrent fronters within one system.
type Layer struct {
	ID       string
	SystemID string
	Name     string
	Primary  bool
}

// Shift is one contiguous interval during which a persona is fronting.
// A nil EndTime means the shift is currently active.
type Shift struct {
	ID        string
	LayerID   string
	Persona   PersonaRef
	StartTime time.Time
	EndTime   *time.Time
	Statuses  []Status
}

// Active reports whether the shift is still open.
func (s *Shift) Active() bool { return s.EndTime == nil }

// Status is an annotation span within a shift. Status spans never outlive
// their parent shift: closing the shift closes its open status.
type Status struct {
	ID        string
	ShiftID   string
	Text      string
	Visible   bool
	StartTime time.Time
	EndTime   *time.Time
}

// MessageRecord links a webhook-delivered message to the original author,
// the system, and the persona it was attributed to. The persona ref is weak:
// the persona may be deleted later.
type MessageRecord struct {
	ExternalID   string // id of the delivered webhook message
	ChannelID    string
	AuthorUserID string
	SystemID     string
	Persona      PersonaRef
	MatchedTag   string // literal tag pattern that matched; empty for autoproxy
	Content      string
	CreatedAt    time.Time
	EditedAt     *time.Time
}

// Guild holds per-guild proxy settings.
type Guild struct {
	ID           string
	ProxyEnabled bool
	LogChannelID string
}
