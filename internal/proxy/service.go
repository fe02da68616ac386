package proxy

import (
	"fmt"
	"strings"
	"sync"

	"plurald/internal/model"
)

// DefaultRecentLimit caps the recent-proxy list that drives latch autoproxy
// and quick-pick UIs.
const DefaultRecentLimit = 12

// Service is the consolidated proxy engine: tag matching, autoproxy
// resolution, the front/switch ledger, and proxied-message bookkeeping.
// It is the single source of truth for these behaviors; command and HTTP
// layers call it instead of reimplementing the logic inline.
type Service struct {
	store       Store
	executor    Executor
	logger      Logger
	clock       Clock
	idgen       IDGenerator
	recentLimit int

	// Front and recent-list mutations are read-modify-write sequences over
	// a system aggregate. A per-system lock keeps rapid duplicate commands
	// (double-submitted buttons) from racing the close-then-open sequence.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a Service with the provided dependencies.
func NewService(store Store, executor Executor, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		store:       store,
		executor:    executor,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
		recentLimit: DefaultRecentLimit,
		locks:       make(map[string]*sync.Mutex),
	}
}

// SetRecentLimit overrides the recent-proxy list cap. Values outside 1..64
// are ignored.
func (s *Service) SetRecentLimit(n int) {
	if n >= 1 && n <= 64 {
		s.recentLimit = n
	}
}

// lockSystem acquires the per-system mutex and returns the unlock function.
func (s *Service) lockSystem(systemID string) func() {
	s.mu.Lock()
	l, ok := s.locks[systemID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[systemID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// System operations

// CreateSystem registers a new system for a user. A user owns at most one
// system.
func (s *Service) CreateSystem(ownerUserID, name string) (*model.System, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("system name is empty: %w", ErrValidation)
	}
	existing, err := s.store.FindSystemByOwner(ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("checking for existing system: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user already has a system: %w", ErrValidation)
	}

	sys := &model.System{
		ID:          s.idgen.New(),
		OwnerUserID: ownerUserID,
		Name:        name,
		Proxy:       model.ProxyConfig{Style: model.StyleOff, Layout: model.DefaultLayout},
		CreatedAt:   s.clock.Now(),
	}
	if err := s.store.CreateSystem(sys); err != nil {
		return nil, fmt.Errorf("creating system: %w", err)
	}

	s.logger.Info("system created", "system", sys.ID, "owner", ownerUserID)
	return sys, nil
}

// SystemByOwner returns the system owned by the given user.
func (s *Service) SystemByOwner(userID string) (*model.System, error) {
	sys, err := s.store.FindSystemByOwner(userID)
	if err != nil {
		return nil, fmt.Errorf("finding system: %w", err)
	}
	if sys == nil {
		return nil, fmt.Errorf("no system registered for this user: %w", ErrNotFound)
	}
	return sys, nil
}

// DeleteSystem removes a system and everything it owns. Message records are
// kept; their persona refs degrade to "Unknown" at display time.
func (s *Service) DeleteSystem(systemID string, confirm bool) error {
	if !confirm {
		return fmt.Errorf("deleting a system is destructive: %w", ErrConfirmRequired)
	}
	defer s.lockSystem(systemID)()

	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		return fmt.Errorf("finding system: %w", err)
	}
	if sys == nil {
		return fmt.Errorf("system %s: %w", systemID, ErrNotFound)
	}
	if err := s.store.DeleteSystem(systemID); err != nil {
		return fmt.Errorf("deleting system: %w", err)
	}
	s.logger.Info("system deleted", "system", systemID)
	return nil
}

// Persona operations

// CreatePersona adds a persona to a system. tagPatterns use the "text"
// placeholder form, e.g. "luna: text" or "[text]".
func (s *Service) CreatePersona(systemID string, kind model.PersonaKind, name string, tagPatterns []string) (*model.Persona, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown persona kind %q: %w", kind, ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("persona name is empty: %w", ErrValidation)
	}
	tags, err := model.ParseProxyTags(tagPatterns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err, ErrValidation)
	}

	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		return nil, fmt.Errorf("finding system: %w", err)
	}
	if sys == nil {
		return nil, fmt.Errorf("system %s: %w", systemID, ErrNotFound)
	}

	p := &model.Persona{
		ID:        s.idgen.New(),
		SystemID:  systemID,
		Kind:      kind,
		Name:      name,
		Tags:      tags,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreatePersona(p); err != nil {
		return nil, fmt.Errorf("creating persona: %w", err)
	}

	s.logger.Info("persona created", "system", systemID, "kind", kind, "name", name)
	return p, nil
}

// UpdatePersona replaces a persona's mutable fields after validating tags.
func (s *Service) UpdatePersona(p *model.Persona) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("persona name is empty: %w", ErrValidation)
	}
	existing, err := s.store.GetPersona(p.Ref())
	if err != nil {
		return fmt.Errorf("finding persona: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("persona %s: %w", p.Ref().Key(), ErrNotFound)
	}
	if err := s.store.UpdatePersona(p); err != nil {
		return fmt.Errorf("updating persona: %w", err)
	}
	return nil
}

// Persona returns a system's persona by name.
func (s *Service) Persona(systemID, name string) (*model.Persona, error) {
	return s.findPersona(systemID, name)
}

// PersonaUpdate holds partial changes to a persona. Nil fields are left
// unchanged; Tags replaces the full tag list when set.
type PersonaUpdate struct {
	DisplayName *string
	Pronouns    *string
	Caution     *string
	Color       *string
	AvatarURL   *string
	Tags        *[]string
}

// ModifyPersona applies a partial update to a persona addressed by name.
// The display name and avatar take effect on the next delivery; already
// proxied messages keep the identity they were sent under.
func (s *Service) ModifyPersona(systemID, name string, upd PersonaUpdate) (*model.Persona, error) {
	defer s.lockSystem(systemID)()

	p, err := s.findPersona(systemID, name)
	if err != nil {
		return nil, err
	}

	if upd.DisplayName != nil {
		p.DisplayName = *upd.DisplayName
	}
	if upd.Pronouns != nil {
		p.Pronouns = *upd.Pronouns
	}
	if upd.Caution != nil {
		p.Caution = *upd.Caution
	}
	if upd.Color != nil {
		p.Color = *upd.Color
	}
	if upd.AvatarURL != nil {
		p.AvatarURL = *upd.AvatarURL
	}
	if upd.Tags != nil {
		tags, err := model.ParseProxyTags(*upd.Tags)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", err, ErrValidation)
		}
		p.Tags = tags
	}

	if err := s.UpdatePersona(p); err != nil {
		return nil, err
	}
	s.logger.Info("persona updated", "system", systemID, "name", name)
	return p, nil
}

// ListPersonas returns a system's personas in matching priority order.
func (s *Service) ListPersonas(systemID string) ([]*model.Persona, error) {
	personas, err := s.store.ListPersonas(systemID)
	if err != nil {
		return nil, fmt.Errorf("listing personas: %w", err)
	}
	return personas, nil
}

// DeletePersona removes a persona, ending its active shifts first so the
// front does not keep a dangling fronter.
func (s *Service) DeletePersona(systemID string, name string) error {
	defer s.lockSystem(systemID)()

	p, err := s.findPersona(systemID, name)
	if err != nil {
		return err
	}

	layer, err := s.store.PrimaryLayer(systemID)
	if err != nil {
		return fmt.Errorf("finding primary layer: %w", err)
	}
	active, err := s.store.ActiveShifts(layer.ID)
	if err != nil {
		return fmt.Errorf("listing active shifts: %w", err)
	}
	now := s.clock.Now()
	for _, sh := range active {
		if sh.Persona == p.Ref() {
			if err := s.store.EndShift(sh.ID, now); err != nil {
				return fmt.Errorf("ending shift: %w", err)
			}
		}
	}

	if err := s.store.DeletePersona(p.Ref()); err != nil {
		return fmt.Errorf("deleting persona: %w", err)
	}
	s.logger.Info("persona deleted", "system", systemID, "name", name)
	return nil
}

// findPersona resolves a persona by name within a system, translating
// absence to ErrNotFound.
func (s *Service) findPersona(systemID, name string) (*model.Persona, error) {
	p, err := s.store.FindPersonaByName(systemID, name)
	if err != nil {
		return nil, fmt.Errorf("finding persona: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("persona %q: %w", name, ErrNotFound)
	}
	return p, nil
}

// Proxy configuration

// SetAutoproxyStyle updates a system's autoproxy style. Accepts off, front,
// latch (or the alias last), or the name of an existing persona to pin.
func (s *Service) SetAutoproxyStyle(systemID, style string) error {
	defer s.lockSystem(systemID)()

	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		return fmt.Errorf("finding system: %w", err)
	}
	if sys == nil {
		return fmt.Errorf("system %s: %w", systemID, ErrNotFound)
	}

	switch style {
	case model.StyleOff, model.StyleFront, model.StyleLatch:
	case model.StyleLast:
		style = model.StyleLatch
	default:
		// Pinned style: the name must resolve now, even though it is
		// re-resolved on every send afterwards.
		if _, err := s.findPersona(systemID, style); err != nil {
			return err
		}
	}

	cfg := sys.Proxy
	cfg.Style = style
	if err := s.store.UpdateProxyConfig(systemID, cfg); err != nil {
		return fmt.Errorf("updating proxy config: %w", err)
	}
	s.logger.Info("autoproxy style set", "system", systemID, "style", style)
	return nil
}

// Guild settings

// GuildSettings returns a guild's proxy settings. Unknown guilds get the
// default of proxying enabled and no log channel.
func (s *Service) GuildSettings(guildID string) (*model.Guild, error) {
	g, err := s.store.GetGuild(guildID)
	if err != nil {
		return nil, fmt.Errorf("finding guild: %w", err)
	}
	if g == nil {
		return &model.Guild{ID: guildID, ProxyEnabled: true}, nil
	}
	return g, nil
}

// SetGuildSettings creates or replaces a guild's proxy settings.
func (s *Service) SetGuildSettings(g *model.Guild) error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("guild id is empty: %w", ErrValidation)
	}
	if err := s.store.UpsertGuild(g); err != nil {
		return fmt.Errorf("saving guild settings: %w", err)
	}
	s.logger.Info("guild settings updated", "guild", g.ID, "proxy_enabled", g.ProxyEnabled)
	return nil
}

// SetLayout updates a system's display-name template.
func (s *Service) SetLayout(systemID, layout string) error {
	defer s.lockSystem(systemID)()

	sys, err := s.store.GetSystem(systemID)
	if err != nil {
		return fmt.Errorf("finding system: %w", err)
	}
	if sys == nil {
		return fmt.Errorf("system %s: %w", systemID, ErrNotFound)
	}
	cfg := sys.Proxy
	cfg.Layout = layout
	if err := s.store.UpdateProxyConfig(systemID, cfg); err != nil {
		return fmt.Errorf("updating proxy config: %w", err)
	}
	return nil
}
