package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"plurald/internal/model"
	"plurald/internal/proxy"
)

// MemoryStore is an in-memory implementation of the proxy.Store interface,
// used for tests and throwaway setups. Safe for concurrent use. Returned
// values are copies; mutating them does not affect stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	systems  map[string]*model.System
	personas []*model.Persona
	layers   []*model.Layer
	shifts   []*model.Shift
	statuses []*model.Status
	messages []*model.MessageRecord
	guilds   map[string]*model.Guild
}

var _ proxy.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		systems: make(map[string]*model.System),
		guilds:  make(map[string]*model.Guild),
	}
}

// System operations

func (m *MemoryStore) CreateSystem(sys *model.System) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systems[sys.ID] = copySystem(sys)
	m.layers = append(m.layers, &model.Layer{
		ID:       uuid.New().String(),
		SystemID: sys.ID,
		Name:     model.DefaultLayerName,
		Primary:  true,
	})
	return nil
}

func (m *MemoryStore) GetSystem(id string) (*model.System, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sys, ok := m.systems[id]
	if !ok {
		return nil, nil
	}
	return copySystem(sys), nil
}

func (m *MemoryStore) FindSystemByOwner(userID string) (*model.System, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sys := range m.systems {
		if sys.OwnerUserID == userID {
			return copySystem(sys), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateProxyConfig(systemID string, cfg model.ProxyConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sys, ok := m.systems[systemID]
	if !ok {
		return nil
	}
	sys.Proxy = model.ProxyConfig{
		Style:  cfg.Style,
		Layout: cfg.Layout,
		Recent: append([]model.PersonaRef(nil), cfg.Recent...),
	}
	return nil
}

func (m *MemoryStore) DeleteSystem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.systems, id)

	m.personas = filterPersonas(m.personas, func(p *model.Persona) bool { return p.SystemID != id })

	var keptLayers []*model.Layer
	removed := make(map[string]bool)
	for _, l := range m.layers {
		if l.SystemID == id {
			removed[l.ID] = true
			continue
		}
		keptLayers = append(keptLayers, l)
	}
	m.layers = keptLayers
	m.removeShiftsLocked(func(sh *model.Shift) bool { return removed[sh.LayerID] })
	// Message records are kept: they belong to the user, not the system.
	return nil
}

// Persona operations

func (m *MemoryStore) CreatePersona(p *model.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.personas = append(m.personas, copyPersona(p))
	return nil
}

func (m *MemoryStore) GetPersona(ref model.PersonaRef) (*model.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.personas {
		if p.Kind == ref.Kind && p.ID == ref.ID {
			return copyPersona(p), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) FindPersonaByName(systemID, name string) (*model.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.orderedPersonasLocked(systemID) {
		if strings.EqualFold(p.Name, name) {
			return copyPersona(p), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListPersonas(systemID string) ([]*model.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ordered := m.orderedPersonasLocked(systemID)
	out := make([]*model.Persona, len(ordered))
	for i, p := range ordered {
		out[i] = copyPersona(p)
	}
	return out, nil
}

// orderedPersonasLocked returns a system's personas alters-first, then
// states, then groups, insertion order within each kind.
func (m *MemoryStore) orderedPersonasLocked(systemID string) []*model.Persona {
	var out []*model.Persona
	for _, kind := range []model.PersonaKind{model.KindAlter, model.KindState, model.KindGroup} {
		for _, p := range m.personas {
			if p.SystemID == systemID && p.Kind == kind {
				out = append(out, p)
			}
		}
	}
	return out
}

func (m *MemoryStore) UpdatePersona(p *model.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.personas {
		if existing.Kind == p.Kind && existing.ID == p.ID {
			m.personas[i] = copyPersona(p)
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) DeletePersona(ref model.PersonaRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.personas = filterPersonas(m.personas, func(p *model.Persona) bool {
		return p.Kind != ref.Kind || p.ID != ref.ID
	})
	return nil
}

// Front operations

func (m *MemoryStore) PrimaryLayer(systemID string) (*model.Layer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.layers {
		if l.SystemID == systemID && l.Primary {
			cp := *l
			return &cp, nil
		}
	}
	l := &model.Layer{
		ID:       uuid.New().String(),
		SystemID: systemID,
		Name:     model.DefaultLayerName,
		Primary:  true,
	}
	m.layers = append(m.layers, l)
	cp := *l
	return &cp, nil
}

func (m *MemoryStore) CreateLayer(l *model.Layer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.layers = append(m.layers, &cp)
	return nil
}

func (m *MemoryStore) ListLayers(systemID string) ([]*model.Layer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Layer
	for _, l := range m.layers {
		if l.SystemID == systemID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) ActiveShifts(layerID string) ([]*model.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Shift
	for _, sh := range m.shifts {
		if sh.LayerID == layerID && sh.EndTime == nil {
			out = append(out, m.copyShiftLocked(sh))
		}
	}
	sortShifts(out)
	return out, nil
}

func (m *MemoryStore) ListShifts(layerID string) ([]*model.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Shift
	for _, sh := range m.shifts {
		if sh.LayerID == layerID {
			out = append(out, m.copyShiftLocked(sh))
		}
	}
	sortShifts(out)
	return out, nil
}

func (m *MemoryStore) CreateShift(sh *model.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sh
	cp.Statuses = nil
	m.shifts = append(m.shifts, &cp)
	return nil
}

func (m *MemoryStore) EndShift(shiftID string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sh := range m.shifts {
		if sh.ID != shiftID || sh.EndTime != nil {
			continue
		}
		end := t
		sh.EndTime = &end
		for _, st := range m.statuses {
			if st.ShiftID == shiftID && st.EndTime == nil {
				stEnd := t
				st.EndTime = &stEnd
			}
		}
		return nil
	}
	return nil
}

func (m *MemoryStore) AddStatus(st *model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *st
	m.statuses = append(m.statuses, &cp)
	return nil
}

func (m *MemoryStore) EndStatus(statusID string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.statuses {
		if st.ID == statusID && st.EndTime == nil {
			end := t
			st.EndTime = &end
		}
	}
	return nil
}

func (m *MemoryStore) ClearLayerShifts(layerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeShiftsLocked(func(sh *model.Shift) bool { return sh.LayerID == layerID })
	return nil
}

func (m *MemoryStore) ResetFront(systemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.Layer
	removed := make(map[string]bool)
	for _, l := range m.layers {
		if l.SystemID == systemID {
			removed[l.ID] = true
			continue
		}
		kept = append(kept, l)
	}
	m.layers = kept
	m.removeShiftsLocked(func(sh *model.Shift) bool { return removed[sh.LayerID] })
	m.layers = append(m.layers, &model.Layer{
		ID:       uuid.New().String(),
		SystemID: systemID,
		Name:     model.DefaultLayerName,
		Primary:  true,
	})
	return nil
}

// removeShiftsLocked drops shifts matching the predicate along with their
// status spans.
func (m *MemoryStore) removeShiftsLocked(drop func(*model.Shift) bool) {
	dropped := make(map[string]bool)
	var kept []*model.Shift
	for _, sh := range m.shifts {
		if drop(sh) {
			dropped[sh.ID] = true
			continue
		}
		kept = append(kept, sh)
	}
	m.shifts = kept

	var keptStatuses []*model.Status
	for _, st := range m.statuses {
		if dropped[st.ShiftID] {
			continue
		}
		keptStatuses = append(keptStatuses, st)
	}
	m.statuses = keptStatuses
}

// Message operations

func (m *MemoryStore) CreateMessage(rec *model.MessageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *MemoryStore) GetMessage(externalID string) (*model.MessageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.messages {
		if rec.ExternalID == externalID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) LatestMessageByAuthor(channelID, authorUserID string) (*model.MessageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *model.MessageRecord
	for _, rec := range m.messages {
		if rec.ChannelID != channelID || rec.AuthorUserID != authorUserID {
			continue
		}
		if latest == nil || !rec.CreatedAt.Before(latest.CreatedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *MemoryStore) UpdateMessage(previousExternalID string, rec *model.MessageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.messages {
		if existing.ExternalID == previousExternalID {
			cp := *rec
			m.messages[i] = &cp
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) DeleteMessage(externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.MessageRecord
	for _, rec := range m.messages {
		if rec.ExternalID == externalID {
			continue
		}
		kept = append(kept, rec)
	}
	m.messages = kept
	return nil
}

// Guild operations

func (m *MemoryStore) GetGuild(id string) (*model.Guild, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.guilds[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *MemoryStore) UpsertGuild(g *model.Guild) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.guilds[g.ID] = &cp
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Helpers

func (m *MemoryStore) copyShiftLocked(sh *model.Shift) *model.Shift {
	cp := *sh
	cp.Statuses = nil
	for _, st := range m.statuses {
		if st.ShiftID == sh.ID {
			cp.Statuses = append(cp.Statuses, *st)
		}
	}
	return &cp
}

func copySystem(sys *model.System) *model.System {
	cp := *sys
	cp.Tags = append([]string(nil), sys.Tags...)
	cp.Proxy.Recent = append([]model.PersonaRef(nil), sys.Proxy.Recent...)
	return &cp
}

func copyPersona(p *model.Persona) *model.Persona {
	cp := *p
	cp.Tags = append([]model.ProxyTag(nil), p.Tags...)
	return &cp
}

func filterPersonas(personas []*model.Persona, keep func(*model.Persona) bool) []*model.Persona {
	var out []*model.Persona
	for _, p := range personas {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func sortShifts(shifts []*model.Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		return shifts[i].StartTime.Before(shifts[j].StartTime)
	})
}
