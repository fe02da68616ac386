package proxy

import (
	"fmt"
	"strings"
	"time"

	"plurald/internal/model"
)

// Fronter pairs an active shift with its persona. Persona is nil when the
// referenced persona has been deleted; callers display "Unknown".
type Fronter struct {
	Shift   *model.Shift
	Persona *model.Persona
}

// SwitchResult reports the outcome of a bulk switch or toggle. Unknown holds
// the names that did not resolve; the operation still applies to the names
// that did. Nothing is silently dropped: callers render both halves.
type SwitchResult struct {
	Opened  []*model.Shift
	Closed  []*model.Shift
	Unknown []string
}

// Fronters returns the current front of the primary layer.
func (s *Service) Fronters(systemID string) ([]*Fronter, error) {
	layer, err := s.store.PrimaryLayer(systemID)
	if err != nil {
		return nil, fmt.Errorf("finding primary layer: %w", err)
	}
	active, err := s.store.ActiveShifts(layer.ID)
	if err != nil {
		return nil, fmt.Errorf("listing active shifts: %w", err)
	}

	fronters := make([]*Fronter, 0, len(active))
	for _, sh := range active {
		p, err := s.store.GetPersona(sh.Persona)
		if err != nil {
			return nil, fmt.Errorf("resolving fronter: %w", err)
		}
		fronters = append(fronters, &Fronter{Shift: sh, Persona: p})
	}
	return fronters, nil
}

// Switch replaces the whole front of the primary layer: every active shift is
// closed and one fresh shift opens per resolved name, all sharing a single
// start time. Unresolved names are reported in the result; the switch aborts
// only when no name resolves at all, since closing the front for a fully
// failed switch would discard state for nothing.
func (s *Service) Switch(systemID string, names []string) (*SwitchResult, error) {
	defer s.lockSystem(systemID)()

	resolved, unknown, err := s.resolveNames(systemID, names)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return &SwitchResult{Unknown: unknown}, fmt.Errorf("no persona matched %q: %w", strings.Join(names, ", "), ErrNotFound)
	}

	layer, err := s.store.PrimaryLayer(systemID)
	if err != nil {
		return nil, fmt.Errorf("finding primary layer: %w", err)
	}

	now := s.clock.Now()
	closed, err := s.closeActive(layer.ID, now)
	if err != nil {
		return nil, err
	}

	result := &SwitchResult{Closed: closed, Unknown: unknown}
	for _, p := range resolved {
		sh := &model.Shift{
			ID:        s.idgen.New(),
			LayerID:   layer.ID,
			Persona:   p.Ref(),
			StartTime: now,
		}
		if err := s.store.CreateShift(sh); err != nil {
			return result, fmt.Errorf("opening shift for %s: %w", p.Name, err)
		}
		result.Opened = append(result.Opened, sh)
	}

	s.logger.Info("switch", "system", systemID, "in", len(result.Opened), "out", len(closed), "unknown", len(unknown))
	return result, nil
}

// SwitchOut closes every active shift in the primary layer with no
// replacement. Calling it on an empty front is a no-op, not an error.
func (s *Service) SwitchOut(systemID string) (*SwitchResult, error) {
	defer s.lockSystem(systemID)()

	layer, err := s.store.PrimaryLayer(systemID)
	if err != nil {
		return nil, fmt.Errorf("finding primary layer: %w", err)
	}
	closed, err := s.closeActive(layer.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if len(closed) > 0 {
		s.logger.Info("switch out", "system", systemID, "closed", len(closed))
	}
	return &SwitchResult{Closed: closed}, nil
}

// Toggle flips fronting state per named persona: active personas switch out,
// inactive ones switch in. An XOR over the current active set.
func (s *Service) Toggle(systemID string, names []string) (*SwitchResult, error) {
	defer s.lockSystem(systemID)()

	resolved, unknown, err := s.resolveNames(systemID, names)
	if err != nil {
		return nil, err
	}

	layer, err := s.store.PrimaryLayer(systemID)
	if err != nil {
		return nil, fmt.Errorf("finding primary layer: %w", err)
	}
	active, err := s.store.ActiveShifts(layer.ID)
	if err != nil {
		return nil, fmt.Errorf("listing active shifts: %w", err)
	}
	activeByKey := make(map[string]*model.Shift, len(active))
	for _, sh := range active {
		activeByKey[sh.Persona.Key()] = sh
	}

	now := s.clock.Now()
	result := &SwitchResult{Unknown: unknown}
	for _, p := range resolved {
		if sh, ok := activeByKey[p.Ref().Key()]; ok {
			if err := s.store.EndShift(sh.ID, now); err != nil {
				return result, fmt.Errorf("ending shift for %s: %w", p.Name, err)
			}
			result.Closed = append(result.Closed, sh)
			continue
		}
		sh := &model.Shift{
			ID:        s.idgen.New(),
			LayerID:   layer.ID,
			Persona:   p.Ref(),
			StartTime: now,
		}
		if err := s.store.CreateShift(sh); err != nil {
			return result, fmt.Errorf("opening shift for %s: %w", p.Name, err)
		}
		result.Opened = append(result.Opened, sh)
	}
	return result, nil
}

// AddFronter opens a shift for one persona without touching the rest of the
// front. Fails if the persona is already fronting.
func (s *Service) AddFronter(systemID, name string) (*model.Shift, error) {
	defer s.lockSystem(systemID)()

	p, err := s.findPersona(systemID, name)
	if err != nil {
		return nil, err
	}
	layer, err := s.store.PrimaryLayer(systemID)
	if err != nil {
		return nil, fmt.Errorf("finding primary layer: %w", err)
	}
	active, err := s.store.ActiveShifts(layer.ID)
	if err != nil {
		return nil, fmt.Errorf("listing active shifts: %w", err)
	}
	for _, sh := range active {
		if sh.Persona == p.Ref() {
			return nil, fmt.Errorf("%s is already fronting: %w", p.Name, ErrValidation)
		}
	}

	sh := &model.Shift{
		ID:        s.idgen.New(),
		LayerID:   layer.ID,
		Persona:   p.Ref(),
		StartTime: s.clock.Now(),
	}
	if err := s.store.CreateShift(sh); err != nil {
		return nil, fmt.Errorf("opening shift: %w", err)
	}
	return sh, nil
}

// RemoveFronter ends the active shift of one persona without touching the
// rest of the front. Fails if the persona is not fronting.
func (s *Service) RemoveFronter(systemID, name string) error {
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
	for _, sh := range active {
		if sh.Persona == p.Ref() {
			if err := s.store.EndShift(sh.ID, s.clock.Now()); err != nil {
				return fmt.Errorf("ending shift: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("%s is not fronting: %w", p.Name, ErrValidation)
}

// SetStatus annotates a fronting persona's shift. Any open status span on the
// shift is closed first; spans never overlap within one shift.
func (s *Service) SetStatus(systemID, name, text string, visible bool) (*model.Status, error) {
	defer s.lockSystem(systemID)()

	p, err := s.findPersona(systemID, name)
	if err != nil {
		return nil, err
	}
	layer, err := s.store.PrimaryLayer(systemID)
	if err != nil {
		return nil, fmt.Errorf("finding primary layer: %w", err)
	}
	active, err := s.store.ActiveShifts(layer.ID)
	if err != nil {
		return nil, fmt.Errorf("listing active shifts: %w", err)
	}

	now := s.clock.Now()
	for _, sh := range active {
		if sh.Persona != p.Ref() {
			continue
		}
		for _, st := range sh.Statuses {
			if st.EndTime == nil {
				if err := s.store.EndStatus(st.ID, now); err != nil {
					return nil, fmt.Errorf("closing previous status: %w", err)
				}
			}
		}
		st := &model.Status{
			ID:        s.idgen.New(),
			ShiftID:   sh.ID,
			Text:      text,
			Visible:   visible,
			StartTime: now,
		}
		if err := s.store.AddStatus(st); err != nil {
			return nil, fmt.Errorf("adding status: %w", err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("%s is not fronting: %w", p.Name, ErrValidation)
}

// History returns all shifts of the primary layer, oldest first.
func (s *Service) History(systemID string) ([]*model.Shift, error) {
	layer, err := s.store.PrimaryLayer(systemID)
	if err != nil {
		return nil, fmt.Errorf("finding primary layer: %w", err)
	}
	shifts, err := s.store.ListShifts(layer.ID)
	if err != nil {
		return nil, fmt.Errorf("listing shifts: %w", err)
	}
	return shifts, nil
}

// DeleteLatestHistory discards the primary layer's shift records. This is
// destructive (records are removed, not ended) and requires confirmation.
func (s *Service) DeleteLatestHistory(systemID string, confirm bool) error {
	if !confirm {
		return fmt.Errorf("deleting front history is destructive: %w", ErrConfirmRequired)
	}
	defer s.lockSystem(systemID)()

	layer, err := s.store.PrimaryLayer(systemID)
	if err != nil {
		return fmt.Errorf("finding primary layer: %w", err)
	}
	if err := s.store.ClearLayerShifts(layer.ID); err != nil {
		return fmt.Errorf("clearing layer shifts: %w", err)
	}
	s.logger.Warn("front layer history deleted", "system", systemID, "layer", layer.ID)
	return nil
}

// DeleteAllHistory resets the entire front structure to one empty default
// layer. Requires confirmation.
func (s *Service) DeleteAllHistory(systemID string, confirm bool) error {
	if !confirm {
		return fmt.Errorf("resetting the front is destructive: %w", ErrConfirmRequired)
	}
	defer s.lockSystem(systemID)()

	if err := s.store.ResetFront(systemID); err != nil {
		return fmt.Errorf("resetting front: %w", err)
	}
	s.logger.Warn("front reset", "system", systemID)
	return nil
}

// closeActive ends all open shifts in a layer at time t and returns them.
func (s *Service) closeActive(layerID string, t time.Time) ([]*model.Shift, error) {
	active, err := s.store.ActiveShifts(layerID)
	if err != nil {
		return nil, fmt.Errorf("listing active shifts: %w", err)
	}
	for _, sh := range active {
		if err := s.store.EndShift(sh.ID, t); err != nil {
			return nil, fmt.Errorf("ending shift: %w", err)
		}
	}
	return active, nil
}

// resolveNames resolves persona names, deduplicating by persona, and
// partitions them into found personas and unknown names.
func (s *Service) resolveNames(systemID string, names []string) ([]*model.Persona, []string, error) {
	var resolved []*model.Persona
	var unknown []string
	seen := make(map[string]bool)
	for _, name := range names {
		p, err := s.store.FindPersonaByName(systemID, name)
		if err != nil {
			return nil, nil, fmt.Errorf("finding persona %q: %w", name, err)
		}
		if p == nil {
			unknown = append(unknown, name)
			continue
		}
		if seen[p.Ref().Key()] {
			continue
		}
		seen[p.Ref().Key()] = true
		resolved = append(resolved, p)
	}
	return resolved, unknown, nil
}
