package testutil

import (
	"strings"
	"testing"

	"plurald/internal/media"
	"plurald/internal/model"
	"plurald/internal/proxy"
	"plurald/internal/store"
	"plurald/internal/webhook"
)

// TestEnv bundles a service with the fakes behind it so tests can both
// drive operations and inspect their effects.
type TestEnv struct {
	Service  *proxy.Service
	Store    *store.MemoryStore
	Executor *webhook.MemoryExecutor
	Media    *media.MemoryStore
	Clock    *StubClock
	IDs      *StubIDGenerator
}

// NewTestEnv builds a service on in-memory backends with a fixed clock
// and sequential IDs.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	st := store.NewMemoryStore()
	exec := webhook.NewMemoryExecutor()
	med := media.NewMemoryStore()
	clock := FixedClock()
	ids := NewStubIDGenerator()
	svc := proxy.NewService(st, exec, proxy.NewNopLogger(), clock, ids)
	return &TestEnv{Service: svc, Store: st, Executor: exec, Media: med, Clock: clock, IDs: ids}
}

// SeedSystem creates a system for owner plus one alter per name, each with
// a "<lowercased name>: text" prefix tag.
func (e *TestEnv) SeedSystem(t *testing.T, owner, sysName string, names ...string) *model.System {
	t.Helper()
	sys, err := e.Service.CreateSystem(owner, sysName)
	if err != nil {
		t.Fatalf("CreateSystem() error = %v", err)
	}
	for _, name := range names {
		pattern := strings.ToLower(name) + ": " + model.TagPlaceholder
		if _, err := e.Service.CreatePersona(sys.ID, model.KindAlter, name, []string{pattern}); err != nil {
			t.Fatalf("CreatePersona(%q) error = %v", name, err)
		}
	}
	return sys
}
