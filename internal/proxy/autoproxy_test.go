package proxy_test

import (
	"testing"
	"time"

	"plurald/internal/model"
	"plurald/internal/proxy"
)

func system(style string, recent ...model.PersonaRef) *model.System {
	return &model.System{
		ID:   "sys-1",
		Name: "Test System",
		Proxy: model.ProxyConfig{
			Style:  style,
			Recent: recent,
		},
	}
}

func shift(ref model.PersonaRef) *model.Shift {
	return &model.Shift{
		ID:        "shift-" + ref.ID,
		Persona:   ref,
		StartTime: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestResolveAutoproxy(t *testing.T) {
	luna := persona("Luna")
	rex := persona("Rex")
	personas := []*model.Persona{luna, rex}

	t.Run("off resolves to nobody", func(t *testing.T) {
		sys := system(model.StyleOff)
		if got := proxy.ResolveAutoproxy(sys, personas, []*model.Shift{shift(luna.Ref())}); got != nil {
			t.Errorf("ResolveAutoproxy() = %v, want nil", got.Name)
		}
	})

	t.Run("empty style behaves as off", func(t *testing.T) {
		sys := system("")
		if got := proxy.ResolveAutoproxy(sys, personas, []*model.Shift{shift(luna.Ref())}); got != nil {
			t.Errorf("ResolveAutoproxy() = %v, want nil", got.Name)
		}
	})

	t.Run("front with one fronter picks them", func(t *testing.T) {
		sys := system(model.StyleFront)
		got := proxy.ResolveAutoproxy(sys, personas, []*model.Shift{shift(rex.Ref())})
		if got == nil || got.Name != "Rex" {
			t.Fatalf("ResolveAutoproxy() = %v, want Rex", got)
		}
	})

	t.Run("front with no fronters picks nobody", func(t *testing.T) {
		sys := system(model.StyleFront)
		if got := proxy.ResolveAutoproxy(sys, personas, nil); got != nil {
			t.Errorf("ResolveAutoproxy() = %v, want nil", got.Name)
		}
	})

	t.Run("front with several fronters is ambiguous", func(t *testing.T) {
		sys := system(model.StyleFront)
		active := []*model.Shift{shift(luna.Ref()), shift(rex.Ref())}
		if got := proxy.ResolveAutoproxy(sys, personas, active); got != nil {
			t.Errorf("ResolveAutoproxy() = %v, want nil", got.Name)
		}
	})

	t.Run("latch picks head of recent list", func(t *testing.T) {
		sys := system(model.StyleLatch, rex.Ref(), luna.Ref())
		got := proxy.ResolveAutoproxy(sys, personas, nil)
		if got == nil || got.Name != "Rex" {
			t.Fatalf("ResolveAutoproxy() = %v, want Rex", got)
		}
	})

	t.Run("latch with empty recent list picks nobody", func(t *testing.T) {
		sys := system(model.StyleLatch)
		if got := proxy.ResolveAutoproxy(sys, personas, nil); got != nil {
			t.Errorf("ResolveAutoproxy() = %v, want nil", got.Name)
		}
	})

	t.Run("latch head pointing at deleted persona degrades to nobody", func(t *testing.T) {
		gone := model.PersonaRef{Kind: model.KindAlter, ID: "deleted-id"}
		sys := system(model.StyleLatch, gone)
		if got := proxy.ResolveAutoproxy(sys, personas, nil); got != nil {
			t.Errorf("ResolveAutoproxy() = %v, want nil", got.Name)
		}
	})

	t.Run("pinned name resolves case-insensitively", func(t *testing.T) {
		sys := system("LUNA")
		got := proxy.ResolveAutoproxy(sys, personas, nil)
		if got == nil || got.Name != "Luna" {
			t.Fatalf("ResolveAutoproxy() = %v, want Luna", got)
		}
	})

	t.Run("pinned name of deleted persona degrades to nobody", func(t *testing.T) {
		sys := system("Ghost")
		if got := proxy.ResolveAutoproxy(sys, personas, nil); got != nil {
			t.Errorf("ResolveAutoproxy() = %v, want nil", got.Name)
		}
	})
}
