package proxy_test

import (
	"testing"

	"plurald/internal/model"
	"plurald/internal/proxy"
)

func TestRenderLayout(t *testing.T) {
	sys := &model.System{
		Name: "The Orchard",
		Tags: []string{"🌱", "| system"},
	}
	p := &model.Persona{
		Name:     "Luna",
		Pronouns: "she/her",
		Caution:  "no DMs",
	}

	tests := []struct {
		name   string
		layout string
		want   string
	}{
		{"empty layout falls back to name", "", "Luna"},
		{"name and system name", "{name} | {sys-name}", "Luna | The Orchard"},
		{"pronouns and caution", "{name} ({pronouns}) {caution}", "Luna (she/her) no DMs"},
		{"placeholders are case-insensitive", "{NAME} {Sys-Name}", "Luna The Orchard"},
		{"tag indexes are 1-based", "{name} {tag1}", "Luna 🌱"},
		{"second tag", "{name} {tag2}", "Luna | system"},
		{"out of range tag renders empty", "{name}{tag9}", "Luna"},
		{"unknown placeholder passes through", "{name} {vibe}", "Luna {vibe}"},
		{"literal text is preserved", "~ {name} ~", "~ Luna ~"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := proxy.RenderLayout(tt.layout, p, sys); got != tt.want {
				t.Errorf("RenderLayout(%q) = %q, want %q", tt.layout, got, tt.want)
			}
		})
	}
}

func TestRenderLayoutDisplayName(t *testing.T) {
	sys := &model.System{Name: "S"}

	t.Run("display name wins over name", func(t *testing.T) {
		p := &model.Persona{Name: "Luna", DisplayName: "Moonbeam"}
		if got := proxy.RenderLayout("{name}", p, sys); got != "Moonbeam" {
			t.Errorf("RenderLayout() = %q, want Moonbeam", got)
		}
	})

	t.Run("empty display name falls back to name", func(t *testing.T) {
		p := &model.Persona{Name: "Luna"}
		if got := proxy.RenderLayout("{name}", p, sys); got != "Luna" {
			t.Errorf("RenderLayout() = %q, want Luna", got)
		}
	})
}
