package proxy_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"plurald/internal/model"
	"plurald/internal/proxy"
	"plurald/internal/testutil"
)

func TestService_CreateSystem(t *testing.T) {
	t.Run("one system per user", func(t *testing.T) {
		env := testutil.NewTestEnv(t)

		if _, err := env.Service.CreateSystem("user-1", "Orchard"); err != nil {
			t.Fatalf("CreateSystem() error = %v", err)
		}
		_, err := env.Service.CreateSystem("user-1", "Second")
		if !errors.Is(err, proxy.ErrValidation) {
			t.Errorf("second CreateSystem() error = %v, want ErrValidation", err)
		}
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		env := testutil.NewTestEnv(t)

		_, err := env.Service.CreateSystem("user-1", "   ")
		if !errors.Is(err, proxy.ErrValidation) {
			t.Errorf("CreateSystem() error = %v, want ErrValidation", err)
		}
	})

	t.Run("starts with autoproxy off and the default layout", func(t *testing.T) {
		env := testutil.NewTestEnv(t)

		sys, err := env.Service.CreateSystem("user-1", "Orchard")
		if err != nil {
			t.Fatalf("CreateSystem() error = %v", err)
		}
		if sys.Proxy.Style != model.StyleOff {
			t.Errorf("style = %q, want off", sys.Proxy.Style)
		}
		if sys.Proxy.Layout != model.DefaultLayout {
			t.Errorf("layout = %q, want %q", sys.Proxy.Layout, model.DefaultLayout)
		}
	})
}

func TestService_CreatePersona(t *testing.T) {
	t.Run("rejects an unknown kind", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		sys := env.SeedSystem(t, "user-1", "Orchard")

		_, err := env.Service.CreatePersona(sys.ID, "spirit", "Luna", nil)
		if !errors.Is(err, proxy.ErrValidation) {
			t.Errorf("CreatePersona() error = %v, want ErrValidation", err)
		}
	})

	t.Run("rejects a bad tag pattern", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		sys := env.SeedSystem(t, "user-1", "Orchard")

		_, err := env.Service.CreatePersona(sys.ID, model.KindAlter, "Luna", []string{"no placeholder"})
		if !errors.Is(err, proxy.ErrValidation) {
			t.Errorf("CreatePersona() error = %v, want ErrValidation", err)
		}
	})

	t.Run("lists alters before states and groups", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		sys := env.SeedSystem(t, "user-1", "Orchard")

		for _, in := range []struct {
			kind model.PersonaKind
			name string
		}{
			{model.KindGroup, "The Kids"},
			{model.KindAlter, "Luna"},
			{model.KindState, "Little Luna"},
			{model.KindAlter, "Rex"},
		} {
			if _, err := env.Service.CreatePersona(sys.ID, in.kind, in.name, nil); err != nil {
				t.Fatalf("CreatePersona(%s) error = %v", in.name, err)
			}
		}

		personas, err := env.Service.ListPersonas(sys.ID)
		if err != nil {
			t.Fatalf("ListPersonas() error = %v", err)
		}
		var got []string
		for _, p := range personas {
			got = append(got, p.Name)
		}
		want := []string{"Luna", "Rex", "Little Luna", "The Kids"}
		if len(got) != len(want) {
			t.Fatalf("personas = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("personas[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})
}

func TestService_ModifyPersona(t *testing.T) {
	strptr := func(s string) *string { return &s }

	t.Run("applies only the set fields", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		sys := env.SeedSystem(t, "user-1", "Orchard", "Luna")

		p, err := env.Service.ModifyPersona(sys.ID, "Luna", proxy.PersonaUpdate{
			DisplayName: strptr("Moonlight"),
			Pronouns:    strptr("she/her"),
		})
		if err != nil {
			t.Fatalf("ModifyPersona() error = %v", err)
		}
		if p.DisplayName != "Moonlight" || p.Pronouns != "she/her" {
			t.Errorf("persona = %+v", p)
		}
		if len(p.Tags) != 1 {
			t.Errorf("tags = %v, want the seeded tag untouched", p.Tags)
		}
	})

	t.Run("replaces the tag list", func(t *testing.T) {
		ctx := context.Background()
		env := testutil.NewTestEnv(t)
		sys := env.SeedSystem(t, "user-1", "Orchard", "Luna")

		tags := []string{"[text]"}
		if _, err := env.Service.ModifyPersona(sys.ID, "Luna", proxy.PersonaUpdate{Tags: &tags}); err != nil {
			t.Fatalf("ModifyPersona() error = %v", err)
		}

		res, err := env.Service.ProxyMessage(ctx, "user-1", "chan-1", "[hello]")
		if err != nil {
			t.Fatalf("ProxyMessage() error = %v", err)
		}
		if !res.Proxied || res.Persona.Name != "Luna" {
			t.Errorf("new tag did not match: %+v", res)
		}
	})

	t.Run("rejects a bad tag pattern", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		sys := env.SeedSystem(t, "user-1", "Orchard", "Luna")

		tags := []string{"no placeholder"}
		_, err := env.Service.ModifyPersona(sys.ID, "Luna", proxy.PersonaUpdate{Tags: &tags})
		if !errors.Is(err, proxy.ErrValidation) {
			t.Errorf("ModifyPersona() error = %v, want ErrValidation", err)
		}
	})

	t.Run("unknown persona is ErrNotFound", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		sys := env.SeedSystem(t, "user-1", "Orchard")

		_, err := env.Service.ModifyPersona(sys.ID, "Nobody", proxy.PersonaUpdate{DisplayName: strptr("x")})
		if !errors.Is(err, proxy.ErrNotFound) {
			t.Errorf("ModifyPersona() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("display name and avatar flow into delivery", func(t *testing.T) {
		ctx := context.Background()
		env := testutil.NewTestEnv(t)
		sys := env.SeedSystem(t, "user-1", "Orchard", "Luna")

		_, err := env.Service.ModifyPersona(sys.ID, "Luna", proxy.PersonaUpdate{
			DisplayName: strptr("Moonlight"),
			AvatarURL:   strptr("https://cdn.example.com/luna.png"),
		})
		if err != nil {
			t.Fatalf("ModifyPersona() error = %v", err)
		}

		res, err := env.Service.ProxyMessage(ctx, "user-1", "chan-1", "luna: hello")
		if err != nil {
			t.Fatalf("ProxyMessage() error = %v", err)
		}
		msg := env.Executor.Message(res.ExternalID)
		if msg == nil {
			t.Fatal("delivered message not found")
		}
		if msg.DisplayName != "Moonlight" {
			t.Errorf("DisplayName = %q, want Moonlight", msg.DisplayName)
		}
		if msg.AvatarURL != "https://cdn.example.com/luna.png" {
			t.Errorf("AvatarURL = %q", msg.AvatarURL)
		}
	})
}

func TestService_DeletePersona(t *testing.T) {
	t.Run("ends the persona's active shift first", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		sys := env.SeedSystem(t, "user-1", "Orchard", "Luna", "Rex")
		if _, err := env.Service.Switch(sys.ID, []string{"Luna", "Rex"}); err != nil {
			t.Fatalf("Switch() error = %v", err)
		}

		if err := env.Service.DeletePersona(sys.ID, "Luna"); err != nil {
			t.Fatalf("DeletePersona() error = %v", err)
		}

		fronters, _ := env.Service.Fronters(sys.ID)
		if len(fronters) != 1 || fronters[0].Persona == nil || fronters[0].Persona.Name != "Rex" {
			t.Errorf("front after deletion = %v, want just Rex", fronters)
		}
	})

	t.Run("unknown persona is ErrNotFound", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		sys := env.SeedSystem(t, "user-1", "Orchard")

		err := env.Service.DeletePersona(sys.ID, "Nobody")
		if !errors.Is(err, proxy.ErrNotFound) {
			t.Errorf("DeletePersona() error = %v, want ErrNotFound", err)
		}
	})
}

func TestService_SetAutoproxyStyle(t *testing.T) {
	env := testutil.NewTestEnv(t)
	sys := env.SeedSystem(t, "user-1", "Orchard", "Luna")

	t.Run("accepts the built-in styles", func(t *testing.T) {
		for _, style := range []string{model.StyleOff, model.StyleFront, model.StyleLatch} {
			if err := env.Service.SetAutoproxyStyle(sys.ID, style); err != nil {
				t.Errorf("SetAutoproxyStyle(%q) error = %v", style, err)
			}
		}
	})

	t.Run("last is stored as latch", func(t *testing.T) {
		if err := env.Service.SetAutoproxyStyle(sys.ID, model.StyleLast); err != nil {
			t.Fatalf("SetAutoproxyStyle(last) error = %v", err)
		}
		got, _ := env.Service.SystemByOwner("user-1")
		if got.Proxy.Style != model.StyleLatch {
			t.Errorf("style = %q, want latch", got.Proxy.Style)
		}
	})

	t.Run("pinned name must exist", func(t *testing.T) {
		if err := env.Service.SetAutoproxyStyle(sys.ID, "Luna"); err != nil {
			t.Errorf("SetAutoproxyStyle(Luna) error = %v", err)
		}
		err := env.Service.SetAutoproxyStyle(sys.ID, "Nobody")
		if !errors.Is(err, proxy.ErrNotFound) {
			t.Errorf("SetAutoproxyStyle(Nobody) error = %v, want ErrNotFound", err)
		}
	})
}

func TestService_DeleteSystem(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewTestEnv(t)
	sys := env.SeedSystem(t, "user-1", "Orchard", "Luna")

	res, err := env.Service.ProxyMessage(ctx, "user-1", "chan-1", "luna: before the end")
	if err != nil {
		t.Fatalf("ProxyMessage() error = %v", err)
	}

	if err := env.Service.DeleteSystem(sys.ID, false); !errors.Is(err, proxy.ErrConfirmRequired) {
		t.Fatalf("unconfirmed DeleteSystem() error = %v, want ErrConfirmRequired", err)
	}
	if err := env.Service.DeleteSystem(sys.ID, true); err != nil {
		t.Fatalf("DeleteSystem() error = %v", err)
	}

	if _, err := env.Service.SystemByOwner("user-1"); !errors.Is(err, proxy.ErrNotFound) {
		t.Errorf("SystemByOwner() after delete error = %v, want ErrNotFound", err)
	}

	// Message records outlive the system; their persona degrades to unknown.
	rec, p, err := env.Service.LookupMessage(res.ExternalID)
	if err != nil {
		t.Fatalf("LookupMessage() after system delete error = %v", err)
	}
	if rec == nil {
		t.Error("record = nil, want preserved")
	}
	if p != nil {
		t.Errorf("persona = %v, want nil", p)
	}
}

func TestService_GuildSettings(t *testing.T) {
	t.Run("unknown guilds default to proxying enabled", func(t *testing.T) {
		env := testutil.NewTestEnv(t)

		g, err := env.Service.GuildSettings("guild-1")
		if err != nil {
			t.Fatalf("GuildSettings() error = %v", err)
		}
		if !g.ProxyEnabled || g.ID != "guild-1" {
			t.Errorf("GuildSettings() = %+v", g)
		}
	})

	t.Run("settings round trip", func(t *testing.T) {
		env := testutil.NewTestEnv(t)

		in := &model.Guild{ID: "guild-1", ProxyEnabled: false, LogChannelID: "log-1"}
		if err := env.Service.SetGuildSettings(in); err != nil {
			t.Fatalf("SetGuildSettings() error = %v", err)
		}

		g, err := env.Service.GuildSettings("guild-1")
		if err != nil {
			t.Fatalf("GuildSettings() error = %v", err)
		}
		if g.ProxyEnabled || g.LogChannelID != "log-1" {
			t.Errorf("GuildSettings() = %+v", g)
		}
	})

	t.Run("rejects an empty guild id", func(t *testing.T) {
		env := testutil.NewTestEnv(t)

		err := env.Service.SetGuildSettings(&model.Guild{ID: " "})
		if !errors.Is(err, proxy.ErrValidation) {
			t.Errorf("SetGuildSettings() error = %v, want ErrValidation", err)
		}
	})
}

func TestService_ProxyMessageInGuild(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewTestEnv(t)
	env.SeedSystem(t, "user-1", "Orchard", "Luna")

	res, err := env.Service.ProxyMessageInGuild(ctx, "user-1", "guild-1", "chan-1", "luna: hello")
	if err != nil {
		t.Fatalf("ProxyMessageInGuild() error = %v", err)
	}
	if !res.Proxied {
		t.Fatal("message not proxied in a guild with default settings")
	}

	if err := env.Service.SetGuildSettings(&model.Guild{ID: "guild-1", ProxyEnabled: false}); err != nil {
		t.Fatalf("SetGuildSettings() error = %v", err)
	}

	// Even an explicit tag is left alone once the guild disables proxying.
	res, err = env.Service.ProxyMessageInGuild(ctx, "user-1", "guild-1", "chan-1", "luna: hello again")
	if err != nil {
		t.Fatalf("ProxyMessageInGuild() after disable error = %v", err)
	}
	if res.Proxied {
		t.Error("message proxied in a guild with proxying disabled")
	}
	if env.Executor.Count() != 1 {
		t.Errorf("delivered messages = %d, want 1", env.Executor.Count())
	}
}

func TestService_GuildProxyLog(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewTestEnv(t)
	env.SeedSystem(t, "user-1", "Orchard", "Luna")

	guild := &model.Guild{ID: "guild-1", ProxyEnabled: true, LogChannelID: "log-1"}
	if err := env.Service.SetGuildSettings(guild); err != nil {
		t.Fatalf("SetGuildSettings() error = %v", err)
	}

	res, err := env.Service.ProxyMessageInGuild(ctx, "user-1", "guild-1", "chan-1", "luna: hello")
	if err != nil {
		t.Fatalf("ProxyMessageInGuild() error = %v", err)
	}
	if !res.Proxied {
		t.Fatal("message not proxied")
	}

	entries := env.Executor.MessagesIn("log-1")
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if !strings.Contains(entries[0].Content, res.ExternalID) || !strings.Contains(entries[0].Content, "user-1") {
		t.Errorf("log entry = %q, want the message id and author in it", entries[0].Content)
	}

	t.Run("pass-through posts no entry", func(t *testing.T) {
		res, err := env.Service.ProxyMessageInGuild(ctx, "user-1", "guild-1", "chan-1", "plain message")
		if err != nil {
			t.Fatalf("ProxyMessageInGuild() error = %v", err)
		}
		if res.Proxied {
			t.Fatal("untagged message proxied")
		}
		if got := env.Executor.MessagesIn("log-1"); len(got) != 1 {
			t.Errorf("log entries = %d, want still 1", len(got))
		}
	})

	t.Run("no log channel, no entry", func(t *testing.T) {
		res, err := env.Service.ProxyMessageInGuild(ctx, "user-1", "guild-2", "chan-2", "luna: hi")
		if err != nil {
			t.Fatalf("ProxyMessageInGuild() error = %v", err)
		}
		if !res.Proxied {
			t.Fatal("message not proxied")
		}
		if got := env.Executor.MessagesIn("log-1"); len(got) != 1 {
			t.Errorf("log entries = %d, want still 1", len(got))
		}
	})
}
