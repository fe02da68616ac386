package export_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"plurald/internal/export"
	"plurald/internal/proxy"
	"plurald/internal/store"
	"plurald/internal/testutil"
)

// seedEnv builds a system with two alters, a closed front span with a
// status, and an open front span, so an archive exercises every section.
func seedEnv(t *testing.T) (*testutil.TestEnv, string) {
	t.Helper()
	env := testutil.NewTestEnv(t)
	sys := env.SeedSystem(t, "owner-1", "The Lighthouse", "Luna", "Rex")

	if _, err := env.Service.Switch(sys.ID, []string{"Luna"}); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}
	if _, err := env.Service.SetStatus(sys.ID, "Luna", "studying", true); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	env.Clock.Advance(2 * time.Hour)
	if _, err := env.Service.Switch(sys.ID, []string{"Rex"}); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}
	return env, sys.ID
}

func TestRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name       string
		passphrase string
	}{
		{"plain", ""},
		{"encrypted", "correct horse battery staple"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env, sysID := seedEnv(t)

			var buf bytes.Buffer
			if err := export.Write(env.Store, sysID, &buf, tc.passphrase); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			dst := store.NewMemoryStore()
			restored, err := export.Read(dst, &buf, "owner-2", tc.passphrase)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}

			if restored.OwnerUserID != "owner-2" {
				t.Errorf("OwnerUserID = %q, want owner-2", restored.OwnerUserID)
			}
			if restored.Name != "The Lighthouse" {
				t.Errorf("Name = %q, want The Lighthouse", restored.Name)
			}

			personas, err := dst.ListPersonas(restored.ID)
			if err != nil {
				t.Fatalf("ListPersonas() error = %v", err)
			}
			if len(personas) != 2 {
				t.Fatalf("restored %d personas, want 2", len(personas))
			}
			if personas[0].Name != "Luna" || personas[1].Name != "Rex" {
				t.Errorf("persona names = %q, %q", personas[0].Name, personas[1].Name)
			}
			if len(personas[0].Tags) != 1 {
				t.Errorf("Luna has %d tags, want 1", len(personas[0].Tags))
			}

			primary, err := dst.PrimaryLayer(restored.ID)
			if err != nil {
				t.Fatalf("PrimaryLayer() error = %v", err)
			}
			shifts, err := dst.ListShifts(primary.ID)
			if err != nil {
				t.Fatalf("ListShifts() error = %v", err)
			}
			if len(shifts) != 2 {
				t.Fatalf("restored %d shifts, want 2", len(shifts))
			}

			var open, closed int
			for _, sh := range shifts {
				if sh.Active() {
					open++
				} else {
					closed++
				}
			}
			if open != 1 || closed != 1 {
				t.Errorf("open = %d, closed = %d, want 1 open and 1 closed", open, closed)
			}

			var statuses int
			for _, sh := range shifts {
				statuses += len(sh.Statuses)
			}
			if statuses != 1 {
				t.Errorf("restored %d statuses, want 1", statuses)
			}
		})
	}
}

func TestReadRefusesExistingOwner(t *testing.T) {
	env, sysID := seedEnv(t)

	var buf bytes.Buffer
	if err := export.Write(env.Store, sysID, &buf, ""); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// owner-1 already has the seeded system in this store.
	if _, err := export.Read(env.Store, &buf, "owner-1", ""); !errors.Is(err, proxy.ErrValidation) {
		t.Errorf("Read() error = %v, want ErrValidation", err)
	}
}

func TestReadWrongPassphrase(t *testing.T) {
	env, sysID := seedEnv(t)

	var buf bytes.Buffer
	if err := export.Write(env.Store, sysID, &buf, "right"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	dst := store.NewMemoryStore()
	if _, err := export.Read(dst, &buf, "owner-2", "wrong"); err == nil {
		t.Error("Read() with wrong passphrase succeeded, want error")
	}
}

func TestWriteUnknownSystem(t *testing.T) {
	env := testutil.NewTestEnv(t)
	var buf bytes.Buffer
	if err := export.Write(env.Store, "nope", &buf, ""); !errors.Is(err, proxy.ErrNotFound) {
		t.Errorf("Write() error = %v, want ErrNotFound", err)
	}
}
