package media_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"plurald/internal/media"
)

// withStores runs a test against every local Store implementation.
func withStores(t *testing.T, fn func(t *testing.T, st media.Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		fn(t, media.NewMemoryStore())
	})

	t.Run("filesystem", func(t *testing.T) {
		st, err := media.NewFileSystemStore(t.TempDir(), "https://cdn.example.com/media")
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
		fn(t, st)
	})
}

func TestStore_PutGet(t *testing.T) {
	withStores(t, func(t *testing.T, st media.Store) {
		ctx := context.Background()
		body := []byte("not really a png")

		if err := st.Put(ctx, "avatars/luna.png", bytes.NewReader(body), int64(len(body)), "image/png"); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		var out bytes.Buffer
		if err := st.Get(ctx, "avatars/luna.png", &out); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !bytes.Equal(out.Bytes(), body) {
			t.Errorf("Get() = %q, want %q", out.Bytes(), body)
		}
	})
}

func TestStore_PutOverwrites(t *testing.T) {
	withStores(t, func(t *testing.T, st media.Store) {
		ctx := context.Background()

		if err := st.Put(ctx, "avatars/luna.png", strings.NewReader("old"), 3, "image/png"); err != nil {
			t.Fatalf("first Put() error = %v", err)
		}
		if err := st.Put(ctx, "avatars/luna.png", strings.NewReader("newer"), 5, "image/png"); err != nil {
			t.Fatalf("second Put() error = %v", err)
		}

		var out bytes.Buffer
		if err := st.Get(ctx, "avatars/luna.png", &out); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if out.String() != "newer" {
			t.Errorf("Get() = %q, want newer", out.String())
		}
	})
}

func TestStore_PutSizeMismatch(t *testing.T) {
	withStores(t, func(t *testing.T, st media.Store) {
		ctx := context.Background()

		if err := st.Put(ctx, "avatars/luna.png", strings.NewReader("short"), 100, "image/png"); err == nil {
			t.Error("Put() with wrong size succeeded, want error")
		}
		var out bytes.Buffer
		if err := st.Get(ctx, "avatars/luna.png", &out); !errors.Is(err, media.ErrNotFound) {
			t.Errorf("Get() after failed Put error = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_GetMissing(t *testing.T) {
	withStores(t, func(t *testing.T, st media.Store) {
		var out bytes.Buffer
		if err := st.Get(context.Background(), "avatars/nobody.png", &out); !errors.Is(err, media.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_Delete(t *testing.T) {
	withStores(t, func(t *testing.T, st media.Store) {
		ctx := context.Background()

		if err := st.Put(ctx, "avatars/luna.png", strings.NewReader("x"), 1, "image/png"); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := st.Delete(ctx, "avatars/luna.png"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		var out bytes.Buffer
		if err := st.Get(ctx, "avatars/luna.png", &out); !errors.Is(err, media.ErrNotFound) {
			t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
		}

		// Deleting again is a no-op.
		if err := st.Delete(ctx, "avatars/luna.png"); err != nil {
			t.Errorf("second Delete() error = %v", err)
		}
	})
}

func TestFileSystemStore_RejectsTraversal(t *testing.T) {
	st, err := media.NewFileSystemStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	if err := st.Put(context.Background(), "../escape.png", strings.NewReader("x"), 1, "image/png"); err == nil {
		t.Error("Put() with traversal key succeeded, want error")
	}
}

func TestFileSystemStore_URL(t *testing.T) {
	st, err := media.NewFileSystemStore(t.TempDir(), "https://cdn.example.com/media/")
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	if got := st.URL("avatars/luna.png"); got != "https://cdn.example.com/media/avatars/luna.png" {
		t.Errorf("URL() = %q", got)
	}
}
