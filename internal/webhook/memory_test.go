package webhook_test

import (
	"context"
	"errors"
	"testing"

	"plurald/internal/proxy"
	"plurald/internal/webhook"
)

func TestMemoryExecutor(t *testing.T) {
	ctx := context.Background()

	t.Run("send assigns sequential ids", func(t *testing.T) {
		e := webhook.NewMemoryExecutor()

		id1, err := e.Send(ctx, "chan-1", "Luna", "", "first")
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		id2, err := e.Send(ctx, "chan-1", "Rex", "", "second")
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if id1 == id2 {
			t.Errorf("ids collide: %s", id1)
		}
		if e.Count() != 2 {
			t.Errorf("Count() = %d, want 2", e.Count())
		}

		msg := e.Message(id1)
		if msg == nil || msg.DisplayName != "Luna" || msg.Content != "first" {
			t.Errorf("Message(%s) = %+v", id1, msg)
		}
	})

	t.Run("edit applies only the provided fields", func(t *testing.T) {
		e := webhook.NewMemoryExecutor()
		id, _ := e.Send(ctx, "chan-1", "Luna", "http://a/luna.png", "draft")

		content := "final"
		newID, err := e.Edit(ctx, "chan-1", id, proxy.EditRequest{Content: &content})
		if err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		if newID != id {
			t.Errorf("Edit() id = %s, want unchanged %s", newID, id)
		}

		msg := e.Message(id)
		if msg.Content != "final" {
			t.Errorf("content = %q, want final", msg.Content)
		}
		if msg.DisplayName != "Luna" || msg.AvatarURL != "http://a/luna.png" {
			t.Errorf("identity changed: %+v", msg)
		}
	})

	t.Run("operations on missing messages return ErrExternalGone", func(t *testing.T) {
		e := webhook.NewMemoryExecutor()

		if _, err := e.Edit(ctx, "chan-1", "nope", proxy.EditRequest{}); !errors.Is(err, proxy.ErrExternalGone) {
			t.Errorf("Edit() error = %v, want ErrExternalGone", err)
		}
		if err := e.Delete(ctx, "chan-1", "nope"); !errors.Is(err, proxy.ErrExternalGone) {
			t.Errorf("Delete() error = %v, want ErrExternalGone", err)
		}
	})

	t.Run("delete removes the message", func(t *testing.T) {
		e := webhook.NewMemoryExecutor()
		id, _ := e.Send(ctx, "chan-1", "Luna", "", "bye")

		if err := e.Delete(ctx, "chan-1", id); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if e.Message(id) != nil {
			t.Error("message survived delete")
		}
		if e.Count() != 0 {
			t.Errorf("Count() = %d, want 0", e.Count())
		}
	})
}
