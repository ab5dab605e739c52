package local

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenRemove(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	n, err := store.SaveWithKey(ctx, "documents/1/scan.png", "image/png", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if n != int64(len("payload")) {
		t.Fatalf("expected %d bytes written, got %d", len("payload"), n)
	}

	rc, err := store.Open(ctx, "documents/1/scan.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected content: %q", data)
	}

	if err := store.Remove(ctx, "documents/1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Open(ctx, "documents/1/scan.png"); err == nil {
		t.Fatalf("expected Open to fail after Remove")
	}
}

func TestRemoveMissingKeyIsNoop(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Remove(context.Background(), "documents/999"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.SaveWithKey(ctx, "../escape", "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal key to be rejected on save")
	}
	if _, err := store.Open(ctx, "/etc/passwd"); err == nil {
		t.Fatalf("expected absolute key to be rejected on open")
	}
	if err := store.Remove(ctx, ".."); err == nil {
		t.Fatalf("expected traversal key to be rejected on remove")
	}
}
