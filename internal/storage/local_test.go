package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photomesh/internal/config"
)

func TestLocalRoundTrip(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	scratch := t.TempDir()
	src := filepath.Join(scratch, "scan.zip")
	payload := []byte("not really a zip, but bytes are bytes")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	ctx := context.Background()
	if err := store.Store(ctx, "photos", "jobs/scan.zip", src, "application/zip"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	dest := filepath.Join(scratch, "fetched.zip")
	if err := store.Fetch(ctx, "photos", "jobs/scan.zip", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read fetched: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatal("fetched bytes differ from stored bytes")
	}
}

func TestLocalFetchMissingObject(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	err = store.Fetch(context.Background(), "photos", "absent.zip", filepath.Join(t.TempDir(), "out"))
	if err == nil {
		t.Fatal("expected error for missing object")
	}
	if !strings.Contains(err.Error(), "object not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	local, err := New(config.Storage{Provider: "local", LocalDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New(local): %v", err)
	}
	if _, ok := local.(*Local); !ok {
		t.Fatalf("expected *Local, got %T", local)
	}

	if _, err := New(config.Storage{Provider: "gopher"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewS3RequiresEndpoint(t *testing.T) {
	if _, err := New(config.Storage{Provider: "s3"}); err == nil {
		t.Fatal("expected error for s3 provider without endpoint")
	}
}
