package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveCreatesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key := "malformed/mood/2026-03-14/abc.txt"
	if err := store.Save(context.Background(), key, strings.NewReader("not json")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "not json" {
		t.Fatalf("unexpected content %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, key+".part")); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestSaveKeepsKeysInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "archive"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.Save(context.Background(), "../../escape.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "archive", "escape.txt")); err != nil {
		t.Fatalf("expected file inside base: %v", err)
	}
	if err := store.Save(context.Background(), " ", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
