package legacy

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/yiblet/clipvault/internal/blob"
	"github.com/yiblet/clipvault/internal/store"
	"github.com/yiblet/clipvault/internal/store/dbstore"
)

func setupStore(t *testing.T) store.Store {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blob.New(filepath.Join(dir, "large_files"))
	if err != nil {
		t.Fatal(err)
	}
	st, err := dbstore.Open(filepath.Join(dir, "clipvault.db"), blobs, dbstore.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func writeLegacyFile(t *testing.T, items []Item) string {
	t.Helper()
	data, err := yaml.Marshal(items)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "history.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImport(t *testing.T) {
	st := setupStore(t)
	path := writeLegacyFile(t, []Item{
		{Type: "text", Payload: []byte("oldest entry"), CreatedAt: 1000, SourceApp: "Editor"},
		{Type: "text", Payload: []byte("middle entry"), CreatedAt: 2000, IsFavorite: true},
		{Type: "file_reference", Payload: []byte("/tmp/file.txt"), CreatedAt: 3000},
	})

	n, err := Import(path, st.Records(), nil)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if n != 3 {
		t.Errorf("imported = %d, want 3", n)
	}

	// The file is removed after a successful import.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("legacy file not removed after successful import")
	}

	// Entries went through the normal insert path: positions preserve
	// the original oldest-first order.
	records, err := st.Records().Fetch(store.FetchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records", len(records))
	}
	if string(records[0].Payload) != "/tmp/file.txt" || string(records[2].Payload) != "oldest entry" {
		t.Error("imported records out of order")
	}
	if !records[1].IsFavorite {
		t.Error("favorite flag lost during import")
	}
	if records[2].SourceApp != "Editor" {
		t.Error("provenance lost during import")
	}
}

func TestImportMissingFileIsNoop(t *testing.T) {
	st := setupStore(t)
	n, err := Import(filepath.Join(t.TempDir(), "absent.yaml"), st.Records(), nil)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if n != 0 {
		t.Errorf("imported = %d, want 0", n)
	}
}

func TestImportFailureKeepsFile(t *testing.T) {
	st := setupStore(t)
	path := writeLegacyFile(t, []Item{
		{Type: "text", Payload: []byte("fine"), CreatedAt: 1000},
		{Type: "hologram", Payload: []byte("not a known type"), CreatedAt: 2000},
	})

	if _, err := Import(path, st.Records(), nil); err == nil {
		t.Fatal("expected error for unknown content type")
	}

	// The file stays for retry and debugging.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("legacy file removed despite failure: %v", err)
	}
}

func TestImportUnparseableFile(t *testing.T) {
	st := setupStore(t)
	path := filepath.Join(t.TempDir(), "history.yaml")
	if err := os.WriteFile(path, []byte("::: not yaml :::"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Import(path, st.Records(), nil); err == nil {
		t.Error("expected parse error")
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("unparseable legacy file was removed")
	}
}
