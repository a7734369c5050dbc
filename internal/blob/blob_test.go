package blob

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yiblet/clipvault/internal/store"
)

func setupDir(t *testing.T) *Dir {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "large_files"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func TestWriteReadRoundTrip(t *testing.T) {
	d := setupDir(t)
	id := uuid.New()
	payload := bytes.Repeat([]byte("abc123\x00"), 1000)

	if err := d.Write(id, payload); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := d.Read(id)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("read payload differs from written payload")
	}
	if !d.Exists(id) {
		t.Error("Exists() = false after write")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	d := setupDir(t)
	if err := d.Write(uuid.New(), []byte("data")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	entries, err := os.ReadDir(d.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".clipvault-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
		if !strings.HasSuffix(e.Name(), ".dat") {
			t.Errorf("unexpected file in blob dir: %s", e.Name())
		}
	}
}

func TestReadMissingIsContentMissing(t *testing.T) {
	d := setupDir(t)
	_, err := d.Read(uuid.New())
	if !errors.Is(err, store.ErrContentMissing) {
		t.Errorf("Read() error = %v, want ErrContentMissing", err)
	}
}

func TestRemove(t *testing.T) {
	d := setupDir(t)
	id := uuid.New()
	if err := d.Write(id, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := d.Remove(id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if d.Exists(id) {
		t.Error("blob still exists after Remove")
	}

	// Removing an already-absent blob is not an error.
	if err := d.Remove(id); err != nil {
		t.Errorf("Remove() of absent blob error = %v", err)
	}
}

func TestWriteOverwrites(t *testing.T) {
	d := setupDir(t)
	id := uuid.New()
	if err := d.Write(id, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := d.Write(id, []byte("second")); err != nil {
		t.Fatal(err)
	}
	got, err := d.Read(id)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("Read() = %q, want %q", got, "second")
	}
}
