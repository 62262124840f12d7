package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDiskStoreSaveAndOpen(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	payload := "fake jpeg bytes"
	path, size, err := store.Save(context.Background(), "rep-1", "photo.JPG", strings.NewReader(payload), 1024)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if size != int64(len(payload)) {
		t.Errorf("Expected %d bytes written, got %d", len(payload), size)
	}
	if !strings.HasPrefix(path, "rep-1/") {
		t.Errorf("Expected path under the report group, got %s", path)
	}
	if !strings.HasSuffix(path, ".jpg") {
		t.Errorf("Expected lowercased extension, got %s", path)
	}

	rc, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	read, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(read) != payload {
		t.Errorf("Payload mismatch: %q", read)
	}
}

func TestDiskStoreSizeLimit(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	_, _, err = store.Save(context.Background(), "rep-1", "big.jpg", strings.NewReader("0123456789"), 5)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestDiskStoreRemove(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	path, _, err := store.Save(context.Background(), "rep-2", "note.webm", strings.NewReader("audio"), 1024)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := store.Open(path); err == nil {
		t.Error("Expected Open to fail after Remove")
	}
}

func TestDiskStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	for _, path := range []string{"", "../outside", "rep-1/../../etc/passwd"} {
		if _, err := store.Open(path); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Open(%q): expected ErrInvalidPath, got %v", path, err)
		}
		if err := store.Remove(path); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Remove(%q): expected ErrInvalidPath, got %v", path, err)
		}
	}
}

func TestSanitizeHelpers(t *testing.T) {
	if got := sanitizeSegment("rep 1/../x"); got != "rep_1____x" {
		t.Errorf("sanitizeSegment = %q", got)
	}
	if got := sanitizeSegment(""); got != "misc" {
		t.Errorf("sanitizeSegment empty = %q", got)
	}
	if got := sanitizeExt("IMG_001.PNG"); got != ".png" {
		t.Errorf("sanitizeExt = %q", got)
	}
	if got := sanitizeExt("weird.<script>"); got != "" {
		t.Errorf("sanitizeExt on hostile input = %q", got)
	}
	if got := sanitizeExt("noext"); got != "" {
		t.Errorf("sanitizeExt without extension = %q", got)
	}
}
