package queue

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestStoreLoadSaveRoundtrip(t *testing.T) {
	tmpDir := t.TempDir()

	q := New()
	q.Replace([]string{"/path/1.mp3", "/path/2.mp3", "/path/3.mp3"})
	q.SetIndex(1)

	store := NewStore(tmpDir)
	if err := store.Save(q.Snapshot("/path")); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	queueFile := filepath.Join(tmpDir, "queue.json")
	if _, err := os.Stat(queueFile); os.IsNotExist(err) {
		t.Fatal("Queue file was not created")
	}

	state, err := NewStore(tmpDir).Load()
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if !reflect.DeepEqual(state.Paths, q.Paths()) {
		t.Errorf("Expected paths %v, got %v", q.Paths(), state.Paths)
	}
	if state.Index != 1 {
		t.Errorf("Expected index 1, got %d", state.Index)
	}
	if state.Folder != "/path" {
		t.Errorf("Expected folder /path, got %s", state.Folder)
	}
}

func TestStoreNeverWritesModes(t *testing.T) {
	tmpDir := t.TempDir()

	q := New()
	q.Replace([]string{"/path/1.mp3"})
	store := NewStore(tmpDir)
	if err := store.Save(q.Snapshot("")); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	data, err := os.ReadFile(store.GetFilePath())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"shuffle", "loop", "repeat"} {
		if strings.Contains(string(data), key) {
			t.Errorf("Queue file should not contain %q: %s", key, data)
		}
	}
}

func TestStoreLoadNonExistent(t *testing.T) {
	state, err := NewStore(t.TempDir()).Load()
	if err != nil {
		t.Errorf("Load should not error for non-existent file: %v", err)
	}
	if len(state.Paths) != 0 || state.Index != -1 {
		t.Errorf("Expected empty state, got %+v", state)
	}
}

func TestStoreLoadCorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "queue.json"), []byte("not valid json{"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(tmpDir).Load(); err == nil {
		t.Error("Expected error for corrupt file")
	}
}

func TestStoreLoadClampsIndex(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir)
	if err := store.Save(PersistentState{Paths: []string{"/a.mp3", "/b.mp3"}, Index: 7}); err != nil {
		t.Fatal(err)
	}

	state, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if state.Index != 0 {
		t.Errorf("Expected out-of-range index to reset to 0, got %d", state.Index)
	}
}
