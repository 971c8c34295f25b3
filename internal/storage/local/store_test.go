package local

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type testData struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if store.basePath != tmpDir {
		t.Errorf("basePath = %v, want %v", store.basePath, tmpDir)
	}
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "subdir", "nested")

	if _, err := NewStore(newDir); err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	info, err := os.Stat(newDir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_Save_Load(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	original := testData{Name: "test", Value: 42}
	if err := store.Save("item1", original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var loaded testData
	if err := store.Load("item1", &loaded); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded != original {
		t.Errorf("Load() = %+v, want %+v", loaded, original)
	}
}

func TestStore_Save_Overwrites(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	store.Save("item", testData{Name: "first", Value: 1})
	if err := store.Save("item", testData{Name: "second", Value: 2}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var loaded testData
	store.Load("item", &loaded)
	if loaded.Name != "second" {
		t.Errorf("Name = %q, want second", loaded.Name)
	}
}

func TestStore_Save_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	for i := 0; i < 5; i++ {
		if err := store.Save("item", testData{Value: i}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "item.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v, want [item.json]", names)
	}
}

func TestStore_Save_FailureKeepsPreviousDocument(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	if err := store.Save("item", testData{Name: "kept"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Values that cannot be encoded fail before anything touches disk.
	if err := store.Save("item", map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatal("Save() expected encode error")
	}

	var loaded testData
	if err := store.Load("item", &loaded); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Name != "kept" {
		t.Errorf("Name = %q, want kept", loaded.Name)
	}
}

func TestStore_Save_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	store, _ := NewStore(dir)
	os.RemoveAll(dir)

	if err := store.Save("item", testData{}); err == nil {
		t.Error("Save() expected error when directory is missing")
	}
}

func TestStore_Load_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var data testData
	if err := store.Load("missing", &data); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Load_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644)

	var data testData
	err := store.Load("broken", &data)
	if err == nil || !strings.Contains(err.Error(), "decode json") {
		t.Errorf("Load() error = %v, want decode error", err)
	}
}

func TestStore_ConcurrentSaves(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := store.Save("shared", testData{Value: n}); err != nil {
				t.Errorf("Save() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	var loaded testData
	if err := store.Load("shared", &loaded); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Value < 0 || loaded.Value >= 10 {
		t.Errorf("Value = %d, want 0..9", loaded.Value)
	}
}

func TestSyncDir_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	syncDir(filepath.Join(t.TempDir(), "missing"))

	if !strings.Contains(buf.String(), "open dir for sync") {
		t.Errorf("log = %q, want the failed open to be logged", buf.String())
	}
}
