package overrides

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

func TestWatcher_ReportsChangedIDs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "overrides")
	changed := make(chan string, 16)

	w, err := NewWatcher(dir, func(id string) { changed <- id }, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "custom.json", `{"name": "x"}`)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case id := <-changed:
			if id == "notes" {
				t.Fatalf("non-definition file reported")
			}
			if id == "custom" {
				cancel()
				if err := <-done; err != nil {
					t.Fatalf("Run() error: %v", err)
				}
				return
			}
		case <-deadline:
			cancel()
			t.Fatal("timed out waiting for change notification")
		}
	}
}

func TestWatcher_OverflowResetsEverything(t *testing.T) {
	resets := 0
	w, err := NewWatcher(t.TempDir(), func(string) {}, func() { resets++ })
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer w.watcher.Close()

	w.handleError(zerolog.Nop(), errors.New("permission denied"))
	if resets != 0 {
		t.Fatalf("plain error triggered %d resets", resets)
	}
	w.handleError(zerolog.Nop(), fmt.Errorf("queue: %w", fsnotify.ErrEventOverflow))
	if resets != 1 {
		t.Fatalf("overflow triggered %d resets, want 1", resets)
	}
}

func TestWatcher_OverflowWithoutCallback(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), func(string) {}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer w.watcher.Close()

	w.handleError(zerolog.Nop(), fsnotify.ErrEventOverflow)
}
