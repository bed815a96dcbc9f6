package importer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mdl-compiler/internal/mathutil"
)

func stubRegistry(t *testing.T, calls *atomic.Int64) *Registry {
	t.Helper()
	r := NewRegistry(2, nil)
	r.load = func(path string) (*FileData, error) {
		calls.Add(1)
		if path == "bad.smd" {
			return nil, errors.New("corrupt")
		}
		return &FileData{
			Up:         mathutil.PositiveZ,
			Forward:    mathutil.NegativeY,
			Skeleton:   []Bone{{Name: path, Parent: -1}},
			Animations: []Animation{{Name: "idle", FrameCount: 1}},
		}, nil
	}
	t.Cleanup(r.Close)
	return r
}

func TestRegistryRefcount(t *testing.T) {
	var calls atomic.Int64
	r := stubRegistry(t, &calls)

	r.Acquire("a.smd")
	r.Acquire("./a.smd")
	r.Acquire("b.smd")
	if err := r.Await(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("loads: got %d, want 2", got)
	}
	if got := r.Len(); got != 2 {
		t.Errorf("Len: got %d, want 2", got)
	}
	if s, ok := r.Status("a.smd"); !ok || s != StatusLoaded {
		t.Errorf("Status: got %v/%v, want loaded", s, ok)
	}

	files, err := r.Snapshot("a.smd", "b.smd")
	if err != nil {
		t.Fatal(err)
	}
	data, err := files.Get("a.smd")
	if err != nil || data.Skeleton[0].Name != "a.smd" {
		t.Errorf("Get: got %v, %v", data, err)
	}

	r.Release("a.smd")
	if _, ok := r.File("a.smd"); !ok {
		t.Error("released once: file gone, want still referenced")
	}
	r.Release("a.smd")
	if _, ok := r.Status("a.smd"); ok {
		t.Error("released twice: still registered")
	}
	if got := r.Len(); got != 1 {
		t.Errorf("Len after release: got %d, want 1", got)
	}
	// The snapshot is unaffected by later releases.
	if _, err := files.Get("a.smd"); err != nil {
		t.Errorf("snapshot after release: %v", err)
	}
}

func TestRegistryFailures(t *testing.T) {
	var calls atomic.Int64
	r := stubRegistry(t, &calls)

	r.Acquire("bad.smd")
	if err := r.Await(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s, _ := r.Status("bad.smd"); s != StatusFailed {
		t.Errorf("Status: got %v, want failed", s)
	}
	if r.Err("bad.smd") == nil {
		t.Error("Err: got nil")
	}
	if _, err := r.Snapshot("bad.smd"); !errors.Is(err, ErrFileFailed) {
		t.Errorf("Snapshot failed: got %v, want ErrFileFailed", err)
	}
	if _, err := r.Snapshot("never.smd"); !errors.Is(err, ErrFileNotLoaded) {
		t.Errorf("Snapshot unknown: got %v, want ErrFileNotLoaded", err)
	}
	if _, err := (Files{}).Get("x.smd"); !errors.Is(err, ErrFileNotLoaded) {
		t.Errorf("Files.Get: got %v, want ErrFileNotLoaded", err)
	}
}

func TestRegistryAwaitCancel(t *testing.T) {
	r := NewRegistry(1, nil)
	release := make(chan struct{})
	r.load = func(string) (*FileData, error) {
		<-release
		return nil, errors.New("stopped")
	}
	defer r.Close()
	defer close(release)

	r.Acquire("slow.smd")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
	if s, _ := r.Status("slow.smd"); s != StatusLoading {
		t.Errorf("Status: got %v, want loading", s)
	}
}

func TestRegistryClosed(t *testing.T) {
	r := NewRegistry(1, nil)
	r.Close()
	r.Acquire("late.smd")
	if s, _ := r.Status("late.smd"); s != StatusFailed {
		t.Fatalf("Status: got %v, want failed", s)
	}
	if !errors.Is(r.Err("late.smd"), ErrClosed) {
		t.Errorf("Err: got %v, want ErrClosed", r.Err("late.smd"))
	}
}
