package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"mdl-compiler/internal/logging"
)

// Status is the load state of a registered file.
type Status int

const (
	StatusLoading Status = iota
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

var (
	ErrFileNotLoaded = errors.New("importer: file is not loaded")
	ErrFileFailed    = errors.New("importer: file failed to load")
	ErrClosed        = errors.New("importer: registry is closed")
)

type entry struct {
	path   string
	refs   int
	status Status
	data   *FileData
	err    error
	done   chan struct{}
}

// Registry reference-counts source files and loads them on a worker pool.
// Each path is read at most once while it stays referenced.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	sendMu sync.RWMutex
	closed bool
	queue  chan *entry
	wg     sync.WaitGroup
	load   Decoder
	log    *logging.Logger
}

// NewRegistry starts workers goroutines that decode acquired files.
func NewRegistry(workers int, log *logging.Logger) *Registry {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logging.Discard()
	}
	r := &Registry{
		entries: make(map[string]*entry),
		queue:   make(chan *entry, workers*2),
		load:    Load,
		log:     log,
	}
	for w := 0; w < workers; w++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for e := range r.queue {
				r.run(e)
			}
		}()
	}
	return r
}

func (r *Registry) run(e *entry) {
	data, err := r.load(e.path)

	r.mu.Lock()
	if err != nil {
		e.status = StatusFailed
		e.err = err
	} else {
		e.status = StatusLoaded
		e.data = data
	}
	r.mu.Unlock()
	close(e.done)

	if err != nil {
		r.log.Errorf("load %s: %v", e.path, err)
	} else {
		r.log.Verbosef("loaded %s: %d bones, %d animations, %d parts",
			e.path, len(data.Skeleton), len(data.Animations), len(data.Parts))
	}
}

func key(path string) string { return filepath.Clean(path) }

// Acquire adds a reference to path, queueing a load on first use.
func (r *Registry) Acquire(path string) {
	k := key(path)

	r.mu.Lock()
	if e, ok := r.entries[k]; ok {
		e.refs++
		r.mu.Unlock()
		return
	}
	e := &entry{path: k, refs: 1, status: StatusLoading, done: make(chan struct{})}
	r.entries[k] = e
	r.mu.Unlock()

	r.sendMu.RLock()
	defer r.sendMu.RUnlock()
	if r.closed {
		r.mu.Lock()
		e.status = StatusFailed
		e.err = ErrClosed
		r.mu.Unlock()
		close(e.done)
		return
	}
	r.queue <- e
}

// Release drops a reference, forgetting the file at zero.
func (r *Registry) Release(path string) {
	k := key(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[k]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, k)
	}
}

// Status reports the state of path, and false if it is not registered.
func (r *Registry) Status(path string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key(path)]
	if !ok {
		return 0, false
	}
	return e.status, true
}

// File returns the decoded data once path has loaded.
func (r *Registry) File(path string) (*FileData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key(path)]
	if !ok || e.status != StatusLoaded {
		return nil, false
	}
	return e.data, true
}

// Err returns the load error of a failed file.
func (r *Registry) Err(path string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[key(path)]; ok {
		return e.err
	}
	return nil
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Await blocks until no registered file is still loading.
func (r *Registry) Await(ctx context.Context) error {
	for {
		var pending []chan struct{}
		r.mu.RLock()
		for _, e := range r.entries {
			if e.status == StatusLoading {
				pending = append(pending, e.done)
			}
		}
		r.mu.RUnlock()
		if len(pending) == 0 {
			return nil
		}
		for _, done := range pending {
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Files is an immutable view of loaded sources keyed by cleaned path.
type Files map[string]*FileData

// Get looks up a source by path.
func (f Files) Get(path string) (*FileData, error) {
	data, ok := f[key(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotLoaded, path)
	}
	return data, nil
}

// Snapshot collects the loaded data for paths. Every path must be loaded.
func (r *Registry) Snapshot(paths ...string) (Files, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	files := make(Files, len(paths))
	for _, p := range paths {
		k := key(p)
		e, ok := r.entries[k]
		switch {
		case !ok || e.status == StatusLoading:
			return nil, fmt.Errorf("%w: %s", ErrFileNotLoaded, p)
		case e.status == StatusFailed:
			return nil, fmt.Errorf("%w: %s: %v", ErrFileFailed, p, e.err)
		}
		files[k] = e.data
	}
	return files, nil
}

// Close stops the workers after queued loads finish.
func (r *Registry) Close() {
	r.sendMu.Lock()
	if r.closed {
		r.sendMu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.sendMu.Unlock()
	r.wg.Wait()
}
