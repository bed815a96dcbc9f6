// Package batch compiles many projects on a worker pool and reports the
// outcome of each.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mdl-compiler/internal/compiler"
	"mdl-compiler/internal/importer"
	"mdl-compiler/internal/logging"
	"mdl-compiler/internal/preview"
	"mdl-compiler/internal/project"
)

// Config holds all shared resources for a batch run.
type Config struct {
	// OutputDir overrides every project's output directory when set.
	OutputDir string
	Workers   int
	Log       *logging.Logger
	// Registry loads sources; projects sharing a file read it once. Run
	// starts its own when nil.
	Registry *importer.Registry

	Preview        bool
	PreviewOptions preview.Options
	// Progress receives a line every tick while the batch runs. Nil disables.
	Progress func(done, total int, rate float64)
}

// Result holds the outcome of compiling one project.
type Result struct {
	Project  string         `json:"project"`
	Model    string         `json:"model,omitempty"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Files    []string       `json:"files,omitempty"`
	Preview  string         `json:"preview,omitempty"`
	Stats    compiler.Stats `json:"stats"`
	Duration time.Duration  `json:"duration_ns"`
}

// Run compiles every project file using a worker pool. Results keep the
// order of paths.
func Run(ctx context.Context, cfg Config, paths []string) []Result {
	total := len(paths)
	results := make([]Result, total)
	var processed atomic.Int64
	workers := max(cfg.Workers, 1)
	if cfg.Registry == nil {
		cfg.Registry = importer.NewRegistry(workers, cfg.Log)
		defer cfg.Registry.Close()
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.Progress != nil {
		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if p := processed.Load(); p > 0 {
						cfg.Progress(int(p), total, float64(p)/time.Since(start).Seconds())
					}
				}
			}
		}()
	}

	// Worker pool
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = compileOne(ctx, cfg, paths[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(done)

	return results
}

func compileOne(ctx context.Context, cfg Config, path string) Result {
	started := time.Now()
	res := Result{Project: path}
	fail := func(err error) Result {
		res.Error = err.Error()
		res.Duration = time.Since(started)
		cfg.Log.Errorf("%s: %v", path, err)
		return res
	}

	p, err := project.Load(path)
	if err != nil {
		return fail(err)
	}
	res.Model = p.ModelName
	log := cfg.Log.With("model", p.ModelName)

	files, err := compiler.LoadSources(ctx, cfg.Registry, p)
	if err != nil {
		return fail(err)
	}
	out, err := compiler.Compile(compiler.Context{Log: log, Files: files}, p)
	if err != nil {
		return fail(err)
	}
	res.Stats = out.Stats

	dir := outputDir(cfg, p)
	if err := out.WriteFiles(dir, p.ModelName); err != nil {
		return fail(err)
	}
	res.Files = compiler.Paths(dir, p.ModelName)

	if cfg.Preview {
		thumb := strings.TrimSuffix(res.Files[0], ".mdl") + ".webp"
		if err := preview.Write(thumb, out.Meshes, cfg.PreviewOptions); err != nil {
			log.Warnf("preview: %v", err)
		} else {
			res.Preview = thumb
		}
	}

	res.Success = true
	res.Duration = time.Since(started)
	return res
}

func outputDir(cfg Config, p *project.Project) string {
	switch {
	case cfg.OutputDir != "":
		return cfg.OutputDir
	case p.OutputDir != "":
		return p.OutputDir
	case p.Path != "":
		return filepath.Dir(p.Path)
	}
	return "."
}

// Summary counts successes and failures.
func Summary(results []Result) (success, failed int) {
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
		}
	}
	return success, failed
}

func (r Result) String() string {
	if r.Success {
		return fmt.Sprintf("%s: %d bones, %d meshes, %d vertices", r.Model, r.Stats.Bones, r.Stats.Meshes, r.Stats.Vertices)
	}
	return fmt.Sprintf("%s: %s", r.Project, r.Error)
}
