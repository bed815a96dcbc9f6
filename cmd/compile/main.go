package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"mdl-compiler/internal/batch"
	"mdl-compiler/internal/config"
	_ "mdl-compiler/internal/importer/gltfimport"
	"mdl-compiler/internal/logging"
	"mdl-compiler/internal/preview"
	"mdl-compiler/internal/texture"
	"mdl-compiler/internal/viewmatrix"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	outputDir := flag.String("output", "", "Output directory (default: next to each project)")
	textureDir := flag.String("textures", "", "Texture directory for previews")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	logLevel := flag.String("log", "", "Log level: debug, verbose, info, warn, error")
	withPreview := flag.Bool("preview", false, "Render a WebP preview next to each model")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] project.json...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{
		OutputDir:  *outputDir,
		TextureDir: *textureDir,
		Workers:    *workers,
		LogLevel:   *logLevel,
		Preview:    *withPreview,
	})

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, level)

	opts := preview.Options{
		Size:        cfg.PreviewSize,
		Supersample: cfg.Supersample,
		Camera:      viewmatrix.DefaultCamera(),
	}
	if cfg.Preview && cfg.TextureDir != "" {
		index := texture.BuildIndex(cfg.TextureDir)
		opts.Textures = texture.NewCache(index, log)
		fmt.Printf("Textures: %d indexed\n", index.Len())
	}

	fmt.Printf("Projects: %d, Workers: %d\n", len(paths), cfg.Workers)
	if cfg.OutputDir != "" {
		fmt.Printf("Output: %s\n", cfg.OutputDir)
	}
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	results := batch.Run(ctx, batch.Config{
		OutputDir:      cfg.OutputDir,
		Workers:        cfg.Workers,
		Log:            log,
		Preview:        cfg.Preview,
		PreviewOptions: opts,
		Progress: func(done, total int, rate float64) {
			fmt.Printf("  [%d/%d] %.1f projects/s\n", done, total, rate)
		},
	}, paths)
	elapsed := time.Since(start)

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	success, failed := batch.Summary(results)
	fmt.Printf("Compiled: %d/%d\n", success, len(results))
	for _, r := range results {
		if r.Success {
			fmt.Printf("  %s\n", r)
		}
	}
	if failed > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		for _, r := range results {
			if !r.Success {
				fmt.Printf("  %s\n", r)
			}
		}
	}

	if cfg.ReportPath != "" {
		if err := batch.WriteReport(cfg.ReportPath, batch.NewReport(start, results)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: report write failed: %v\n", err)
		} else {
			fmt.Printf("Report: %s\n", cfg.ReportPath)
		}
	}

	if failed > 0 {
		stop()
		os.Exit(1)
	}
}
