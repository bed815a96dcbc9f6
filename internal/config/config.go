package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config holds tool-wide settings shared by every project compiled in a run.
type Config struct {
	// Paths
	BaseDir    string `json:"base_dir"`
	OutputDir  string `json:"output_dir"`
	TextureDir string `json:"texture_dir"`
	ReportPath string `json:"report"`

	// Compile settings
	Workers  int    `json:"workers"`
	LogLevel string `json:"log_level"`

	// Preview settings
	Preview     bool `json:"preview"`
	PreviewSize int  `json:"preview_size"`
	Supersample int  `json:"supersample"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.TextureDir != "" {
		c.TextureDir = flags.TextureDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.Preview {
		c.Preview = true
	}

	if c.BaseDir == "" {
		c.BaseDir, _ = os.Getwd()
	}

	// Resolve relative paths against base dir
	if c.BaseDir != "" {
		for _, p := range []*string{&c.OutputDir, &c.TextureDir, &c.ReportPath} {
			if *p != "" && !filepath.IsAbs(*p) {
				*p = filepath.Join(c.BaseDir, *p)
			}
		}
	}
	if c.ReportPath == "" && c.OutputDir != "" {
		c.ReportPath = filepath.Join(c.OutputDir, "report.json")
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	// Defaults for preview settings
	if c.PreviewSize <= 0 {
		c.PreviewSize = 256
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	OutputDir  string
	TextureDir string
	Workers    int
	LogLevel   string
	Preview    bool
}
