// Package project reads the JSON description of one model to compile.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Model is one selectable model inside a body group.
type Model struct {
	Name   string `json:"name"`
	Blank  bool   `json:"blank"`
	Source string `json:"source"`
	// EnabledParts switches source parts on or off by index. Parts past the
	// end of the list are enabled.
	EnabledParts []bool `json:"enabled_parts"`
}

// PartEnabled reports whether the part at index i contributes geometry.
func (m Model) PartEnabled(i int) bool {
	if i < len(m.EnabledParts) {
		return m.EnabledParts[i]
	}
	return true
}

type BodyGroup struct {
	Name   string  `json:"name"`
	Models []Model `json:"models"`
}

// Animation selects one clip of a source file by index.
type Animation struct {
	Name            string `json:"name"`
	Source          string `json:"source"`
	SourceAnimation int    `json:"source_animation"`
}

// Sequence is a blend grid of animation names, rows by columns.
type Sequence struct {
	Name       string     `json:"name"`
	Animations [][]string `json:"animations"`
}

// Project is the full compile input.
type Project struct {
	ModelName  string      `json:"model_name"`
	OutputDir  string      `json:"output_dir"`
	BodyGroups []BodyGroup `json:"body_groups"`
	Animations []Animation `json:"animations"`
	Sequences  []Sequence  `json:"sequences"`

	// Path is the file the project was loaded from, if any.
	Path string `json:"-"`
}

var (
	ErrNoModelName     = errors.New("project: model name is empty")
	ErrEmptyBodyGroup  = errors.New("project: body group has no models")
	ErrMissingSource   = errors.New("project: model has no source")
	ErrEmptySequence   = errors.New("project: sequence has no animations")
	ErrRaggedSequence  = errors.New("project: sequence rows differ in length")
	ErrNegativeAnimIdx = errors.New("project: negative source animation")
)

// Load reads a project file. Relative source and output paths are resolved
// against the project's directory.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", path, err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("project: parse %s: %w", path, err)
	}
	p.Path = path
	p.resolve(filepath.Dir(path))

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

func (p *Project) resolve(dir string) {
	abs := func(s string) string {
		if s == "" || filepath.IsAbs(s) {
			return s
		}
		return filepath.Join(dir, s)
	}
	for g := range p.BodyGroups {
		for m := range p.BodyGroups[g].Models {
			p.BodyGroups[g].Models[m].Source = abs(p.BodyGroups[g].Models[m].Source)
		}
	}
	for a := range p.Animations {
		p.Animations[a].Source = abs(p.Animations[a].Source)
	}
	p.OutputDir = abs(p.OutputDir)
}

// Validate checks the structural rules that do not need source data.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.ModelName) == "" {
		return ErrNoModelName
	}
	for _, g := range p.BodyGroups {
		if len(g.Models) == 0 {
			return fmt.Errorf("%w: %q", ErrEmptyBodyGroup, g.Name)
		}
		for _, m := range g.Models {
			if !m.Blank && m.Source == "" {
				return fmt.Errorf("%w: %q", ErrMissingSource, m.Name)
			}
		}
	}
	for _, a := range p.Animations {
		if a.Source == "" {
			return fmt.Errorf("%w: animation %q", ErrMissingSource, a.Name)
		}
		if a.SourceAnimation < 0 {
			return fmt.Errorf("%w: %q", ErrNegativeAnimIdx, a.Name)
		}
	}
	for _, s := range p.Sequences {
		if len(s.Animations) == 0 || len(s.Animations[0]) == 0 {
			return fmt.Errorf("%w: %q", ErrEmptySequence, s.Name)
		}
		for _, row := range s.Animations {
			if len(row) != len(s.Animations[0]) {
				return fmt.Errorf("%w: %q", ErrRaggedSequence, s.Name)
			}
		}
	}
	return nil
}

// Sources lists every referenced source path once, body group models first
// and then animations, in declaration order.
func (p *Project) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, g := range p.BodyGroups {
		for _, m := range g.Models {
			if !m.Blank {
				add(m.Source)
			}
		}
	}
	for _, a := range p.Animations {
		add(a.Source)
	}
	return out
}

// OutputBase returns the output path without extension, e.g.
// out/props/crate for model name props/crate.mdl.
func (p *Project) OutputBase() string {
	name := filepath.FromSlash(strings.TrimSuffix(p.ModelName, filepath.Ext(p.ModelName)))
	return filepath.Join(p.OutputDir, name)
}
