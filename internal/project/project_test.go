package project

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const crateJSON = `{
  "model_name": "props/crate.mdl",
  "output_dir": "out",
  "body_groups": [
    {"name": "body", "models": [
      {"name": "crate", "source": "crate.smd", "enabled_parts": [true, false]},
      {"name": "none", "blank": true}
    ]}
  ],
  "animations": [
    {"name": "idle", "source": "anims/idle.smd"},
    {"name": "ref", "source": "crate.smd"}
  ],
  "sequences": [{"name": "idle", "animations": [["idle", "ref"]]}]
}`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crate.json")
	if err := os.WriteFile(path, []byte(crateJSON), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{filepath.Join(dir, "crate.smd"), filepath.Join(dir, "anims", "idle.smd")}
	if got := p.Sources(); !reflect.DeepEqual(got, want) {
		t.Errorf("Sources:\nhave %v\nwant %v", got, want)
	}
	if got, want := p.OutputBase(), filepath.Join(dir, "out", "props", "crate"); got != want {
		t.Errorf("OutputBase: got %q, want %q", got, want)
	}

	m := p.BodyGroups[0].Models[0]
	for i, want := range []bool{true, false, true} {
		if got := m.PartEnabled(i); got != want {
			t.Errorf("PartEnabled(%d): got %v, want %v", i, got, want)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing: got %v, want not exist", err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("bad json: got nil error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Project {
		return &Project{
			ModelName:  "a.mdl",
			BodyGroups: []BodyGroup{{Name: "body", Models: []Model{{Name: "m", Source: "a.smd"}}}},
			Animations: []Animation{{Name: "idle", Source: "a.smd"}},
			Sequences:  []Sequence{{Name: "idle", Animations: [][]string{{"idle"}}}},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Project)
		want   error
	}{
		{"no name", func(p *Project) { p.ModelName = " " }, ErrNoModelName},
		{"empty group", func(p *Project) { p.BodyGroups[0].Models = nil }, ErrEmptyBodyGroup},
		{"no source", func(p *Project) { p.BodyGroups[0].Models[0].Source = "" }, ErrMissingSource},
		{"anim no source", func(p *Project) { p.Animations[0].Source = "" }, ErrMissingSource},
		{"negative index", func(p *Project) { p.Animations[0].SourceAnimation = -1 }, ErrNegativeAnimIdx},
		{"empty sequence", func(p *Project) { p.Sequences[0].Animations = nil }, ErrEmptySequence},
		{"ragged", func(p *Project) { p.Sequences[0].Animations = [][]string{{"a", "b"}, {"c"}} }, ErrRaggedSequence},
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			if err := p.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	blank := base()
	blank.BodyGroups[0].Models[0] = Model{Name: "none", Blank: true}
	if err := blank.Validate(); err != nil {
		t.Errorf("blank model: %v", err)
	}
}
