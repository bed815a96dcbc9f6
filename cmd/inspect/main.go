package main

import (
	"fmt"
	"os"

	"mdl-compiler/internal/studio"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s model.mdl...\n", os.Args[0])
		os.Exit(2)
	}
	failed := false
	for _, path := range os.Args[1:] {
		s, err := studio.ReadSet(path)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			failed = true
			continue
		}
		describe(path, s)
	}
	if failed {
		os.Exit(1)
	}
}

func describe(path string, s *studio.Set) {
	m := s.Model
	fmt.Printf("%s: %q v%d, %d bytes, checksum %d\n", path, m.Name, m.Version, m.Length, m.Checksum)
	fmt.Printf("  Hull: [%.1f %.1f %.1f] - [%.1f %.1f %.1f]\n",
		m.HullMin[0], m.HullMin[1], m.HullMin[2], m.HullMax[0], m.HullMax[1], m.HullMax[2])

	fmt.Printf("  Bones: %d\n", len(m.Bones))
	for i, b := range m.Bones {
		parent := "-"
		if b.Parent >= 0 && b.Parent < len(m.Bones) {
			parent = m.Bones[b.Parent].Name
		}
		fmt.Printf("    [%d] %s (parent %s)\n", i, b.Name, parent)
	}
	fmt.Printf("  Animations: %d\n", len(m.Animations))
	for _, a := range m.Animations {
		fmt.Printf("    %s: %d frames @ %.0f fps\n", a.Name, a.Frames, a.FPS)
	}
	fmt.Printf("  Sequences: %v\n", m.Sequences)
	fmt.Printf("  Materials: %v\n", m.Materials)
	for _, bp := range m.BodyParts {
		fmt.Printf("  Body part %q: %d models\n", bp.Name, len(bp.Models))
		for _, sm := range bp.Models {
			fmt.Printf("    %q: meshes=%d, verts=%d\n", sm.Name, sm.Meshes, sm.Vertices)
		}
	}

	v := s.Vertices
	fmt.Printf("  Vertex file: v%d, %d vertices, %d lods, %d fixups\n", v.Version, v.Vertices, v.LODs, v.Fixups)
	h := s.Meshes
	fmt.Printf("  Mesh file: v%d, cache %d, %d strip groups, %d strips, %d verts, %d indices\n",
		h.Version, h.CacheSize, h.StripGroups, h.Strips, h.Vertices, h.Indices)
	if !s.Matched() {
		fmt.Printf("  WARNING: checksum mismatch (vertex %d, mesh %d)\n", v.Checksum, h.Checksum)
	}
}
