package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extensions of the three output files, in write order.
var Extensions = []string{".mdl", ".vvd", ".dx90.vtx"}

// Paths returns the output file paths for name under dir. A trailing .mdl on
// name is dropped.
func Paths(dir, name string) []string {
	base := filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(name, ".mdl")))
	out := make([]string, len(Extensions))
	for i, ext := range Extensions {
		out[i] = base + ext
	}
	return out
}

// WriteFiles writes the three files next to each other. Each goes to a
// temporary file first; they are renamed into place only once all three are
// on disk, so a failure leaves no partial set behind.
func (o *Output) WriteFiles(dir, name string) error {
	paths := Paths(dir, name)
	if err := os.MkdirAll(filepath.Dir(paths[0]), 0755); err != nil {
		return fmt.Errorf("compiler: create output dir: %w", err)
	}

	data := [][]byte{o.MDL, o.VVD, o.VTX}
	temps := make([]string, 0, len(paths))
	cleanup := func() {
		for _, t := range temps {
			os.Remove(t)
		}
	}
	for i, path := range paths {
		tmp, err := writeTemp(path, data[i])
		if err != nil {
			cleanup()
			return err
		}
		temps = append(temps, tmp)
	}
	for i, path := range paths {
		if err := os.Rename(temps[i], path); err != nil {
			for _, done := range paths[:i] {
				os.Remove(done)
			}
			cleanup()
			return fmt.Errorf("compiler: rename %s: %w", path, err)
		}
	}
	return nil
}

func writeTemp(path string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("compiler: create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("compiler: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("compiler: close %s: %w", path, err)
	}
	return f.Name(), nil
}
