package texture

import (
	"os"
	"path/filepath"
	"strings"
)

// extPriority ranks image formats for the same material; formats that carry
// alpha win.
var extPriority = map[string]int{
	".tga":  4,
	".png":  3,
	".bmp":  2,
	".jpg":  1,
	".jpeg": 1,
}

// Index maps lowercase material paths, relative to the texture directory and
// without extension, to image files.
type Index struct {
	entries map[string]string
}

// BuildIndex walks dir for images. A missing dir yields an empty index.
func BuildIndex(dir string) *Index {
	idx := &Index{entries: make(map[string]string)}
	if dir == "" {
		return idx
	}

	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if extPriority[ext] == 0 {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		key := normalize(rel)

		existing, exists := idx.entries[key]
		if !exists || extPriority[ext] > extPriority[strings.ToLower(filepath.Ext(existing))] {
			idx.entries[key] = path
		}
		return nil
	})

	return idx
}

func normalize(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ResolvePath returns the image for a material name, or ("", false). A full
// material path is tried first, then its base name.
func (idx *Index) ResolvePath(material string) (string, bool) {
	key := normalize(material)
	if path, ok := idx.entries[key]; ok {
		return path, true
	}
	base := key[strings.LastIndex(key, "/")+1:]
	path, ok := idx.entries[base]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	return len(idx.entries)
}
