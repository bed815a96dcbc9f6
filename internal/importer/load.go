package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Decoder reads one source format.
type Decoder func(path string) (*FileData, error)

var (
	formatsMu sync.RWMutex
	formats   = map[string]Decoder{
		".smd": LoadSMD,
		".obj": LoadOBJ,
	}
)

// RegisterFormat makes Load accept files with the given extension.
// Format packages call it from init.
func RegisterFormat(ext string, dec Decoder) {
	formatsMu.Lock()
	formats[strings.ToLower(ext)] = dec
	formatsMu.Unlock()
}

// Supported lists the registered extensions.
func Supported() []string {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	return exts
}

// Load reads and validates a source file, choosing the decoder by extension.
func Load(path string) (*FileData, error) {
	ext := strings.ToLower(filepath.Ext(path))
	formatsMu.RLock()
	dec, ok := formats[ext]
	formatsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}

	data, err := dec(path)
	if err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("importer: %s: %w", path, err)
	}
	return data, nil
}

func openSource(path string) (*os.File, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("importer: open %s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return f, stem, nil
}
