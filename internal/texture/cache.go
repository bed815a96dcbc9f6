// Package texture finds and decodes the images behind material names for
// previews.
package texture

import (
	"image"
	"sync"

	"mdl-compiler/internal/logging"
)

// Resolver maps a material name to its decoded image, or nil.
type Resolver interface {
	Resolve(material string) *image.NRGBA
}

// Cache is a concurrency-safe texture cache. Failed loads are cached as nil
// and reported once.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*image.NRGBA
	index *Index
	log   *logging.Logger
}

// NewCache creates a new texture cache backed by the given index.
func NewCache(index *Index, log *logging.Logger) *Cache {
	return &Cache{
		items: make(map[string]*image.NRGBA),
		index: index,
		log:   log,
	}
}

// Resolve loads and caches the image for a material. Returns nil if none is
// indexed or it fails to decode.
func (c *Cache) Resolve(material string) *image.NRGBA {
	path, ok := c.index.ResolvePath(material)
	if !ok {
		return nil
	}

	// Fast path: read lock
	c.mu.RLock()
	if img, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return img
	}
	c.mu.RUnlock()

	img, err := LoadTexture(path)
	if err != nil {
		c.log.Warnf("%v", err)
	}

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, exists := c.items[path]; exists {
		return cached
	}
	c.items[path] = img
	return img
}
