package templates

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/dreamerbot/arena-go/internal/cv"
)

// cachedTemplate pairs a template with its decoded image.
type cachedTemplate struct {
	cv.Template
	mu      sync.RWMutex
	image   *image.RGBA
	preload bool
}

// ImageCache loads and retains decoded template images so repeated matches
// don't re-decode PNGs from disk.
type ImageCache struct {
	mu        sync.RWMutex
	templates map[string]*cachedTemplate
	stats     CacheStats
}

// CacheStats tracks cache behavior.
type CacheStats struct {
	Hits        int64
	Misses      int64
	Loads       int64
	PreloadFail int64
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{templates: make(map[string]*cachedTemplate)}
}

// Register adds a template to the cache, optionally decoding it immediately.
func (ic *ImageCache) Register(template cv.Template, preload bool) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	cached := &cachedTemplate{Template: template, preload: preload}
	if preload {
		if _, err := cached.load(); err != nil {
			ic.stats.PreloadFail++
			return fmt.Errorf("failed to preload template %s: %w", template.Name, err)
		}
		ic.stats.Loads++
	}

	ic.templates[template.Name] = cached
	return nil
}

// Get returns the decoded image for a template, loading it on first use.
func (ic *ImageCache) Get(name string) (*image.RGBA, cv.Template, error) {
	ic.mu.RLock()
	cached, ok := ic.templates[name]
	ic.mu.RUnlock()

	if !ok {
		return nil, cv.Template{}, fmt.Errorf("template '%s' not found in cache", name)
	}

	cached.mu.RLock()
	img := cached.image
	cached.mu.RUnlock()

	ic.mu.Lock()
	if img != nil {
		ic.stats.Hits++
	} else {
		ic.stats.Misses++
		ic.stats.Loads++
	}
	ic.mu.Unlock()

	if img != nil {
		return img, cached.Template, nil
	}

	img, err := cached.load()
	if err != nil {
		return nil, cv.Template{}, err
	}
	return img, cached.Template, nil
}

// Release drops the decoded image for a template, freeing its memory.
func (ic *ImageCache) Release(name string) error {
	ic.mu.RLock()
	cached, ok := ic.templates[name]
	ic.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template '%s' not found in cache", name)
	}

	cached.mu.Lock()
	cached.image = nil
	cached.mu.Unlock()
	return nil
}

// PreloadAll decodes every template marked for preloading.
func (ic *ImageCache) PreloadAll() error {
	ic.mu.RLock()
	toLoad := make([]*cachedTemplate, 0, len(ic.templates))
	for _, t := range ic.templates {
		if t.preload {
			toLoad = append(toLoad, t)
		}
	}
	ic.mu.RUnlock()

	var firstErr error
	failed := 0
	for _, cached := range toLoad {
		if _, err := cached.load(); err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("template %s: %w", cached.Name, err)
			}
			ic.mu.Lock()
			ic.stats.PreloadFail++
			ic.mu.Unlock()
		} else {
			ic.mu.Lock()
			ic.stats.Loads++
			ic.mu.Unlock()
		}
	}

	if firstErr != nil {
		return fmt.Errorf("failed to preload %d templates: %w", failed, firstErr)
	}
	return nil
}

// UnloadAll drops every decoded image.
func (ic *ImageCache) UnloadAll() {
	ic.mu.RLock()
	all := make([]*cachedTemplate, 0, len(ic.templates))
	for _, t := range ic.templates {
		all = append(all, t)
	}
	ic.mu.RUnlock()

	for _, cached := range all {
		cached.mu.Lock()
		cached.image = nil
		cached.mu.Unlock()
	}
}

// Stats returns a snapshot of cache counters.
func (ic *ImageCache) Stats() CacheStats {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.stats
}

// load decodes the template image, caching the result. Safe for concurrent
// callers; the second caller reuses the first's decode.
func (ct *cachedTemplate) load() (*image.RGBA, error) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.image != nil {
		return ct.image, nil
	}

	file, err := os.Open(ct.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}

	ct.image = cv.ToRGBA(img)
	return ct.image, nil
}
