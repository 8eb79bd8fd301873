// Package templates manages the named reference images the bot matches
// against the game window.
package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dreamerbot/arena-go/internal/cv"
)

// Registry holds a named collection of templates, loaded from YAML files or
// registered programmatically. There is deliberately no package-level
// instance; callers construct one and pass it where needed.
type Registry struct {
	mu         sync.RWMutex
	templates  map[string]cv.Template
	basePath   string
	imageCache *ImageCache
}

// Definition is one template entry in a YAML file.
type Definition struct {
	Name      string     `yaml:"name"`
	Path      string     `yaml:"path"`
	Threshold float64    `yaml:"threshold"`
	Region    *RegionDef `yaml:"region,omitempty"`
	Scale     float64    `yaml:"scale,omitempty"`
	Preload   bool       `yaml:"preload,omitempty"`
}

// RegionDef is a pixel search region in a YAML file.
type RegionDef struct {
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
	X2 int `yaml:"x2"`
	Y2 int `yaml:"y2"`
}

// File is the top-level structure of a template YAML file.
type File struct {
	Templates []Definition `yaml:"templates"`
}

// NewRegistry creates an empty registry. basePath is the directory template
// image paths are resolved against.
func NewRegistry(basePath string) *Registry {
	return &Registry{
		templates:  make(map[string]cv.Template),
		basePath:   basePath,
		imageCache: NewImageCache(),
	}
}

// LoadFromFile merges templates from a YAML file into the registry.
func (r *Registry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", filePath, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal template YAML: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, def := range file.Templates {
		if def.Name == "" {
			return fmt.Errorf("template %d: name cannot be empty", i+1)
		}
		if def.Path == "" {
			return fmt.Errorf("template %d (%s): path cannot be empty", i+1, def.Name)
		}

		template := cv.Template{
			Name:      def.Name,
			Path:      filepath.Join(r.basePath, def.Path),
			Threshold: def.Threshold,
			Scale:     def.Scale,
		}
		if def.Region != nil {
			template.Region = &cv.Region{
				X1: def.Region.X1,
				Y1: def.Region.Y1,
				X2: def.Region.X2,
				Y2: def.Region.Y2,
			}
		}
		if template.Threshold == 0 {
			template.Threshold = 0.8
		}

		r.templates[def.Name] = template

		if r.imageCache != nil {
			if err := r.imageCache.Register(template, def.Preload); err != nil {
				// Preload failure is not fatal; the image can still be
				// loaded on demand.
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	}

	return nil
}

// LoadFromDirectory merges every .yaml/.yml file in a directory.
func (r *Registry) LoadFromDirectory(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read template directory %s: %w", dirPath, err)
	}

	var loadErrors []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		fullPath := filepath.Join(dirPath, entry.Name())
		if err := r.LoadFromFile(fullPath); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("file %s: %w", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d template files (first error): %w", len(loadErrors), loadErrors[0])
	}
	return nil
}

// Get retrieves a template by name.
func (r *Registry) Get(name string) (cv.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	template, ok := r.templates[name]
	return template, ok
}

// MustGet retrieves a template by name and panics if not found. Use only
// during startup for templates the run cannot proceed without.
func (r *Registry) MustGet(name string) cv.Template {
	template, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("template '%s' not found in registry", name))
	}
	return template
}

// Register adds a template programmatically.
func (r *Registry) Register(template cv.Template) error {
	if template.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[template.Name] = template
	return nil
}

// RegisterBatch adds multiple templates.
func (r *Registry) RegisterBatch(templates []cv.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, template := range templates {
		if template.Name == "" {
			return fmt.Errorf("template %d: name cannot be empty", i)
		}
		r.templates[template.Name] = template
	}
	return nil
}

// Has checks if a template exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[name]
	return ok
}

// List returns all template names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered templates.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// ImageCache returns the registry's image cache. Implements the accessor the
// CV service expects; the extra indirection keeps cv free of a dependency on
// this package.
func (r *Registry) ImageCache() cv.ImageCacheInterface {
	if r.imageCache == nil {
		return nil
	}
	return r.imageCache
}

// PreloadAll loads every template marked for preloading.
func (r *Registry) PreloadAll() error {
	if r.imageCache == nil {
		return fmt.Errorf("image cache not enabled")
	}
	return r.imageCache.PreloadAll()
}
