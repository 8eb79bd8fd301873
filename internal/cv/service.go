package cv

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"
	"time"
)

// TemplateRegistryInterface defines interface for template registry access
type TemplateRegistryInterface interface {
	Get(name string) (Template, bool)
	ImageCache() ImageCacheInterface
}

// ImageCacheInterface defines interface for image cache access
type ImageCacheInterface interface {
	Get(name string) (*image.RGBA, Template, error)
	Release(name string) error
}

// Service handles all computer vision operations against the game window:
// cached frame capture and named template lookup.
type Service struct {
	capturer         Capturer
	templateRegistry TemplateRegistryInterface
	templateCache    map[string]*image.RGBA

	// Frame caching: repeated template checks within one settle window reuse
	// the same capture.
	cachedFrame     *image.RGBA
	cachedFrameTime time.Time
	cacheDuration   time.Duration

	mu sync.RWMutex
}

// NewService creates a new CV service
func NewService(capturer Capturer, registry TemplateRegistryInterface) *Service {
	return &Service{
		capturer:         capturer,
		templateRegistry: registry,
		templateCache:    make(map[string]*image.RGBA),
		cacheDuration:    100 * time.Millisecond,
	}
}

// WithCacheDuration overrides how long a captured frame may be reused.
func (s *Service) WithCacheDuration(d time.Duration) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheDuration = d
	return s
}

// Capturer returns the underlying frame source.
func (s *Service) Capturer() Capturer {
	return s.capturer
}

// CaptureFrame captures current window frame with optional caching
func (s *Service) CaptureFrame(useCache bool) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if useCache && s.cachedFrame != nil {
		if time.Since(s.cachedFrameTime) < s.cacheDuration {
			return s.cachedFrame, nil
		}
	}

	frame, err := s.capturer.CaptureFrame()
	if err != nil {
		return nil, err
	}

	if useCache {
		s.cachedFrame = frame
		s.cachedFrameTime = time.Now()
	}
	return frame, nil
}

// InvalidateCache forces next capture to get fresh frame
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cachedFrame = nil
}

// Bounds returns the window rectangle in screen coordinates.
func (s *Service) Bounds() (image.Rectangle, error) {
	return s.capturer.Bounds()
}

// FindTemplate captures a fresh frame and searches it for the named template,
// applying the registry's per-template threshold and region.
func (s *Service) FindTemplate(name string) (Match, error) {
	s.InvalidateCache()
	frame, err := s.CaptureFrame(true)
	if err != nil {
		return Match{}, fmt.Errorf("failed to capture frame: %w", err)
	}
	return s.FindTemplateInFrame(frame, name)
}

// FindTemplateInFrame searches a specific frame for the named template.
func (s *Service) FindTemplateInFrame(frame *image.RGBA, name string) (Match, error) {
	template, ok := s.templateRegistry.Get(name)
	if !ok {
		return Match{}, fmt.Errorf("template %q not found in registry", name)
	}

	needle, err := s.loadTemplate(template)
	if err != nil {
		return Match{}, fmt.Errorf("failed to load template %q: %w", name, err)
	}

	config := DefaultMatchConfig()
	config.Threshold = template.Threshold
	if template.Region != nil {
		config.SearchRegion = template.Region.ToImageRectangle()
	}

	return FindTemplate(frame, needle, config), nil
}

// WaitForTemplate polls for the named template until it appears or the
// timeout elapses. Each poll captures a fresh frame.
func (s *Service) WaitForTemplate(name string, timeout, interval time.Duration) (Match, error) {
	start := time.Now()
	for {
		match, err := s.FindTemplate(name)
		if err != nil {
			return Match{}, err
		}
		if match.Found {
			return match, nil
		}
		if time.Since(start) > timeout {
			return match, fmt.Errorf("template %q not found within %v", name, timeout)
		}
		time.Sleep(interval)
	}
}

func (s *Service) loadTemplate(template Template) (*image.RGBA, error) {
	s.mu.RLock()
	cached, ok := s.templateCache[template.Name]
	registry := s.templateRegistry
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	// Prefer the registry's image cache so preloaded templates are shared.
	if registry != nil {
		if imageCache := registry.ImageCache(); imageCache != nil {
			if img, _, err := imageCache.Get(template.Name); err == nil {
				s.mu.Lock()
				s.templateCache[template.Name] = img
				s.mu.Unlock()
				return img, nil
			}
		}
	}

	file, err := os.Open(template.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file %s: %w", template.Path, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}
	rgba := ToRGBA(img)

	s.mu.Lock()
	s.templateCache[template.Name] = rgba
	s.mu.Unlock()
	return rgba, nil
}

// ClearTemplateCache clears template cache (useful if templates change)
func (s *Service) ClearTemplateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templateCache = make(map[string]*image.RGBA)
}
