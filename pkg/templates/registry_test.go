package templates

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dreamerbot/arena-go/internal/cv"
)

func TestRegisterAndGet(t *testing.T) {
	registry := NewRegistry("templates")

	template := cv.Template{Name: "start_fight", Path: "templates/start_fight.png", Threshold: 0.8}
	if err := registry.Register(template); err != nil {
		t.Fatalf("Failed to register template: %v", err)
	}

	got, ok := registry.Get("start_fight")
	if !ok {
		t.Fatal("Expected template to be found")
	}
	if got.Threshold != 0.8 {
		t.Errorf("Expected threshold 0.8, got %v", got.Threshold)
	}

	if _, ok := registry.Get("missing"); ok {
		t.Error("Expected missing template to not be found")
	}
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	registry := NewRegistry("templates")
	if err := registry.Register(cv.Template{Path: "x.png"}); err == nil {
		t.Error("Expected error for empty template name")
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	yamlPath := filepath.Join(tempDir, "arena.yaml")

	content := `templates:
  - name: battle_complete
    path: battle_complete.png
    threshold: 0.85
    region:
      x1: 100
      y1: 200
      x2: 400
      y2: 300
  - name: empty_tokens
    path: empty_tokens.png
    threshold: 0.98
`
	if err := os.WriteFile(yamlPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write YAML: %v", err)
	}

	registry := NewRegistry(tempDir)
	if err := registry.LoadFromFile(yamlPath); err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	if registry.Count() != 2 {
		t.Errorf("Expected 2 templates, got %d", registry.Count())
	}

	template, ok := registry.Get("battle_complete")
	if !ok {
		t.Fatal("Expected battle_complete to be registered")
	}
	if template.Region == nil || template.Region.X1 != 100 || template.Region.Y2 != 300 {
		t.Errorf("Unexpected region: %+v", template.Region)
	}
	if template.Path != filepath.Join(tempDir, "battle_complete.png") {
		t.Errorf("Expected path resolved against base, got %s", template.Path)
	}

	tokens, _ := registry.Get("empty_tokens")
	if tokens.Threshold != 0.98 {
		t.Errorf("Expected threshold 0.98, got %v", tokens.Threshold)
	}
}

func TestLoadFromFileDefaultThreshold(t *testing.T) {
	tempDir := t.TempDir()
	yamlPath := filepath.Join(tempDir, "arena.yaml")

	content := `templates:
  - name: back
    path: back.png
`
	if err := os.WriteFile(yamlPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write YAML: %v", err)
	}

	registry := NewRegistry(tempDir)
	if err := registry.LoadFromFile(yamlPath); err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	template, _ := registry.Get("back")
	if template.Threshold != 0.8 {
		t.Errorf("Expected default threshold 0.8, got %v", template.Threshold)
	}
}

func TestDefaultArenaTemplates(t *testing.T) {
	registry, err := NewArenaRegistry("assets")
	if err != nil {
		t.Fatalf("Failed to build arena registry: %v", err)
	}

	required := []string{
		Battle, Arena, ClassicArena, StartFight, BattleComplete,
		ReturnArena, FreeRefresh, PayRefresh, EmptyTokens, FreeTokens, Back,
	}
	for _, name := range required {
		if !registry.Has(name) {
			t.Errorf("Expected arena registry to contain %q", name)
		}
	}

	tokens, _ := registry.Get(EmptyTokens)
	if tokens.Threshold != 0.98 {
		t.Errorf("Expected empty_tokens threshold 0.98, got %v", tokens.Threshold)
	}
}

func TestImageCacheLoadAndRelease(t *testing.T) {
	tempDir := t.TempDir()
	imgPath := filepath.Join(tempDir, "back.png")

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(1, 1, color.RGBA{R: 200, G: 100, B: 0, A: 255})
	file, err := os.Create(imgPath)
	if err != nil {
		t.Fatalf("Failed to create image file: %v", err)
	}
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	file.Close()

	cache := NewImageCache()
	template := cv.Template{Name: "back", Path: imgPath, Threshold: 0.8}
	if err := cache.Register(template, false); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	loaded, got, err := cache.Get("back")
	if err != nil {
		t.Fatalf("Failed to get image: %v", err)
	}
	if loaded.Bounds().Dx() != 4 || loaded.Bounds().Dy() != 4 {
		t.Errorf("Unexpected image size: %v", loaded.Bounds())
	}
	if got.Name != "back" {
		t.Errorf("Expected template back, got %s", got.Name)
	}

	// Second get should hit the cache.
	if _, _, err := cache.Get("back"); err != nil {
		t.Fatalf("Second get failed: %v", err)
	}
	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %+v", stats)
	}

	if err := cache.Release("back"); err != nil {
		t.Fatalf("Failed to release: %v", err)
	}

	if _, _, err := cache.Get("missing"); err == nil {
		t.Error("Expected error for unknown template")
	}
}

func TestPreloadMissingFile(t *testing.T) {
	cache := NewImageCache()
	template := cv.Template{Name: "ghost", Path: "/nonexistent/ghost.png", Threshold: 0.8}
	if err := cache.Register(template, true); err == nil {
		t.Error("Expected preload failure for missing file")
	}
}
