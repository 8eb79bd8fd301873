package templates

import (
	"path/filepath"

	"github.com/dreamerbot/arena-go/internal/cv"
)

// Template names used by the arena sequence.
const (
	Battle         = "battle"
	Arena          = "arena"
	ClassicArena   = "classic_arena"
	StartFight     = "start_fight"
	BattleComplete = "battle_complete"
	ReturnArena    = "return_arena"
	FreeRefresh    = "free_refresh"
	PayRefresh     = "pay_refresh"
	EmptyTokens    = "empty_tokens"
	FreeTokens     = "free_tokens"
	Back           = "back"
)

// DefaultArenaTemplates returns the built-in template set for the arena
// sequence, resolved against basePath. The empty-tokens threshold is very
// high because a 9/10 counter and a 0/10 counter render almost identically.
func DefaultArenaTemplates(basePath string) []cv.Template {
	entry := func(name, file string, threshold float64) cv.Template {
		return cv.Template{
			Name:      name,
			Path:      filepath.Join(basePath, file),
			Threshold: threshold,
		}
	}

	return []cv.Template{
		entry(Battle, "battle.png", 0.8),
		entry(Arena, "arena.png", 0.8),
		entry(ClassicArena, "classic_arena.png", 0.8),
		entry(StartFight, "start_fight.png", 0.8),
		entry(BattleComplete, "battle_complete.png", 0.8),
		entry(ReturnArena, "return_arena.png", 0.8),
		entry(FreeRefresh, "free_refresh.png", 0.8),
		entry(PayRefresh, "pay_refresh.png", 0.8),
		entry(EmptyTokens, "empty_tokens.png", 0.98),
		entry(FreeTokens, "free_tokens.png", 0.8),
		entry(Back, "back.png", 0.8),
	}
}

// NewArenaRegistry creates a registry preloaded with the default arena
// template set.
func NewArenaRegistry(basePath string) (*Registry, error) {
	registry := NewRegistry(basePath)
	if err := registry.RegisterBatch(DefaultArenaTemplates(basePath)); err != nil {
		return nil, err
	}
	return registry, nil
}
