package render

import (
	"fmt"
	"strings"
	"sync"
)

// InvalidationLevel ranks what changed since the last frame. Levels are
// totally ordered; rendering at a level refreshes everything a lower level
// would.
type InvalidationLevel int

const (
	LevelNone InvalidationLevel = iota
	// LevelOverlay: only temp elements or overlays changed. The cached scene is reused.
	LevelOverlay
	// LevelView: pan, zoom or rotate.
	LevelView
	// LevelScene: elements or layers changed.
	LevelScene
	// LevelFull: size, backend or background changed.
	LevelFull
)

var levelNames = [...]string{"none", "overlay", "view", "scene", "full"}

func (l InvalidationLevel) String() string {
	if l < LevelNone || l > LevelFull {
		return fmt.Sprintf("InvalidationLevel(%d)", int(l))
	}
	return levelNames[l]
}

// ParseInvalidationLevel accepts the names produced by String, case-insensitively.
func ParseInvalidationLevel(s string) (InvalidationLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return InvalidationLevel(i), nil
		}
	}
	return LevelNone, fmt.Errorf("unknown invalidation level %q", s)
}

// Invalidator accumulates requested levels between renders. A request for a
// level lower than the pending one never downgrades it. Safe for concurrent use.
type Invalidator struct {
	mu      sync.Mutex
	pending InvalidationLevel
}

// Request raises the pending level to l if l is higher.
func (v *Invalidator) Request(l InvalidationLevel) {
	v.mu.Lock()
	if l > v.pending {
		v.pending = l
	}
	v.mu.Unlock()
}

// Pending returns the current level without resetting it.
func (v *Invalidator) Pending() InvalidationLevel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending
}

// Take returns the pending level and resets it to LevelNone.
func (v *Invalidator) Take() InvalidationLevel {
	v.mu.Lock()
	defer v.mu.Unlock()
	l := v.pending
	v.pending = LevelNone
	return l
}
