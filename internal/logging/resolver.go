package logging

import (
	"strings"
	"sync"
	"sync/atomic"
)

// ResolveLevel returns the effective level for name: the explicit level of
// the name itself or of its nearest dotted ancestor, otherwise def.
func ResolveLevel(name string, explicit map[string]Level, def Level) Level {
	for name != "" {
		if level, ok := explicit[name]; ok {
			return level
		}
		idx := strings.LastIndexByte(name, '.')
		if idx < 0 {
			break
		}
		name = name[:idx]
	}
	return def
}

// Levels is the registry of explicit per-logger levels.
//
// Thread-safety:
//   - Effective reads an immutable snapshot without locking
//   - Set and Clear publish a new copy of the map
type Levels struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[map[string]Level]
	def      atomic.Int64
}

// NewLevels creates a registry with the given default level and no
// explicit levels.
func NewLevels(def Level) *Levels {
	l := &Levels{}
	empty := make(map[string]Level)
	l.snapshot.Store(&empty)
	l.def.Store(int64(def))
	return l
}

// Default returns the level used when no ancestor has an explicit level.
func (l *Levels) Default() Level {
	return Level(l.def.Load())
}

// SetDefault replaces the fallback level.
func (l *Levels) SetDefault(level Level) {
	l.def.Store(int64(level))
}

// Set assigns an explicit level to name.
func (l *Levels) Set(name string, level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := *l.snapshot.Load()
	next := make(map[string]Level, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[name] = level
	l.snapshot.Store(&next)
}

// Clear removes the explicit level of name so it inherits again.
func (l *Levels) Clear(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := *l.snapshot.Load()
	if _, ok := current[name]; !ok {
		return
	}
	next := make(map[string]Level, len(current))
	for k, v := range current {
		if k != name {
			next[k] = v
		}
	}
	l.snapshot.Store(&next)
}

// Explicit reports the explicit level of name, if any.
func (l *Levels) Explicit(name string) (Level, bool) {
	level, ok := (*l.snapshot.Load())[name]
	return level, ok
}

// Effective resolves the threshold enforced for name.
func (l *Levels) Effective(name string) Level {
	return ResolveLevel(name, *l.snapshot.Load(), l.Default())
}
