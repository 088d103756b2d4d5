// Package identity maintains the per-game mapping between internal
// participant identifiers and the display names everyone else sees.
//
// Internal identifiers never leave the core; agents, other participants,
// and every outbound event know a participant only by display name. The
// registry is the single place the two are tied together, and the
// mapping dies with the game.
package identity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/duskhollow/duskhollow/internal/errs"
)

// namePool is the curated set of human-sounding display names. Once a
// game exhausts it, numbered synthetic names take over.
var namePool = []string{
	"Rowan", "Sage", "Marlow", "Wren", "Hollis",
	"Ashby", "Quinn", "Tamsin", "Bram", "Isolde",
	"Fenwick", "Petra", "Calder", "Noor", "Edmund",
	"Vesper", "Ottoline", "Silas", "Maren", "Leopold",
}

// gameNames holds one game's bidirectional mapping.
type gameNames struct {
	byName map[string]string // display name -> participant id
	byID   map[string]string // participant id -> display name
	drawn  int               // names consumed from the pool
	serial int               // synthetic name counter
}

// Registry maps display names to participant ids, per game, in both
// directions. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	games map[string]*gameNames
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{games: make(map[string]*gameNames)}
}

// Register binds a display name to a participant id within a game.
// Returns a ConflictError if either side is already taken.
func (r *Registry) Register(name, id, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.game(gameID)
	if _, taken := g.byName[name]; taken {
		return errs.NewConflictError("name", name, gameID, errs.ErrNameTaken)
	}
	if _, taken := g.byID[id]; taken {
		return errs.NewConflictError("id", id, gameID, errs.ErrIDTaken)
	}

	g.byName[name] = id
	g.byID[id] = name
	return nil
}

// AssignName draws the next free display name for a participant and
// registers it. Pool names come first; once the pool is exhausted for
// the game, numbered synthetic names are issued. Names are never reused
// within a live game.
func (r *Registry) AssignName(id, gameID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.game(gameID)
	if _, taken := g.byID[id]; taken {
		return "", errs.NewConflictError("id", id, gameID, errs.ErrIDTaken)
	}

	for g.drawn < len(namePool) {
		candidate := namePool[g.drawn]
		g.drawn++
		if _, taken := g.byName[candidate]; !taken {
			g.byName[candidate] = id
			g.byID[id] = candidate
			return candidate, nil
		}
	}

	// Pool exhausted: fall back to numbered synthetic names.
	for {
		g.serial++
		candidate := fmt.Sprintf("Visitor-%d", g.serial)
		if _, taken := g.byName[candidate]; !taken {
			g.byName[candidate] = id
			g.byID[id] = candidate
			return candidate, nil
		}
	}
}

// ResolveID returns the participant id behind a display name. Absence is
// a normal condition (an agent may reference a stale name); callers get
// a NotFoundError, never a panic.
func (r *Registry) ResolveID(name, gameID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[gameID]
	if !ok {
		return "", errs.NewNotFoundError("game", gameID)
	}
	id, ok := g.byName[name]
	if !ok {
		return "", errs.NewNotFoundError("name", name)
	}
	return id, nil
}

// ResolveName returns the display name for a participant id.
func (r *Registry) ResolveName(id, gameID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[gameID]
	if !ok {
		return "", errs.NewNotFoundError("game", gameID)
	}
	name, ok := g.byID[id]
	if !ok {
		return "", errs.NewNotFoundError("id", id)
	}
	return name, nil
}

// Unregister removes a participant's mapping, freeing neither side for
// reuse within the live game (pool names stay burned).
func (r *Registry) Unregister(id, gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[gameID]
	if !ok {
		return
	}
	if name, ok := g.byID[id]; ok {
		delete(g.byID, id)
		delete(g.byName, name)
	}
}

// ReleaseGame destroys a game's entire mapping. Called when the game
// ends.
func (r *Registry) ReleaseGame(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, gameID)
}

// Validate checks forward/backward consistency for a game and returns
// every discrepancy found. Diagnostics only; never on the hot path.
func (r *Registry) Validate(gameID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[gameID]
	if !ok {
		return nil
	}

	var problems []string
	for name, id := range g.byName {
		if back, ok := g.byID[id]; !ok {
			problems = append(problems, fmt.Sprintf("name %q maps to id %q with no reverse entry", name, id))
		} else if back != name {
			problems = append(problems, fmt.Sprintf("name %q maps to id %q which maps back to %q", name, id, back))
		}
	}
	for id, name := range g.byID {
		if fwd, ok := g.byName[name]; !ok {
			problems = append(problems, fmt.Sprintf("id %q maps to name %q with no forward entry", id, name))
		} else if fwd != id {
			problems = append(problems, fmt.Sprintf("id %q maps to name %q which maps back to %q", id, name, fwd))
		}
	}
	sort.Strings(problems)
	return problems
}

// game returns (creating if needed) the mapping for a game.
// Caller must hold the write lock.
func (r *Registry) game(gameID string) *gameNames {
	g, ok := r.games[gameID]
	if !ok {
		g = &gameNames{
			byName: make(map[string]string),
			byID:   make(map[string]string),
		}
		r.games[gameID] = g
	}
	return g
}

// PoolSize returns the number of curated names available per game.
func PoolSize() int { return len(namePool) }
