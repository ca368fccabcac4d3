// Package host stands in for the game client when the plugin runs as a
// standalone process: actors come from a YAML fixture and commands are
// echoed to chat.
package host

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kasuganosora/autoinvite/game/actor"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownActor   = errors.New("host: no such actor")
	ErrNotTargetable  = errors.New("host: actor cannot be targeted")
	ErrNoLocalInTable = errors.New("host: local player id not present in actors")
)

// Fixture is the on-disk shape of the simulated object table.
type Fixture struct {
	LocalPlayer uint32         `yaml:"local_player"`
	Actors      []FixtureActor `yaml:"actors"`
}

// FixtureActor is one entry of the object table.
//
// FreeCompany is the raw company tag: an empty string means no company,
// and leaving it out models a tag the client could not read.
type FixtureActor struct {
	ID          uint32     `yaml:"id"`
	Name        string     `yaml:"name"`
	Kind        string     `yaml:"kind"`
	Position    [3]float32 `yaml:"position"`
	Targetable  *bool      `yaml:"targetable"`
	FreeCompany *string    `yaml:"free_company"`
}

func (a FixtureActor) snapshot() (actor.Snapshot, error) {
	s := actor.Snapshot{
		ID:         actor.ObjectID(a.ID),
		Name:       a.Name,
		Position:   actor.Vec3{X: a.Position[0], Y: a.Position[1], Z: a.Position[2]},
		Targetable: a.Targetable == nil || *a.Targetable,
	}
	switch strings.ToLower(a.Kind) {
	case "", "player":
		s.Kind = actor.KindPlayer
	case "npc":
		s.Kind = actor.KindNPC
	case "other":
		s.Kind = actor.KindOther
	default:
		return s, fmt.Errorf("actor %d: unknown kind %q", a.ID, a.Kind)
	}
	if a.FreeCompany != nil {
		s.FreeCompanyTag = append([]byte(*a.FreeCompany), 0)
	}
	return s, nil
}

// ParseFixture decodes a fixture document.
func ParseFixture(raw []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("fixture: %w", err)
	}
	return f, nil
}

// FixtureTable is a live object table backed by a fixture file. It
// implements actor.ObjectTable, actor.ClientState and invite.Targeter.
type FixtureTable struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	actors  []actor.Snapshot
	localID actor.ObjectID
	target  actor.ObjectID
}

// LoadFixtureTable reads path and returns a table over it.
func LoadFixtureTable(path string, logger *zap.Logger) (*FixtureTable, error) {
	t := &FixtureTable{path: path, logger: logger}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewFixtureTable builds a table from an already decoded fixture.
// Reload is a no-op for such a table.
func NewFixtureTable(f Fixture, logger *zap.Logger) (*FixtureTable, error) {
	t := &FixtureTable{logger: logger}
	if err := t.apply(f); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-reads the fixture file. On error the previous contents stay.
func (t *FixtureTable) Reload() error {
	if t.path == "" {
		return nil
	}
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return err
	}
	f, err := ParseFixture(raw)
	if err != nil {
		return err
	}
	return t.apply(f)
}

func (t *FixtureTable) apply(f Fixture) error {
	actors := make([]actor.Snapshot, 0, len(f.Actors))
	foundLocal := false
	for _, a := range f.Actors {
		s, err := a.snapshot()
		if err != nil {
			return err
		}
		if a.ID == f.LocalPlayer {
			foundLocal = true
		}
		actors = append(actors, s)
	}
	if f.LocalPlayer != 0 && !foundLocal {
		return fmt.Errorf("%w: %d", ErrNoLocalInTable, f.LocalPlayer)
	}

	t.mu.Lock()
	t.actors = actors
	t.localID = actor.ObjectID(f.LocalPlayer)
	t.mu.Unlock()
	t.logger.Debug("fixture loaded", zap.String("path", t.path), zap.Int("actors", len(actors)))
	return nil
}

// Snapshot returns a copy of the current actors.
func (t *FixtureTable) Snapshot() []actor.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]actor.Snapshot(nil), t.actors...)
}

// LocalPlayer reports the fixture's local player. A zero local_player
// means the player is not logged in.
func (t *FixtureTable) LocalPlayer() (actor.Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.localID == 0 {
		return actor.Snapshot{}, false
	}
	for _, a := range t.actors {
		if a.ID == t.localID {
			return a, true
		}
	}
	return actor.Snapshot{}, false
}

// SetTarget selects id if it is present and targetable.
func (t *FixtureTable) SetTarget(id actor.ObjectID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, a := range t.actors {
		if a.ID != id {
			continue
		}
		if !a.Targetable {
			return fmt.Errorf("%w: %s", ErrNotTargetable, a.Name)
		}
		t.target = id
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownActor, id)
}

// Target returns the selected actor id, if any.
func (t *FixtureTable) Target() (actor.ObjectID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.target, t.target != 0
}
