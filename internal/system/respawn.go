package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/core/event"
	coresys "github.com/l1jgo/lifecycle/internal/core/system"
	"github.com/l1jgo/lifecycle/internal/data"
	"github.com/l1jgo/lifecycle/internal/world"
	"go.uber.org/zap"
)

type respawnTimer struct {
	entry *data.SpawnEntry
	left  time.Duration
}

// RespawnSystem owns the spawn list population. Populate spawns it once; after
// that every reclaimed character whose entry has a respawn delay is replaced
// when the delay runs out; a replacement that cannot spawn is retried after
// another delay. Phase 3 (PostUpdate).
type RespawnSystem struct {
	world   *world.State
	entries []data.SpawnEntry
	owned   map[ecs.EntityID]*data.SpawnEntry
	timers  []respawnTimer
	rep     reporter
}

func NewRespawnSystem(bus *event.Bus, ws *world.State, entries []data.SpawnEntry, log *zap.Logger, errs ErrorCounter) *RespawnSystem {
	s := &RespawnSystem{
		world:   ws,
		entries: entries,
		owned:   make(map[ecs.EntityID]*data.SpawnEntry),
		rep:     reporter{name: "respawn", log: log, errors: errs},
	}
	event.Subscribe(bus, s.onReclaimed)
	return s
}

func (s *RespawnSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

// Populate spawns every entry of the spawn list.
func (s *RespawnSystem) Populate() error {
	var errs []error
	for i := range s.entries {
		entry := &s.entries[i]
		for n := 0; n < entry.Count; n++ {
			if err := s.spawn(entry); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// Scheduled returns how many respawns are waiting.
func (s *RespawnSystem) Scheduled() int { return len(s.timers) }

// Stop drops pending respawns and forgets the population, so a teardown does
// not refill the world.
func (s *RespawnSystem) Stop() {
	s.timers = s.timers[:0]
	clear(s.owned)
}

func (s *RespawnSystem) Update(dt time.Duration) {
	kept := s.timers[:0]
	for _, t := range s.timers {
		t.left -= dt
		if t.left > 0 {
			kept = append(kept, t)
			continue
		}
		if err := s.spawn(t.entry); err != nil {
			s.rep.report("respawn failed", err)
			t.left = t.entry.Respawn()
			kept = append(kept, t)
		}
	}
	s.timers = kept
}

func (s *RespawnSystem) spawn(entry *data.SpawnEntry) error {
	c, err := s.world.SpawnCharacter(entry.Profile)
	if err != nil {
		return fmt.Errorf("spawn %s: %w", entry.Profile, err)
	}
	s.owned[c.ID()] = entry
	return nil
}

func (s *RespawnSystem) onReclaimed(e event.EntityReclaimed) {
	if e.Pool != world.PoolCharacters {
		return
	}
	entry, ok := s.owned[e.EntityID]
	if !ok {
		return
	}
	delete(s.owned, e.EntityID)
	if entry.RespawnMS <= 0 {
		return
	}
	s.timers = append(s.timers, respawnTimer{entry: entry, left: entry.Respawn()})
}
