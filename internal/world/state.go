package world

import (
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/data"
)

// Pool names, also used as metric and journal labels.
const (
	PoolCharacters = "characters"
	PoolParticles  = "particles"
	PoolEnchants   = "enchants"
)

// ErrNoProfile is returned by a construct hook when a slot was activated
// without a profile.
var ErrNoProfile = errors.New("no profile")

// Scripts runs per-profile Lua hooks. A nil Scripts disables them.
type Scripts interface {
	RunHook(script, hook string, id ecs.EntityID) error
}

// Capacities sizes the three pools.
type Capacities struct {
	Characters      int
	Particles       int
	Enchants        int
	ParticleReserve int
}

// State owns the entity pools of a running game.
// Single-goroutine access only (game loop).
type State struct {
	ecs        *ecs.World
	Characters *ecs.Pool[*Character]
	Particles  *ecs.Pool[*Particle]
	Enchants   *ecs.Pool[*Enchant]

	profiles *data.ProfileTable
	scripts  Scripts
}

func NewState(w *ecs.World, profiles *data.ProfileTable, caps Capacities) *State {
	s := &State{
		ecs:      w,
		profiles: profiles,
	}
	s.Characters = ecs.NewWorldPool(w, PoolCharacters, caps.Characters, func(int) *Character {
		return &Character{state: s}
	})
	s.Particles = ecs.NewWorldPool(w, PoolParticles, caps.Particles, func(int) *Particle {
		return &Particle{state: s}
	})
	s.Enchants = ecs.NewWorldPool(w, PoolEnchants, caps.Enchants, func(int) *Enchant {
		return &Enchant{state: s}
	})
	s.Particles.SetReserve(caps.ParticleReserve)
	return s
}

func (s *State) World() *ecs.World            { return s.ecs }
func (s *State) Profiles() *data.ProfileTable { return s.profiles }
func (s *State) SetScripts(scripts Scripts)   { s.scripts = scripts }

// SetMaxIterations bounds the activate/teardown loops of every pool.
func (s *State) SetMaxIterations(n int) {
	s.Characters.SetMaxIterations(n)
	s.Particles.SetMaxIterations(n)
	s.Enchants.SetMaxIterations(n)
}

// SpawnCharacter allocates and activates a character from a named profile.
func (s *State) SpawnCharacter(profile string) (*Character, error) {
	p := s.profiles.Character(profile)
	if p == nil {
		return nil, fmt.Errorf("character %q: %w", profile, data.ErrUnknownProfile)
	}
	return s.Characters.Spawn(false, func(c *Character) { c.profile = p })
}

// SpawnParticle allocates a particle, optionally attached to a character.
// Forced spawns may recycle a lingering particle when the pool is full.
func (s *State) SpawnParticle(profile string, attach ecs.EntityID, force bool) (*Particle, error) {
	p := s.profiles.Particle(profile)
	if p == nil {
		return nil, fmt.Errorf("particle %q: %w", profile, data.ErrUnknownProfile)
	}
	return s.Particles.Spawn(force, func(pt *Particle) {
		pt.profile = p
		pt.attached = attach
	})
}

// AddEnchant binds a timed effect to target.
func (s *State) AddEnchant(profile string, target ecs.EntityID) (*Enchant, error) {
	p := s.profiles.Enchant(profile)
	if p == nil {
		return nil, fmt.Errorf("enchant %q: %w", profile, data.ErrUnknownProfile)
	}
	return s.Enchants.Spawn(false, func(e *Enchant) {
		e.profile = p
		e.target = target
	})
}

// Character resolves a handle to a defined character.
func (s *State) Character(id ecs.EntityID) (*Character, bool) {
	c, ok := s.Characters.Get(id)
	if !ok || !c.Defined() {
		return nil, false
	}
	return c, true
}

// Lookup resolves a handle in any pool to its base.
func (s *State) Lookup(id ecs.EntityID) (*ecs.Base, bool) {
	if c, ok := s.Characters.Get(id); ok {
		return c.Entity(), true
	}
	if p, ok := s.Particles.Get(id); ok {
		return p.Entity(), true
	}
	if e, ok := s.Enchants.Get(id); ok {
		return e.Entity(), true
	}
	return nil, false
}

// EnchantsOn lists the enchants currently bound to target.
func (s *State) EnchantsOn(target ecs.EntityID) []*Enchant {
	var out []*Enchant
	s.Enchants.Each(func(e *Enchant) {
		if e.target == target {
			out = append(out, e)
		}
	})
	return out
}

// Teardown retires every entity in every pool.
func (s *State) Teardown() error {
	return s.ecs.Registry().FreeAll()
}

func (s *State) runHook(script, hook string, id ecs.EntityID) error {
	if s.scripts == nil || script == "" {
		return nil
	}
	return s.scripts.RunHook(script, hook, id)
}

func clampDelta(dt time.Duration) time.Duration {
	if dt < 0 {
		return 0
	}
	return dt
}
