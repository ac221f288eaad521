package world

import (
	"time"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/data"
)

// Enchant is a timed effect bound to a character. It changes the target's
// life at a fixed rate and ends when the duration runs out or the target is
// no longer defined.
type Enchant struct {
	ecs.Base
	state *State

	profile   *data.EnchantProfile
	target    ecs.EntityID
	remaining time.Duration
	carry     time.Duration // partial second not yet applied
	particle  ecs.EntityID
}

func (e *Enchant) Profile() *data.EnchantProfile { return e.profile }
func (e *Enchant) Target() ecs.EntityID          { return e.target }
func (e *Enchant) Remaining() time.Duration      { return e.remaining }

func (e *Enchant) ProfileName() string {
	if e.profile == nil {
		return ""
	}
	return e.profile.Name
}

func (e *Enchant) DoConstruct() error {
	if e.profile == nil {
		return ErrNoProfile
	}
	e.remaining = e.profile.Duration()
	e.carry = 0
	e.particle = 0
	return nil
}

// DoInit terminates the enchant right away if its target is already gone.
func (e *Enchant) DoInit() error {
	if _, ok := e.state.Character(e.target); !ok {
		ecs.ReqTerminate(&e.Base)
		return nil
	}
	if e.profile.Particle != "" {
		pt, err := e.state.SpawnParticle(e.profile.Particle, e.target, false)
		if err == nil {
			e.particle = pt.ID()
		}
	}
	return nil
}

func (e *Enchant) DoProcess(dt time.Duration) error {
	target, ok := e.state.Character(e.target)
	if !ok {
		ecs.ReqTerminate(&e.Base)
		return nil
	}

	dt = clampDelta(dt)
	if dt > e.remaining {
		dt = e.remaining
	}
	e.remaining -= dt

	if rate := e.profile.LifePerSecond; rate != 0 {
		e.carry += dt
		whole := e.carry / time.Second
		if whole > 0 {
			e.carry -= whole * time.Second
			target.Damage(-rate * int(whole))
		}
	}

	if e.remaining <= 0 {
		ecs.ReqTerminate(&e.Base)
	}
	return nil
}

// DoDeinit lets the attached particle fade out.
func (e *Enchant) DoDeinit() error {
	if pt, ok := e.state.Particles.Get(e.particle); ok && pt.IsProcessing() {
		ecs.BeginWaiting(&pt.Base)
	}
	return nil
}

func (e *Enchant) DoDestruct() error {
	e.target = 0
	e.remaining = 0
	e.carry = 0
	e.particle = 0
	return nil
}
