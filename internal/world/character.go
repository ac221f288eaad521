package world

import (
	"errors"
	"time"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/data"
)

// Lua hook names called on a character's script.
const (
	HookInit   = "on_init"
	HookTick   = "on_tick"
	HookDeinit = "on_deinit"
)

// Character is a pooled, long-lived actor. Its payload is rebuilt from the
// profile every time the slot is reused.
type Character struct {
	ecs.Base
	state *State

	profile *data.CharacterProfile
	life    int
	maxLife int
	age     time.Duration
}

func (c *Character) Profile() *data.CharacterProfile { return c.profile }
func (c *Character) Life() int                       { return c.life }
func (c *Character) MaxLife() int                    { return c.maxLife }
func (c *Character) Age() time.Duration              { return c.age }

func (c *Character) ProfileName() string {
	if c.profile == nil {
		return ""
	}
	return c.profile.Name
}

// Damage changes life by -amount, clamped to [0, maxLife]. A character that
// reaches zero asks to be terminated.
func (c *Character) Damage(amount int) {
	if !c.Defined() {
		return
	}
	c.life -= amount
	if c.life > c.maxLife {
		c.life = c.maxLife
	}
	if c.life <= 0 {
		c.life = 0
		ecs.ReqTerminate(&c.Base)
	}
}

func (c *Character) DoConstruct() error {
	if c.profile == nil {
		return ErrNoProfile
	}
	c.life = c.profile.Life
	c.maxLife = c.profile.Life
	c.age = 0
	return nil
}

// DoInit binds the profile's enchants and runs on_init. A failure unbinds
// whatever was bound so the phase can be retried from scratch.
func (c *Character) DoInit() error {
	id := c.ID()
	for _, name := range c.profile.Enchants {
		if _, err := c.state.AddEnchant(name, id); err != nil {
			return errors.Join(err, c.unbindEnchants())
		}
	}
	if err := c.state.runHook(c.profile.Script, HookInit, id); err != nil {
		return errors.Join(err, c.unbindEnchants())
	}
	return nil
}

func (c *Character) DoProcess(dt time.Duration) error {
	if !c.State().Active() {
		ecs.SetActive(&c.Base, true)
	}
	c.age += clampDelta(dt)
	if lt := c.profile.Lifetime(); lt > 0 && c.age >= lt {
		ecs.ReqTerminate(&c.Base)
	}
	return c.state.runHook(c.profile.Script, HookTick, c.ID())
}

// DoDeinit releases enchants still bound to the character and leaves a
// death particle behind.
func (c *Character) DoDeinit() error {
	id := c.ID()
	if err := c.unbindEnchants(); err != nil {
		return err
	}
	if c.profile.DeathParticle != "" {
		if _, err := c.state.SpawnParticle(c.profile.DeathParticle, 0, true); err != nil {
			return err
		}
	}
	return c.state.runHook(c.profile.Script, HookDeinit, id)
}

func (c *Character) DoDestruct() error {
	c.life = 0
	c.maxLife = 0
	c.age = 0
	return nil
}

func (c *Character) unbindEnchants() error {
	var errs []error
	for _, e := range c.state.EnchantsOn(c.ID()) {
		if err := c.state.Enchants.Free(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
