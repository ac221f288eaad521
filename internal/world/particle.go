package world

import (
	"time"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/data"
)

// Particle is a short-lived effect. When its lifetime runs out, or the
// character it is attached to goes away, it enters the waiting phase and
// lingers before asking to be terminated. Lingering particles are the first
// slots recycled by a forced spawn.
type Particle struct {
	ecs.Base
	state *State

	profile  *data.ParticleProfile
	attached ecs.EntityID
	age      time.Duration
	linger   time.Duration
}

func (p *Particle) Profile() *data.ParticleProfile { return p.profile }
func (p *Particle) Attached() ecs.EntityID         { return p.attached }
func (p *Particle) Age() time.Duration             { return p.age }

func (p *Particle) ProfileName() string {
	if p.profile == nil {
		return ""
	}
	return p.profile.Name
}

func (p *Particle) DoConstruct() error {
	if p.profile == nil {
		return ErrNoProfile
	}
	p.age = 0
	p.linger = p.profile.Linger()
	return nil
}

func (p *Particle) DoInit() error { return nil }

func (p *Particle) DoProcess(dt time.Duration) error {
	p.age += clampDelta(dt)

	expired := p.age >= p.profile.Lifetime()
	if !p.attached.IsZero() {
		if _, ok := p.state.Character(p.attached); !ok {
			expired = true
		}
	}
	if expired {
		ecs.BeginWaiting(&p.Base)
	}
	return nil
}

func (p *Particle) DoWait(dt time.Duration) error {
	p.linger -= clampDelta(dt)
	if p.linger <= 0 {
		ecs.ReqTerminate(&p.Base)
	}
	return nil
}

func (p *Particle) DoDeinit() error { return nil }

func (p *Particle) DoDestruct() error {
	p.attached = 0
	p.age = 0
	p.linger = 0
	return nil
}
