package ecs

import "github.com/l1jgo/lifecycle/internal/core/action"

// Engine is the lifecycle context shared by every pool: the identity counter
// and the spawn nesting depth. Tests build their own; the game owns one.
// Single-goroutine access only (game loop).
type Engine struct {
	guidCounter uint32
	spawnDepth  int
}

func NewEngine() *Engine {
	return &Engine{}
}

// Created returns how many identities have ever been handed out.
func (e *Engine) Created() uint32 { return e.guidCounter }

// SpawnDepth returns how many entities are currently mid-spawn.
func (e *Engine) SpawnDepth() int { return e.spawnDepth }

// Allocate resets the entity for a new occupant of slot index, keeps the
// pool's bookkeeping, marks the slot occupied and validates it.
func (e *Engine) Allocate(b *Base, index int) {
	saved := b.slot

	// reset wipes the slot record too, hence the copy above
	b.reset(index)

	b.slot = saved
	b.slot.index = index
	b.slot.allocated = true

	e.Validate(b)
}

// Deallocate releases the slot and invalidates the entity.
func (e *Engine) Deallocate(b *Base) {
	b.slot.allocated = false
	Invalidate(b)
}

// Validate clears state and requests and starts the lifecycle if the slot is
// occupied. A new guid is assigned only on success.
func (e *Engine) Validate(b *Base) bool {
	b.state = b.state.Clear()
	b.req = Request{}

	b.state = b.state.SetValid(b.slot.allocated)
	if !b.state.valid {
		return false
	}

	e.guidCounter++
	b.guid = e.guidCounter
	return true
}

// BeginSpawn marks a valid entity as spawning and counts it once.
func (e *Engine) BeginSpawn(b *Base) {
	if !b.state.valid || b.state.spawning {
		return
	}
	if SetSpawning(b, true) {
		e.spawnDepth++
	}
}

// EndSpawn clears the spawning mark and uncounts it once.
func (e *Engine) EndSpawn(b *Base) {
	if !b.state.valid || !b.state.spawning {
		return
	}
	if SetSpawning(b, false) {
		e.spawnDepth--
	}
}

// Invalidate returns the state to the freshly constructed baseline.
func Invalidate(b *Base) {
	b.state = b.state.Clear()
}

func EndConstructing(b *Base)   { b.state = b.state.EndConstructing() }
func EndInitializing(b *Base)   { b.state = b.state.EndInitializing() }
func EndProcessing(b *Base)     { b.state = b.state.EndProcessing() }
func EndDeinitializing(b *Base) { b.state = b.state.EndDeinitializing() }
func EndDestructing(b *Base)    { b.state = b.state.EndDestructing() }
func EndKilling(b *Base)        { b.state = b.state.EndKilling() }
func BeginWaiting(b *Base)      { b.state = b.state.BeginWaiting() }

// BeginProcessing moves a fully initialized entity into Processing and
// records its display name. It refuses killed entities, entities with a
// pending kill request, and anything not both constructed and initialized.
// A refusal changes nothing, the name included, so an entity that never
// started processing keeps an empty name.
func BeginProcessing(b *Base, name string) bool {
	if !b.state.valid || b.state.killed {
		return false
	}
	if b.req.killMe {
		return false
	}
	if !b.state.constructed || !b.state.initialized {
		return false
	}
	if name == "" {
		name = "UNKNOWN"
	}
	b.name = name
	b.state.action = action.Processing
	return true
}

// SetActive toggles the gameplay activity flag. It only applies to an entity
// that is defined and has finished both construction and initialization.
func SetActive(b *Base, val bool) bool {
	if !b.state.valid || b.state.killed {
		return false
	}
	if val && (!b.state.constructed || !b.state.initialized) {
		return false
	}
	b.state.active = val
	return true
}

func SetSpawning(b *Base, val bool) bool {
	if !b.state.valid || b.state.killed {
		return false
	}
	b.state.spawning = val
	return true
}

// ReqTerminate asks for the entity to be killed at the next grant pass and
// switches it off right away. The action is left untouched.
func ReqTerminate(b *Base) bool {
	if !b.state.valid || b.state.killed {
		return false
	}
	b.req.killMe = true
	b.state.on = false
	return true
}

// ReqOn asks for the entity to be switched on or off at the next grant pass.
func ReqOn(b *Base, val bool) bool {
	if !b.state.valid || b.state.killed {
		return false
	}
	if val {
		b.req.turnOn = true
	} else {
		b.req.turnOff = true
	}
	return true
}

// ReqPause asks for the entity to be paused or resumed at the next grant pass.
func ReqPause(b *Base, val bool) bool {
	if !b.state.valid || b.state.killed {
		return false
	}
	if val {
		b.req.pauseOn = true
	} else {
		b.req.pauseOff = true
	}
	return true
}

// GrantTerminate switches the entity off and fast-forwards it toward the
// killed state, skipping phases it never entered: an initialized entity goes
// to Deinitializing, a constructed one to Destructing, anything else is
// killed outright. Repeating it before the next phase runs is harmless.
func GrantTerminate(b *Base) bool {
	if !b.state.valid || b.state.killed {
		return false
	}

	b.state.on = false

	switch {
	case b.state.initialized:
		EndProcessing(b)
	case b.state.constructed:
		EndDeinitializing(b)
	default:
		EndKilling(b)
	}
	return true
}

// GrantOn applies pending on/off requests; off wins when both are set.
func GrantOn(b *Base) bool {
	if !b.state.valid || b.state.killed {
		return false
	}
	if !b.req.turnOn && !b.req.turnOff {
		return false
	}

	if b.req.turnOff {
		b.state.on = false
	} else {
		b.state.on = true
	}

	b.req.turnOn = false
	b.req.turnOff = false
	return true
}

// GrantPause applies pending pause requests; pausing wins when both are set.
func GrantPause(b *Base) bool {
	if !b.state.valid || b.state.killed {
		return false
	}
	if !b.req.pauseOn && !b.req.pauseOff {
		return false
	}

	b.state.paused = b.req.pauseOn

	b.req.pauseOn = false
	b.req.pauseOff = false
	return true
}
