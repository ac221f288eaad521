package ecs

import "github.com/l1jgo/lifecycle/internal/core/action"

// Slot is the bookkeeping a Pool keeps inside each entity. The lifecycle
// operations treat it as opaque and carry it across Allocate unchanged.
type Slot struct {
	allocated bool
	index     int
	inFree    bool
	inUsed    bool
}

func (s Slot) Allocated() bool { return s.allocated }
func (s Slot) Index() int      { return s.index }

// Base is embedded by every pooled entity type. One Base lives in a pool slot
// for the whole program and is reset, not freed, between occupants.
type Base struct {
	slot  Slot
	state State
	req   Request

	guid uint32
	name string
}

// NewBase returns an unallocated base bound to slot index.
func NewBase(index int) Base {
	return Base{slot: Slot{index: index}}
}

// Entity exposes the embedded base; it satisfies Object for embedding types.
func (b *Base) Entity() *Base { return b }

func (b *Base) Slot() Slot       { return b.slot }
func (b *Base) State() State     { return b.state }
func (b *Base) Request() Request { return b.req }
func (b *Base) GUID() uint32     { return b.guid }
func (b *Base) Name() string     { return b.name }

// ID is the handle for the current occupant of the slot.
func (b *Base) ID() EntityID {
	return NewEntityID(uint32(b.slot.index), b.guid)
}

// Action returns the current phase, or Nothing when the slot is not valid.
func (b *Base) Action() action.Action {
	if !b.Valid() {
		return action.Nothing
	}
	return b.state.action
}

// Allocated reports whether the owning pool marked the slot occupied.
func (b *Base) Allocated() bool { return b.slot.allocated }

// Valid reports an allocated slot with a valid state.
func (b *Base) Valid() bool { return b.slot.allocated && b.state.valid }

func (b *Base) Constructed() bool { return b.Valid() && b.state.constructed }
func (b *Base) Initialized() bool { return b.Constructed() && b.state.initialized }
func (b *Base) Killed() bool      { return b.Valid() && b.state.killed }
func (b *Base) Terminated() bool  { return b.Killed() }

// Defined reports a valid entity that has not been killed.
func (b *Base) Defined() bool { return b.Valid() && !b.state.killed }

// On reports a valid, switched-on entity that has not been killed.
func (b *Base) On() bool { return b.Valid() && b.state.on && !b.state.killed }

func (b *Base) Paused() bool   { return b.Valid() && b.state.paused }
func (b *Base) Spawning() bool { return b.Valid() && b.state.spawning }

// Active reports an initialized entity that is switched on in Processing.
func (b *Base) Active() bool {
	return b.Initialized() && b.state.action == action.Processing && b.state.on && !b.state.killed
}

// IsProcessing is the state-level predicate on a valid slot.
func (b *Base) IsProcessing() bool { return b.Valid() && b.state.IsProcessing() }

// KillRequested reports a pending termination request.
func (b *Base) KillRequested() bool { return b.Valid() && b.req.killMe }

func (b *Base) IsConstructing() bool {
	return b.Valid() && b.state.action == action.Constructing
}

func (b *Base) IsInitializing() bool {
	return b.Constructed() && b.state.action == action.Initializing
}

func (b *Base) IsDeinitializing() bool {
	return b.Constructed() && b.state.action == action.Deinitializing
}

func (b *Base) IsDestructing() bool {
	return b.Valid() && b.state.action == action.Destructing
}

func (b *Base) IsWaiting() bool {
	return b.Valid() && b.state.action == action.Waiting
}

// reset restores the freshly constructed value, slot bookkeeping included.
func (b *Base) reset(index int) {
	*b = NewBase(index)
}
