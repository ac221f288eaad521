package ecs

import "github.com/l1jgo/lifecycle/internal/core/action"

// State holds the lifecycle flags of one pooled entity. The zero value is the
// freshly constructed state: every flag false, action Nothing.
//
// Transitions are value methods returning the next state. A transition whose
// precondition fails returns the receiver unchanged.
type State struct {
	valid       bool
	constructed bool
	initialized bool
	active      bool
	killed      bool

	spawning bool
	on       bool
	paused   bool

	action action.Action
}

func (s State) Valid() bool           { return s.valid }
func (s State) Constructed() bool     { return s.constructed }
func (s State) Initialized() bool     { return s.initialized }
func (s State) Active() bool          { return s.active }
func (s State) Killed() bool          { return s.killed }
func (s State) Spawning() bool        { return s.spawning }
func (s State) On() bool              { return s.on }
func (s State) Paused() bool          { return s.paused }
func (s State) Action() action.Action { return s.action }

// Defined reports valid && !killed.
func (s State) Defined() bool { return s.valid && !s.killed }

// IsProcessing reports on && !killed && action == Processing.
func (s State) IsProcessing() bool {
	return s.on && !s.killed && s.action == action.Processing
}

// SetValid is the only transition allowed without a valid precondition. It
// wipes every flag and starts the forward sequence at Constructing when val
// is true.
func (s State) SetValid(val bool) State {
	next := State{valid: val, action: action.Nothing}
	if val {
		next.action = action.Constructing
	}
	return next
}

func (s State) EndConstructing() State {
	if !s.valid {
		return s
	}
	s.constructed = true
	s.action = action.Initializing
	return s
}

func (s State) EndInitializing() State {
	if !s.valid {
		return s
	}
	s.constructed = true
	s.initialized = true
	s.action = action.Processing
	return s
}

func (s State) EndProcessing() State {
	if !s.valid {
		return s
	}
	s.constructed = true
	s.initialized = true
	s.active = false
	s.action = action.Deinitializing
	return s
}

func (s State) EndDeinitializing() State {
	if !s.valid {
		return s
	}
	s.constructed = true
	s.initialized = false
	s.active = false
	s.action = action.Destructing
	return s
}

// EndDestructing leaves action at Destructing; the next step is EndKilling.
func (s State) EndDestructing() State {
	if !s.valid {
		return s
	}
	s.constructed = false
	s.initialized = false
	s.active = false
	s.action = action.Destructing
	return s
}

// EndKilling ratchets the state to valid+killed, ready for slot reuse.
func (s State) EndKilling() State {
	if !s.valid {
		return s
	}
	return State{valid: true, killed: true, action: action.Nothing}
}

// BeginWaiting parks a live entity one step before final removal.
func (s State) BeginWaiting() State {
	if !s.valid || s.killed {
		return s
	}
	s.action = action.Waiting
	return s
}

// Clear returns the freshly constructed baseline.
func (s State) Clear() State { return State{} }
