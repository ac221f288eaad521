package ecs

// Request holds deferred, coalesced changes to an entity's state. Setting a
// flag twice is the same as setting it once; nothing happens until a grant
// pass applies it.
type Request struct {
	killMe   bool
	turnOn   bool
	turnOff  bool
	pauseOn  bool
	pauseOff bool
}

func (r Request) Kill() bool     { return r.killMe }
func (r Request) TurnOn() bool   { return r.turnOn }
func (r Request) TurnOff() bool  { return r.turnOff }
func (r Request) PauseOn() bool  { return r.pauseOn }
func (r Request) PauseOff() bool { return r.pauseOff }

// Pending reports whether any request is waiting for a grant.
func (r Request) Pending() bool {
	return r.killMe || r.turnOn || r.turnOff || r.pauseOn || r.pauseOff
}
