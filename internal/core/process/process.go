package process

import (
	"time"

	"github.com/l1jgo/lifecycle/internal/core/action"
)

// NoResult is the sentinel a phase hook leaves in place when the drive loop
// should keep going within the same tick.
const NoResult = -1

// Process is a coarse, non-pooled cooperative state machine for one
// application phase (menu, game, the program itself). Concrete processes
// embed it and override the phase hooks they care about; the rest fall back
// to the defaults below, which just advance the phase.
type Process struct {
	name string

	valid         bool
	paused        bool
	killRequested bool
	terminated    bool

	phase  action.Action
	dt     time.Duration
	result int
}

// New returns a process that has never been started.
func New(name string) Process {
	return Process{
		name:       name,
		terminated: true,
		phase:      action.Beginning,
		result:     NoResult,
	}
}

// Proc exposes the embedded process to the Engine.
func (p *Process) Proc() *Process { return p }

func (p *Process) Name() string         { return p.name }
func (p *Process) Phase() action.Action { return p.phase }
func (p *Process) Valid() bool          { return p.valid }
func (p *Process) Paused() bool         { return p.paused }
func (p *Process) KillRequested() bool  { return p.killRequested }
func (p *Process) Terminated() bool     { return p.terminated }
func (p *Process) Delta() time.Duration { return p.dt }
func (p *Process) Result() int          { return p.result }

// SetPhase moves the process to phase for the next dispatch.
func (p *Process) SetPhase(phase action.Action) { p.phase = phase }

// SetResult reports a concrete result, ending the current drive loop.
func (p *Process) SetResult(result int) { p.result = result }

// Start makes the process runnable. A terminated or finished process begins
// again from scratch; one that already got past Entering re-enters without
// rebuilding.
func (p *Process) Start() bool {
	if p.terminated || p.phase > action.Leaving {
		p.phase = action.Beginning
	}
	if p.phase > action.Entering {
		p.phase = action.Entering
	}

	p.terminated = false
	p.valid = true
	p.paused = false
	return true
}

// Kill asks the process to leave. The Engine forces the phase to Leaving on
// its next run. Killing a process that is not valid succeeds trivially.
func (p *Process) Kill() bool {
	if !p.Validate() {
		return true
	}
	p.paused = false
	p.killRequested = true
	return true
}

// Validate terminates a process that is invalid or already terminated and
// reports whether it is still valid.
func (p *Process) Validate() bool {
	if !p.valid || p.terminated {
		p.Terminate()
	}
	return p.valid
}

// Terminate ends the process immediately.
func (p *Process) Terminate() bool {
	p.valid = false
	p.terminated = true
	p.killRequested = false
	p.phase = action.Beginning
	return true
}

// Pause reports whether the paused flag actually changed.
func (p *Process) Pause() bool {
	if !p.Validate() {
		return false
	}
	old := p.paused
	p.paused = true
	return old != p.paused
}

// Resume reports whether the paused flag actually changed.
func (p *Process) Resume() bool {
	if !p.Validate() {
		return false
	}
	old := p.paused
	p.paused = false
	return old != p.paused
}

// Running reports a valid, unpaused process.
func (p *Process) Running() bool {
	if !p.Validate() {
		return false
	}
	return !p.paused
}

func (p *Process) DoBeginning() error {
	p.phase = action.Entering
	return nil
}

func (p *Process) DoEntering() error {
	p.phase = action.Running
	return nil
}

func (p *Process) DoRunning() error {
	p.phase = action.Leaving
	return nil
}

func (p *Process) DoLeaving() error {
	p.phase = action.Finishing
	p.killRequested = false
	return nil
}

func (p *Process) DoFinishing() error {
	p.Terminate()
	return nil
}
