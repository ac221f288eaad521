package process

import (
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/lifecycle/internal/core/action"
)

var (
	// ErrInvalid means the process failed validation and cannot be driven.
	ErrInvalid = errors.New("process invalid")
	// ErrUnknownPhase means the phase value has no hook.
	ErrUnknownPhase = errors.New("unknown process phase")
)

// Runnable is implemented by anything embedding *Process; the hooks are the
// Process defaults unless the embedding type overrides them.
type Runnable interface {
	Proc() *Process
	DoBeginning() error
	DoEntering() error
	DoRunning() error
	DoLeaving() error
	DoFinishing() error
}

// Change describes a phase transition observed during Run.
type Change struct {
	Name       string
	From       action.Action
	To         action.Action
	Terminated bool
}

// Engine drives processes. It holds no per-process state; one Engine can
// drive any number of processes.
type Engine struct {
	observer func(Change)
}

func NewEngine() *Engine {
	return &Engine{}
}

// SetObserver installs fn, called after every hook that changed the phase or
// terminated the process.
func (e *Engine) SetObserver(fn func(Change)) { e.observer = fn }

// Run advances r until a hook reports a result, the process stops being
// valid, or a hook fails. A paused process is left alone and reports 0.
func (e *Engine) Run(r Runnable, dt time.Duration) (int, error) {
	p := r.Proc()
	if !p.Validate() {
		return NoResult, fmt.Errorf("%s: %w", p.name, ErrInvalid)
	}

	p.dt = dt
	if p.paused {
		return 0, nil
	}

	for {
		if p.killRequested {
			p.phase = action.Leaving
		}

		from := p.phase
		p.result = NoResult
		if err := e.dispatch(r, p.phase); err != nil {
			return p.result, fmt.Errorf("%s %s: %w", p.name, from.ProcessString(), err)
		}
		e.observe(p, from)

		if !p.valid || p.result != NoResult {
			break
		}
	}
	return p.result, nil
}

func (e *Engine) dispatch(r Runnable, phase action.Action) error {
	switch phase {
	case action.Beginning:
		return r.DoBeginning()
	case action.Entering:
		return r.DoEntering()
	case action.Running:
		return r.DoRunning()
	case action.Leaving:
		return r.DoLeaving()
	case action.Finishing:
		return r.DoFinishing()
	}
	return ErrUnknownPhase
}

func (e *Engine) observe(p *Process, from action.Action) {
	if e.observer == nil {
		return
	}
	if p.phase == from && !p.terminated {
		return
	}
	e.observer(Change{Name: p.name, From: from, To: p.phase, Terminated: p.terminated})
}
