package app

import (
	"go.uber.org/zap"

	"github.com/l1jgo/lifecycle/internal/core/action"
	"github.com/l1jgo/lifecycle/internal/core/event"
	"github.com/l1jgo/lifecycle/internal/core/process"
)

// Main is the root process. It drives the menu and the game once per tick,
// ends the run when neither is left, and only finishes after both have
// terminated.
type Main struct {
	process.Process
	engine *process.Engine
	menu   *Menu
	game   *Game
	log    *zap.Logger
}

func NewMain(engine *process.Engine, menu *Menu, game *Game, log *zap.Logger) *Main {
	return &Main{
		Process: process.New("main"),
		engine:  engine,
		menu:    menu,
		game:    game,
		log:     log,
	}
}

func (m *Main) DoBeginning() error {
	m.menu.Start()
	return m.Process.DoBeginning()
}

func (m *Main) DoRunning() error {
	if m.game.Terminated() && m.menu.Paused() {
		m.menu.Resume()
	}
	m.drive(m.menu)
	m.drive(m.game)

	if !m.menu.Valid() && !m.game.Valid() {
		m.log.Info("nothing left to run")
		m.Kill()
	}
	m.SetResult(0)
	return nil
}

// DoLeaving asks both children to leave and waits for them to terminate.
func (m *Main) DoLeaving() error {
	m.menu.Kill()
	m.game.Kill()
	m.drive(m.menu)
	m.drive(m.game)

	if !m.menu.Terminated() || !m.game.Terminated() {
		m.SetResult(0)
		return nil
	}
	return m.Process.DoLeaving()
}

func (m *Main) drive(r process.Runnable) {
	p := r.Proc()
	if !p.Valid() {
		return
	}
	if _, err := m.engine.Run(r, m.Delta()); err != nil {
		m.log.Error("process failed", zap.String("process", p.Name()), zap.Error(err))
		p.Kill()
	}
}

// ProcessObserver records process phases, e.g. as gauges.
type ProcessObserver interface {
	ObserveProcess(name string, phase action.Action, terminated bool)
}

// ObserveChanges returns an engine observer that queues a
// ProcessStateChanged event per change and reports it to obs when not nil.
func ObserveChanges(bus *event.Bus, obs ProcessObserver) func(process.Change) {
	return func(c process.Change) {
		event.Emit(bus, event.ProcessStateChanged{
			Process:    c.Name,
			From:       c.From,
			To:         c.To,
			Terminated: c.Terminated,
		})
		if obs != nil {
			obs.ObserveProcess(c.Name, c.To, c.Terminated)
		}
	}
}
