// Package app holds the coarse processes of the program: Main owns the run,
// Menu hands control to the Game, and the Game drives the tick systems.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/lifecycle/internal/core/action"
	"github.com/l1jgo/lifecycle/internal/core/process"
	coresys "github.com/l1jgo/lifecycle/internal/core/system"
	"github.com/l1jgo/lifecycle/internal/world"
)

// Populator fills the world when a game begins and stops refilling it when
// the game leaves.
type Populator interface {
	Populate() error
	Stop()
}

// Game runs the entity world: one runner tick per drive.
type Game struct {
	process.Process
	world    *world.State
	runner   *coresys.Runner
	pop      Populator
	log      *zap.Logger
	maxTicks uint64 // 0 = unbounded
}

func NewGame(ws *world.State, runner *coresys.Runner, pop Populator, log *zap.Logger, maxTicks uint64) *Game {
	return &Game{
		Process:  process.New("game"),
		world:    ws,
		runner:   runner,
		pop:      pop,
		log:      log,
		maxTicks: maxTicks,
	}
}

func (g *Game) Ticks() uint64 { return g.runner.Ticks() }

func (g *Game) DoBeginning() error {
	if g.pop != nil {
		if err := g.pop.Populate(); err != nil {
			return fmt.Errorf("populate: %w", err)
		}
	}
	g.log.Info("game populated", zap.Int("live", g.world.World().Live()))
	g.SetPhase(action.Entering)
	return nil
}

func (g *Game) DoRunning() error {
	g.runner.Tick(g.Delta())
	if g.maxTicks > 0 && g.runner.Ticks() >= g.maxTicks {
		g.log.Info("tick limit reached", zap.Uint64("ticks", g.runner.Ticks()))
		g.Kill()
	}
	g.SetResult(0)
	return nil
}

// DoLeaving retires every entity and reclaims the slots before finishing.
func (g *Game) DoLeaving() error {
	if g.pop != nil {
		g.pop.Stop()
	}
	if err := g.world.Teardown(); err != nil {
		g.log.Warn("teardown incomplete", zap.Error(err))
	}
	g.runner.TickPhase(coresys.PhaseCleanup, 0)
	g.log.Info("game left",
		zap.Uint64("ticks", g.runner.Ticks()),
		zap.Uint32("created", g.world.World().Engine().Created()),
		zap.Int("live", g.world.World().Live()),
	)
	return g.Process.DoLeaving()
}
