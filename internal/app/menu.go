package app

import (
	"go.uber.org/zap"

	"github.com/l1jgo/lifecycle/internal/core/process"
)

// Menu is the headless front end. Its first Running step starts the game
// and pauses the menu; once the game is over and the menu is resumed it
// leaves.
type Menu struct {
	process.Process
	game   *Game
	log    *zap.Logger
	played bool
}

func NewMenu(game *Game, log *zap.Logger) *Menu {
	return &Menu{Process: process.New("menu"), game: game, log: log}
}

func (m *Menu) DoRunning() error {
	if m.played {
		return m.Process.DoRunning()
	}
	m.played = true
	m.game.Start()
	m.Pause()
	m.log.Info("game started from menu")
	m.SetResult(0)
	return nil
}
