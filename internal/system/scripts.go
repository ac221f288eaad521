package system

import (
	"time"

	coresys "github.com/l1jgo/lifecycle/internal/core/system"
	"go.uber.org/zap"
)

// Reloader recompiles one script by file name.
type Reloader interface {
	Reload(name string) error
}

// ScriptReloadSystem applies script file changes between ticks so hooks never
// see a half-loaded script. Phase 0 (Input).
type ScriptReloadSystem struct {
	scripts Reloader
	changes <-chan string
	rep     reporter
}

func NewScriptReloadSystem(scripts Reloader, changes <-chan string, log *zap.Logger, errs ErrorCounter) *ScriptReloadSystem {
	return &ScriptReloadSystem{scripts: scripts, changes: changes, rep: reporter{name: "scripts", log: log, errors: errs}}
}

func (s *ScriptReloadSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ScriptReloadSystem) Update(_ time.Duration) {
	// several writes to one file often land in the same tick
	seen := make(map[string]bool)
	for {
		select {
		case name, ok := <-s.changes:
			if !ok {
				return
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			if err := s.scripts.Reload(name); err != nil {
				s.rep.report("script reload failed", err)
				continue
			}
			s.rep.log.Info("script reloaded", zap.String("script", name))
		default:
			return
		}
	}
}
