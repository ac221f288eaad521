package system

import (
	"time"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	coresys "github.com/l1jgo/lifecycle/internal/core/system"
	"go.uber.org/zap"
)

// CleanupSystem runs the grant pass of every pool: queued activations and
// terminations are applied and killed slots go back to their free lists.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	rep   reporter
}

func NewCleanupSystem(world *ecs.World, log *zap.Logger, errs ErrorCounter) *CleanupSystem {
	return &CleanupSystem{world: world, rep: reporter{name: "cleanup", log: log, errors: errs}}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.rep.report("cleanup failed", s.world.Cleanup())
}
