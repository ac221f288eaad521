package system

import (
	"time"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	coresys "github.com/l1jgo/lifecycle/internal/core/system"
	"go.uber.org/zap"
)

// PoolUpdateSystem advances every used slot of every pool by one phase step.
// Hook errors hold the failing entity in place; the tick carries on.
// Phase 2 (Update).
type PoolUpdateSystem struct {
	world *ecs.World
	rep   reporter
}

func NewPoolUpdateSystem(world *ecs.World, log *zap.Logger, errs ErrorCounter) *PoolUpdateSystem {
	return &PoolUpdateSystem{world: world, rep: reporter{name: "pools", log: log, errors: errs}}
}

func (s *PoolUpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *PoolUpdateSystem) Update(dt time.Duration) {
	s.rep.report("pool update failed", s.world.Update(dt))
}
