package system

import (
	"time"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	coresys "github.com/l1jgo/lifecycle/internal/core/system"
	"github.com/l1jgo/lifecycle/internal/metrics"
)

// MetricsSystem samples pool occupancy and engine counters into the gauges
// every interval ticks. Phase 4 (Output).
type MetricsSystem struct {
	world     *ecs.World
	metrics   *metrics.Metrics
	interval  int
	tickCount int
}

func NewMetricsSystem(world *ecs.World, m *metrics.Metrics, intervalTicks int) *MetricsSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &MetricsSystem{world: world, metrics: m, interval: intervalTicks}
}

func (s *MetricsSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *MetricsSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Sample()
}

func (s *MetricsSystem) Sample() {
	for _, p := range s.world.Registry().Pools() {
		s.metrics.ObservePool(p)
	}
	s.metrics.ObserveEngine(s.world.Engine())
}
