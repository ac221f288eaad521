package system

import (
	"sort"
	"time"
)

// Runner steps the registered systems once per tick, lowest phase first.
// Systems sharing a phase keep their registration order.
type Runner struct {
	systems []System
	sorted  bool
	ticks   uint64
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
	}
}

// Register adds s; the order is settled lazily on the next tick.
func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Ticks counts completed Tick calls. TickPhase does not count.
func (r *Runner) Ticks() uint64 { return r.ticks }

// Tick runs every system with the elapsed time dt.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(dt)
	}
	r.ticks++
}

// TickPhase runs the systems of a single phase. After a world teardown the
// game runs PhaseCleanup this way so killed slots are reclaimed without
// stepping any entity.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
