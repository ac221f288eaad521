package system

import (
	"time"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/core/event"
	coresys "github.com/l1jgo/lifecycle/internal/core/system"
)

// EventDispatchSystem swaps the bus buffers and delivers last tick's events.
// Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// NoticeCounter counts pool notices as they happen.
type NoticeCounter interface {
	CountNotice(n ecs.Notice)
}

// RelayNotices returns a pool notice hook that queues the matching event on
// bus and, when counter is not nil, counts it.
func RelayNotices(bus *event.Bus, counter NoticeCounter) func(ecs.Notice) {
	return func(n ecs.Notice) {
		event.FromNotice(bus, n)
		if counter != nil {
			counter.CountNotice(n)
		}
	}
}
