package event

import (
	"github.com/l1jgo/lifecycle/internal/core/action"
	"github.com/l1jgo/lifecycle/internal/core/ecs"
)

// Lifecycle events. Pools report through ecs.Notice; the event system turns
// notices into these and queues them for the next tick.

type EntitySpawned struct {
	Pool     string
	EntityID ecs.EntityID
}

type EntityActivated struct {
	Pool     string
	EntityID ecs.EntityID
	Name     string
}

type EntityKilled struct {
	Pool     string
	EntityID ecs.EntityID
	Name     string
}

type EntityReclaimed struct {
	Pool     string
	EntityID ecs.EntityID
	Name     string
}

type ProcessStateChanged struct {
	Process    string
	From       action.Action
	To         action.Action
	Terminated bool
}

// FromNotice converts a pool notice and emits the matching event.
func FromNotice(b *Bus, n ecs.Notice) {
	switch n.Kind {
	case ecs.NoticeSpawned:
		Emit(b, EntitySpawned{Pool: n.Pool, EntityID: n.ID})
	case ecs.NoticeActivated:
		Emit(b, EntityActivated{Pool: n.Pool, EntityID: n.ID, Name: n.Name})
	case ecs.NoticeKilled:
		Emit(b, EntityKilled{Pool: n.Pool, EntityID: n.ID, Name: n.Name})
	case ecs.NoticeReclaimed:
		Emit(b, EntityReclaimed{Pool: n.Pool, EntityID: n.ID, Name: n.Name})
	}
}
