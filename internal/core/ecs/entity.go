package ecs

import "time"

// EntityID encodes a 32-bit slot index in the lower bits and the occupant's
// guid in the upper bits. A new occupant gets a new guid, so handles held
// across a reclaim go stale instead of aliasing the new entity.
type EntityID uint64

func NewEntityID(index uint32, guid uint32) EntityID {
	return EntityID(uint64(guid)<<32 | uint64(index))
}

func (id EntityID) Index() uint32 { return uint32(id) }
func (id EntityID) GUID() uint32  { return uint32(id >> 32) }

// IsZero reports a handle that never referred to a validated entity.
func (id EntityID) IsZero() bool { return id.GUID() == 0 }

// Object is a pooled entity type: an embedded Base plus the five phase hooks
// the pool driver calls as the entity moves through its lifecycle.
type Object interface {
	Entity() *Base
	ProfileName() string
	Hooks
}

// Hooks are called by Pool.Run when the entity sits in the matching phase.
// A non-nil error leaves the entity in that phase to be retried next tick.
type Hooks interface {
	DoConstruct() error
	DoInit() error
	DoProcess(dt time.Duration) error
	DoDeinit() error
	DoDestruct() error
}

// Waiter is implemented by entities that linger in Waiting and need a tick
// while they do (e.g. fading effects).
type Waiter interface {
	DoWait(dt time.Duration) error
}
