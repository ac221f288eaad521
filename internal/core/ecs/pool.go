package ecs

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/l1jgo/lifecycle/internal/core/action"
)

// NoticeKind identifies a lifecycle milestone reported by a Pool.
type NoticeKind int

const (
	NoticeSpawned   NoticeKind = iota // slot allocated to a new occupant
	NoticeActivated                   // reached Processing
	NoticeKilled                      // finished destruction
	NoticeReclaimed                   // slot returned to the free list
)

// Notice is passed to the pool's notify callback.
type Notice struct {
	Kind NoticeKind
	Pool string
	ID   EntityID
	Name string
}

const defaultMaxIterations = 100

// Pool owns a fixed set of slots of one entity type and drives them through
// their lifecycle. Slots are created once and reused for the life of the pool.
//
// While the pool is being iterated (Update, Each) nothing changes the used
// list: Free only requests termination and Initializing only requests
// turn-on. Cleanup is the single grant point that applies those requests and
// reclaims killed slots. Single-goroutine access only (game loop).
type Pool[T Object] struct {
	name   string
	engine *Engine

	slots []T
	free  []int
	used  []int

	reserve       int
	maxIterations int

	loopDepth    int
	activations  []int
	terminations []int

	notify func(Notice)
}

// NewPool creates capacity slots with newSlot and puts them all on the free
// list. Slot 0 is handed out first.
func NewPool[T Object](name string, engine *Engine, capacity int, newSlot func(index int) T) *Pool[T] {
	p := &Pool[T]{
		name:          name,
		engine:        engine,
		slots:         make([]T, capacity),
		free:          make([]int, 0, capacity),
		used:          make([]int, 0, capacity),
		maxIterations: defaultMaxIterations,
		activations:   make([]int, 0, 16),
		terminations:  make([]int, 0, 16),
	}
	for i := range p.slots {
		obj := newSlot(i)
		obj.Entity().reset(i)
		p.slots[i] = obj
	}
	for i := capacity - 1; i >= 0; i-- {
		p.addFree(i)
	}
	return p
}

func (p *Pool[T]) Name() string    { return p.name }
func (p *Pool[T]) Engine() *Engine { return p.engine }
func (p *Pool[T]) Cap() int        { return len(p.slots) }
func (p *Pool[T]) Len() int        { return len(p.used) }
func (p *Pool[T]) FreeLen() int    { return len(p.free) }
func (p *Pool[T]) Looping() bool   { return p.loopDepth > 0 }

// SetReserve keeps n free slots for forced allocations only.
func (p *Pool[T]) SetReserve(n int) { p.reserve = n }

// SetMaxIterations bounds the Run* loops.
func (p *Pool[T]) SetMaxIterations(n int) {
	if n > 0 {
		p.maxIterations = n
	}
}

// SetNotify installs the lifecycle milestone callback.
func (p *Pool[T]) SetNotify(fn func(Notice)) { p.notify = fn }

// Get resolves a handle. Stale handles (slot reused since) report false.
func (p *Pool[T]) Get(id EntityID) (T, bool) {
	var zero T
	idx := int(id.Index())
	if idx >= len(p.slots) {
		return zero, false
	}
	obj := p.slots[idx]
	b := obj.Entity()
	if !b.Allocated() || b.guid != id.GUID() {
		return zero, false
	}
	return obj, true
}

// IDs lists the handles of every defined occupant.
func (p *Pool[T]) IDs() []EntityID {
	ids := make([]EntityID, 0, len(p.used))
	for _, idx := range p.used {
		b := p.slots[idx].Entity()
		if b.Defined() {
			ids = append(ids, b.ID())
		}
	}
	return ids
}

// InGame reports whether obj takes part in the game. While anything is
// spawning, merely defined entities count so spawners can reference them.
func (p *Pool[T]) InGame(obj T) bool {
	b := obj.Entity()
	if p.engine.SpawnDepth() > 0 {
		return b.Defined()
	}
	return b.Active()
}

// Allocate hands out a free slot in Constructing. Unforced requests fail
// once only the reserve is left; forced requests may also recycle an entity
// that is Waiting, but only outside iteration. A recycled entity whose
// teardown hook fails still gives up its slot, but the allocation reports
// the hook error.
func (p *Pool[T]) Allocate(force bool) (T, error) {
	var zero T

	idx := -1
	switch {
	case len(p.free) > p.reserve:
		idx = p.popFree()
	case force && len(p.free) > 0:
		idx = p.popFree()
	case force:
		var err error
		if idx, err = p.recycleWaiting(); err != nil {
			return zero, err
		}
	}
	if idx < 0 {
		return zero, fmt.Errorf("%s: %w", p.name, ErrPoolExhausted)
	}

	obj := p.slots[idx]
	b := obj.Entity()
	p.engine.Allocate(b, idx)
	p.addUsed(idx)
	p.emit(NoticeSpawned, b)
	return obj, nil
}

// Activate runs obj forward until it is Processing.
func (p *Pool[T]) Activate(obj T) (bool, error) {
	return p.RunActivate(obj, p.maxIterations)
}

// Spawn allocates and activates in one call. If activation fails the slot
// is freed again and the zero value is returned.
func (p *Pool[T]) Spawn(force bool, setup func(T)) (T, error) {
	var zero T
	obj, err := p.Allocate(force)
	if err != nil {
		return zero, err
	}
	if setup != nil {
		setup(obj)
	}
	if _, err := p.Activate(obj); err != nil {
		return zero, errors.Join(err, p.Free(obj))
	}
	return obj, nil
}

// Free retires obj. Inside iteration it only requests termination and queues
// the slot for the next Cleanup; otherwise the entity is deinitialized,
// destructed and reclaimed immediately.
func (p *Pool[T]) Free(obj T) error {
	b := obj.Entity()
	if !b.Allocated() {
		return nil
	}
	idx := b.slot.index

	if p.loopDepth > 0 {
		ReqTerminate(b)
		if !slices.Contains(p.terminations, idx) {
			p.terminations = append(p.terminations, idx)
		}
		return nil
	}
	return p.freeNow(idx)
}

// FreeAll retires every occupied slot.
func (p *Pool[T]) FreeAll() error {
	var errs []error
	for _, idx := range slices.Clone(p.used) {
		if err := p.freeNow(idx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Update advances every occupied slot by one phase step.
func (p *Pool[T]) Update(dt time.Duration) error {
	p.loopDepth++
	defer func() { p.loopDepth-- }()

	var errs []error
	for _, idx := range slices.Clone(p.used) {
		if err := p.Run(p.slots[idx], dt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Each visits every in-game entity. fn may request changes and allocate;
// both take effect at the next Cleanup.
func (p *Pool[T]) Each(fn func(T)) {
	p.loopDepth++
	defer func() { p.loopDepth-- }()

	for i := 0; i < len(p.used); i++ {
		obj := p.slots[p.used[i]]
		if !p.InGame(obj) {
			continue
		}
		fn(obj)
	}
}

// Cleanup is the grant pass: queued activations, then on/off, pause and
// terminate requests, then deferred frees, then reclaiming killed slots.
// It does nothing while the pool is being iterated.
func (p *Pool[T]) Cleanup() error {
	if p.loopDepth > 0 {
		return nil
	}

	for _, idx := range p.activations {
		b := p.slots[idx].Entity()
		if b.Allocated() {
			GrantOn(b)
		}
	}
	p.activations = p.activations[:0]

	for _, idx := range p.used {
		b := p.slots[idx].Entity()
		GrantOn(b)
		GrantPause(b)
		if b.req.killMe {
			GrantTerminate(b)
		}
	}

	var errs []error
	for _, idx := range p.terminations {
		if err := p.freeNow(idx); err != nil {
			errs = append(errs, err)
		}
	}
	p.terminations = p.terminations[:0]

	for _, idx := range slices.Clone(p.used) {
		b := p.slots[idx].Entity()
		if !b.state.valid || b.state.killed {
			p.release(idx)
		}
	}
	return errors.Join(errs...)
}

// Run performs one phase step for obj: call the hook for the current phase
// and, on success, move to the next phase.
func (p *Pool[T]) Run(obj T, dt time.Duration) error {
	b := obj.Entity()
	if !b.Valid() || b.state.paused {
		return nil
	}

	switch b.state.action {
	case action.Constructing:
		if err := obj.DoConstruct(); err != nil {
			return p.hookErr(b, err)
		}
		EndConstructing(b)

	case action.Initializing:
		p.engine.BeginSpawn(b)
		if err := obj.DoInit(); err != nil {
			return p.hookErr(b, err)
		}

		if !b.req.killMe {
			ReqOn(b, true)
			if p.loopDepth == 0 {
				GrantOn(b)
			} else {
				p.activations = append(p.activations, b.slot.index)
			}
		}

		EndInitializing(b)
		if BeginProcessing(b, obj.ProfileName()) {
			p.emit(NoticeActivated, b)
		}

	case action.Processing:
		p.engine.EndSpawn(b)
		if err := obj.DoProcess(dt); err != nil {
			return p.hookErr(b, err)
		}

	case action.Deinitializing:
		p.engine.EndSpawn(b)
		if err := obj.DoDeinit(); err != nil {
			return p.hookErr(b, err)
		}
		EndDeinitializing(b)
		b.state.on = false

	case action.Destructing:
		p.engine.EndSpawn(b)
		if err := obj.DoDestruct(); err != nil {
			return p.hookErr(b, err)
		}
		EndDestructing(b)
		EndKilling(b)
		p.emit(NoticeKilled, b)

	case action.Waiting:
		if w, ok := any(obj).(Waiter); ok {
			if err := w.DoWait(dt); err != nil {
				return p.hookErr(b, err)
			}
		}
	}
	return nil
}

// RunActivate steps obj until it is Processing, at most maxIterations times.
// Entities already past Processing are left alone.
func (p *Pool[T]) RunActivate(obj T, maxIterations int) (bool, error) {
	b := obj.Entity()
	if !b.Defined() {
		return false, nil
	}
	if b.state.action > action.Processing {
		return false, nil
	}

	for i := 0; i < maxIterations && b.Defined() && b.state.action < action.Processing; i++ {
		if err := p.Run(obj, 0); err != nil {
			return false, err
		}
	}
	return b.Defined() && b.state.action == action.Processing, nil
}

// RunDeinitialize fast-forwards obj out of whatever phase it is in and runs
// its deinitialization, stopping before destruction.
func (p *Pool[T]) RunDeinitialize(obj T, maxIterations int) error {
	b := obj.Entity()
	if !p.beginTeardown(b) {
		return nil
	}
	for i := 0; i < maxIterations && b.Defined() && b.state.action == action.Deinitializing; i++ {
		if err := p.Run(obj, 0); err != nil {
			return err
		}
	}
	return nil
}

// RunDeconstruct runs obj all the way to the killed state.
func (p *Pool[T]) RunDeconstruct(obj T, maxIterations int) error {
	b := obj.Entity()
	if !p.beginTeardown(b) {
		return nil
	}
	for i := 0; i < maxIterations && b.Defined(); i++ {
		if a := b.state.action; a != action.Deinitializing && a != action.Destructing {
			break
		}
		if err := p.Run(obj, 0); err != nil {
			return err
		}
	}
	return nil
}

// beginTeardown unpauses b and, unless it is already tearing down, applies
// the terminate fast-forward so only phases it entered get undone.
func (p *Pool[T]) beginTeardown(b *Base) bool {
	if !b.Defined() {
		return false
	}
	b.state.paused = false
	switch b.state.action {
	case action.Deinitializing, action.Destructing:
	default:
		GrantTerminate(b)
	}
	return b.Defined()
}

func (p *Pool[T]) freeNow(idx int) error {
	obj := p.slots[idx]
	b := obj.Entity()
	if !b.Allocated() {
		return nil
	}

	err := p.RunDeconstruct(obj, p.maxIterations)
	p.release(idx)
	return err
}

// release returns an allocated slot to the free list.
func (p *Pool[T]) release(idx int) {
	b := p.slots[idx].Entity()
	if !b.Allocated() {
		return
	}
	p.emit(NoticeReclaimed, b)
	p.removeUsed(idx)
	p.engine.Deallocate(b)
	p.addFree(idx)
}

// recycleWaiting frees the first Waiting occupant and returns its slot. If
// the occupant's teardown fails the slot is still reclaimed onto the free
// list and the error is returned instead.
func (p *Pool[T]) recycleWaiting() (int, error) {
	if p.loopDepth > 0 {
		return -1, nil
	}
	for _, idx := range p.used {
		if p.slots[idx].Entity().IsWaiting() {
			if err := p.freeNow(idx); err != nil {
				return -1, fmt.Errorf("recycle %s[%d]: %w", p.name, idx, err)
			}
			return p.popFree(), nil
		}
	}
	return -1, nil
}

func (p *Pool[T]) popFree() int {
	n := len(p.free)
	if n == 0 {
		return -1
	}
	idx := p.free[n-1]
	p.free = p.free[:n-1]
	p.slots[idx].Entity().slot.inFree = false
	return idx
}

func (p *Pool[T]) addFree(idx int) {
	b := p.slots[idx].Entity()
	if b.slot.inFree {
		return
	}
	p.free = append(p.free, idx)
	b.slot.inFree = true
}

func (p *Pool[T]) addUsed(idx int) {
	b := p.slots[idx].Entity()
	if b.slot.inUsed {
		return
	}
	p.used = append(p.used, idx)
	b.slot.inUsed = true
}

// removeUsed swaps the last element into the hole.
func (p *Pool[T]) removeUsed(idx int) {
	i := slices.Index(p.used, idx)
	if i < 0 {
		return
	}
	last := len(p.used) - 1
	p.used[i] = p.used[last]
	p.used = p.used[:last]
	p.slots[idx].Entity().slot.inUsed = false
}

func (p *Pool[T]) emit(kind NoticeKind, b *Base) {
	if p.notify == nil {
		return
	}
	p.notify(Notice{Kind: kind, Pool: p.name, ID: b.ID(), Name: b.name})
}

func (p *Pool[T]) hookErr(b *Base, err error) error {
	return fmt.Errorf("%s[%d] %s: %w", p.name, b.slot.index, b.state.action, err)
}
