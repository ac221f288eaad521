package ecs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/lifecycle/internal/core/action"
)

var errBoom = errors.New("boom")

type torch struct {
	Base
	calls        []string
	failInit     bool
	killInInit   bool
	failDestruct bool
	waited       int
}

func (t *torch) ProfileName() string { return "Torch" }

func (t *torch) DoConstruct() error { t.calls = append(t.calls, "construct"); return nil }
func (t *torch) DoInit() error {
	t.calls = append(t.calls, "init")
	if t.failInit {
		return errBoom
	}
	if t.killInInit {
		ReqTerminate(&t.Base)
	}
	return nil
}
func (t *torch) DoProcess(time.Duration) error { t.calls = append(t.calls, "process"); return nil }
func (t *torch) DoDeinit() error               { t.calls = append(t.calls, "deinit"); return nil }
func (t *torch) DoWait(time.Duration) error    { t.waited++; return nil }

func (t *torch) DoDestruct() error {
	t.calls = append(t.calls, "destruct")
	if t.failDestruct {
		return errBoom
	}
	return nil
}

func newTorchPool(capacity int) (*Pool[*torch], *[]Notice) {
	notices := &[]Notice{}
	p := NewPool("torch", NewEngine(), capacity, func(int) *torch { return &torch{} })
	p.SetNotify(func(n Notice) { *notices = append(*notices, n) })
	return p, notices
}

func kinds(ns []Notice) []NoticeKind {
	out := make([]NoticeKind, len(ns))
	for i, n := range ns {
		out[i] = n.Kind
	}
	return out
}

func TestNewPool(t *testing.T) {
	p, _ := newTorchPool(4)
	assert.Equal(t, 4, p.Cap())
	assert.Equal(t, 4, p.FreeLen())
	assert.Zero(t, p.Len())

	obj, err := p.Allocate(false)
	require.NoError(t, err)
	assert.Equal(t, 0, obj.Slot().Index())
	assert.True(t, obj.IsConstructing())
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 3, p.FreeLen())
}

func TestActivateAndFree(t *testing.T) {
	p, notices := newTorchPool(2)
	obj, err := p.Allocate(false)
	require.NoError(t, err)

	reached, err := p.Activate(obj)
	require.NoError(t, err)
	assert.True(t, reached)
	assert.True(t, obj.Active())
	assert.Equal(t, "Torch", obj.Name())
	assert.Equal(t, []string{"construct", "init"}, obj.calls)

	id := obj.ID()
	got, ok := p.Get(id)
	require.True(t, ok)
	assert.Same(t, obj, got)

	require.NoError(t, p.Free(obj))
	assert.Equal(t, []string{"construct", "init", "deinit", "destruct"}, obj.calls)
	assert.Zero(t, p.Len())
	assert.Equal(t, 2, p.FreeLen())
	assert.Zero(t, p.Engine().SpawnDepth())

	_, ok = p.Get(id)
	assert.False(t, ok)

	assert.Equal(t, []NoticeKind{NoticeSpawned, NoticeActivated, NoticeKilled, NoticeReclaimed}, kinds(*notices))
}

func TestStaleHandle(t *testing.T) {
	p, _ := newTorchPool(1)
	first, _ := p.Allocate(false)
	oldID := first.ID()
	require.NoError(t, p.Free(first))

	second, err := p.Allocate(false)
	require.NoError(t, err)
	assert.Equal(t, oldID.Index(), second.ID().Index())
	assert.NotEqual(t, oldID, second.ID())

	_, ok := p.Get(oldID)
	assert.False(t, ok)
	_, ok = p.Get(second.ID())
	assert.True(t, ok)
}

func TestFreeDuringIterationIsDeferred(t *testing.T) {
	p, _ := newTorchPool(2)
	obj, err := p.Spawn(false, nil)
	require.NoError(t, err)

	p.Each(func(o *torch) {
		require.NoError(t, p.Free(o))
		assert.True(t, o.Allocated())
		assert.True(t, o.KillRequested())
		assert.Equal(t, action.Processing, o.Action())
	})
	assert.Equal(t, 1, p.Len())

	require.NoError(t, p.Cleanup())
	assert.Zero(t, p.Len())
	assert.Contains(t, obj.calls, "deinit")
	assert.Contains(t, obj.calls, "destruct")
}

func TestUpdateStepsOnePhase(t *testing.T) {
	p, _ := newTorchPool(1)
	obj, _ := p.Allocate(false)

	require.NoError(t, p.Update(0))
	assert.True(t, obj.IsInitializing())

	require.NoError(t, p.Update(0))
	assert.Equal(t, action.Processing, obj.Action())
	assert.False(t, obj.On(), "turn-on is granted at cleanup")
	assert.True(t, obj.Request().TurnOn())

	require.NoError(t, p.Cleanup())
	assert.True(t, obj.On())
	assert.True(t, obj.Active())

	require.NoError(t, p.Update(time.Millisecond))
	assert.Equal(t, []string{"construct", "init", "process"}, obj.calls)
	assert.Zero(t, p.Engine().SpawnDepth())
}

func TestHookErrorHoldsPhase(t *testing.T) {
	p, _ := newTorchPool(1)
	obj, _ := p.Allocate(false)
	obj.failInit = true

	require.NoError(t, p.Update(0))
	err := p.Update(0)
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "torch[0]")
	assert.True(t, obj.IsInitializing())

	obj.failInit = false
	require.NoError(t, p.Update(0))
	assert.Equal(t, action.Processing, obj.Action())
}

func TestPausedSkipsRun(t *testing.T) {
	p, _ := newTorchPool(1)
	obj, err := p.Spawn(false, nil)
	require.NoError(t, err)

	ReqPause(&obj.Base, true)
	require.NoError(t, p.Cleanup())
	require.True(t, obj.Paused())

	require.NoError(t, p.Update(0))
	assert.NotContains(t, obj.calls, "process")

	require.NoError(t, p.Free(obj))
	assert.Contains(t, obj.calls, "destruct")
}

func TestTerminateBeforeConstruction(t *testing.T) {
	p, notices := newTorchPool(1)
	obj, _ := p.Allocate(false)

	ReqTerminate(&obj.Base)
	assert.True(t, obj.IsConstructing())

	require.NoError(t, p.Cleanup())
	assert.Zero(t, p.Len())
	assert.Empty(t, obj.calls)
	assert.Equal(t, []NoticeKind{NoticeSpawned, NoticeReclaimed}, kinds(*notices))
}

func TestReserve(t *testing.T) {
	p, _ := newTorchPool(2)
	p.SetReserve(1)

	_, err := p.Allocate(false)
	require.NoError(t, err)
	_, err = p.Allocate(false)
	assert.ErrorIs(t, err, ErrPoolExhausted)
	_, err = p.Allocate(true)
	assert.NoError(t, err)
	_, err = p.Allocate(true)
	assert.ErrorIs(t, err, ErrPoolExhausted)

	_, err = p.Spawn(true, nil)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestForceRecyclesWaiting(t *testing.T) {
	p, _ := newTorchPool(1)
	old, err := p.Spawn(false, nil)
	require.NoError(t, err)
	oldID := old.ID()

	BeginWaiting(&old.Base)
	require.NoError(t, p.Update(0))
	assert.Equal(t, 1, old.waited)

	_, err = p.Allocate(false)
	require.ErrorIs(t, err, ErrPoolExhausted)

	obj, err := p.Allocate(true)
	require.NoError(t, err)
	assert.Same(t, old, obj)
	assert.Contains(t, obj.calls, "deinit")
	assert.Contains(t, obj.calls, "destruct")
	assert.NotEqual(t, oldID, obj.ID())
	assert.True(t, obj.IsConstructing())
}

func TestInGameDuringSpawn(t *testing.T) {
	p, _ := newTorchPool(2)
	a, _ := p.Allocate(false)
	assert.False(t, p.InGame(a))

	b, _ := p.Allocate(false)
	p.Engine().BeginSpawn(&b.Base)
	assert.True(t, p.InGame(a))

	p.Engine().EndSpawn(&b.Base)
	assert.False(t, p.InGame(a))
}

func TestRunDeinitializeStopsBeforeDestruct(t *testing.T) {
	p, _ := newTorchPool(1)
	obj, err := p.Spawn(false, nil)
	require.NoError(t, err)

	require.NoError(t, p.RunDeinitialize(obj, 10))
	assert.True(t, obj.IsDestructing())
	assert.False(t, obj.On())
	assert.NotContains(t, obj.calls, "destruct")

	require.NoError(t, p.RunDeconstruct(obj, 10))
	assert.True(t, obj.Killed())
}

func TestFreeAll(t *testing.T) {
	p, _ := newTorchPool(3)
	for i := 0; i < 3; i++ {
		_, err := p.Spawn(false, nil)
		require.NoError(t, err)
	}
	assert.Len(t, p.IDs(), 3)

	require.NoError(t, p.FreeAll())
	assert.Zero(t, p.Len())
	assert.Equal(t, 3, p.FreeLen())
}

func TestWorldRegistry(t *testing.T) {
	w := NewWorld()
	var notices []Notice
	w.SetNotify(func(n Notice) { notices = append(notices, n) })

	p := NewWorldPool(w, "torch", 2, func(int) *torch { return &torch{} })
	_, ok := w.Registry().Lookup("torch")
	require.True(t, ok)

	obj, _ := p.Allocate(false)
	require.NoError(t, w.Update(0))
	require.NoError(t, w.Update(0))
	require.NoError(t, w.Cleanup())
	assert.True(t, obj.Active())
	assert.Equal(t, 1, w.Live())

	require.NoError(t, w.Registry().FreeAll())
	assert.Zero(t, w.Live())
	assert.NotEmpty(t, notices)
}

func TestRecycleReportsTeardownError(t *testing.T) {
	p, _ := newTorchPool(1)
	old, err := p.Spawn(false, nil)
	require.NoError(t, err)
	BeginWaiting(&old.Base)
	old.failDestruct = true

	_, err = p.Allocate(true)
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "recycle torch[0]")
	assert.Zero(t, p.Len())
	assert.Equal(t, 1, p.FreeLen())

	old.failDestruct = false
	obj, err := p.Allocate(true)
	require.NoError(t, err)
	assert.True(t, obj.IsConstructing())
}

func TestKillDuringInitIsNotActivated(t *testing.T) {
	p, notices := newTorchPool(1)
	obj, err := p.Spawn(false, func(o *torch) { o.killInInit = true })
	require.NoError(t, err)

	assert.True(t, obj.KillRequested())
	assert.False(t, obj.On())
	assert.Empty(t, obj.Name())
	assert.Equal(t, []NoticeKind{NoticeSpawned}, kinds(*notices))

	require.NoError(t, p.Cleanup())
	require.NoError(t, p.Update(0))
	require.NoError(t, p.Update(0))
	require.NoError(t, p.Cleanup())
	assert.Zero(t, p.Len())
	assert.Equal(t, []NoticeKind{NoticeSpawned, NoticeKilled, NoticeReclaimed}, kinds(*notices))
}

func TestSpawnFreesSlotWhenActivationFails(t *testing.T) {
	p, notices := newTorchPool(1)
	obj, err := p.Spawn(false, func(o *torch) { o.failInit = true })
	require.ErrorIs(t, err, errBoom)
	assert.Nil(t, obj)
	assert.Zero(t, p.Len())
	assert.Equal(t, 1, p.FreeLen())
	assert.Equal(t, []NoticeKind{NoticeSpawned, NoticeKilled, NoticeReclaimed}, kinds(*notices))
}
