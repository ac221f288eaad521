package system

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/core/event"
	coresys "github.com/l1jgo/lifecycle/internal/core/system"
	"github.com/l1jgo/lifecycle/internal/data"
	"github.com/l1jgo/lifecycle/internal/metrics"
	"github.com/l1jgo/lifecycle/internal/persist"
	"github.com/l1jgo/lifecycle/internal/world"
)

const testProfiles = `
characters:
  - name: Imp
    life: 10
    lifetime_ms: 100
  - name: Knight
    life: 100
`

type fakeJournal struct {
	entries []persist.JournalEntry
	fail    error
	appends int
}

func (f *fakeJournal) StartRun(context.Context, uuid.UUID, string) error { return nil }

func (f *fakeJournal) Append(_ context.Context, _ uuid.UUID, entries []persist.JournalEntry) error {
	f.appends++
	if f.fail != nil {
		return f.fail
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeJournal) FinishRun(context.Context, uuid.UUID, uint64, uint32) error { return nil }

func (f *fakeJournal) count(pool, what string) int {
	n := 0
	for _, e := range f.entries {
		if e.Pool == pool && e.Event == what {
			n++
		}
	}
	return n
}

type fakeCounter struct{ counts map[string]int }

func (f *fakeCounter) CountError(system string) {
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[system]++
}

type fakeReloader struct {
	reloaded []string
	fail     map[string]error
}

func (f *fakeReloader) Reload(name string) error {
	f.reloaded = append(f.reloaded, name)
	return f.fail[name]
}

func newState(t *testing.T) *world.State {
	t.Helper()
	profiles, err := data.ParseProfiles([]byte(testProfiles))
	require.NoError(t, err)
	return world.NewState(ecs.NewWorld(), profiles, world.Capacities{Characters: 4, Particles: 4, Enchants: 4})
}

func TestTickPipelineRespawnsAndJournals(t *testing.T) {
	log := zap.NewNop()
	ws := newState(t)
	bus := event.NewBus()
	ws.World().SetNotify(RelayNotices(bus, nil))

	journal := &fakeJournal{}
	respawn := NewRespawnSystem(bus, ws, []data.SpawnEntry{
		{Profile: "Imp", Count: 1, RespawnMS: 200},
		{Profile: "Knight", Count: 1},
	}, log, nil)

	runner := coresys.NewRunner()
	runner.Register(NewCleanupSystem(ws.World(), log, nil))
	runner.Register(NewPersistenceSystem(bus, journal, uuid.New(), log, nil, 1, 64))
	runner.Register(respawn)
	runner.Register(NewPoolUpdateSystem(ws.World(), log, nil))
	runner.Register(NewEventDispatchSystem(bus))

	require.NoError(t, respawn.Populate())
	assert.Equal(t, 2, ws.Characters.Len())

	scheduled := false
	for i := 0; i < 40; i++ {
		runner.Tick(50 * time.Millisecond)
		if respawn.Scheduled() > 0 {
			scheduled = true
		}
	}

	assert.True(t, scheduled)
	assert.GreaterOrEqual(t, journal.count(world.PoolCharacters, "spawned"), 3)
	assert.GreaterOrEqual(t, journal.count(world.PoolCharacters, "reclaimed"), 1)
	assert.GreaterOrEqual(t, journal.count(world.PoolCharacters, "activated"), 3)
	assert.Zero(t, journal.count(world.PoolParticles, "spawned"))
}

func TestRespawnStop(t *testing.T) {
	ws := newState(t)
	bus := event.NewBus()
	respawn := NewRespawnSystem(bus, ws, []data.SpawnEntry{{Profile: "Imp", Count: 2, RespawnMS: 10}}, zap.NewNop(), nil)
	require.NoError(t, respawn.Populate())
	ids := ws.Characters.IDs()
	require.Len(t, ids, 2)

	respawn.Stop()
	event.Emit(bus, event.EntityReclaimed{Pool: world.PoolCharacters, EntityID: ids[0]})
	bus.SwapBuffers()
	bus.DispatchAll()
	assert.Zero(t, respawn.Scheduled())
}

func TestRespawnIgnoresStrangers(t *testing.T) {
	ws := newState(t)
	bus := event.NewBus()
	respawn := NewRespawnSystem(bus, ws, []data.SpawnEntry{{Profile: "Imp", Count: 1, RespawnMS: 10}}, zap.NewNop(), nil)
	require.NoError(t, respawn.Populate())
	id := ws.Characters.IDs()[0]

	event.Emit(bus, event.EntityReclaimed{Pool: world.PoolParticles, EntityID: id})
	event.Emit(bus, event.EntityReclaimed{Pool: world.PoolCharacters, EntityID: ecs.NewEntityID(3, 99)})
	bus.SwapBuffers()
	bus.DispatchAll()
	assert.Zero(t, respawn.Scheduled())

	event.Emit(bus, event.EntityReclaimed{Pool: world.PoolCharacters, EntityID: id})
	bus.SwapBuffers()
	bus.DispatchAll()
	assert.Equal(t, 1, respawn.Scheduled())

	respawn.Update(5 * time.Millisecond)
	assert.Equal(t, 1, respawn.Scheduled())
	respawn.Update(5 * time.Millisecond)
	assert.Zero(t, respawn.Scheduled())
	assert.Equal(t, 2, ws.Characters.Len())
}

func TestRespawnRetriesWhenPoolIsFull(t *testing.T) {
	ws := newState(t)
	bus := event.NewBus()
	counter := &fakeCounter{}
	respawn := NewRespawnSystem(bus, ws, []data.SpawnEntry{{Profile: "Imp", Count: 1, RespawnMS: 10}}, zap.NewNop(), counter)
	require.NoError(t, respawn.Populate())
	imp := ws.Characters.IDs()[0]

	var knights []*world.Character
	for i := 0; i < 3; i++ {
		k, err := ws.SpawnCharacter("Knight")
		require.NoError(t, err)
		knights = append(knights, k)
	}

	event.Emit(bus, event.EntityReclaimed{Pool: world.PoolCharacters, EntityID: imp})
	bus.SwapBuffers()
	bus.DispatchAll()

	respawn.Update(10 * time.Millisecond)
	assert.Equal(t, 1, counter.counts["respawn"])
	assert.Equal(t, 1, respawn.Scheduled())

	require.NoError(t, ws.Characters.Free(knights[0]))
	respawn.Update(10 * time.Millisecond)
	assert.Zero(t, respawn.Scheduled())
	assert.Equal(t, 4, ws.Characters.Len())
}

func TestPopulateUnknownProfile(t *testing.T) {
	ws := newState(t)
	respawn := NewRespawnSystem(event.NewBus(), ws, []data.SpawnEntry{{Profile: "Ghost", Count: 3}}, zap.NewNop(), nil)
	err := respawn.Populate()
	require.ErrorIs(t, err, data.ErrUnknownProfile)
	assert.Zero(t, ws.Characters.Len())
}

func TestPersistenceBatchesByInterval(t *testing.T) {
	bus := event.NewBus()
	journal := &fakeJournal{}
	s := NewPersistenceSystem(bus, journal, uuid.New(), zap.NewNop(), nil, 3, 100)

	id := ecs.NewEntityID(2, 7)
	event.Emit(bus, event.EntitySpawned{Pool: "particles", EntityID: id})
	event.Emit(bus, event.EntityKilled{Pool: "particles", EntityID: id, Name: "Smoke"})
	bus.SwapBuffers()
	bus.DispatchAll()
	assert.Equal(t, 2, s.Pending())

	s.Update(0)
	s.Update(0)
	assert.Zero(t, journal.appends)
	s.Update(0)
	assert.Equal(t, 1, journal.appends)
	assert.Zero(t, s.Pending())

	require.Len(t, journal.entries, 2)
	assert.Equal(t, persist.JournalEntry{Pool: "particles", Slot: 2, GUID: 7, Event: "spawned"}, journal.entries[0])
	assert.Equal(t, "Smoke", journal.entries[1].Name)
}

func TestPersistenceFlushesFullBatch(t *testing.T) {
	bus := event.NewBus()
	journal := &fakeJournal{}
	s := NewPersistenceSystem(bus, journal, uuid.New(), zap.NewNop(), nil, 100, 2)

	for i := 0; i < 2; i++ {
		event.Emit(bus, event.EntityActivated{Pool: "characters", EntityID: ecs.NewEntityID(uint32(i), 1)})
	}
	bus.SwapBuffers()
	bus.DispatchAll()

	s.Update(0)
	assert.Equal(t, 1, journal.appends)
}

func TestPersistenceKeepsEntriesOnFailure(t *testing.T) {
	bus := event.NewBus()
	journal := &fakeJournal{fail: errors.New("db down")}
	counter := &fakeCounter{}
	s := NewPersistenceSystem(bus, journal, uuid.New(), zap.NewNop(), counter, 1, 100)

	event.Emit(bus, event.EntityReclaimed{Pool: "enchants", EntityID: ecs.NewEntityID(0, 1)})
	bus.SwapBuffers()
	bus.DispatchAll()

	s.Update(0)
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 1, counter.counts["persist"])

	journal.fail = nil
	require.NoError(t, s.Flush(context.Background()))
	assert.Zero(t, s.Pending())
	assert.Len(t, journal.entries, 1)
}

func TestPersistenceBacksOffWhileJournalFails(t *testing.T) {
	bus := event.NewBus()
	journal := &fakeJournal{fail: errors.New("db down")}
	counter := &fakeCounter{}
	s := NewPersistenceSystem(bus, journal, uuid.New(), zap.NewNop(), counter, 1, 4)

	for i := 0; i < 200; i++ {
		for j := 0; j < 3; j++ {
			event.Emit(bus, event.EntitySpawned{Pool: "particles", EntityID: ecs.NewEntityID(uint32(j), uint32(i+1))})
		}
		bus.SwapBuffers()
		bus.DispatchAll()
		s.Update(0)
	}

	assert.Less(t, journal.appends, 20)
	assert.Equal(t, journal.appends, counter.counts["persist"])
	assert.Equal(t, 32, s.Pending())
	assert.Equal(t, 600-32, s.Dropped())

	journal.fail = nil
	for i := 0; i < 32; i++ {
		s.Update(0)
	}
	assert.Zero(t, s.Pending())
	require.Len(t, journal.entries, 32)
	assert.Equal(t, uint32(200), journal.entries[31].GUID)

	appends := journal.appends
	event.Emit(bus, event.EntityKilled{Pool: "particles", EntityID: ecs.NewEntityID(0, 1)})
	bus.SwapBuffers()
	bus.DispatchAll()
	s.Update(0)
	assert.Equal(t, appends+1, journal.appends)
}

func TestScriptReloadDrainsChanges(t *testing.T) {
	changes := make(chan string, 8)
	reloader := &fakeReloader{fail: map[string]error{"bad.lua": errors.New("syntax")}}
	counter := &fakeCounter{}
	s := NewScriptReloadSystem(reloader, changes, zap.NewNop(), counter)

	changes <- "knight.lua"
	changes <- "knight.lua"
	changes <- "bad.lua"
	s.Update(0)

	assert.Equal(t, []string{"knight.lua", "bad.lua"}, reloader.reloaded)
	assert.Equal(t, 1, counter.counts["scripts"])

	s.Update(0)
	assert.Len(t, reloader.reloaded, 2)

	close(changes)
	s.Update(0)
}

func TestCleanupAndUpdateReportErrors(t *testing.T) {
	ws := newState(t)
	counter := &fakeCounter{}
	update := NewPoolUpdateSystem(ws.World(), zap.NewNop(), counter)
	cleanup := NewCleanupSystem(ws.World(), zap.NewNop(), counter)

	_, err := ws.SpawnCharacter("Knight")
	require.NoError(t, err)
	update.Update(time.Millisecond)
	cleanup.Update(0)
	assert.Empty(t, counter.counts)
	assert.Equal(t, coresys.PhaseUpdate, update.Phase())
	assert.Equal(t, coresys.PhaseCleanup, cleanup.Phase())
}

func TestMetricsSampling(t *testing.T) {
	ws := newState(t)
	m, err := metrics.New()
	require.NoError(t, err)
	ws.World().SetNotify(RelayNotices(event.NewBus(), m))

	_, err = ws.SpawnCharacter("Knight")
	require.NoError(t, err)

	s := NewMetricsSystem(ws.World(), m, 2)
	s.Update(0)
	expected := `
# HELP lifecycle_pool_used_slots Occupied slots per pool
# TYPE lifecycle_pool_used_slots gauge
lifecycle_pool_used_slots{pool="characters"} 1
lifecycle_pool_used_slots{pool="enchants"} 0
lifecycle_pool_used_slots{pool="particles"} 0
`
	// first tick is skipped by the interval
	require.Error(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "lifecycle_pool_used_slots"))

	s.Update(0)
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "lifecycle_pool_used_slots"))
	count, err := testutil.GatherAndCount(m.Registry(), "lifecycle_pool_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count) // spawned and activated
}
