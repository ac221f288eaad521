package system

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/core/event"
	coresys "github.com/l1jgo/lifecycle/internal/core/system"
	"github.com/l1jgo/lifecycle/internal/persist"
	"go.uber.org/zap"
)

const (
	journalTimeout = 5 * time.Second

	maxBackoffFactor  = 32 // backoff ceiling, in intervals
	pendingBatchLimit = 8  // buffered entries kept, in batches
)

// PersistenceSystem records lifecycle milestones in the journal. Entries are
// buffered from bus events and written every interval ticks, or sooner once
// a batch fills up. After a failed write the next attempt is pushed back
// exponentially, and the buffer keeps only the newest entries.
// Phase 5 (Persist).
type PersistenceSystem struct {
	journal    persist.Journal
	runID      uuid.UUID
	rep        reporter
	pending    []persist.JournalEntry
	tick       uint64
	tickCount  int
	interval   int // flush every N ticks
	batchSize  int
	maxPending int
	backoff    int // ticks to wait after a failure; 0 when healthy
	dropped    int
	warned     int // dropped count at the last warning
}

func NewPersistenceSystem(bus *event.Bus, journal persist.Journal, runID uuid.UUID, log *zap.Logger, errs ErrorCounter, intervalTicks, batchSize int) *PersistenceSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	if batchSize <= 0 {
		batchSize = 256
	}
	s := &PersistenceSystem{
		journal:   journal,
		runID:     runID,
		rep:       reporter{name: "persist", log: log, errors: errs},
		interval:   intervalTicks,
		batchSize:  batchSize,
		maxPending: batchSize * pendingBatchLimit,
	}
	event.Subscribe(bus, func(e event.EntitySpawned) { s.record(e.Pool, e.EntityID, "", "spawned") })
	event.Subscribe(bus, func(e event.EntityActivated) { s.record(e.Pool, e.EntityID, e.Name, "activated") })
	event.Subscribe(bus, func(e event.EntityKilled) { s.record(e.Pool, e.EntityID, e.Name, "killed") })
	event.Subscribe(bus, func(e event.EntityReclaimed) { s.record(e.Pool, e.EntityID, e.Name, "reclaimed") })
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

// Pending returns how many entries wait for the next flush.
func (s *PersistenceSystem) Pending() int { return len(s.pending) }

// Dropped returns how many entries were discarded because the buffer was
// full while the journal was failing.
func (s *PersistenceSystem) Dropped() int { return s.dropped }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tick++
	s.tickCount++
	if s.backoff > 0 {
		if s.tickCount < s.backoff {
			return
		}
	} else if s.tickCount < s.interval && len(s.pending) < s.batchSize {
		return
	}
	s.tickCount = 0

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	err := s.Flush(ctx)
	if err == nil {
		s.backoff = 0
		return
	}

	if s.backoff == 0 {
		s.backoff = 2 * s.interval
	} else {
		s.backoff = min(2*s.backoff, maxBackoffFactor*s.interval)
	}
	s.rep.report("journal flush failed", err)
	if s.dropped > s.warned {
		s.rep.log.Warn("journal entries dropped",
			zap.Int("dropped", s.dropped-s.warned),
			zap.Int("total", s.dropped),
			zap.Int("retry_ticks", s.backoff),
		)
		s.warned = s.dropped
	}
}

// Flush writes everything buffered. On failure the entries stay buffered and
// the next flush retries them.
func (s *PersistenceSystem) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.journal.Append(ctx, s.runID, s.pending); err != nil {
		return err
	}
	s.rep.log.Debug("journal flushed", zap.Int("entries", len(s.pending)))
	s.pending = s.pending[:0]
	return nil
}

func (s *PersistenceSystem) record(pool string, id ecs.EntityID, name, what string) {
	s.pending = append(s.pending, persist.JournalEntry{
		Tick:  s.tick,
		Pool:  pool,
		Slot:  id.Index(),
		GUID:  id.GUID(),
		Name:  name,
		Event: what,
	})
	if over := len(s.pending) - s.maxPending; over > 0 {
		s.pending = append(s.pending[:0], s.pending[over:]...)
		s.dropped += over
	}
}
