package persist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JournalEntry records one lifecycle milestone of one entity.
type JournalEntry struct {
	Tick  uint64
	Pool  string
	Slot  uint32
	GUID  uint32
	Name  string
	Event string // "spawned", "activated", "killed", "reclaimed"
}

// Journal is the write side of the lifecycle journal. Guids are only unique
// within one run, so every row carries the run id.
type Journal interface {
	StartRun(ctx context.Context, runID uuid.UUID, name string) error
	Append(ctx context.Context, runID uuid.UUID, entries []JournalEntry) error
	FinishRun(ctx context.Context, runID uuid.UUID, ticks uint64, created uint32) error
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

func (r *JournalRepo) StartRun(ctx context.Context, runID uuid.UUID, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO lifecycle_runs (run_id, name) VALUES ($1, $2)`,
		runID, name,
	)
	if err != nil {
		return fmt.Errorf("journal start run: %w", err)
	}
	return nil
}

// Append writes a batch of entries in a single transaction.
func (r *JournalRepo) Append(ctx context.Context, runID uuid.UUID, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO lifecycle_journal (run_id, tick, pool, slot, guid, name, event)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, int64(e.Tick), e.Pool, int32(e.Slot), int64(e.GUID), e.Name, e.Event,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *JournalRepo) FinishRun(ctx context.Context, runID uuid.UUID, ticks uint64, created uint32) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE lifecycle_runs SET finished_at = now(), ticks = $2, created = $3 WHERE run_id = $1`,
		runID, int64(ticks), int64(created),
	)
	if err != nil {
		return fmt.Errorf("journal finish run: %w", err)
	}
	return nil
}
