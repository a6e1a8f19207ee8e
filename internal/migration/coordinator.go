package migration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/personaforge/personaforge-backend/internal/domain"
	"github.com/personaforge/personaforge-backend/internal/normalize"
	"github.com/personaforge/personaforge-backend/internal/platform/logger"
)

// RecordStore is the slice of the persistence layer the coordinator needs:
// load a set of records for an owner, save one back.
type RecordStore interface {
	LoadByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]*domain.Persona, error)
	Save(ctx context.Context, p *domain.Persona) error
}

type Config struct {
	// BatchSize bounds how many records are taken per batch; BatchPause is
	// the throttle between batches so bulk jobs do not hammer the store.
	BatchSize  int
	BatchPause time.Duration
	// Workers bounds in-batch parallelism. 1 reproduces the sequential
	// reference behavior.
	Workers int
	// RecordTimeout caps time spent on one record; a record that exceeds it
	// is logged as failed and the batch moves on.
	RecordTimeout time.Duration
}

func (c *Config) defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.BatchPause < 0 {
		c.BatchPause = 0
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RecordTimeout <= 0 {
		c.RecordTimeout = 30 * time.Second
	}
}

// Coordinator runs batch normalization jobs. Per-record failures land in
// the progress log without aborting the batch; only orchestration failures
// mark the whole job failed.
type Coordinator struct {
	store    RecordStore
	progress ProgressStore
	norm     *normalize.Normalizer
	cfg      Config
	log      *logger.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

func NewCoordinator(store RecordStore, progress ProgressStore, norm *normalize.Normalizer, cfg Config, baseLog *logger.Logger) *Coordinator {
	cfg.defaults()
	return &Coordinator{
		store:    store,
		progress: progress,
		norm:     norm,
		cfg:      cfg,
		log:      baseLog.With("component", "MigrationCoordinator"),
		cancels:  map[uuid.UUID]context.CancelFunc{},
	}
}

// Submit registers a job and starts processing in the background. The
// returned id is immediately pollable.
func (c *Coordinator) Submit(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (uuid.UUID, error) {
	if ownerID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("missing owner id")
	}
	if len(ids) == 0 {
		return uuid.Nil, fmt.Errorf("no record ids to migrate")
	}
	jobID := uuid.New()
	now := time.Now().UTC()
	p := &Progress{
		JobID:         jobID,
		OwnerID:       ownerID,
		Status:        JobPending,
		TotalPersonas: len(ids),
		Errors:        []RecordError{},
		StartedAt:     now,
		UpdatedAt:     now,
	}
	if err := c.progress.Create(ctx, p); err != nil {
		return uuid.Nil, fmt.Errorf("create progress: %w", err)
	}

	// The job outlives the submitting request; cancellation goes through
	// Cancel, not the caller's context.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Lock()
	c.cancels[jobID] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			cancel()
			c.mu.Lock()
			delete(c.cancels, jobID)
			c.mu.Unlock()
		}()
		c.run(jobCtx, p, ids)
	}()
	return jobID, nil
}

// Cancel stops a running job between records. Unknown ids are a no-op.
func (c *Coordinator) Cancel(jobID uuid.UUID) {
	c.mu.Lock()
	cancel, ok := c.cancels[jobID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

// Wait blocks until every in-flight job has finished. Used on shutdown and
// by tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) Get(ctx context.Context, jobID uuid.UUID) (*Progress, error) {
	return c.progress.Get(ctx, jobID)
}

func (c *Coordinator) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*Progress, error) {
	return c.progress.ListActive(ctx, ownerID)
}

func (c *Coordinator) run(ctx context.Context, p *Progress, ids []uuid.UUID) {
	log := c.log.With("job_id", p.JobID, "owner_id", p.OwnerID)
	p.Status = JobInProgress
	c.update(ctx, p)

	var mu sync.Mutex // serializes progress mutation across workers

	// snapshot copies the progress under the lock so updates never race
	// with worker mutation.
	snapshot := func() *Progress {
		mu.Lock()
		defer mu.Unlock()
		cp := *p
		cp.Errors = append([]RecordError{}, p.Errors...)
		return &cp
	}
	flush := func() {
		c.update(ctx, snapshot())
	}
	systemFailure := func(err error) {
		mu.Lock()
		p.Status = JobFailed
		p.Errors = append(p.Errors, RecordError{RecordID: "system", Error: err.Error()})
		done := time.Now().UTC()
		p.CompletedAt = &done
		mu.Unlock()
		flush()
		log.Error("migration job failed", "error", err)
	}

	for start := 0; start < len(ids); start += c.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			systemFailure(fmt.Errorf("job canceled: %w", err))
			return
		}
		end := start + c.cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		records, err := c.store.LoadByIDs(ctx, p.OwnerID, batch)
		if err != nil {
			systemFailure(fmt.Errorf("load batch: %w", err))
			return
		}
		byID := make(map[uuid.UUID]*domain.Persona, len(records))
		for _, r := range records {
			byID[r.ID] = r
		}

		g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
		g.SetLimit(c.cfg.Workers)
		for _, id := range batch {
			if err := ctx.Err(); err != nil {
				break
			}
			id := id
			rec := byID[id]
			g.Go(func() error {
				outcome := c.processRecord(gctx, p.OwnerID, id, rec)
				mu.Lock()
				p.ProcessedPersonas++
				p.CurrentPersona = outcome.name
				switch {
				case outcome.err != nil:
					p.FailedMigrations++
					p.Errors = append(p.Errors, RecordError{RecordID: id.String(), Error: outcome.err.Error()})
				case outcome.skipped:
					p.SkippedPersonas++
					p.SuccessfulMigrations++
				default:
					p.SuccessfulMigrations++
				}
				mu.Unlock()
				flush()
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			systemFailure(fmt.Errorf("job canceled: %w", err))
			return
		}
		if end < len(ids) && c.cfg.BatchPause > 0 {
			select {
			case <-time.After(c.cfg.BatchPause):
			case <-ctx.Done():
			}
		}
	}

	mu.Lock()
	p.Status = JobCompleted
	p.CurrentPersona = ""
	done := time.Now().UTC()
	p.CompletedAt = &done
	mu.Unlock()
	flush()
	log.Info("migration job completed",
		"processed", p.ProcessedPersonas,
		"succeeded", p.SuccessfulMigrations,
		"failed", p.FailedMigrations,
		"skipped", p.SkippedPersonas)
}

type recordOutcome struct {
	name    string
	skipped bool
	err     error
}

func (c *Coordinator) processRecord(ctx context.Context, ownerID, id uuid.UUID, rec *domain.Persona) (out recordOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("record processing panicked: %v", r)
		}
	}()
	if rec == nil {
		return recordOutcome{name: id.String(), err: fmt.Errorf("record not found for owner")}
	}
	out.name = rec.Name

	// Already migrated: modern provenance present means there is nothing to
	// upgrade, so the record counts as processed without being rewritten.
	if gen := rec.Generation(); gen != nil && gen.Source != domain.SourceLegacyFallback {
		out.skipped = true
		return out
	}

	rctx, cancel := context.WithTimeout(ctx, c.cfg.RecordTimeout)
	defer cancel()

	bag, err := normalize.BagOf(rec)
	if err != nil {
		out.err = fmt.Errorf("rebuild record: %w", err)
		return out
	}
	migrated, err := c.norm.Normalize(bag, normalize.Options{
		OwnerID:            ownerID,
		PreserveTimestamps: true,
		Validate:           true,
		Strict:             true,
	})
	if err != nil {
		out.err = err
		return out
	}
	if err := rctx.Err(); err != nil {
		out.err = fmt.Errorf("validation-timeout: record exceeded %s", c.cfg.RecordTimeout)
		return out
	}
	if err := c.store.Save(rctx, migrated); err != nil {
		if rctx.Err() != nil {
			out.err = fmt.Errorf("validation-timeout: record exceeded %s", c.cfg.RecordTimeout)
			return out
		}
		out.err = fmt.Errorf("save record: %w", err)
		return out
	}
	return out
}

func (c *Coordinator) update(ctx context.Context, p *Progress) {
	if err := c.progress.Update(context.WithoutCancel(ctx), p); err != nil {
		c.log.Warn("progress update failed", "job_id", p.JobID, "error", err)
	}
}
