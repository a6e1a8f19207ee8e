package migration

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/personaforge/personaforge-backend/internal/domain"
	"github.com/personaforge/personaforge-backend/internal/normalize"
	"github.com/personaforge/personaforge-backend/internal/platform/logger"
	"github.com/personaforge/personaforge-backend/internal/validation"
)

type fakeRecordStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.Persona
	saved   map[uuid.UUID]*domain.Persona

	saveStarted chan struct{}
	saveRelease chan struct{}
}

func newFakeRecordStore(records ...*domain.Persona) *fakeRecordStore {
	s := &fakeRecordStore{
		records: map[uuid.UUID]*domain.Persona{},
		saved:   map[uuid.UUID]*domain.Persona{},
	}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *fakeRecordStore) LoadByIDs(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]*domain.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Persona{}
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeRecordStore) Save(_ context.Context, p *domain.Persona) error {
	if s.saveStarted != nil {
		s.saveStarted <- struct{}{}
		<-s.saveRelease
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[p.ID] = p
	return nil
}

func (s *fakeRecordStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func legacyRecord(name string) *domain.Persona {
	return &domain.Persona{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func modernRecord(name string) *domain.Persona {
	p := legacyRecord(name)
	p.GenerationMeta = datatypes.NewJSONType(&domain.GenerationMetadata{
		Source: domain.SourceEnhancedPipeline,
	})
	return p
}

func testCoordinator(t *testing.T, store RecordStore, cfg Config) *Coordinator {
	t.Helper()
	engine := validation.NewEngine(validation.NewRegistry(logger.NewNop()), logger.NewNop())
	norm := normalize.New(engine, logger.NewNop())
	return NewCoordinator(store, NewMemoryProgressStore(time.Minute), norm, cfg, logger.NewNop())
}

func waitForJob(t *testing.T, c *Coordinator, jobID uuid.UUID) *Progress {
	t.Helper()
	c.Wait()
	p, err := c.Get(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	return p
}

func TestCoordinatorMigratesAll(t *testing.T) {
	owner := uuid.New()
	records := []*domain.Persona{legacyRecord("a"), legacyRecord("b"), legacyRecord("c")}
	store := newFakeRecordStore(records...)
	c := testCoordinator(t, store, Config{BatchSize: 2})

	ids := []uuid.UUID{records[0].ID, records[1].ID, records[2].ID}
	jobID, err := c.Submit(context.Background(), owner, ids)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	p := waitForJob(t, c, jobID)
	if p.Status != JobCompleted {
		t.Fatalf("expected %s, got %s (errors %+v)", JobCompleted, p.Status, p.Errors)
	}
	if p.ProcessedPersonas != 3 || p.SuccessfulMigrations != 3 || p.FailedMigrations != 0 {
		t.Fatalf("bad accounting: %+v", p)
	}
	if store.savedCount() != 3 {
		t.Fatalf("expected 3 saved records, got %d", store.savedCount())
	}
	if p.CompletedAt == nil {
		t.Fatalf("completed job must carry its completion time")
	}

	// Every migrated record carries provenance and fresh validation.
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, saved := range store.saved {
		if saved.Generation() == nil {
			t.Fatalf("migrated record missing generation metadata")
		}
		if saved.Validation() == nil {
			t.Fatalf("migrated record missing validation metadata")
		}
		if !saved.CreatedAt.Equal(records[0].CreatedAt) {
			t.Fatalf("migration must preserve the original creation time, got %s", saved.CreatedAt)
		}
	}
}

func TestCoordinatorSkipsAlreadyMigrated(t *testing.T) {
	owner := uuid.New()
	legacy := legacyRecord("legacy")
	migrated := modernRecord("modern")
	store := newFakeRecordStore(legacy, migrated)
	c := testCoordinator(t, store, Config{})

	jobID, err := c.Submit(context.Background(), owner, []uuid.UUID{legacy.ID, migrated.ID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	p := waitForJob(t, c, jobID)
	if p.Status != JobCompleted {
		t.Fatalf("expected completed, got %s", p.Status)
	}
	// A skipped record still counts as processed and successful.
	if p.ProcessedPersonas != 2 || p.SuccessfulMigrations != 2 || p.SkippedPersonas != 1 {
		t.Fatalf("bad skip accounting: %+v", p)
	}
	if store.savedCount() != 1 {
		t.Fatalf("already-migrated record must not be rewritten, saved %d", store.savedCount())
	}
}

func TestCoordinatorIsolatesRecordFailures(t *testing.T) {
	owner := uuid.New()
	good := legacyRecord("good")
	store := newFakeRecordStore(good)
	c := testCoordinator(t, store, Config{})

	missing := uuid.New()
	jobID, err := c.Submit(context.Background(), owner, []uuid.UUID{good.ID, missing})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	p := waitForJob(t, c, jobID)
	if p.Status != JobCompleted {
		t.Fatalf("a per-record failure must not fail the job, got %s", p.Status)
	}
	if p.ProcessedPersonas != 2 || p.SuccessfulMigrations != 1 || p.FailedMigrations != 1 {
		t.Fatalf("bad failure accounting: %+v", p)
	}
	if len(p.Errors) != 1 || p.Errors[0].RecordID != missing.String() {
		t.Fatalf("failure must name the record: %+v", p.Errors)
	}
}

func TestCoordinatorSubmitValidation(t *testing.T) {
	c := testCoordinator(t, newFakeRecordStore(), Config{})
	if _, err := c.Submit(context.Background(), uuid.Nil, []uuid.UUID{uuid.New()}); err == nil {
		t.Fatalf("missing owner must be rejected")
	}
	if _, err := c.Submit(context.Background(), uuid.New(), nil); err == nil {
		t.Fatalf("empty id list must be rejected")
	}
}

func TestCoordinatorCancel(t *testing.T) {
	owner := uuid.New()
	records := []*domain.Persona{legacyRecord("a"), legacyRecord("b"), legacyRecord("c")}
	store := newFakeRecordStore(records...)
	store.saveStarted = make(chan struct{})
	store.saveRelease = make(chan struct{})
	c := testCoordinator(t, store, Config{BatchSize: 1})

	jobID, err := c.Submit(context.Background(), owner, []uuid.UUID{records[0].ID, records[1].ID, records[2].ID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Cancel while the first record's save is in flight; the job notices
	// before the next batch.
	<-store.saveStarted
	c.Cancel(jobID)
	close(store.saveRelease)

	p := waitForJob(t, c, jobID)
	if p.Status != JobFailed {
		t.Fatalf("canceled job must end failed, got %s", p.Status)
	}
	var canceled bool
	for _, e := range p.Errors {
		if e.RecordID == "system" && strings.Contains(e.Error, "canceled") {
			canceled = true
		}
	}
	if !canceled {
		t.Fatalf("cancellation must be recorded as a system error: %+v", p.Errors)
	}
	if store.savedCount() >= 3 {
		t.Fatalf("cancellation must stop remaining records")
	}
}

func TestCoordinatorJobSurvivesCallerContext(t *testing.T) {
	owner := uuid.New()
	rec := legacyRecord("orphan")
	store := newFakeRecordStore(rec)
	c := testCoordinator(t, store, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	jobID, err := c.Submit(ctx, owner, []uuid.UUID{rec.ID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	cancel() // the submitting request goes away

	p := waitForJob(t, c, jobID)
	if p.Status != JobCompleted {
		t.Fatalf("job must outlive the submitting context, got %s (%+v)", p.Status, p.Errors)
	}
}
