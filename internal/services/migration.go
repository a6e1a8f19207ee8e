package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/personaforge/personaforge-backend/internal/data/repos"
	"github.com/personaforge/personaforge-backend/internal/domain"
	"github.com/personaforge/personaforge-backend/internal/migration"
	"github.com/personaforge/personaforge-backend/internal/platform/logger"
)

type MigrationService interface {
	Submit(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (uuid.UUID, error)
	SubmitAll(ctx context.Context, ownerID uuid.UUID) (uuid.UUID, error)
	Get(ctx context.Context, jobID uuid.UUID) (*migration.Progress, error)
	ListActive(ctx context.Context, ownerID uuid.UUID) ([]*migration.Progress, error)
	Cancel(jobID uuid.UUID)
}

type migrationService struct {
	log   *logger.Logger
	repo  repos.PersonaRepo
	coord *migration.Coordinator
}

func NewMigrationService(baseLog *logger.Logger, repo repos.PersonaRepo, coord *migration.Coordinator) MigrationService {
	return &migrationService{
		log:   baseLog.With("service", "MigrationService"),
		repo:  repo,
		coord: coord,
	}
}

func (s *migrationService) Submit(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (uuid.UUID, error) {
	jobID, err := s.coord.Submit(ctx, ownerID, ids)
	if err != nil {
		return uuid.Nil, err
	}
	s.log.Info("migration job submitted", "job_id", jobID, "owner_id", ownerID, "records", len(ids))
	return jobID, nil
}

// SubmitAll migrates the owner's whole corpus.
func (s *migrationService) SubmitAll(ctx context.Context, ownerID uuid.UUID) (uuid.UUID, error) {
	all, err := s.repo.ListByOwner(ctx, nil, ownerID)
	if err != nil {
		return uuid.Nil, err
	}
	ids := make([]uuid.UUID, 0, len(all))
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	return s.Submit(ctx, ownerID, ids)
}

func (s *migrationService) Get(ctx context.Context, jobID uuid.UUID) (*migration.Progress, error) {
	return s.coord.Get(ctx, jobID)
}

func (s *migrationService) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*migration.Progress, error) {
	return s.coord.ListActive(ctx, ownerID)
}

func (s *migrationService) Cancel(jobID uuid.UUID) {
	s.coord.Cancel(jobID)
}

// repoRecordStore adapts PersonaRepo to the coordinator's RecordStore.
type repoRecordStore struct {
	repo repos.PersonaRepo
}

func NewRepoRecordStore(repo repos.PersonaRepo) migration.RecordStore {
	return &repoRecordStore{repo: repo}
}

func (a *repoRecordStore) LoadByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]*domain.Persona, error) {
	return a.repo.GetByIDs(ctx, nil, ownerID, ids)
}

func (a *repoRecordStore) Save(ctx context.Context, p *domain.Persona) error {
	return a.repo.Upsert(ctx, nil, p)
}
