package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/personaforge/personaforge-backend/internal/advisor"
	"github.com/personaforge/personaforge-backend/internal/data/repos"
	"github.com/personaforge/personaforge-backend/internal/domain"
	"github.com/personaforge/personaforge-backend/internal/normalize"
	"github.com/personaforge/personaforge-backend/internal/platform/logger"
	"github.com/personaforge/personaforge-backend/internal/record"
	"github.com/personaforge/personaforge-backend/internal/validation"
)

type PersonaService interface {
	Validate(ctx context.Context, templateID, version string, candidate any, vctx *validation.Context) (*validation.TemplateRun, error)
	Create(ctx context.Context, ownerID uuid.UUID, candidate record.Bag) (*domain.Persona, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Persona, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Persona, error)
	Compare(ctx context.Context, ownerID, id uuid.UUID, topN int) (*advisor.Comparison, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type personaService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.PersonaRepo
	engine *validation.Engine
	norm   *normalize.Normalizer
}

func NewPersonaService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.PersonaRepo,
	engine *validation.Engine,
	norm *normalize.Normalizer,
) PersonaService {
	return &personaService{
		db:     db,
		log:    baseLog.With("service", "PersonaService"),
		repo:   repo,
		engine: engine,
		norm:   norm,
	}
}

// Validate runs a template against raw candidate input: one record or an
// array of records, straight from the generator.
func (s *personaService) Validate(ctx context.Context, templateID, version string, candidate any, vctx *validation.Context) (*validation.TemplateRun, error) {
	if templateID == "" {
		templateID = "persona-standard"
	}
	return s.engine.Run(templateID, version, record.FromAny(candidate), vctx)
}

// Create normalizes an untrusted candidate into a canonical persona,
// attaches fresh validation metadata, and persists it. Strict mode guards
// the store against broken entities.
func (s *personaService) Create(ctx context.Context, ownerID uuid.UUID, candidate record.Bag) (*domain.Persona, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("missing owner id")
	}
	persona, err := s.norm.Normalize(candidate, normalize.Options{
		OwnerID:            ownerID,
		PreserveTimestamps: true,
		Validate:           true,
		Strict:             true,
	})
	if err != nil {
		return nil, fmt.Errorf("normalize candidate: %w", err)
	}
	if _, err := s.repo.Create(ctx, nil, []*domain.Persona{persona}); err != nil {
		return nil, fmt.Errorf("persist persona: %w", err)
	}
	s.log.Info("persona created",
		"persona_id", persona.ID,
		"owner_id", ownerID,
		"quality", persona.QualityLevel,
		"richness", persona.CulturalRichness)
	return persona, nil
}

func (s *personaService) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Persona, error) {
	found, err := s.repo.GetByIDs(ctx, nil, ownerID, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return found[0], nil
}

func (s *personaService) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Persona, error) {
	return s.repo.ListByOwner(ctx, nil, ownerID)
}

// Compare ranks one persona against every other persona of the same owner.
func (s *personaService) Compare(ctx context.Context, ownerID, id uuid.UUID, topN int) (*advisor.Comparison, error) {
	target, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.ListByOwner(ctx, nil, ownerID)
	if err != nil {
		return nil, err
	}
	peers := make([]*domain.Persona, 0, len(all))
	for _, p := range all {
		if p.ID != target.ID {
			peers = append(peers, p)
		}
	}
	return advisor.Compare(target, peers, topN), nil
}

func (s *personaService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.repo.Delete(ctx, nil, ownerID, id)
}
