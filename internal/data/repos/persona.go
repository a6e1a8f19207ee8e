package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/personaforge/personaforge-backend/internal/domain"
	"github.com/personaforge/personaforge-backend/internal/platform/logger"
)

type PersonaRepo interface {
	Create(ctx context.Context, tx *gorm.DB, personas []*domain.Persona) ([]*domain.Persona, error)
	Upsert(ctx context.Context, tx *gorm.DB, persona *domain.Persona) error
	GetByIDs(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, ids []uuid.UUID) ([]*domain.Persona, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.Persona, error)
	CountByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) (int64, error)
	Delete(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, id uuid.UUID) error
}

type personaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	return &personaRepo{db: db, log: baseLog.With("repo", "PersonaRepo")}
}

func (r *personaRepo) Create(ctx context.Context, tx *gorm.DB, personas []*domain.Persona) ([]*domain.Persona, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(personas) == 0 {
		return []*domain.Persona{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&personas).Error; err != nil {
		return nil, err
	}
	return personas, nil
}

func (r *personaRepo) Upsert(ctx context.Context, tx *gorm.DB, persona *domain.Persona) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(persona).Error
}

func (r *personaRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, ids []uuid.UUID) ([]*domain.Persona, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.Persona
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personaRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.Persona, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.Persona
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personaRepo) CountByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.Persona{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *personaRepo) Delete(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&domain.Persona{}).Error
}
