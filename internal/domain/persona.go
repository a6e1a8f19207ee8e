package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Generation sources recorded in provenance metadata. Records carrying no
// metadata at all, or the legacy fallback source, are legacy personas.
const (
	SourceEnhancedPipeline = "enhanced-pipeline"
	SourceLegacyFallback   = "legacy-fallback"
)

// Richness buckets, ordered low < medium < high.
const (
	RichnessLow    = "low"
	RichnessMedium = "medium"
	RichnessHigh   = "high"
)

// Quality levels, ordered poor < fair < good < excellent.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// CulturalCategories is the fixed set of enrichment categories every
// canonical persona carries, even when empty.
func CulturalCategories() []string {
	return []string{
		"music",
		"brands",
		"movies",
		"tvShows",
		"books",
		"fashion",
		"food",
		"travel",
		"socialMedia",
		"podcasts",
		"videoGames",
	}
}

// RichnessRank maps a richness bucket onto its ordinal so buckets can be
// compared.
func RichnessRank(richness string) int {
	switch richness {
	case RichnessHigh:
		return 2
	case RichnessMedium:
		return 1
	default:
		return 0
	}
}

// GenerationMetadata is the provenance of one persona record.
type GenerationMetadata struct {
	Source                  string    `json:"source"`
	Method                  string    `json:"method,omitempty"`
	CulturalConstraintsUsed []string  `json:"culturalConstraintsUsed,omitempty"`
	ProcessingTimeMs        int64     `json:"processingTimeMs,omitempty"`
	EnrichmentUsed          bool      `json:"enrichmentUsed"`
	FallbackReason          string    `json:"fallbackReason,omitempty"`
	RetryCount              int       `json:"retryCount,omitempty"`
	GeneratedAt             time.Time `json:"generatedAt,omitempty"`
}

// ValidationMetadata is the outcome of the last validation run against a
// named template.
type ValidationMetadata struct {
	TemplateID       string             `json:"templateId"`
	TemplateVersion  string             `json:"templateVersion,omitempty"`
	Score            float64            `json:"score"`
	CategoryScores   map[string]float64 `json:"categoryScores,omitempty"`
	PassedRules      []string           `json:"passedRules,omitempty"`
	FailedRules      []string           `json:"failedRules,omitempty"`
	ValidationTimeMs int64              `json:"validationTimeMs"`
	Status           string             `json:"status"`
	ValidatedAt      time.Time          `json:"validatedAt"`
}

type Demographics struct {
	Age         int    `json:"age"`
	Gender      string `json:"gender,omitempty"`
	Location    string `json:"location,omitempty"`
	Occupation  string `json:"occupation,omitempty"`
	Industry    string `json:"industry,omitempty"`
	IncomeRange string `json:"incomeRange,omitempty"`
	Education   string `json:"education,omitempty"`
	Generation  string `json:"generation,omitempty"`
}

type Psychographics struct {
	Interests         []string `json:"interests"`
	Values            []string `json:"values"`
	Lifestyle         string   `json:"lifestyle,omitempty"`
	PainPoints        []string `json:"painPoints"`
	Goals             []string `json:"goals"`
	PersonalityTraits []string `json:"personalityTraits"`
}

// Persona is the canonical, schema-complete persona entity. Candidate
// records only become a Persona through normalization, which guarantees
// every container below is non-nil.
type Persona struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null;column:owner_id" json:"owner_id"`

	Name  string `gorm:"not null;column:name" json:"name"`
	Email string `gorm:"column:email" json:"email"`
	Phone string `gorm:"column:phone" json:"phone"`

	Demographics   datatypes.JSONType[Demographics]        `gorm:"type:jsonb;column:demographics" json:"demographics"`
	Psychographics datatypes.JSONType[Psychographics]      `gorm:"type:jsonb;column:psychographics" json:"psychographics"`
	CulturalData   datatypes.JSONType[map[string][]string] `gorm:"type:jsonb;column:cultural_data" json:"cultural_data"`

	GenerationMeta datatypes.JSONType[*GenerationMetadata] `gorm:"type:jsonb;column:generation_meta" json:"generation_meta"`
	ValidationMeta datatypes.JSONType[*ValidationMetadata] `gorm:"type:jsonb;column:validation_meta" json:"validation_meta"`

	QualityScore     float64 `gorm:"column:quality_score" json:"quality_score"`
	QualityLevel     string  `gorm:"column:quality_level" json:"quality_level"`
	CulturalRichness string  `gorm:"column:cultural_richness" json:"cultural_richness"`
	IsLegacy         bool    `gorm:"column:is_legacy" json:"is_legacy"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Persona) TableName() string { return "persona" }

// Generation returns the provenance metadata or nil when the record
// predates provenance tracking.
func (p *Persona) Generation() *GenerationMetadata {
	return p.GenerationMeta.Data()
}

// Validation returns the last validation outcome or nil when the record was
// never validated.
func (p *Persona) Validation() *ValidationMetadata {
	return p.ValidationMeta.Data()
}

// ValidationScore is the last validation score, or 0 for never-validated
// records.
func (p *Persona) ValidationScore() float64 {
	if v := p.Validation(); v != nil {
		return v.Score
	}
	return 0
}
