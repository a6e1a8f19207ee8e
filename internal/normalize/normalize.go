// Package normalize upgrades partial or legacy persona records into the
// canonical entity: a total function over arbitrary input that fills
// defaults, coerces wrong types, synthesizes provenance for legacy records,
// and derives richness/quality/legacy flags.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/personaforge/personaforge-backend/internal/domain"
	"github.com/personaforge/personaforge-backend/internal/platform/logger"
	"github.com/personaforge/personaforge-backend/internal/record"
	"github.com/personaforge/personaforge-backend/internal/validation"

	"gorm.io/datatypes"
)

type Options struct {
	// OwnerID stamps tenant ownership on the canonical entity.
	OwnerID uuid.UUID
	// PreserveTimestamps keeps an original creation time found on the
	// record; otherwise creation is stamped now.
	PreserveTimestamps bool
	// Strict runs the integrity check after building the entity and fails
	// the whole normalization on violation. This is the only path by which
	// Normalize returns an error.
	Strict bool
	// Validate runs the validation engine against the normalized entity and
	// attaches fresh validation metadata.
	Validate        bool
	TemplateID      string
	TemplateVersion string
}

type Normalizer struct {
	engine *validation.Engine
	log    *logger.Logger
}

func New(engine *validation.Engine, baseLog *logger.Logger) *Normalizer {
	return &Normalizer{
		engine: engine,
		log:    baseLog.With("component", "Normalizer"),
	}
}

// Normalize converts any partial input into a complete canonical persona.
// It never fails for structurally-arbitrary input; only the strict-mode
// integrity check can return an error.
func (n *Normalizer) Normalize(bag record.Bag, opts Options) (*domain.Persona, error) {
	if bag == nil {
		bag = record.Bag{}
	}
	now := time.Now().UTC()

	p := &domain.Persona{
		ID:      resolveID(bag),
		OwnerID: resolveOwner(bag, opts.OwnerID),
		Name:    resolveString(bag, "Unnamed Persona", "name", "demographics.name"),
		Email:   resolveString(bag, "", "email", "contact.email", "demographics.email"),
		Phone:   resolveString(bag, "", "phone", "contact.phone", "demographics.phone"),
	}

	p.CreatedAt = now
	if opts.PreserveTimestamps {
		if t, ok := resolveTime(bag, "createdAt", "created_at"); ok {
			p.CreatedAt = t
		}
	}
	p.UpdatedAt = now

	demo := normalizeDemographics(bag)
	psycho := normalizePsychographics(bag)
	cultural := normalizeCultural(bag)
	p.Demographics = datatypes.NewJSONType(demo)
	p.Psychographics = datatypes.NewJSONType(psycho)
	p.CulturalData = datatypes.NewJSONType(cultural)

	gen, hadGen := normalizeGenerationMeta(bag)
	if !hadGen {
		gen = &domain.GenerationMetadata{
			Source:         domain.SourceLegacyFallback,
			Method:         "unknown",
			FallbackReason: "no generation metadata on record",
			GeneratedAt:    p.CreatedAt,
		}
	}
	p.GenerationMeta = datatypes.NewJSONType(gen)
	p.IsLegacy = !hadGen || gen.Source == domain.SourceLegacyFallback

	valMeta := normalizeValidationMeta(bag)
	if opts.Validate && n.engine != nil {
		valMeta = n.revalidate(p, cultural, demo, psycho, opts)
	}
	p.ValidationMeta = datatypes.NewJSONType(valMeta)

	p.QualityScore = resolveQualityScore(bag, valMeta, p, cultural)
	p.QualityLevel = QualityLevel(p.QualityScore)
	p.CulturalRichness = CulturalRichness(cultural)

	if opts.Strict {
		if err := CheckIntegrity(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// revalidate runs the template against the canonical shape of the entity so
// the attached metadata reflects the record as stored, not the raw input.
func (n *Normalizer) revalidate(p *domain.Persona, cultural map[string][]string, demo domain.Demographics, psycho domain.Psychographics, opts Options) *domain.ValidationMetadata {
	templateID := opts.TemplateID
	if templateID == "" {
		templateID = "persona-standard"
	}
	bag, err := BagOf(p)
	if err != nil {
		n.log.Warn("could not rebuild bag for validation", "persona_id", p.ID, "error", err)
		return nil
	}
	run, err := n.engine.Run(templateID, opts.TemplateVersion, record.Single(bag), &validation.Context{TemplateID: templateID})
	if err != nil {
		n.log.Warn("validation during normalization failed", "persona_id", p.ID, "error", err)
		return nil
	}
	catScores := make(map[string]float64, len(run.CategoryScores))
	for cat, s := range run.CategoryScores {
		catScores[string(cat)] = s
	}
	return &domain.ValidationMetadata{
		TemplateID:       run.Metadata.TemplateID,
		TemplateVersion:  run.Metadata.TemplateVersion,
		Score:            run.Score,
		CategoryScores:   catScores,
		PassedRules:      run.PassedRules,
		FailedRules:      run.FailedRules,
		ValidationTimeMs: run.Metadata.ValidationTimeMs,
		Status:           string(run.Status),
		ValidatedAt:      run.Metadata.Timestamp,
	}
}

// BagOf round-trips a persona through JSON into the schema-less form, used
// when re-validating or re-normalizing stored entities.
func BagOf(p *domain.Persona) (record.Bag, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal persona: %w", err)
	}
	var bag record.Bag
	if err := json.Unmarshal(raw, &bag); err != nil {
		return nil, fmt.Errorf("unmarshal persona: %w", err)
	}
	return bag, nil
}

func resolveID(bag record.Bag) uuid.UUID {
	if raw, _, ok := record.ResolveFirst(bag, "id", "ID"); ok {
		if s, isStr := raw.(string); isStr {
			if id, err := uuid.Parse(strings.TrimSpace(s)); err == nil && id != uuid.Nil {
				return id
			}
		}
	}
	// Time-ordered id with a random suffix, so synthesized identities sort
	// by creation.
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func resolveOwner(bag record.Bag, explicit uuid.UUID) uuid.UUID {
	if explicit != uuid.Nil {
		return explicit
	}
	if raw, _, ok := record.ResolveFirst(bag, "owner_id", "ownerId", "userId"); ok {
		if s, isStr := raw.(string); isStr {
			if id, err := uuid.Parse(strings.TrimSpace(s)); err == nil {
				return id
			}
		}
	}
	return uuid.Nil
}

func resolveString(bag record.Bag, def string, paths ...string) string {
	raw, _, ok := record.ResolveFirst(bag, paths...)
	if !ok {
		return def
	}
	s, isStr := raw.(string)
	if !isStr {
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func resolveTime(bag record.Bag, paths ...string) (time.Time, bool) {
	raw, _, ok := record.ResolveFirst(bag, paths...)
	if !ok {
		return time.Time{}, false
	}
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), true
			}
		}
	}
	if f, ok := record.AsFloat(raw); ok && f > 0 {
		if f > 1e10 {
			return time.UnixMilli(int64(f)).UTC(), true
		}
		return time.Unix(int64(f), 0).UTC(), true
	}
	return time.Time{}, false
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func normalizeDemographics(bag record.Bag) domain.Demographics {
	d := domain.Demographics{
		Gender:      resolveString(bag, "", "gender", "demographics.gender"),
		Location:    resolveString(bag, "", "location", "demographics.location"),
		Occupation:  resolveString(bag, "", "occupation", "demographics.occupation"),
		Industry:    resolveString(bag, "", "industry", "demographics.industry"),
		IncomeRange: resolveString(bag, "", "incomeRange", "income_range", "demographics.incomeRange", "demographics.income_range"),
		Education:   resolveString(bag, "", "education", "demographics.education"),
		Generation:  resolveString(bag, "", "generation", "demographics.generation"),
	}
	if raw, _, ok := record.ResolveFirst(bag, "age", "demographics.age"); ok {
		d.Age = clampInt(record.AsInt(raw, 0), 0, 150)
	}
	return d
}

func resolveStrings(bag record.Bag, paths ...string) []string {
	raw, _, ok := record.ResolveFirst(bag, paths...)
	if !ok {
		return []string{}
	}
	out := record.AsStringSlice(raw)
	if out == nil {
		return []string{}
	}
	return out
}

func normalizePsychographics(bag record.Bag) domain.Psychographics {
	return domain.Psychographics{
		Interests:         resolveStrings(bag, "interests", "psychographics.interests"),
		Values:            resolveStrings(bag, "values", "psychographics.values"),
		Lifestyle:         resolveString(bag, "", "lifestyle", "psychographics.lifestyle"),
		PainPoints:        resolveStrings(bag, "painPoints", "pain_points", "psychographics.painPoints", "psychographics.pain_points"),
		Goals:             resolveStrings(bag, "goals", "psychographics.goals"),
		PersonalityTraits: resolveStrings(bag, "personalityTraits", "personality_traits", "psychographics.personalityTraits"),
	}
}

// normalizeCultural guarantees every category exists, empty or not. Items of
// the wrong type are filtered out rather than failing the record.
func normalizeCultural(bag record.Bag) map[string][]string {
	out := map[string][]string{}
	container, _, _ := record.ResolveFirst(bag, "culturalData", "cultural_data")
	cbag, _ := record.AsBag(container)
	for _, cat := range domain.CulturalCategories() {
		items := record.AsStringSlice(cbag[cat])
		if items == nil {
			items = []string{}
		}
		out[cat] = items
	}
	return out
}

func normalizeGenerationMeta(bag record.Bag) (*domain.GenerationMetadata, bool) {
	raw, _, ok := record.ResolveFirst(bag, "generationMetadata", "generation_meta", "generation_metadata")
	if !ok {
		return nil, false
	}
	meta, isBag := record.AsBag(raw)
	if !isBag {
		return nil, false
	}
	source := strings.TrimSpace(record.AsString(meta["source"]))
	if source == "" {
		return nil, false
	}
	g := &domain.GenerationMetadata{
		Source:                  source,
		Method:                  strings.TrimSpace(record.AsString(meta["method"])),
		CulturalConstraintsUsed: record.AsStringSlice(meta["culturalConstraintsUsed"]),
		ProcessingTimeMs:        int64(record.AsInt(meta["processingTimeMs"], 0)),
		FallbackReason:          strings.TrimSpace(record.AsString(meta["fallbackReason"])),
		RetryCount:              clampInt(record.AsInt(meta["retryCount"], 0), 0, 1000),
	}
	if b, isBool := meta["enrichmentUsed"].(bool); isBool {
		g.EnrichmentUsed = b
	}
	if t, ok := resolveTime(meta, "generatedAt"); ok {
		g.GeneratedAt = t
	}
	return g, true
}

func normalizeValidationMeta(bag record.Bag) *domain.ValidationMetadata {
	raw, _, ok := record.ResolveFirst(bag, "validationMetadata", "validation_meta", "validation_metadata")
	if !ok {
		return nil
	}
	meta, isBag := record.AsBag(raw)
	if !isBag {
		return nil
	}
	score, hasScore := record.AsFloat(meta["score"])
	if !hasScore {
		return nil
	}
	v := &domain.ValidationMetadata{
		TemplateID:       strings.TrimSpace(record.AsString(meta["templateId"])),
		TemplateVersion:  strings.TrimSpace(record.AsString(meta["templateVersion"])),
		Score:            clampFloat(score, 0, 100),
		PassedRules:      record.AsStringSlice(meta["passedRules"]),
		FailedRules:      record.AsStringSlice(meta["failedRules"]),
		ValidationTimeMs: int64(record.AsInt(meta["validationTimeMs"], 0)),
		Status:           strings.TrimSpace(record.AsString(meta["status"])),
	}
	if scores, ok := record.AsBag(meta["categoryScores"]); ok {
		v.CategoryScores = map[string]float64{}
		for k, s := range scores {
			if f, isNum := record.AsFloat(s); isNum {
				v.CategoryScores[k] = clampFloat(f, 0, 100)
			}
		}
	}
	switch v.Status {
	case string(validation.StatusPassed), string(validation.StatusWarning), string(validation.StatusFailed):
	default:
		// Malformed status; re-derive from the score.
		switch {
		case v.Score >= 70:
			v.Status = string(validation.StatusPassed)
		case v.Score >= 50:
			v.Status = string(validation.StatusWarning)
		default:
			v.Status = string(validation.StatusFailed)
		}
	}
	if t, ok := resolveTime(meta, "validatedAt"); ok {
		v.ValidatedAt = t
	}
	return v
}

// resolveQualityScore prefers, in order: a fresh validation run, an explicit
// score on the record, a previously attached validation score, and finally a
// completeness estimate over the populated fields.
func resolveQualityScore(bag record.Bag, valMeta *domain.ValidationMetadata, p *domain.Persona, cultural map[string][]string) float64 {
	if valMeta != nil {
		return clampFloat(valMeta.Score, 0, 100)
	}
	if raw, _, ok := record.ResolveFirst(bag, "qualityScore", "quality_score"); ok {
		if f, isNum := record.AsFloat(raw); isNum {
			return clampFloat(f, 0, 100)
		}
	}
	return completenessScore(p, cultural)
}

func completenessScore(p *domain.Persona, cultural map[string][]string) float64 {
	demo := p.Demographics.Data()
	psycho := p.Psychographics.Data()
	score := 0.0
	if p.Name != "" && p.Name != "Unnamed Persona" {
		score += 10
	}
	if p.Email != "" {
		score += 10
	}
	if p.Phone != "" {
		score += 5
	}
	if demo.Occupation != "" {
		score += 10
	}
	if demo.Location != "" {
		score += 10
	}
	if demo.Age > 0 {
		score += 5
	}
	if len(psycho.Interests) > 0 {
		score += 10
	}
	if len(psycho.Values) > 0 {
		score += 5
	}
	if len(psycho.PainPoints) > 0 {
		score += 5
	}
	if len(psycho.Goals) > 0 {
		score += 5
	}
	populated := 0
	for _, items := range cultural {
		if len(items) > 0 {
			populated++
		}
	}
	score += float64(populated) / float64(len(domain.CulturalCategories())) * 25
	return clampFloat(score, 0, 100)
}
