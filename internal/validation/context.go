package validation

import "github.com/personaforge/personaforge-backend/internal/record"

// Context is the read-only bundle handed to every validator in a run. Retry
// loops thread the previous attempt's errors back in so content rules can
// tighten their messaging; nothing here is mutated during validation.
type Context struct {
	// Request is the originating generation request (prompt parameters,
	// audience description) as the pipeline recorded it.
	Request record.Bag
	// CulturalConstraints are the enrichment categories the generation run
	// was asked to respect.
	CulturalConstraints []string
	// UserSignals carries caller-supplied hints (target market, campaign).
	UserSignals record.Bag

	TemplateID  string
	Attempt     int
	PriorErrors []Error
}
