package validation

import (
	"time"

	"github.com/google/uuid"
)

type Error struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"kind"`
	Field    string         `json:"field"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Observed any            `json:"observedValue,omitempty"`
	Expected string         `json:"expectedDescription,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

type Warning struct {
	ID         string `json:"id"`
	Field      string `json:"field"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

type ResultMetadata struct {
	TemplateID       string    `json:"templateId,omitempty"`
	TemplateVersion  string    `json:"templateVersion,omitempty"`
	ValidationTimeMs int64     `json:"validationTimeMs"`
	RulesExecuted    int       `json:"rulesExecuted"`
	RulesSkipped     int       `json:"rulesSkipped"`
	Timestamp        time.Time `json:"timestamp"`
}

// Result is the outcome of one validator unit or of a whole template run.
// IsValid tracks errors only; warnings never block.
type Result struct {
	IsValid  bool           `json:"isValid"`
	Errors   []Error        `json:"errors"`
	Warnings []Warning      `json:"warnings"`
	Score    float64        `json:"score"`
	Metadata ResultMetadata `json:"metadata"`
}

func newError(kind Kind, field, message string, severity Severity) Error {
	return Error{
		ID:       uuid.NewString(),
		Kind:     kind,
		Field:    field,
		Message:  message,
		Severity: severity,
	}
}

func newWarning(field, message, suggestion string) Warning {
	return Warning{
		ID:         uuid.NewString(),
		Field:      field,
		Message:    message,
		Suggestion: suggestion,
	}
}

// finish assembles a unit result: score starts at 100 and loses the unit's
// per-error penalty for each error, floored at zero.
func finish(penalty float64, errs []Error, warns []Warning) Result {
	if penalty <= 0 {
		penalty = defaultPenalty
	}
	score := 100 - penalty*float64(len(errs))
	if score < 0 {
		score = 0
	}
	if errs == nil {
		errs = []Error{}
	}
	if warns == nil {
		warns = []Warning{}
	}
	return Result{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
		Score:    score,
		Metadata: ResultMetadata{Timestamp: time.Now().UTC()},
	}
}
