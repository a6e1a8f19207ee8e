// Package validation implements the rule-based checks that gate
// LLM-generated persona records: pure validator units grouped into versioned
// templates, run by an engine that scores format, content, cultural, and
// demographic quality independently.
package validation

// Kind is the closed error taxonomy shared by every validator.
type Kind string

const (
	KindRequiredFieldMissing  Kind = "required-field-missing"
	KindTypeMismatch          Kind = "type-mismatch"
	KindFormatInvalid         Kind = "format-invalid"
	KindValueOutOfRange       Kind = "value-out-of-range"
	KindBusinessRuleViolation Kind = "business-rule-violation"
	KindStructureInvalid      Kind = "structure-invalid"
	KindValidationTimeout     Kind = "validation-timeout"
)

type Severity string

const (
	// SeverityError marks a failed check on a recoverable field.
	SeverityError Severity = "error"
	// SeverityCritical is reserved for identity-class failures (missing or
	// unusable id/name) that make the record unusable.
	SeverityCritical Severity = "critical"
)

// Category buckets validator units for independent scoring.
type Category string

const (
	CategoryFormat      Category = "format"
	CategoryContent     Category = "content"
	CategoryCultural    Category = "cultural"
	CategoryDemographic Category = "demographic"
)

// Status is the overall verdict of a template run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)
