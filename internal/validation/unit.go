package validation

import "github.com/personaforge/personaforge-backend/internal/record"

// Per-error score deductions by validator family. Format failures are cheap
// to fix, structural ones are not.
const (
	defaultPenalty   = 10.0
	formatPenalty    = 10.0
	contentPenalty   = 15.0
	structurePenalty = 20.0
)

// CheckFunc is a pure validator: candidate (single record or homogeneous
// array) plus context in, result out. Expected-bad input is encoded as
// errors in the result, never as a panic or Go error.
type CheckFunc func(c record.Candidate, vctx *Context) Result

// Unit is one named check inside a template.
type Unit struct {
	Name     string
	Category Category
	// Field scopes engine-side failure isolation: if Check panics, the
	// resulting validation-timeout error is attributed here.
	Field    string
	Penalty  float64
	Disabled bool
	Check    CheckFunc
}
