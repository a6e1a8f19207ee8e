package normalize

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/personaforge/personaforge-backend/internal/domain"
)

// IntegrityError reports every invariant a strict-mode normalization
// violated, not just the first.
type IntegrityError struct {
	PersonaID  uuid.UUID
	Violations []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("persona %s failed integrity check: %s", e.PersonaID, strings.Join(e.Violations, "; "))
}

// CheckIntegrity verifies the hard invariants of a canonical entity. It is
// the only failure path out of normalization, and runs only in strict mode.
func CheckIntegrity(p *domain.Persona) error {
	var violations []string
	if p.ID == uuid.Nil {
		violations = append(violations, "id is empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		violations = append(violations, "name is empty")
	}
	age := p.Demographics.Data().Age
	if age < 0 || age > 150 {
		violations = append(violations, fmt.Sprintf("age %d outside [0,150]", age))
	}
	if p.QualityScore < 0 || p.QualityScore > 100 {
		violations = append(violations, fmt.Sprintf("quality score %g outside [0,100]", p.QualityScore))
	}
	if v := p.Validation(); v != nil && (v.Score < 0 || v.Score > 100) {
		violations = append(violations, fmt.Sprintf("validation score %g outside [0,100]", v.Score))
	}
	if p.CreatedAt.IsZero() {
		violations = append(violations, "creation timestamp is zero")
	}
	if len(violations) > 0 {
		return &IntegrityError{PersonaID: p.ID, Violations: violations}
	}
	return nil
}
