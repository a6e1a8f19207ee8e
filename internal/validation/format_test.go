package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/personaforge/personaforge-backend/internal/record"
)

func runUnit(t *testing.T, u Unit, bag record.Bag) Result {
	t.Helper()
	return u.Check(record.Single(bag), &Context{})
}

func TestEmailUnitValidAddress(t *testing.T) {
	u := EmailUnit(EmailOptions{})
	res := runUnit(t, u, record.Bag{"email": "user@example.com"})
	if !res.IsValid {
		t.Fatalf("expected valid result, got errors: %+v", res.Errors)
	}
	if res.Score != 100 {
		t.Fatalf("expected score 100, got %g", res.Score)
	}
}

func TestEmailUnitInvalidFormat(t *testing.T) {
	u := EmailUnit(EmailOptions{})
	res := runUnit(t, u, record.Bag{"email": "not-an-email"})
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %d", len(res.Errors))
	}
	if res.Errors[0].Kind != KindFormatInvalid {
		t.Fatalf("expected %s, got %s", KindFormatInvalid, res.Errors[0].Kind)
	}
	if res.Score != 90 {
		t.Fatalf("expected score 90 after one format deduction, got %g", res.Score)
	}
}

func TestEmailUnitTypeMismatch(t *testing.T) {
	u := EmailUnit(EmailOptions{})
	res := runUnit(t, u, record.Bag{"email": 12345})
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %d", len(res.Errors))
	}
	if res.Errors[0].Kind != KindTypeMismatch {
		t.Fatalf("expected %s, got %s", KindTypeMismatch, res.Errors[0].Kind)
	}
}

func TestEmailUnitAlternatePaths(t *testing.T) {
	u := EmailUnit(EmailOptions{})
	res := runUnit(t, u, record.Bag{
		"contact": map[string]any{"email": "nested@example.com"},
	})
	if !res.IsValid {
		t.Fatalf("expected contact.email to be resolved, got errors: %+v", res.Errors)
	}
}

func TestEmailUnitMultiMode(t *testing.T) {
	u := EmailUnit(EmailOptions{AllowMultiple: true})
	res := runUnit(t, u, record.Bag{"email": "a@example.com, bogus, b@example.com"})
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error for the invalid segment, got %d: %+v", len(res.Errors), res.Errors)
	}
	if res.Errors[0].Kind != KindFormatInvalid {
		t.Fatalf("expected %s, got %s", KindFormatInvalid, res.Errors[0].Kind)
	}
}

func TestEmailUnitAbsentNotRequired(t *testing.T) {
	u := EmailUnit(EmailOptions{})
	res := runUnit(t, u, record.Bag{"name": "no email here"})
	if !res.IsValid {
		t.Fatalf("absent optional email must not error, got: %+v", res.Errors)
	}
}

func TestEmailUnitConsecutiveDotsWarn(t *testing.T) {
	u := EmailUnit(EmailOptions{})
	res := runUnit(t, u, record.Bag{"email": "a..b@example.com"})
	if !res.IsValid {
		t.Fatalf("consecutive dots should warn, not error: %+v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a warning for consecutive dots")
	}
}

func TestPhoneUnitFormats(t *testing.T) {
	u := PhoneUnit(PhoneOptions{})
	cases := []struct {
		phone string
		valid bool
	}{
		{"+1 (555) 123-4567", true},
		{"(555) 123-4567", true},
		{"555-123-4567", true},
		{"+15551234567", true},
		{"12", false},
		{"hello", false},
	}
	for _, tc := range cases {
		res := runUnit(t, u, record.Bag{"phone": tc.phone})
		if res.IsValid != tc.valid {
			t.Fatalf("phone %q: expected valid=%v, got errors=%+v", tc.phone, tc.valid, res.Errors)
		}
	}
}

func TestPhoneUnitDigitCountWarning(t *testing.T) {
	u := PhoneUnit(PhoneOptions{Formats: []PhoneFormat{PhoneInternational}})
	res := runUnit(t, u, record.Bag{"phone": "+12 34 56"})
	if !res.IsValid {
		t.Fatalf("short but well-formed number should pass with a warning: %+v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a digit-count warning for 6 digits")
	}
}

func TestDateUnitParsesAcceptedShapes(t *testing.T) {
	u := DateUnit(DateOptions{Field: "createdAt"})
	for _, v := range []any{
		"2023-06-15T10:30:00Z",
		"2023-06-15",
		"06/15/2023",
		float64(1686823800),    // epoch seconds
		float64(1686823800000), // epoch millis
		time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
	} {
		res := runUnit(t, u, record.Bag{"createdAt": v})
		if !res.IsValid {
			t.Fatalf("value %v: expected valid, got %+v", v, res.Errors)
		}
	}
}

func TestDateUnitNoFuture(t *testing.T) {
	u := DateUnit(DateOptions{Field: "createdAt", NoFuture: true})
	future := time.Now().Add(48 * time.Hour).Format(time.RFC3339)
	res := runUnit(t, u, record.Bag{"createdAt": future})
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %d", len(res.Errors))
	}
	if res.Errors[0].Kind != KindValueOutOfRange {
		t.Fatalf("future date must be %s, got %s", KindValueOutOfRange, res.Errors[0].Kind)
	}
}

func TestDateUnitGarbageString(t *testing.T) {
	u := DateUnit(DateOptions{Field: "createdAt"})
	res := runUnit(t, u, record.Bag{"createdAt": "yesterday-ish"})
	if len(res.Errors) != 1 || res.Errors[0].Kind != KindFormatInvalid {
		t.Fatalf("expected one format-invalid error, got %+v", res.Errors)
	}
}

func TestArrayUnitPerIndexErrors(t *testing.T) {
	u := ArrayUnit(ArrayOptions{Field: "interests", ItemType: "string", Unique: true})
	res := runUnit(t, u, record.Bag{
		"interests": []any{"music", 42, "music", "travel"},
	})
	// index 1 is the wrong type, index 2 duplicates index 0
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d: %+v", len(res.Errors), res.Errors)
	}
	kinds := map[Kind]bool{}
	for _, e := range res.Errors {
		kinds[e.Kind] = true
	}
	if !kinds[KindTypeMismatch] || !kinds[KindFormatInvalid] {
		t.Fatalf("expected type-mismatch and format-invalid, got %+v", res.Errors)
	}
}

func TestArrayUnitEmptyBelowMinimum(t *testing.T) {
	u := ArrayUnit(ArrayOptions{Field: "interests", MinLength: 1, ItemType: "string"})
	res := runUnit(t, u, record.Bag{"interests": []any{}})
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %+v", res.Errors)
	}
	e := res.Errors[0]
	if e.Kind != KindValueOutOfRange || !strings.Contains(e.Message, "below minimum") {
		t.Fatalf("empty array must be value-out-of-range below minimum, got %+v", e)
	}

	res = runUnit(t, u, record.Bag{"interests": []any{"a", 123}})
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %+v", res.Errors)
	}
	if res.Errors[0].Kind != KindTypeMismatch || !strings.Contains(res.Errors[0].Field, "[1]") {
		t.Fatalf("wrong-typed element must be type-mismatch at [1], got %+v", res.Errors[0])
	}
}

func TestArrayUnitBounds(t *testing.T) {
	u := ArrayUnit(ArrayOptions{Field: "interests", MinLength: 2, MaxLength: 3})
	res := runUnit(t, u, record.Bag{"interests": []any{"one"}})
	if len(res.Errors) != 1 || res.Errors[0].Kind != KindValueOutOfRange {
		t.Fatalf("below-minimum array must yield one value-out-of-range, got %+v", res.Errors)
	}

	res = runUnit(t, u, record.Bag{"interests": []any{"a", "b", "c", "d"}})
	if len(res.Errors) != 1 || res.Errors[0].Kind != KindValueOutOfRange {
		t.Fatalf("above-maximum array must yield one value-out-of-range, got %+v", res.Errors)
	}
}

func TestArrayUnitNotAnArray(t *testing.T) {
	u := ArrayUnit(ArrayOptions{Field: "interests"})
	res := runUnit(t, u, record.Bag{"interests": "music"})
	if len(res.Errors) != 1 || res.Errors[0].Kind != KindTypeMismatch {
		t.Fatalf("expected one type-mismatch, got %+v", res.Errors)
	}
}

func TestArrayUnitItemCheck(t *testing.T) {
	u := ArrayUnit(ArrayOptions{
		Field: "interests",
		ItemCheck: func(v any) string {
			if s, ok := v.(string); ok && s == "" {
				return "empty interest"
			}
			return ""
		},
	})
	res := runUnit(t, u, record.Bag{"interests": []any{"music", ""}})
	if len(res.Errors) != 1 || res.Errors[0].Kind != KindBusinessRuleViolation {
		t.Fatalf("expected one business-rule-violation, got %+v", res.Errors)
	}
}
