package validation

import (
	"strings"
	"testing"

	"github.com/personaforge/personaforge-backend/internal/record"
)

func TestAgeRangeAccepts(t *testing.T) {
	u := AgeRangeUnit(18, 80)
	res := runUnit(t, u, record.Bag{"age": float64(35)})
	if !res.IsValid {
		t.Fatalf("age 35 must pass, got %+v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("age 35 is nowhere near a bound, got warnings %+v", res.Warnings)
	}
}

func TestAgeRangeBelowMinimum(t *testing.T) {
	u := AgeRangeUnit(18, 80)
	res := runUnit(t, u, record.Bag{"age": float64(12)})
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %d", len(res.Errors))
	}
	e := res.Errors[0]
	if e.Kind != KindValueOutOfRange {
		t.Fatalf("expected %s, got %s", KindValueOutOfRange, e.Kind)
	}
	if !strings.Contains(e.Message, "below minimum") {
		t.Fatalf("message must say below minimum, got %q", e.Message)
	}
}

func TestAgeRangeAboveMaximum(t *testing.T) {
	u := AgeRangeUnit(18, 80)
	res := runUnit(t, u, record.Bag{"age": float64(85)})
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %d", len(res.Errors))
	}
	if !strings.Contains(res.Errors[0].Message, "above maximum") {
		t.Fatalf("message must say above maximum, got %q", res.Errors[0].Message)
	}
}

func TestAgeRangeNearBoundWarns(t *testing.T) {
	u := AgeRangeUnit(18, 80)
	res := runUnit(t, u, record.Bag{"age": float64(19)})
	if !res.IsValid {
		t.Fatalf("age 19 is in range, got %+v", res.Errors)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "quite young") {
		t.Fatalf("expected a quite-young warning, got %+v", res.Warnings)
	}

	res = runUnit(t, u, record.Bag{"age": float64(78)})
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "quite old") {
		t.Fatalf("expected a quite-old warning, got %+v", res.Warnings)
	}
}

func TestAgeRangeTypeMismatch(t *testing.T) {
	u := AgeRangeUnit(18, 80)
	res := runUnit(t, u, record.Bag{"age": "thirty"})
	if len(res.Errors) != 1 || res.Errors[0].Kind != KindTypeMismatch {
		t.Fatalf("string age must be a type mismatch, got %+v", res.Errors)
	}
}

func TestAgeRangeBatchPathPrefix(t *testing.T) {
	u := AgeRangeUnit(18, 80)
	c := record.Batch([]record.Bag{
		{"age": float64(30)},
		{"age": float64(200)},
	})
	res := u.Check(c, &Context{})
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error for the second record, got %+v", res.Errors)
	}
	if res.Errors[0].Field != "[1].age" {
		t.Fatalf("batch errors must carry the record index, got field %q", res.Errors[0].Field)
	}
}

func TestNumericRangeUsesAlternatePaths(t *testing.T) {
	u := NumericRangeUnit(NumericRangeOptions{
		Field: "income",
		Paths: []string{"income", "demographics.income"},
		Min:   1000,
		Max:   2000000,
	})
	res := runUnit(t, u, record.Bag{
		"demographics": map[string]any{"income": float64(85000)},
	})
	if !res.IsValid {
		t.Fatalf("nested income must resolve, got %+v", res.Errors)
	}
}

func TestLocationWarnsWithoutSeparator(t *testing.T) {
	u := LocationUnit(LocationOptions{})
	res := runUnit(t, u, record.Bag{"location": "Austin"})
	if !res.IsValid {
		t.Fatalf("bare city is valid, got %+v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected a separator warning, got %+v", res.Warnings)
	}

	res = runUnit(t, u, record.Bag{"location": "Austin, Texas"})
	if len(res.Warnings) != 0 {
		t.Fatalf("City, Region must not warn, got %+v", res.Warnings)
	}
}

func TestGenerationAgeRuleWarnsOnMismatch(t *testing.T) {
	u := ConsistencyUnit([]ConsistencyRule{GenerationAgeRule()})
	res := runUnit(t, u, record.Bag{"generation": "Gen Z", "age": float64(55)})
	if !res.IsValid {
		t.Fatalf("consistency rules never error, got %+v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected a generation/age warning, got %+v", res.Warnings)
	}

	res = runUnit(t, u, record.Bag{"generation": "Gen Z", "age": float64(22)})
	if len(res.Warnings) != 0 {
		t.Fatalf("consistent label must not warn, got %+v", res.Warnings)
	}
}

func TestOccupationIncomeRule(t *testing.T) {
	u := ConsistencyUnit([]ConsistencyRule{OccupationIncomeRule()})
	res := runUnit(t, u, record.Bag{
		"occupation": "Software Engineer",
		"income":     float64(15000),
	})
	if len(res.Warnings) != 1 {
		t.Fatalf("implausibly low income must warn, got %+v", res.Warnings)
	}

	res = runUnit(t, u, record.Bag{
		"occupation": "Software Engineer",
		"income":     "$120,000 - $150,000",
	})
	if len(res.Warnings) != 0 {
		t.Fatalf("plausible range string must not warn, got %+v", res.Warnings)
	}
}

func TestParseIncomeShapes(t *testing.T) {
	cases := []struct {
		raw  any
		want float64
		ok   bool
	}{
		{float64(85000), 85000, true},
		{"$50,000 - $75,000", 62500, true},
		{"60k", 60000, true},
		{"unknown", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseIncome(tc.raw)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("parseIncome(%v) = %g,%v; want %g,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRequiredFieldsCriticalSeverity(t *testing.T) {
	u := RequiredFieldsUnit([]RequiredField{
		{Name: "name", Paths: []string{"name"}, Critical: true},
		{Name: "age", Paths: []string{"age", "demographics.age"}},
	})
	res := runUnit(t, u, record.Bag{"occupation": "barista"})
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 missing-field errors, got %+v", res.Errors)
	}
	var critical int
	for _, e := range res.Errors {
		if e.Kind != KindRequiredFieldMissing {
			t.Fatalf("expected %s, got %s", KindRequiredFieldMissing, e.Kind)
		}
		if e.Severity == SeverityCritical {
			critical++
		}
	}
	if critical != 1 {
		t.Fatalf("only the name field is critical, got %d critical errors", critical)
	}
}
