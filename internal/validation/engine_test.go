package validation

import (
	"testing"

	"github.com/personaforge/personaforge-backend/internal/platform/logger"
	"github.com/personaforge/personaforge-backend/internal/record"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(NewRegistry(logger.NewNop()), logger.NewNop())
}

func goodPersonaBag() record.Bag {
	cultural := map[string]any{}
	for _, cat := range []string{
		"music", "brands", "movies", "tvShows", "books", "fashion",
		"food", "travel", "socialMedia", "podcasts", "videoGames",
	} {
		cultural[cat] = []any{cat + "-item"}
	}
	return record.Bag{
		"name":       "Ava Chen",
		"age":        float64(32),
		"occupation": "Marketing Manager",
		"email":      "ava.chen@example.com",
		"phone":      "+1 (555) 010-2030",
		"location":   "Seattle, Washington",
		"income":     float64(95000),
		"interests":  []any{"music", "travel", "food"},
		"createdAt":  "2024-03-01T12:00:00Z",
		"psychographics": map[string]any{
			"interests":   []any{"music", "travel", "food"},
			"values":      []any{"sustainability"},
			"lifestyle":   "urban professional",
			"personality": []any{"curious"},
		},
		"culturalData": cultural,
	}
}

func TestEngineDefaultTemplatePasses(t *testing.T) {
	e := testEngine(t)
	run, err := e.Run("persona-standard", "", record.Single(goodPersonaBag()), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !run.IsValid {
		t.Fatalf("well-formed persona must validate, got errors: %+v", run.Errors)
	}
	if run.Status != StatusPassed {
		t.Fatalf("expected status %s, got %s (score %g)", StatusPassed, run.Status, run.Score)
	}
	if run.Score < 0 || run.Score > 100 {
		t.Fatalf("score out of bounds: %g", run.Score)
	}
	if len(run.FailedRules) != 0 {
		t.Fatalf("no rules should fail, got %v", run.FailedRules)
	}
}

func TestEngineUnknownTemplate(t *testing.T) {
	e := testEngine(t)
	if _, err := e.Run("no-such-template", "1", record.Single(record.Bag{}), nil); err == nil {
		t.Fatalf("expected an error for an unknown template")
	}
}

func TestEnginePanicIsolation(t *testing.T) {
	e := testEngine(t)
	tmpl := &Template{
		ID:      "panic-test",
		Version: "1",
		Units: []Unit{
			{
				Name:     "boom",
				Category: CategoryFormat,
				Field:    "boomField",
				Penalty:  formatPenalty,
				Check: func(record.Candidate, *Context) Result {
					panic("validator bug")
				},
			},
			EmailUnit(EmailOptions{}),
		},
		CategoryWeights: DefaultCategoryWeights(),
	}
	run := e.RunTemplate(tmpl, record.Single(record.Bag{"email": "ok@example.com"}), nil)
	if len(run.Errors) != 1 {
		t.Fatalf("panic must become exactly one error, got %+v", run.Errors)
	}
	if run.Errors[0].Kind != KindValidationTimeout {
		t.Fatalf("panic error kind must be %s, got %s", KindValidationTimeout, run.Errors[0].Kind)
	}
	if run.Errors[0].Field != "boomField" {
		t.Fatalf("panic error must be scoped to the unit field, got %q", run.Errors[0].Field)
	}
	// The healthy unit still ran.
	found := false
	for _, name := range run.PassedRules {
		if name == "email-format" {
			found = true
		}
	}
	if !found {
		t.Fatalf("units after a panicking one must still execute, passed=%v", run.PassedRules)
	}
}

func TestEngineDisabledUnitsSkipped(t *testing.T) {
	e := testEngine(t)
	u := EmailUnit(EmailOptions{})
	u.Disabled = true
	tmpl := &Template{
		ID:              "skip-test",
		Version:         "1",
		Units:           []Unit{u},
		CategoryWeights: DefaultCategoryWeights(),
	}
	run := e.RunTemplate(tmpl, record.Single(record.Bag{"email": "broken"}), nil)
	if run.Metadata.RulesSkipped != 1 || run.Metadata.RulesExecuted != 0 {
		t.Fatalf("expected 1 skipped / 0 executed, got %d / %d",
			run.Metadata.RulesSkipped, run.Metadata.RulesExecuted)
	}
	if !run.IsValid {
		t.Fatalf("a disabled unit must not contribute errors: %+v", run.Errors)
	}
}

func TestStatusForCriticalAlwaysFails(t *testing.T) {
	critical := []Error{{Kind: KindRequiredFieldMissing, Severity: SeverityCritical}}
	if got := statusFor(95, critical); got != StatusFailed {
		t.Fatalf("critical error must fail regardless of score, got %s", got)
	}
	if got := statusFor(85, nil); got != StatusPassed {
		t.Fatalf("score 85 must pass, got %s", got)
	}
	if got := statusFor(60, nil); got != StatusWarning {
		t.Fatalf("score 60 must warn, got %s", got)
	}
	if got := statusFor(40, nil); got != StatusFailed {
		t.Fatalf("score 40 must fail, got %s", got)
	}
}

func TestEngineBatchCandidate(t *testing.T) {
	e := testEngine(t)
	good := goodPersonaBag()
	bad := goodPersonaBag()
	bad["email"] = "nope"
	run, err := e.Run("persona-standard", "1", record.Batch([]record.Bag{good, bad}), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(run.Errors) != 1 {
		t.Fatalf("expected one error from the bad record, got %+v", run.Errors)
	}
	if run.Errors[0].Field != "[1].email" {
		t.Fatalf("batch error must point at record 1, got %q", run.Errors[0].Field)
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	tmpl := &Template{ID: "custom", Version: "2", CategoryWeights: DefaultCategoryWeights()}
	if err := r.Register(tmpl); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := r.Register(tmpl); err == nil {
		t.Fatalf("second registration of the same key must fail")
	}
}

func TestRegistryVersionDefaults(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	got, err := r.Get("persona-standard", "")
	if err != nil {
		t.Fatalf("get with empty version: %v", err)
	}
	if got.Version != "1" {
		t.Fatalf("empty version must resolve to 1, got %q", got.Version)
	}
	if r.Default() == nil {
		t.Fatalf("built-in template must always be available")
	}
}
