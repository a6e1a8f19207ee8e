package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/personaforge/personaforge-backend/internal/platform/logger"
	"github.com/personaforge/personaforge-backend/internal/record"
)

func TestLoadDirRegistersOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := `
id: b2b-strict
version: "1"
categoryWeights:
  format: 0.4
disable:
  - phone-format
`
	if err := os.WriteFile(filepath.Join(dir, "b2b.yaml"), []byte(overlay), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	r := NewRegistry(logger.NewNop())
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("load dir: %v", err)
	}

	tmpl, err := r.Get("b2b-strict", "1")
	if err != nil {
		t.Fatalf("overlay not registered: %v", err)
	}
	if tmpl.CategoryWeights[CategoryFormat] != 0.4 {
		t.Fatalf("weight override lost: %g", tmpl.CategoryWeights[CategoryFormat])
	}
	var phoneDisabled bool
	for _, u := range tmpl.Units {
		if u.Name == "phone-format" {
			phoneDisabled = u.Disabled
		}
	}
	if !phoneDisabled {
		t.Fatalf("phone-format must be disabled in the overlay")
	}

	// The base is untouched.
	base := r.Default()
	for _, u := range base.Units {
		if u.Name == "phone-format" && u.Disabled {
			t.Fatalf("overlay must not mutate the base template")
		}
	}
	if base.CategoryWeights[CategoryFormat] == 0.4 {
		t.Fatalf("overlay weights leaked into the base")
	}
}

func TestLoadDirMissingDirIsFine(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	if err := r.LoadDir(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("missing dir must be a no-op: %v", err)
	}
}

func TestOverlaySkipsDisabledUnit(t *testing.T) {
	dir := t.TempDir()
	overlay := `
id: no-email
version: "1"
disable:
  - email-format
`
	if err := os.WriteFile(filepath.Join(dir, "t.yml"), []byte(overlay), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	r := NewRegistry(logger.NewNop())
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("load dir: %v", err)
	}
	e := NewEngine(r, logger.NewNop())
	run, err := e.Run("no-email", "1", record.Single(record.Bag{"email": "totally-broken"}), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, err := range run.Errors {
		if err.Kind == KindFormatInvalid && err.Field == "email" {
			t.Fatalf("disabled email unit still ran: %+v", run.Errors)
		}
	}
	if run.Metadata.RulesSkipped != 1 {
		t.Fatalf("expected 1 skipped rule, got %d", run.Metadata.RulesSkipped)
	}
}
