package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/personaforge/personaforge-backend/internal/platform/logger"
)

// Registry holds published templates keyed by id+version. Registration is
// write-once: re-registering a key is an error, which is what makes template
// references reproducible.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*Template
	log  *logger.Logger
}

func NewRegistry(baseLog *logger.Logger) *Registry {
	r := &Registry{
		byID: map[string]*Template{},
		log:  baseLog.With("component", "TemplateRegistry"),
	}
	// The built-in template is always available.
	def := DefaultTemplate()
	r.byID[def.Key()] = def
	return r
}

func (r *Registry) Register(t *Template) error {
	if t == nil || t.ID == "" || t.Version == "" {
		return fmt.Errorf("template id and version are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[t.Key()]; exists {
		return fmt.Errorf("template %s already registered; publish a new version instead", t.Key())
	}
	r.byID[t.Key()] = t
	return nil
}

// Get resolves id+version; an empty version resolves "1".
func (r *Registry) Get(id, version string) (*Template, error) {
	if version == "" {
		version = "1"
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id+"@"+version]
	if !ok {
		return nil, fmt.Errorf("template %s@%s not found", id, version)
	}
	return t, nil
}

// Default returns the built-in template.
func (r *Registry) Default() *Template {
	t, _ := r.Get("persona-standard", "1")
	return t
}

// templateFile is the yaml overlay format: a named derivation of a base
// template with weight overrides and disabled units. Units themselves are
// code, not config.
type templateFile struct {
	ID              string             `yaml:"id"`
	Version         string             `yaml:"version"`
	Base            string             `yaml:"base"`
	BaseVersion     string             `yaml:"baseVersion"`
	CategoryWeights map[string]float64 `yaml:"categoryWeights"`
	Disable         []string           `yaml:"disable"`
}

// LoadDir registers every *.yaml template overlay found in dir. A missing
// dir is fine; a malformed file is not.
func (r *Registry) LoadDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read template dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}
		var tf templateFile
		if err := yaml.Unmarshal(raw, &tf); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}
		if tf.Base == "" {
			tf.Base = "persona-standard"
		}
		base, err := r.Get(tf.Base, tf.BaseVersion)
		if err != nil {
			return fmt.Errorf("template %s: %w", path, err)
		}
		weights := map[Category]float64{}
		for k, v := range tf.CategoryWeights {
			weights[Category(k)] = v
		}
		derived, err := base.withOverrides(tf.ID, tf.Version, weights, tf.Disable)
		if err != nil {
			return fmt.Errorf("template %s: %w", path, err)
		}
		if err := r.Register(derived); err != nil {
			return fmt.Errorf("template %s: %w", path, err)
		}
		r.log.Info("registered template overlay", "template", derived.Key(), "file", name)
	}
	return nil
}
