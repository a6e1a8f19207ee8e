package validation

import (
	"fmt"

	"github.com/personaforge/personaforge-backend/internal/domain"
)

// Template is an ordered, versioned bundle of validator units. Templates are
// immutable once registered so a validation run can always be reproduced.
type Template struct {
	ID              string
	Version         string
	Units           []Unit
	CategoryWeights map[Category]float64
}

func (t *Template) Key() string {
	return t.ID + "@" + t.Version
}

// unitNames returns the names of enabled units, for rule bookkeeping.
func (t *Template) unitNames() []string {
	out := make([]string, 0, len(t.Units))
	for _, u := range t.Units {
		out = append(out, u.Name)
	}
	return out
}

// DefaultCategoryWeights blends the per-category scores into the overall
// one. Content and demographic completeness dominate: a persona with clean
// formatting but implausible content is the worse record.
func DefaultCategoryWeights() map[Category]float64 {
	return map[Category]float64{
		CategoryFormat:      0.20,
		CategoryContent:     0.35,
		CategoryCultural:    0.20,
		CategoryDemographic: 0.25,
	}
}

// DefaultTemplate is the built-in persona template, version 1.
func DefaultTemplate() *Template {
	return &Template{
		ID:      "persona-standard",
		Version: "1",
		Units: []Unit{
			EmailUnit(EmailOptions{}),
			PhoneUnit(PhoneOptions{}),
			DateUnit(DateOptions{
				Field:    "createdAt",
				Paths:    []string{"createdAt", "created_at"},
				NoFuture: true,
			}),
			ArrayUnit(ArrayOptions{
				Field:    "interests",
				Paths:    []string{"interests", "psychographics.interests"},
				MinLength: 1,
				ItemType: "string",
				Unique:   true,
			}),
			RequiredFieldsUnit([]RequiredField{
				{Name: "name", Paths: []string{"name", "demographics.name"}, Critical: true},
				{Name: "age", Paths: []string{"age", "demographics.age"}},
				{Name: "occupation", Paths: []string{"occupation", "demographics.occupation"}},
			}),
			NestedShapeUnit(NestedShapeOptions{
				Field:        "psychographics",
				RequiredKeys: []string{"interests"},
				Optional:     true,
			}),
			CulturalShapeUnit(CulturalShapeOptions{
				Categories: domain.CulturalCategories(),
			}),
			AgeRangeUnit(18, 80),
			NumericRangeUnit(NumericRangeOptions{
				Name:     "income-range",
				Field:    "income",
				Paths:    []string{"income", "demographics.income"},
				Min:      1000,
				Max:      2000000,
				WarnBand: 9000,
			}),
			LocationUnit(LocationOptions{}),
			ConsistencyUnit(DefaultConsistencyRules()),
		},
		CategoryWeights: DefaultCategoryWeights(),
	}
}

// withOverrides derives a new template from a base, used by the yaml overlay
// loader. The base is never mutated.
func (t *Template) withOverrides(id, version string, weights map[Category]float64, disabled []string) (*Template, error) {
	if id == "" || version == "" {
		return nil, fmt.Errorf("template id and version are required")
	}
	out := &Template{
		ID:              id,
		Version:         version,
		Units:           make([]Unit, len(t.Units)),
		CategoryWeights: map[Category]float64{},
	}
	copy(out.Units, t.Units)
	for k, v := range t.CategoryWeights {
		out.CategoryWeights[k] = v
	}
	for k, v := range weights {
		out.CategoryWeights[k] = v
	}
	off := map[string]bool{}
	for _, name := range disabled {
		off[name] = true
	}
	for i := range out.Units {
		if off[out.Units[i].Name] {
			out.Units[i].Disabled = true
		}
	}
	return out, nil
}
