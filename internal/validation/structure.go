package validation

import (
	"fmt"
	"strings"

	"github.com/personaforge/personaforge-backend/internal/record"
)

// RequiredField names one logical field with its alternate locations.
// Critical fields are the identity class: a persona without them is unusable.
type RequiredField struct {
	Name     string
	Paths    []string
	Critical bool
}

// RequiredFieldsUnit checks presence (and non-blankness for strings) of the
// given fields.
func RequiredFieldsUnit(fields []RequiredField) Unit {
	return Unit{
		Name:     "required-fields",
		Category: CategoryDemographic,
		Field:    "record",
		Penalty:  structurePenalty,
		Check: func(c record.Candidate, _ *Context) Result {
			var errs []Error
			c.ForEach(func(prefix string, bag record.Bag) {
				for _, f := range fields {
					paths := f.Paths
					if len(paths) == 0 {
						paths = []string{f.Name}
					}
					v, _, found := record.ResolveFirst(bag, paths...)
					missing := !found || v == nil
					if !missing {
						if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
							missing = true
						}
					}
					if missing {
						sev := SeverityError
						if f.Critical {
							sev = SeverityCritical
						}
						errs = append(errs, newError(KindRequiredFieldMissing, prefix+f.Name, f.Name+" is required", sev))
					}
				}
			})
			return finish(structurePenalty, errs, nil)
		},
	}
}

type NestedShapeOptions struct {
	Field        string
	Paths        []string
	RequiredKeys []string
	// Optional lets the whole container be absent; when present it still
	// must be an object with the required keys.
	Optional bool
}

// NestedShapeUnit verifies that a nested sub-object (demographics,
// psychographics) is an object carrying its required keys.
func NestedShapeUnit(opts NestedShapeOptions) Unit {
	if len(opts.Paths) == 0 {
		opts.Paths = []string{opts.Field}
	}
	return Unit{
		Name:     opts.Field + "-shape",
		Category: CategoryDemographic,
		Field:    opts.Field,
		Penalty:  structurePenalty,
		Check: func(c record.Candidate, _ *Context) Result {
			var errs []Error
			c.ForEach(func(prefix string, bag record.Bag) {
				field := prefix + opts.Field
				raw, _, found := record.ResolveFirst(bag, opts.Paths...)
				if !found || raw == nil {
					if !opts.Optional {
						errs = append(errs, newError(KindRequiredFieldMissing, field, opts.Field+" container is missing", SeverityError))
					}
					return
				}
				nested, ok := record.AsBag(raw)
				if !ok {
					e := newError(KindStructureInvalid, field, fmt.Sprintf("expected an object, got %T", raw), SeverityError)
					e.Observed = raw
					e.Expected = "object"
					errs = append(errs, e)
					return
				}
				for _, key := range opts.RequiredKeys {
					if _, present := nested[key]; !present {
						errs = append(errs, newError(KindRequiredFieldMissing, field+"."+key, key+" is required inside "+opts.Field, SeverityError))
					}
				}
			})
			return finish(structurePenalty, errs, nil)
		},
	}
}

type CulturalShapeOptions struct {
	Paths      []string
	Categories []string
}

// CulturalShapeUnit checks that every cultural-data category exists as a
// container. Absence is a structural error; an empty container is fine, since
// the enrichment provider legitimately returns nothing for some categories.
func CulturalShapeUnit(opts CulturalShapeOptions) Unit {
	if len(opts.Paths) == 0 {
		opts.Paths = []string{"culturalData", "cultural_data"}
	}
	return Unit{
		Name:     "cultural-data-shape",
		Category: CategoryCultural,
		Field:    "culturalData",
		Penalty:  structurePenalty,
		Check: func(c record.Candidate, _ *Context) Result {
			var errs []Error
			var warns []Warning
			c.ForEach(func(prefix string, bag record.Bag) {
				field := prefix + "culturalData"
				raw, _, found := record.ResolveFirst(bag, opts.Paths...)
				if !found || raw == nil {
					errs = append(errs, newError(KindRequiredFieldMissing, field, "cultural data container is missing", SeverityError))
					return
				}
				cultural, ok := record.AsBag(raw)
				if !ok {
					e := newError(KindStructureInvalid, field, fmt.Sprintf("expected an object of categories, got %T", raw), SeverityError)
					e.Observed = raw
					errs = append(errs, e)
					return
				}
				empty := 0
				for _, cat := range opts.Categories {
					v, present := cultural[cat]
					if !present {
						errs = append(errs, newError(KindStructureInvalid, field+"."+cat, "category "+cat+" is absent", SeverityError))
						continue
					}
					items, ok := asSlice(v)
					if !ok {
						e := newError(KindStructureInvalid, field+"."+cat, fmt.Sprintf("category %s must be an array, got %T", cat, v), SeverityError)
						e.Observed = v
						errs = append(errs, e)
						continue
					}
					if len(items) == 0 {
						empty++
					}
				}
				if len(opts.Categories) > 0 && empty == len(opts.Categories) {
					warns = append(warns, newWarning(field, "every cultural category is empty", "run cultural enrichment to populate persona interests"))
				}
			})
			return finish(structurePenalty, errs, warns)
		},
	}
}
