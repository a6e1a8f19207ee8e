package validation

import (
	"encoding/json"
	"fmt"

	"github.com/personaforge/personaforge-backend/internal/record"
)

type ArrayOptions struct {
	Field string
	Paths []string
	// MinLength/MaxLength bound the array size; a non-positive bound is
	// unset.
	MinLength int
	MaxLength int
	// ItemType, when set, requires every element to be of that JSON type:
	// "string", "number", "bool", or "object".
	ItemType string
	// Unique rejects duplicate elements, compared on a stable JSON
	// serialization so equal objects count as duplicates.
	Unique bool
	// ItemCheck, when set, runs per element and returns a problem
	// description, or "" when the element is fine.
	ItemCheck func(v any) string
	Required  bool
}

// ArrayUnit enforces the shape of a named array field. Every violating index
// gets its own error; the first bad element never masks the rest.
func ArrayUnit(opts ArrayOptions) Unit {
	if len(opts.Paths) == 0 {
		opts.Paths = []string{opts.Field}
	}
	return Unit{
		Name:     opts.Field + "-array",
		Category: CategoryFormat,
		Field:    opts.Field,
		Penalty:  formatPenalty,
		Check: func(c record.Candidate, _ *Context) Result {
			var errs []Error
			var warns []Warning
			c.ForEach(func(prefix string, bag record.Bag) {
				field := prefix + opts.Field
				raw, _, found := record.ResolveFirst(bag, opts.Paths...)
				if !found {
					if opts.Required {
						errs = append(errs, newError(KindRequiredFieldMissing, field, opts.Field+" is required", SeverityError))
					}
					return
				}
				items, ok := asSlice(raw)
				if !ok {
					e := newError(KindTypeMismatch, field, fmt.Sprintf("expected an array, got %T", raw), SeverityError)
					e.Observed = raw
					e.Expected = "array"
					errs = append(errs, e)
					return
				}

				if opts.MinLength > 0 && len(items) < opts.MinLength {
					e := newError(KindValueOutOfRange, field, fmt.Sprintf("length %d is below minimum %d", len(items), opts.MinLength), SeverityError)
					e.Observed = len(items)
					errs = append(errs, e)
				}
				if opts.MaxLength > 0 && len(items) > opts.MaxLength {
					e := newError(KindValueOutOfRange, field, fmt.Sprintf("length %d is above maximum %d", len(items), opts.MaxLength), SeverityError)
					e.Observed = len(items)
					errs = append(errs, e)
				}

				seen := map[string]int{}
				for i, item := range items {
					idxField := fmt.Sprintf("%s[%d]", field, i)
					if opts.ItemType != "" && !isItemType(item, opts.ItemType) {
						e := newError(KindTypeMismatch, idxField, fmt.Sprintf("expected %s, got %T", opts.ItemType, item), SeverityError)
						e.Observed = item
						e.Expected = opts.ItemType
						errs = append(errs, e)
						continue
					}
					if opts.Unique {
						key := stableKey(item)
						if first, dup := seen[key]; dup {
							e := newError(KindFormatInvalid, idxField, fmt.Sprintf("duplicate of element [%d]", first), SeverityError)
							e.Observed = item
							errs = append(errs, e)
						} else {
							seen[key] = i
						}
					}
					if opts.ItemCheck != nil {
						if problem := opts.ItemCheck(item); problem != "" {
							e := newError(KindBusinessRuleViolation, idxField, problem, SeverityError)
							e.Observed = item
							errs = append(errs, e)
						}
					}
				}
			})
			return finish(formatPenalty, errs, warns)
		},
	}
}

func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func isItemType(v any, want string) bool {
	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		_, ok := record.AsFloat(v)
		return ok
	case "bool":
		_, ok := v.(bool)
		return ok
	case "object":
		_, ok := v.(record.Bag)
		return ok
	default:
		return true
	}
}

func stableKey(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}
