package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/personaforge/personaforge-backend/internal/record"
)

type NumericRangeOptions struct {
	Name  string
	Field string
	Paths []string
	Min   float64
	Max   float64
	// WarnBand flags values within this distance of a bound with a soft
	// warning while still accepting them.
	WarnBand        float64
	WarnLowMessage  string
	WarnHighMessage string
	Suggestion      string
	Required        bool
}

// NumericRangeUnit enforces a hard [Min,Max] window on a numeric field, with
// soft warnings near the bounds.
func NumericRangeUnit(opts NumericRangeOptions) Unit {
	if opts.Name == "" {
		opts.Name = opts.Field + "-range"
	}
	if len(opts.Paths) == 0 {
		opts.Paths = []string{opts.Field}
	}
	return Unit{
		Name:     opts.Name,
		Category: CategoryContent,
		Field:    opts.Field,
		Penalty:  contentPenalty,
		Check: func(c record.Candidate, _ *Context) Result {
			var errs []Error
			var warns []Warning
			c.ForEach(func(prefix string, bag record.Bag) {
				field := prefix + opts.Field
				raw, _, found := record.ResolveFirst(bag, opts.Paths...)
				if !found || raw == nil {
					if opts.Required {
						errs = append(errs, newError(KindRequiredFieldMissing, field, opts.Field+" is required", SeverityError))
					}
					return
				}
				v, ok := record.AsFloat(raw)
				if !ok {
					e := newError(KindTypeMismatch, field, fmt.Sprintf("expected a number, got %T", raw), SeverityError)
					e.Observed = raw
					e.Expected = fmt.Sprintf("number in [%g, %g]", opts.Min, opts.Max)
					errs = append(errs, e)
					return
				}
				switch {
				case v < opts.Min:
					e := newError(KindValueOutOfRange, field, fmt.Sprintf("%s %g is below minimum %g", opts.Field, v, opts.Min), SeverityError)
					e.Observed = v
					e.Expected = fmt.Sprintf("number in [%g, %g]", opts.Min, opts.Max)
					errs = append(errs, e)
				case v > opts.Max:
					e := newError(KindValueOutOfRange, field, fmt.Sprintf("%s %g is above maximum %g", opts.Field, v, opts.Max), SeverityError)
					e.Observed = v
					e.Expected = fmt.Sprintf("number in [%g, %g]", opts.Min, opts.Max)
					errs = append(errs, e)
				case opts.WarnBand > 0 && v < opts.Min+opts.WarnBand:
					msg := opts.WarnLowMessage
					if msg == "" {
						msg = fmt.Sprintf("%s %g is close to the minimum", opts.Field, v)
					}
					warns = append(warns, newWarning(field, msg, opts.Suggestion))
				case opts.WarnBand > 0 && v > opts.Max-opts.WarnBand:
					msg := opts.WarnHighMessage
					if msg == "" {
						msg = fmt.Sprintf("%s %g is close to the maximum", opts.Field, v)
					}
					warns = append(warns, newWarning(field, msg, opts.Suggestion))
				}
			})
			return finish(contentPenalty, errs, warns)
		},
	}
}

// AgeRangeUnit is the stock age window used by the default template.
func AgeRangeUnit(min, max float64) Unit {
	u := NumericRangeUnit(NumericRangeOptions{
		Name:            "age-range",
		Field:           "age",
		Paths:           []string{"age", "demographics.age"},
		Min:             min,
		Max:             max,
		WarnBand:        5,
		WarnLowMessage:  fmt.Sprintf("age is quite young for a marketing persona (minimum %g)", min),
		WarnHighMessage: fmt.Sprintf("age is quite old for a marketing persona (maximum %g)", max),
		Suggestion:      "confirm the target demographic really sits at the edge of the range",
	})
	return u
}

type LocationOptions struct {
	Field    string
	Paths    []string
	Required bool
}

// LocationUnit checks the free-text location field is a plausible
// "City, Region" string.
func LocationUnit(opts LocationOptions) Unit {
	if opts.Field == "" {
		opts.Field = "location"
	}
	if len(opts.Paths) == 0 {
		opts.Paths = []string{"location", "demographics.location"}
	}
	return Unit{
		Name:     "location-format",
		Category: CategoryContent,
		Field:    opts.Field,
		Penalty:  contentPenalty,
		Check: func(c record.Candidate, _ *Context) Result {
			var errs []Error
			var warns []Warning
			c.ForEach(func(prefix string, bag record.Bag) {
				field := prefix + opts.Field
				raw, _, found := record.ResolveFirst(bag, opts.Paths...)
				if !found || raw == nil {
					if opts.Required {
						errs = append(errs, newError(KindRequiredFieldMissing, field, "location is required", SeverityError))
					}
					return
				}
				s, ok := raw.(string)
				if !ok {
					e := newError(KindTypeMismatch, field, fmt.Sprintf("expected a string, got %T", raw), SeverityError)
					e.Observed = raw
					errs = append(errs, e)
					return
				}
				s = strings.TrimSpace(s)
				if s == "" {
					errs = append(errs, newError(KindFormatInvalid, field, "location is empty", SeverityError))
					return
				}
				if !strings.Contains(s, ",") {
					warns = append(warns, newWarning(field, "location has no region separator", `prefer "City, Region" so segmentation by market works`))
				}
			})
			return finish(contentPenalty, errs, warns)
		},
	}
}

// ConsistencyRule is one cross-field plausibility heuristic. Rules emit
// warnings only: they encode soft expectations (a stated generation label vs
// a stated age), not structural truths, and are expected to be retuned.
type ConsistencyRule struct {
	Name  string
	Check func(bag record.Bag) []Warning
}

// ConsistencyUnit runs the plausibility rule table.
func ConsistencyUnit(rules []ConsistencyRule) Unit {
	return Unit{
		Name:     "content-consistency",
		Category: CategoryContent,
		Field:    "record",
		Penalty:  contentPenalty,
		Check: func(c record.Candidate, _ *Context) Result {
			var warns []Warning
			c.ForEach(func(prefix string, bag record.Bag) {
				for _, rule := range rules {
					for _, w := range rule.Check(bag) {
						w.Field = prefix + w.Field
						warns = append(warns, w)
					}
				}
			})
			return finish(contentPenalty, nil, warns)
		},
	}
}

// generationBands maps the label the generator emits to the age window it
// plausibly covers today. Deliberately generous at the edges.
var generationBands = map[string][2]float64{
	"gen alpha":   {0, 15},
	"gen z":       {12, 30},
	"millennial":  {28, 46},
	"millennials": {28, 46},
	"gen x":       {44, 62},
	"boomer":      {60, 80},
	"baby boomer": {60, 80},
	"silent":      {79, 110},
}

// GenerationAgeRule flags a generation label inconsistent with the stated
// age.
func GenerationAgeRule() ConsistencyRule {
	return ConsistencyRule{
		Name: "generation-vs-age",
		Check: func(bag record.Bag) []Warning {
			genRaw, _, ok := record.ResolveFirst(bag, "generation", "demographics.generation")
			if !ok {
				return nil
			}
			label, ok := genRaw.(string)
			if !ok {
				return nil
			}
			band, known := generationBands[strings.ToLower(strings.TrimSpace(label))]
			if !known {
				return nil
			}
			ageRaw, _, ok := record.ResolveFirst(bag, "age", "demographics.age")
			if !ok {
				return nil
			}
			age, ok := record.AsFloat(ageRaw)
			if !ok {
				return nil
			}
			if age < band[0] || age > band[1] {
				return []Warning{newWarning("generation",
					fmt.Sprintf("generation %q does not match age %g", label, age),
					fmt.Sprintf("personas labeled %q are usually %g-%g years old", label, band[0], band[1]))}
			}
			return nil
		},
	}
}

// occupationIncomeBands lists typical annual income windows (USD). Soft
// heuristics for plausibility warnings, nothing more.
var occupationIncomeBands = map[string][2]float64{
	"software engineer":  {60000, 300000},
	"data scientist":     {65000, 280000},
	"teacher":            {30000, 95000},
	"nurse":              {45000, 130000},
	"physician":          {150000, 600000},
	"retail associate":   {18000, 55000},
	"barista":            {18000, 45000},
	"marketing manager":  {55000, 180000},
	"graphic designer":   {35000, 110000},
	"accountant":         {45000, 140000},
	"electrician":        {40000, 120000},
	"truck driver":       {35000, 100000},
	"financial analyst":  {55000, 170000},
	"product manager":    {80000, 250000},
	"customer service":   {25000, 60000},
	"construction worker": {30000, 85000},
}

var incomeNumberRE = regexp.MustCompile(`[0-9][0-9,.]*\s*[kK]?`)

// parseIncome extracts an annual income estimate from a number or a
// free-text range ("$50,000 - $75,000", "60k+"). Ranges resolve to their
// midpoint.
func parseIncome(raw any) (float64, bool) {
	if f, ok := record.AsFloat(raw); ok {
		return f, f > 0
	}
	s, ok := raw.(string)
	if !ok {
		return 0, false
	}
	matches := incomeNumberRE.FindAllString(s, 2)
	if len(matches) == 0 {
		return 0, false
	}
	vals := make([]float64, 0, len(matches))
	for _, m := range matches {
		k := strings.ContainsAny(m, "kK")
		m = strings.TrimRight(strings.TrimSpace(m), "kK")
		m = strings.ReplaceAll(m, ",", "")
		f, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
		if err != nil {
			continue
		}
		if k {
			f *= 1000
		}
		vals = append(vals, f)
	}
	if len(vals) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

// OccupationIncomeRule flags a stated income far outside the typical band
// for the stated occupation.
func OccupationIncomeRule() ConsistencyRule {
	return ConsistencyRule{
		Name: "occupation-vs-income",
		Check: func(bag record.Bag) []Warning {
			occRaw, _, ok := record.ResolveFirst(bag, "occupation", "demographics.occupation")
			if !ok {
				return nil
			}
			occ, ok := occRaw.(string)
			if !ok {
				return nil
			}
			band, known := occupationIncomeBands[strings.ToLower(strings.TrimSpace(occ))]
			if !known {
				return nil
			}
			incRaw, _, ok := record.ResolveFirst(bag, "income", "incomeRange", "demographics.income", "demographics.incomeRange")
			if !ok {
				return nil
			}
			income, ok := parseIncome(incRaw)
			if !ok {
				return nil
			}
			// Half-band slack below, double above: bands are rough.
			if income < band[0]*0.5 || income > band[1]*2 {
				return []Warning{newWarning("income",
					fmt.Sprintf("income %.0f is unusual for a %s", income, occ),
					fmt.Sprintf("typical %s income falls between %.0f and %.0f", occ, band[0], band[1]))}
			}
			return nil
		},
	}
}

// DefaultConsistencyRules is the rule table the default template ships with.
func DefaultConsistencyRules() []ConsistencyRule {
	return []ConsistencyRule{
		GenerationAgeRule(),
		OccupationIncomeRule(),
	}
}
