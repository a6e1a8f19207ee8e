package validation

import (
	"fmt"
	"time"

	"github.com/personaforge/personaforge-backend/internal/record"
)

type DateFormat string

const (
	DateISO8601 DateFormat = "iso8601"
	DateUS      DateFormat = "us" // MM/DD/YYYY
	DateEU      DateFormat = "eu" // DD/MM/YYYY
)

// Epoch values above this are taken as milliseconds, below as seconds.
const epochMillisCutoff = 1e10

type DateOptions struct {
	Field string
	Paths []string
	// Formats restricts which string layouts are accepted.
	Formats []DateFormat
	// NoFuture turns a future date into a value-out-of-range error.
	NoFuture bool
	Required bool
}

func (o *DateOptions) defaults() {
	if o.Field == "" {
		o.Field = "createdAt"
	}
	if len(o.Paths) == 0 {
		o.Paths = []string{o.Field}
	}
	if len(o.Formats) == 0 {
		o.Formats = []DateFormat{DateISO8601, DateUS, DateEU}
	}
}

// DateUnit validates date-bearing fields: native times, numeric epochs
// (seconds or milliseconds), or strings in the configured layouts.
func DateUnit(opts DateOptions) Unit {
	opts.defaults()
	return Unit{
		Name:     "date-format",
		Category: CategoryFormat,
		Field:    opts.Field,
		Penalty:  formatPenalty,
		Check: func(c record.Candidate, _ *Context) Result {
			var errs []Error
			var warns []Warning
			now := time.Now().UTC()
			c.ForEach(func(prefix string, bag record.Bag) {
				field := prefix + opts.Field
				raw, _, found := record.ResolveFirst(bag, opts.Paths...)
				if !found {
					if opts.Required {
						errs = append(errs, newError(KindRequiredFieldMissing, field, "date is required", SeverityError))
					}
					return
				}

				parsed, err := parseDateValue(raw, opts.Formats)
				if err != nil {
					kind := KindFormatInvalid
					if _, isStr := raw.(string); !isStr {
						if _, isNum := record.AsFloat(raw); !isNum {
							kind = KindTypeMismatch
						}
					}
					e := newError(kind, field, err.Error(), SeverityError)
					e.Observed = raw
					e.Expected = "date, epoch timestamp, or formatted date string"
					errs = append(errs, e)
					return
				}

				if parsed.After(now) {
					if opts.NoFuture {
						e := newError(KindValueOutOfRange, field, fmt.Sprintf("date %s is in the future", parsed.Format(time.RFC3339)), SeverityError)
						e.Observed = raw
						e.Expected = "a date not after " + now.Format(time.RFC3339)
						errs = append(errs, e)
						return
					}
					if parsed.After(now.AddDate(50, 0, 0)) {
						warns = append(warns, newWarning(field, "date is more than 50 years ahead", "check the year; far-future dates are usually typos"))
					}
				} else if parsed.Before(now.AddDate(-150, 0, 0)) {
					warns = append(warns, newWarning(field, "date is more than 150 years in the past", "check the year; pre-1900 dates are usually typos"))
				}
			})
			return finish(formatPenalty, errs, warns)
		},
	}
}

func parseDateValue(raw any, formats []DateFormat) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("date is nil")
		}
		return *v, nil
	case string:
		return parseDateString(v, formats)
	}
	if f, ok := record.AsFloat(raw); ok {
		if f > epochMillisCutoff {
			return time.UnixMilli(int64(f)).UTC(), nil
		}
		return time.Unix(int64(f), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("expected a date, got %T", raw)
}

var dateLayouts = map[DateFormat][]string{
	DateISO8601: {time.RFC3339Nano, time.RFC3339, "2006-01-02"},
	DateUS:      {"01/02/2006"},
	DateEU:      {"02/01/2006"},
}

func parseDateString(s string, formats []DateFormat) (time.Time, error) {
	for _, f := range formats {
		for _, layout := range dateLayouts[f] {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognized date format", s)
}
