package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/personaforge/personaforge-backend/internal/record"
)

type PhoneFormat string

const (
	// PhoneInternational is "+" followed by 2-15 digits with optional
	// spacing/punctuation.
	PhoneInternational PhoneFormat = "international"
	// PhoneNational is a 10-digit number with the usual US-style grouping.
	PhoneNational PhoneFormat = "national"
	// PhoneE164 is the strict "+digits" wire form.
	PhoneE164 PhoneFormat = "e164"
)

var (
	phoneIntlRE     = regexp.MustCompile(`^\+[0-9][0-9\s().-]*[0-9]$`)
	phoneNationalRE = regexp.MustCompile(`^(?:\([0-9]{3}\)[\s.-]?|[0-9]{3}[\s.-])[0-9]{3}[\s.-]?[0-9]{4}$`)
	phoneE164RE     = regexp.MustCompile(`^\+[1-9][0-9]{1,14}$`)
	nonDigitRE      = regexp.MustCompile(`[^0-9]`)
)

type PhoneOptions struct {
	Field    string
	Paths    []string
	Formats  []PhoneFormat
	Required bool
}

func (o *PhoneOptions) defaults() {
	if o.Field == "" {
		o.Field = "phone"
	}
	if len(o.Paths) == 0 {
		o.Paths = []string{"phone", "contact.phone", "demographics.phone"}
	}
	if len(o.Formats) == 0 {
		o.Formats = []PhoneFormat{PhoneInternational, PhoneNational, PhoneE164}
	}
}

func PhoneUnit(opts PhoneOptions) Unit {
	opts.defaults()
	return Unit{
		Name:     "phone-format",
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
						errs = append(errs, newError(KindRequiredFieldMissing, field, "phone is required", SeverityError))
					}
					return
				}
				s, ok := raw.(string)
				if !ok {
					e := newError(KindTypeMismatch, field, fmt.Sprintf("expected a string, got %T", raw), SeverityError)
					e.Observed = raw
					e.Expected = "phone number string"
					errs = append(errs, e)
					return
				}
				s = strings.TrimSpace(s)
				if s == "" {
					errs = append(errs, newError(KindFormatInvalid, field, "phone is empty", SeverityError))
					return
				}

				digits := nonDigitRE.ReplaceAllString(s, "")
				switch {
				case len(digits) < 7:
					warns = append(warns, newWarning(field, fmt.Sprintf("phone has only %d digits", len(digits)), "real numbers carry at least 7 digits"))
				case len(digits) > 15:
					warns = append(warns, newWarning(field, fmt.Sprintf("phone has %d digits", len(digits)), "E.164 caps numbers at 15 digits"))
				}

				if !matchesAnyPhoneFormat(s, opts.Formats) {
					e := newError(KindFormatInvalid, field, fmt.Sprintf("%q does not match any accepted phone format", s), SeverityError)
					e.Observed = s
					e.Expected = expectedPhoneFormats(opts.Formats)
					errs = append(errs, e)
				}
			})
			return finish(formatPenalty, errs, warns)
		},
	}
}

func matchesAnyPhoneFormat(s string, formats []PhoneFormat) bool {
	for _, f := range formats {
		switch f {
		case PhoneInternational:
			if phoneIntlRE.MatchString(s) {
				return true
			}
		case PhoneNational:
			if phoneNationalRE.MatchString(s) {
				return true
			}
		case PhoneE164:
			if phoneE164RE.MatchString(s) {
				return true
			}
		}
	}
	return false
}

func expectedPhoneFormats(formats []PhoneFormat) string {
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, string(f))
	}
	return "one of: " + strings.Join(names, ", ")
}
