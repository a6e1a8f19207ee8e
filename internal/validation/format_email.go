package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/personaforge/personaforge-backend/internal/record"
)

// Close enough to RFC 5322 for pipeline output; full grammar compliance is
// not worth the regex.
var emailRE = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

const maxEmailLength = 254

type EmailOptions struct {
	// Field is the logical field name used in error paths.
	Field string
	// Paths are the alternate locations searched in order; older pipeline
	// versions nested contact data differently.
	Paths []string
	// AllowMultiple accepts a comma-separated list and validates every
	// address independently.
	AllowMultiple bool
	// Required turns an absent field into an error; by default presence is
	// the required-fields unit's job.
	Required bool
}

func (o *EmailOptions) defaults() {
	if o.Field == "" {
		o.Field = "email"
	}
	if len(o.Paths) == 0 {
		o.Paths = []string{"email", "contact.email", "demographics.email"}
	}
}

// EmailUnit validates email fields: strings only, RFC-5322-style grammar,
// optional multi-address mode.
func EmailUnit(opts EmailOptions) Unit {
	opts.defaults()
	return Unit{
		Name:     "email-format",
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
						errs = append(errs, newError(KindRequiredFieldMissing, field, "email is required", SeverityError))
					}
					return
				}
				s, ok := raw.(string)
				if !ok {
					e := newError(KindTypeMismatch, field, fmt.Sprintf("expected a string, got %T", raw), SeverityError)
					e.Observed = raw
					e.Expected = "email address string"
					errs = append(errs, e)
					return
				}
				if strings.TrimSpace(s) == "" {
					errs = append(errs, newError(KindFormatInvalid, field, "email is empty", SeverityError))
					return
				}

				addresses := []string{s}
				if opts.AllowMultiple {
					addresses = strings.Split(s, ",")
				}
				for _, addr := range addresses {
					addr = strings.TrimSpace(addr)
					if !emailRE.MatchString(addr) {
						e := newError(KindFormatInvalid, field, fmt.Sprintf("%q is not a valid email address", addr), SeverityError)
						e.Observed = addr
						e.Expected = "address like user@example.com"
						errs = append(errs, e)
						continue
					}
					if strings.Contains(addr, "..") {
						warns = append(warns, newWarning(field, "email contains consecutive dots", "double-check the address; consecutive dots are rarely intentional"))
					}
					if len(addr) > maxEmailLength {
						warns = append(warns, newWarning(field, fmt.Sprintf("email is %d characters long", len(addr)), "addresses over 254 characters are rejected by most mail systems"))
					}
				}
			})
			return finish(formatPenalty, errs, warns)
		},
	}
}
