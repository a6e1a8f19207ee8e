// Package record models the untyped persona documents produced by the
// generation pipeline before normalization. A Candidate is either a single
// scalar-bag or a homogeneous array of them; validators iterate both through
// one code path.
package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Bag is one untrusted persona document as decoded JSON.
type Bag = map[string]any

// Candidate is the tagged union flowing into validation: one Bag or a list
// of Bags. The zero value is an empty single candidate.
type Candidate struct {
	one  Bag
	many []Bag
	list bool
}

func Single(bag Bag) Candidate {
	return Candidate{one: bag}
}

func Batch(bags []Bag) Candidate {
	return Candidate{many: bags, list: true}
}

// FromAny wraps arbitrary decoded input. Non-object, non-array values become
// an empty single candidate so validators can report missing fields instead
// of panicking.
func FromAny(v any) Candidate {
	switch t := v.(type) {
	case nil:
		return Single(Bag{})
	case Bag:
		return Single(t)
	case []Bag:
		return Batch(t)
	case []any:
		bags := make([]Bag, 0, len(t))
		for _, item := range t {
			if m, ok := item.(Bag); ok && m != nil {
				bags = append(bags, m)
			} else {
				bags = append(bags, Bag{})
			}
		}
		return Batch(bags)
	default:
		return Single(Bag{})
	}
}

func (c Candidate) IsBatch() bool {
	return c.list
}

func (c Candidate) Len() int {
	if c.list {
		return len(c.many)
	}
	return 1
}

// ForEach visits every bag in the candidate. For a batch the supplied prefix
// is "[i]." so that error field paths carry the offending index; for a single
// candidate the prefix is empty.
func (c Candidate) ForEach(fn func(prefix string, bag Bag)) {
	if !c.list {
		bag := c.one
		if bag == nil {
			bag = Bag{}
		}
		fn("", bag)
		return
	}
	for i, bag := range c.many {
		if bag == nil {
			bag = Bag{}
		}
		fn(fmt.Sprintf("[%d].", i), bag)
	}
}

// First returns the first bag, which is the whole document for single
// candidates. Normalization operates on exactly one bag.
func (c Candidate) First() Bag {
	if c.list {
		if len(c.many) == 0 {
			return Bag{}
		}
		if c.many[0] == nil {
			return Bag{}
		}
		return c.many[0]
	}
	if c.one == nil {
		return Bag{}
	}
	return c.one
}

func AsString(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

func AsInt(v any, def int) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float32:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return def
		}
		return int(i)
	default:
		return def
	}
}

func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func AsStringSlice(v any) []string {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s := strings.TrimSpace(AsString(item))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func AsBag(v any) (Bag, bool) {
	m, ok := v.(Bag)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}
