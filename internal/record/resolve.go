package record

import "strings"

// Resolve walks a dotted path ("demographics.contact.email") through nested
// bags. Missing or non-object intermediates resolve to (nil, false); it never
// panics on arbitrary input.
func Resolve(bag Bag, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if bag == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	cur := any(bag)
	for i, part := range parts {
		m, ok := cur.(Bag)
		if !ok || m == nil {
			return nil, false
		}
		v, present := m[part]
		if !present {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		cur = v
	}
	return nil, false
}

// ResolveFirst tries each candidate path in order and returns the first hit
// together with the path that matched. Generation pipeline versions moved
// fields around (email lived at "email", then "contact.email", then
// "demographics.email"), so logical fields are looked up through an ordered
// path list instead of a single location.
func ResolveFirst(bag Bag, paths ...string) (any, string, bool) {
	for _, p := range paths {
		if v, ok := Resolve(bag, p); ok {
			return v, p, true
		}
	}
	return nil, "", false
}

// ResolveString is ResolveFirst for fields expected to be strings; a hit with
// a non-string value still reports found=true so callers can distinguish
// type-mismatch from absent.
func ResolveString(bag Bag, paths ...string) (value string, path string, found bool) {
	v, p, ok := ResolveFirst(bag, paths...)
	if !ok {
		return "", "", false
	}
	s, isStr := v.(string)
	if !isStr {
		return "", p, true
	}
	return s, p, true
}
