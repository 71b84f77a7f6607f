package ports

import (
	"encoding/json"
	"strconv"
)

// AttrKind identifies which scalar an AttrValue holds.
type AttrKind int

const (
	AttrAbsent AttrKind = iota
	AttrString
	AttrNumber
	AttrBool
	// AttrRaw preserves a non-scalar JSON value verbatim. The bridge never
	// produces these; they only appear when a remote attribute bag carries
	// nested structures, which are passed through opaque.
	AttrRaw
)

// AttrValue is one value in an attribute bag. Chatwoot and VK both use
// loosely-typed key/value bags as their extensibility mechanism; keeping
// the value set closed to scalars keeps the reconciliation key lookups
// statically checkable.
type AttrValue struct {
	kind AttrKind
	str  string
	num  float64
	b    bool
	raw  json.RawMessage
}

func StringAttr(s string) AttrValue {
	return AttrValue{kind: AttrString, str: s}
}

func NumberAttr(n float64) AttrValue {
	return AttrValue{kind: AttrNumber, num: n}
}

func IntAttr(n int) AttrValue {
	return AttrValue{kind: AttrNumber, num: float64(n)}
}

func BoolAttr(b bool) AttrValue {
	return AttrValue{kind: AttrBool, b: b}
}

func (v AttrValue) Kind() AttrKind {
	return v.kind
}

// Text returns the canonical string form used for identity matching.
// Numbers render without a trailing ".0" so a numeric VK id compares
// equal to its string form.
func (v AttrValue) Text() string {
	switch v.kind {
	case AttrString:
		return v.str
	case AttrNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case AttrBool:
		return strconv.FormatBool(v.b)
	case AttrRaw:
		return string(v.raw)
	default:
		return ""
	}
}

func (v AttrValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case AttrString:
		return json.Marshal(v.str)
	case AttrNumber:
		return json.Marshal(v.num)
	case AttrBool:
		return json.Marshal(v.b)
	case AttrRaw:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

func (v *AttrValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = AttrValue{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = AttrValue{kind: AttrString, str: s}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = AttrValue{kind: AttrBool, b: b}
	case '{', '[':
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		*v = AttrValue{kind: AttrRaw, raw: raw}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = AttrValue{kind: AttrNumber, num: n}
	}
	return nil
}

// Attributes is an attribute bag keyed by the remote system's raw
// attribute keys.
type Attributes map[string]AttrValue

// Text returns the canonical string form of a key, empty when absent.
func (a Attributes) Text(key string) string {
	if a == nil {
		return ""
	}
	v, ok := a[key]
	if !ok {
		return ""
	}
	return v.Text()
}

// Has reports whether key is present with a non-absent value.
func (a Attributes) Has(key string) bool {
	if a == nil {
		return false
	}
	v, ok := a[key]
	return ok && v.kind != AttrAbsent
}

// Clone returns a shallow copy, never nil.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merged returns a copy of a with the entries of b applied on top.
func (a Attributes) Merged(b Attributes) Attributes {
	out := a.Clone()
	for k, v := range b {
		out[k] = v
	}
	return out
}
