package vectorstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind discriminates the closed set of payload value types.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindInteger
	KindFloat
	KindBool
)

// Value is a single payload field: a tagged union over the four scalar
// types the vector engine accepts. No nested structures.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

// StringValue wraps a string payload field.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// IntegerValue wraps an integer payload field.
func IntegerValue(i int64) Value { return Value{Kind: KindInteger, Int: i} }

// FloatValue wraps a float payload field.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// BoolValue wraps a boolean payload field.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// String renders the value for logs and keyword matching.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// Payload is the flat scalar metadata attached to a stored vector.
type Payload map[string]Value

// GetString returns the string field under key, or "" when absent or
// not a string.
func (p Payload) GetString(key string) string {
	v, ok := p[key]
	if !ok || v.Kind != KindString {
		return ""
	}
	return v.Str
}

// GetFloat returns the numeric field under key. Integer fields are
// widened; absent or non-numeric fields return 0.
func (p Payload) GetFloat(key string) float64 {
	v, ok := p[key]
	if !ok {
		return 0
	}
	switch v.Kind {
	case KindFloat:
		return v.Float
	case KindInteger:
		return float64(v.Int)
	default:
		return 0
	}
}

// StringFields returns the string-valued fields in sorted key order.
// Used by the keyword boost pass, which only inspects string fields.
func (p Payload) StringFields() []string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if v.Kind == KindString {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	fields := make([]string, len(keys))
	for i, k := range keys {
		fields[i] = p[k].Str
	}
	return fields
}

// NewPayload converts a loose metadata map into a Payload, enforcing the
// flat-scalar contract at the write boundary.
//
// Scalars map onto their tagged value; string slices are flattened to a
// single ", "-joined string so list fields stay visible to keyword
// matching. Anything else (maps, structs, mixed slices) is rejected
// rather than silently dropped.
func NewPayload(metadata map[string]any) (Payload, error) {
	p := make(Payload, len(metadata))
	for k, raw := range metadata {
		switch v := raw.(type) {
		case string:
			p[k] = StringValue(v)
		case int:
			p[k] = IntegerValue(int64(v))
		case int64:
			p[k] = IntegerValue(v)
		case float32:
			p[k] = FloatValue(float64(v))
		case float64:
			p[k] = FloatValue(v)
		case bool:
			p[k] = BoolValue(v)
		case []string:
			p[k] = StringValue(strings.Join(v, ", "))
		default:
			return nil, fmt.Errorf("payload field %q: non-scalar value of type %T", k, raw)
		}
	}
	return p, nil
}

// Map renders the payload as a plain map for tool responses.
func (p Payload) Map() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		switch v.Kind {
		case KindString:
			out[k] = v.Str
		case KindInteger:
			out[k] = v.Int
		case KindFloat:
			out[k] = v.Float
		case KindBool:
			out[k] = v.Bool
		}
	}
	return out
}
