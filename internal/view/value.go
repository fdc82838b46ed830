package view

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind discriminates the variants a state or property value can take.
type Kind int

const (
	KindAbsent Kind = iota
	KindBool
	KindNumber
	KindString
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a tagged variant covering the JSON-like payloads carried across the
// bridge: bool, number, string, string-keyed map, or absent. The zero Value is
// absent.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	m    map[string]Value
}

func Bool(v bool) Value      { return Value{kind: KindBool, b: v} }
func Number(v float64) Value { return Value{kind: KindNumber, n: v} }
func Int(v int) Value        { return Value{kind: KindNumber, n: float64(v)} }
func String(v string) Value  { return Value{kind: KindString, s: v} }

// Map wraps a string-keyed map. The map is not copied; callers that need
// isolation should Clone.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }
func (v Value) AsString() (string, bool)  { return v.s, v.kind == KindString }

func (v Value) AsInt() (int, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return int(v.n), true
}

func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	if v.kind != KindMap {
		return v
	}
	m := make(map[string]Value, len(v.m))
	for k, val := range v.m {
		m[k] = val.Clone()
	}
	return Map(m)
}

// Interface converts the value to the plain Go representation used for JSON
// encoding and event params. Absent becomes nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindMap:
		m := make(map[string]any, len(v.m))
		for k, val := range v.m {
			m[k] = val.Interface()
		}
		return m
	}
	return nil
}

// FromInterface converts a decoded JSON value into a Value. Only the variants
// the bridge understands are accepted; anything else is rejected so malformed
// remote input fails at the boundary instead of being silently dropped.
func FromInterface(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Int(t), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: bad number %q", ErrInvalidArguments, t.String())
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, raw := range t {
			v, err := FromInterface(raw)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = v
		}
		return Map(m), nil
	}
	return Value{}, fmt.Errorf("%w: unsupported value type %T", ErrInvalidArguments, raw)
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// Props is a string-keyed bag of Values used for both view properties and
// per-view state.
type Props map[string]Value

// PropsFromInterface converts a decoded JSON object into Props.
func PropsFromInterface(raw map[string]any) (Props, error) {
	p := make(Props, len(raw))
	for k, v := range raw {
		val, err := FromInterface(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		p[k] = val
	}
	return p, nil
}

// Clone returns a deep copy of the bag.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	dup := make(Props, len(p))
	for k, v := range p {
		dup[k] = v.Clone()
	}
	return dup
}

// Merge copies every entry of other into p, overwriting existing keys.
func (p Props) Merge(other Props) {
	for k, v := range other {
		p[k] = v.Clone()
	}
}

// Keys returns the sorted key set, for deterministic diagnostics.
func (p Props) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface converts the bag to its plain representation for event payloads.
func (p Props) Interface() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}
