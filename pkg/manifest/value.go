// Package manifest models a parsed package manifest (pubspec) as a
// tagged-union value tree instead of a bag of interface{} values, so
// readers get typed errors instead of panics on bad assertions.
package manifest

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Kind discriminates the variants a Value can hold.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is one node of a manifest document. The zero value is null.
type Value struct {
	kind    Kind
	boolVal bool
	numVal  float64
	strVal  string
	listVal []Value
	mapVal  map[string]Value
}

// Constructors.

func Null() Value                      { return Value{kind: KindNull} }
func BoolValue(b bool) Value           { return Value{kind: KindBool, boolVal: b} }
func NumberValue(n float64) Value      { return Value{kind: KindNumber, numVal: n} }
func StringValue(s string) Value       { return Value{kind: KindString, strVal: s} }
func ListValue(items []Value) Value    { return Value{kind: KindList, listVal: items} }
func MapValue(m map[string]Value) Value { return Value{kind: KindMap, mapVal: m} }

// Kind reports which variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the bool variant, or an error if the value is not a bool.
func (v Value) Bool() (bool, error) {
	if v.kind != KindBool {
		return false, &TypeError{Want: KindBool, Got: v.kind}
	}
	return v.boolVal, nil
}

// Number returns the numeric variant.
func (v Value) Number() (float64, error) {
	if v.kind != KindNumber {
		return 0, &TypeError{Want: KindNumber, Got: v.kind}
	}
	return v.numVal, nil
}

// String returns the string variant.
func (v Value) String() (string, error) {
	if v.kind != KindString {
		return "", &TypeError{Want: KindString, Got: v.kind}
	}
	return v.strVal, nil
}

// List returns the list variant.
func (v Value) List() ([]Value, error) {
	if v.kind != KindList {
		return nil, &TypeError{Want: KindList, Got: v.kind}
	}
	return v.listVal, nil
}

// Map returns the map variant.
func (v Value) Map() (map[string]Value, error) {
	if v.kind != KindMap {
		return nil, &TypeError{Want: KindMap, Got: v.kind}
	}
	return v.mapVal, nil
}

// Get looks up a key on a map value. A missing key yields a KeyError,
// a non-map receiver a TypeError.
func (v Value) Get(key string) (Value, error) {
	m, err := v.Map()
	if err != nil {
		return Value{}, err
	}
	child, ok := m[key]
	if !ok {
		return Value{}, &KeyError{Key: key}
	}
	return child, nil
}

// GetString looks up a key and asserts its value is a string.
func (v Value) GetString(key string) (string, error) {
	child, err := v.Get(key)
	if err != nil {
		return "", err
	}
	s, err := child.String()
	if err != nil {
		return "", fmt.Errorf("key %q: %w", key, err)
	}
	return s, nil
}

// TypeError reports a variant mismatch on a typed read.
type TypeError struct {
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("manifest value is %s, not %s", e.Got, e.Want)
}

// KeyError reports a missing map key.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("manifest key %q not found", e.Key)
}

// ParseYAML decodes a YAML document into a Value tree.
func ParseYAML(data []byte) (Value, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("parse manifest yaml: %w", err)
	}
	return fromGo(raw)
}

// ParseJSON decodes a JSON document into a Value tree. Used when
// re-hydrating cached manifests.
func ParseJSON(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("parse manifest json: %w", err)
	}
	return fromGo(raw)
}

func fromGo(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return BoolValue(t), nil
	case int:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case float64:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			v, err := fromGo(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return ListValue(items), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := fromGo(item)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return MapValue(m), nil
	case map[any]any:
		// yaml.v3 only produces this for non-scalar keys; reject them,
		// a pubspec never has them.
		return Value{}, fmt.Errorf("manifest contains non-string map keys")
	default:
		return Value{}, fmt.Errorf("manifest contains unsupported value of type %T", raw)
	}
}

// MarshalJSON renders the value tree as plain JSON, which is what the
// pub listing API expects for the pubspec field.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.boolVal)
	case KindNumber:
		if v.numVal == math.Trunc(v.numVal) && math.Abs(v.numVal) < 1<<53 {
			return json.Marshal(int64(v.numVal))
		}
		return json.Marshal(v.numVal)
	case KindString:
		return json.Marshal(v.strVal)
	case KindList:
		if v.listVal == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.listVal)
	case KindMap:
		if v.mapVal == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.mapVal)
	}
	return nil, fmt.Errorf("cannot marshal manifest value of kind %s", v.kind)
}

// UnmarshalJSON rebuilds a value tree from JSON produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
