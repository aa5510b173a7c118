package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a decoded legacy payload: Null, Number, String, Bool, a Mapping of
// string keys in insertion order, or a Sequence. The zero Value is Null.
//
// Maps and lists share their backing storage on copy; use Clone before
// mutating a Value that came from somewhere else.
type Value struct {
	kind Kind
	num  float64
	lit  string // exact source text of a decoded number, if any
	str  string
	b    bool
	keys []string
	m    map[string]Value
	list []Value
}

func Null() Value { return Value{} }

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a Number that encodes as exactly n, even past 2^53.
func Int(n int64) Value {
	return Value{kind: KindNumber, num: float64(n), lit: strconv.FormatInt(n, 10)}
}

// NumberLiteral returns a Number parsed from a JSON number literal. The
// literal is kept and written back verbatim by MarshalJSON.
func NumberLiteral(s string) (Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, fmt.Errorf("invalid number %q", s)
	}
	return Value{kind: KindNumber, num: f, lit: s}, nil
}

func String(s string) Value { return Value{kind: KindString, str: s} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a Sequence holding items.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// NewMap returns an empty Mapping.
func NewMap() Value {
	return Value{kind: KindMap, m: make(map[string]Value)}
}

// MapOf builds a Mapping from alternating key/value pairs, in order.
func MapOf(pairs ...any) Value {
	if len(pairs)%2 != 0 {
		panic("model: MapOf needs key/value pairs")
	}
	v := NewMap()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("model: MapOf key %v is not a string", pairs[i]))
		}
		item, err := FromInterface(pairs[i+1])
		if err != nil {
			panic(err)
		}
		v.Set(key, item)
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Num returns the number held by v. Strings are not coerced.
func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Len is the number of entries of a Mapping or Sequence, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindMap:
		return len(v.keys)
	case KindList:
		return len(v.list)
	}
	return 0
}

// Keys returns the Mapping keys in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Get looks up key in a Mapping.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	item, ok := v.m[key]
	return item, ok
}

// Path walks nested Mappings, e.g. Path("success", "count").
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Index returns the i-th element of a Sequence.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

// Items returns a copy of the Sequence elements.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out
}

// Set stores item under key, keeping the original position of existing keys.
// It panics if v is not a Mapping.
func (v *Value) Set(key string, item Value) {
	if v.kind != KindMap {
		panic("model: Set on " + v.kind.String() + " value")
	}
	if _, exists := v.m[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.m[key] = item
}

// Append adds item to the end of a Sequence. It panics if v is not a Sequence.
func (v *Value) Append(item Value) {
	if v.kind != KindList {
		panic("model: Append on " + v.kind.String() + " value")
	}
	v.list = append(v.list, item)
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindMap:
		out := NewMap()
		for _, k := range v.keys {
			out.Set(k, v.m[k].Clone())
		}
		return out
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return List(items...)
	}
	return v
}

// Equal reports whether a and b hold the same data. Mapping key order is
// not significant.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindNumber:
		return a.num == b.num || (math.IsNaN(a.num) && math.IsNaN(b.num))
	case KindString:
		return a.str == b.str
	case KindBool:
		return a.b == b.b
	case KindMap:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for _, k := range a.keys {
			other, ok := b.m[k]
			if !ok || !Equal(a.m[k], other) {
				return false
			}
		}
		return true
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// FromInterface converts the output of a generic JSON decode (or plain Go
// literals) into a Value. Map keys are sorted since Go maps carry no order.
func FromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		return NumberLiteral(string(t))
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return List(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewMap()
		for _, k := range keys {
			v, err := FromInterface(t[k])
			if err != nil {
				return Value{}, err
			}
			out.Set(k, v)
		}
		return out, nil
	default:
		return Value{}, fmt.Errorf("unsupported type %T", x)
	}
}

// MarshalJSON encodes v with Mapping keys in insertion order. NaN and
// infinities have no JSON form and encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(make([]byte, 0, 64))
}

func (v Value) appendJSON(dst []byte) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(dst, "null"...), nil
	case KindBool:
		return strconv.AppendBool(dst, v.b), nil
	case KindNumber:
		if v.lit != "" {
			return append(dst, v.lit...), nil
		}
		return appendNumber(dst, v.num), nil
	case KindString:
		enc, err := json.Marshal(v.str)
		if err != nil {
			return nil, err
		}
		return append(dst, enc...), nil
	case KindList:
		dst = append(dst, '[')
		for i, item := range v.list {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = item.appendJSON(dst); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case KindMap:
		dst = append(dst, '{')
		for i, k := range v.keys {
			if i > 0 {
				dst = append(dst, ',')
			}
			enc, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			dst = append(dst, enc...)
			dst = append(dst, ':')
			if dst, err = v.m[k].appendJSON(dst); err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	}
	return nil, fmt.Errorf("model: cannot encode %s", v.kind)
}

func appendNumber(dst []byte, f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(dst, "null"...)
	}
	// Integral floats below 2^63 convert to int64 exactly.
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.AppendInt(dst, int64(f), 10)
	}
	return strconv.AppendFloat(dst, f, 'g', -1, 64)
}

const maxJSONDepth = 512

// UnmarshalJSON decodes a JSON document into v, keeping object keys in
// document order and number literals as written.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	out, err := readJSON(dec, 0)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("model: trailing data after JSON value")
	}
	*v = out
	return nil
}

func readJSON(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return NumberLiteral(string(t))
	case json.Delim:
		if depth >= maxJSONDepth {
			return Value{}, fmt.Errorf("model: JSON nested deeper than %d", maxJSONDepth)
		}
		switch t {
		case '{':
			out := NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("model: unexpected object key %v", kt)
				}
				item, err := readJSON(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				out.Set(key, item)
			}
			return out, closeDelim(dec, '}')
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := readJSON(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			return List(items...), closeDelim(dec, ']')
		}
	}
	return Value{}, fmt.Errorf("model: unexpected JSON token %v", tok)
}

func closeDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("model: expected %v, found %v", want, tok)
	}
	return nil
}
