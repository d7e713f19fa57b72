package script

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags a script value crossing into host code.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindBool
	KindNumber
	KindText
	KindSequence
	KindMapping
	KindCallable
)

func (k ValueKind) String() string {
	switch k {
	case KindAbsent:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindCallable:
		return "function"
	}
	return "unknown"
}

// Value is a script value converted for the host. Only the field matching
// Kind is meaningful.
type Value struct {
	Kind    ValueKind
	Bool    bool
	Number  float64
	Text    string
	Items   []Value
	Entries map[string]Value

	// literal keeps integers exact when rendering
	literal string
}

// maxDepth bounds conversion of self-referencing structures.
const maxDepth = 32

// FromAny converts a host-side Go value.
func FromAny(x interface{}) Value {
	return FromReflect(reflect.ValueOf(x))
}

// FromReflect converts a value produced by the interpreter.
func FromReflect(v reflect.Value) Value {
	return fromReflect(v, 0)
}

func fromReflect(v reflect.Value, depth int) Value {
	if depth > maxDepth {
		return Value{Kind: KindText, Text: "..."}
	}
	if !v.IsValid() {
		return Value{}
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return Value{}
		}
		if v.CanInterface() {
			if err, ok := v.Interface().(error); ok {
				return Value{Kind: KindText, Text: err.Error()}
			}
		}
		return fromReflect(v.Elem(), depth+1)
	case reflect.Bool:
		return Value{Kind: KindBool, Bool: v.Bool()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{Kind: KindNumber, Number: float64(v.Int()), literal: strconv.FormatInt(v.Int(), 10)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Value{Kind: KindNumber, Number: float64(v.Uint()), literal: strconv.FormatUint(v.Uint(), 10)}
	case reflect.Float32, reflect.Float64:
		return Value{Kind: KindNumber, Number: v.Float()}
	case reflect.String:
		return Value{Kind: KindText, Text: v.String()}
	case reflect.Slice:
		if v.IsNil() {
			return Value{Kind: KindSequence}
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return Value{Kind: KindText, Text: string(v.Bytes())}
		}
		fallthrough
	case reflect.Array:
		items := make([]Value, v.Len())
		for i := range items {
			items[i] = fromReflect(v.Index(i), depth+1)
		}
		return Value{Kind: KindSequence, Items: items}
	case reflect.Map:
		entries := make(map[string]Value, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := fromReflect(iter.Key(), depth+1)
			entries[key.String()] = fromReflect(iter.Value(), depth+1)
		}
		return Value{Kind: KindMapping, Entries: entries}
	case reflect.Struct:
		if v.CanInterface() {
			if s, ok := v.Interface().(fmt.Stringer); ok {
				return Value{Kind: KindText, Text: s.String()}
			}
		}
		entries := make(map[string]Value)
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			entries[field.Name] = fromReflect(v.Field(i), depth+1)
		}
		return Value{Kind: KindMapping, Entries: entries}
	case reflect.Func:
		if v.IsNil() {
			return Value{}
		}
		return Value{Kind: KindCallable}
	case reflect.Chan:
		return Value{Kind: KindText, Text: "<chan>"}
	}
	return Value{Kind: KindText, Text: fmt.Sprint(v)}
}

// String renders the value for display. Top-level text is shown as is;
// nested text is quoted.
func (v Value) String() string {
	if v.Kind == KindText {
		return v.Text
	}
	return v.Repr()
}

// Repr renders the value with text quoted.
func (v Value) Repr() string {
	var sb strings.Builder
	v.render(&sb)
	return sb.String()
}

func (v Value) render(sb *strings.Builder) {
	switch v.Kind {
	case KindAbsent:
		sb.WriteString("nil")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.Bool))
	case KindNumber:
		sb.WriteString(v.numberString())
	case KindText:
		sb.WriteString(strconv.Quote(v.Text))
	case KindSequence:
		sb.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.render(sb)
		}
		sb.WriteByte(']')
	case KindMapping:
		sb.WriteByte('{')
		for i, key := range v.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(key)
			sb.WriteString(": ")
			v.Entries[key].render(sb)
		}
		sb.WriteByte('}')
	case KindCallable:
		sb.WriteString("<function>")
	}
}

func (v Value) numberString() string {
	if v.literal != "" {
		return v.literal
	}
	if v.Number == math.Trunc(v.Number) && math.Abs(v.Number) < 1e15 {
		return strconv.FormatInt(int64(v.Number), 10)
	}
	return strconv.FormatFloat(v.Number, 'g', -1, 64)
}

// Keys returns the mapping keys in sorted order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.Entries))
	for k := range v.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsAbsent reports whether the value is nil.
func (v Value) IsAbsent() bool {
	return v.Kind == KindAbsent
}

// AsText returns the text of a text value.
func (v Value) AsText() (string, error) {
	if v.Kind != KindText {
		return "", fmt.Errorf("expected text, got %s", v.Kind)
	}
	return v.Text, nil
}

// AsBool returns the boolean of a bool value.
func (v Value) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, fmt.Errorf("expected bool, got %s", v.Kind)
	}
	return v.Bool, nil
}

// AsMapping returns the entries of a mapping value.
func (v Value) AsMapping() (map[string]Value, error) {
	if v.Kind != KindMapping {
		return nil, fmt.Errorf("expected mapping, got %s", v.Kind)
	}
	return v.Entries, nil
}

// Field returns an optional mapping entry. Keys are matched exactly first,
// then case-insensitively, so both {"url": ...} and struct field URL work.
func (v Value) Field(name string) (Value, bool) {
	if v.Kind != KindMapping {
		return Value{}, false
	}
	if f, ok := v.Entries[name]; ok {
		return f, true
	}
	for k, f := range v.Entries {
		if strings.EqualFold(k, name) {
			return f, true
		}
	}
	return Value{}, false
}
