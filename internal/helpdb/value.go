package helpdb

import (
	"fmt"
	"sort"
)

// Table maps help keys to values.
type Table map[string]Value

// Value is either help text or a nested table. The zero Value is empty text.
type Value struct {
	text  string
	table Table
}

// Text returns a Value holding help text.
func Text(s string) Value {
	return Value{text: s}
}

// Nested returns a Value holding a table. A nil table is stored as an empty one
// so the value still reports IsTable.
func Nested(t Table) Value {
	if t == nil {
		t = Table{}
	}
	return Value{table: t}
}

// IsTable reports whether v holds a nested table.
func (v Value) IsTable() bool {
	return v.table != nil
}

// Text returns the help text and true, or "" and false when v is a table.
func (v Value) Text() (string, bool) {
	if v.IsTable() {
		return "", false
	}
	return v.text, true
}

// Table returns the nested table and true, or nil and false when v is text.
// The returned table is shared with v.
func (v Value) Table() (Table, bool) {
	if !v.IsTable() {
		return nil, false
	}
	return v.table, true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	if !v.IsTable() {
		return v
	}
	return Value{table: v.table.Clone()}
}

// String renders the value for logs and test failures.
func (v Value) String() string {
	if v.IsTable() {
		return fmt.Sprintf("table(%d)", len(v.table))
	}
	return fmt.Sprintf("%q", v.text)
}

// Clone returns a deep copy of t. A nil table clones to an empty one.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v.Clone()
	}
	return out
}

// Keys returns the keys of t in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromAny converts decoded JSON or YAML data into a Table. Strings become text,
// maps become nested tables. Numbers and booleans are formatted as text since
// help files commonly carry bare values. Lists and nulls are rejected.
func FromAny(data map[string]any) (Table, error) {
	out := make(Table, len(data))
	for k, raw := range data {
		v, err := valueFromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func valueFromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return Text(v), nil
	case bool, int, int64, uint64, float64:
		return Text(fmt.Sprint(v)), nil
	case map[string]any:
		t, err := FromAny(v)
		if err != nil {
			return Value{}, err
		}
		return Nested(t), nil
	case map[any]any:
		conv := make(map[string]any, len(v))
		for k, inner := range v {
			ks, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("non-string key %v", k)
			}
			conv[ks] = inner
		}
		return valueFromAny(conv)
	case nil:
		return Value{}, fmt.Errorf("null values are not allowed")
	default:
		return Value{}, fmt.Errorf("unsupported value of type %T", raw)
	}
}

// ToAny converts t into plain maps and strings, suitable for JSON encoding.
func (t Table) ToAny() map[string]any {
	out := make(map[string]any, len(t))
	for k, v := range t {
		if sub, ok := v.Table(); ok {
			out[k] = sub.ToAny()
			continue
		}
		out[k] = v.text
	}
	return out
}
