// CLAUDE:SUMMARY Raw survey cells (string, number, bool or absent) and column-ordered rows with order-preserving JSON decoding.
package survey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type of a cell.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	}
	return "absent"
}

// Value is one spreadsheet cell. The zero Value is absent.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
}

func StringValue(s string) Value  { return Value{kind: KindString, s: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Number returns the numeric payload when the cell holds a number.
func (v Value) Number() (float64, bool) { return v.n, v.kind == KindNumber }

// Bool returns the boolean payload when the cell holds a bool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// String renders the cell as text; absent cells render as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// Text is String trimmed of surrounding whitespace.
func (v Value) Text() string { return strings.TrimSpace(v.String()) }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		return json.Marshal(v.n)
	case KindBool:
		return json.Marshal(v.b)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := decodeValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func decodeValue(raw []byte) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Value{}, nil
	}
	switch raw[0] {
	case 'n':
		return Value{}, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case '{', '[':
		return Value{}, &ValidationError{Row: -1, Reason: "nested values are not supported"}
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return Value{}, err
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("number %s: %w", n, err)
	}
	return NumberValue(f), nil
}

// Row maps column names to cells and remembers insertion order, which the
// stimulus block scan depends on.
type Row struct {
	cols []string
	vals map[string]Value
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{vals: make(map[string]Value)}
}

// RowOf builds a row from alternating column/value pairs.
func RowOf(pairs ...any) *Row {
	r := NewRow()
	for i := 0; i+1 < len(pairs); i += 2 {
		col, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case Value:
			r.Set(col, v)
		case string:
			r.Set(col, StringValue(v))
		case float64:
			r.Set(col, NumberValue(v))
		case int:
			r.Set(col, NumberValue(float64(v)))
		case bool:
			r.Set(col, BoolValue(v))
		default:
			r.Set(col, Value{})
		}
	}
	return r
}

// Set stores v under col. A new column is appended; an existing one keeps its
// position.
func (r *Row) Set(col string, v Value) {
	if r.vals == nil {
		r.vals = make(map[string]Value)
	}
	if _, ok := r.vals[col]; !ok {
		r.cols = append(r.cols, col)
	}
	r.vals[col] = v
}

// Get returns the cell stored under the exact column name.
func (r *Row) Get(col string) (Value, bool) {
	v, ok := r.vals[col]
	return v, ok
}

// Text returns the trimmed text of the exact column, or "".
func (r *Row) Text(col string) string {
	return r.vals[col].Text()
}

// Columns returns the column names in insertion order.
func (r *Row) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

func (r *Row) Len() int { return len(r.cols) }

func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := r.vals[col].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the key order of the document.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return &ValidationError{Row: -1, Reason: "row is not an object"}
	}

	r.cols = nil
	r.vals = make(map[string]Value)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}
		v, err := decodeValue(raw)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Column = key
				return ve
			}
			return fmt.Errorf("column %q: %w", key, err)
		}
		r.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
