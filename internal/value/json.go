package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

var ErrTrailingData = errors.New("invalid json: multiple json values")

// Indent renders v as JSON with two-space indentation. It never fails:
// non-finite numbers render as null, like JSON.stringify does.
func Indent(v any) string {
	var b strings.Builder
	write(&b, v, "  ", 0)
	return b.String()
}

// Compact renders v as single-line JSON.
func Compact(v any) string {
	var b strings.Builder
	write(&b, v, "", 0)
	return b.String()
}

func write(b *strings.Builder, v any, indent string, depth int) {
	newline := func(d int) {
		if indent == "" {
			return
		}
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(indent, d))
	}
	colon := ":"
	if indent != "" {
		colon = ": "
	}

	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case float64:
		writeNumber(b, t)
	case int:
		writeNumber(b, float64(t))
	case int64:
		writeNumber(b, float64(t))
	case string:
		writeString(b, t)
	case []any:
		if len(t) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(depth + 1)
			write(b, e, indent, depth+1)
		}
		newline(depth)
		b.WriteByte(']')
	case *Object:
		if t.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(depth + 1)
			writeString(b, k)
			b.WriteString(colon)
			write(b, t.fields[k], indent, depth+1)
		}
		newline(depth)
		b.WriteByte('}')
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			b.WriteString("null")
			return
		}
		b.Write(raw)
	}
}

func writeNumber(b *strings.Builder, f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		b.WriteString("null")
		return
	}
	raw, _ := json.Marshal(f)
	b.Write(raw)
}

func writeString(b *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	b.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Parse decodes a single JSON document into a value tree, keeping object key
// order as written.
func Parse(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return v, nil
}

func decode(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("invalid json: object key %v", kt)
				}
				v, err := decode(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decode(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("invalid json: unexpected %v", t)
		}
	case json.Number:
		return t.Float64()
	default:
		// string, bool or nil
		return t, nil
	}
}

// FromGo converts the output of encoding/json or yaml decoding (maps with
// string keys) into a value tree. Map keys are sorted since their order is
// already lost.
func FromGo(v any) any {
	switch t := v.(type) {
	case map[string]any:
		obj := NewObject()
		for _, k := range sortedKeys(t) {
			obj.Set(k, FromGo(t[k]))
		}
		return obj
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = FromGo(e)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
