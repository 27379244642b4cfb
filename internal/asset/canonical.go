package asset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for content-address hashing.
// This is the ONLY serialization that may feed identity computation.
//
// Canonical form:
//  1. Object keys sorted by byte order
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings NFC normalized at the serialization boundary
//  4. Integral floats rendered without a fractional part (payloads decoded
//     from JSON carry float64 for every number; 300.0 and int 300 must hash
//     identically)
//  5. No insignificant whitespace
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return marshalCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		return marshalCanonicalFloat(buf, val)
	case float32:
		return marshalCanonicalFloat(buf, float64(val))
	case json.Number:
		buf.WriteString(val.String())
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		return marshalCanonicalObject(buf, val)
	case map[string]string:
		obj := make(map[string]any, len(val))
		for k, s := range val {
			obj[k] = s
		}
		return marshalCanonicalObject(buf, obj)
	default:
		// Typed values (structs, []string, typed maps) are lowered through
		// the standard decoder so only the shapes above remain.
		lowered, err := lower(v)
		if err != nil {
			return err
		}
		return marshalCanonical(buf, lowered)
	}
	return nil
}

// lower round-trips a value through encoding/json to reduce it to the
// untyped JSON shapes handled by marshalCanonical.
func lower(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical JSON: unsupported value %T: %w", v, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("canonical JSON: relower %T: %w", v, err)
	}
	return out, nil
}

func marshalCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := marshalCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func marshalCanonicalFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("canonical JSON: non-finite number %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		// Collapse integral floats to integers so JSON-decoded payloads
		// hash the same as natively-built ones.
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

// marshalCanonicalString writes a JSON string with NFC normalization and
// HTML escaping disabled.
func marshalCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var sb bytes.Buffer
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	result := sb.Bytes()
	// json.Encoder appends a trailing newline.
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	buf.Write(result)
	return nil
}
