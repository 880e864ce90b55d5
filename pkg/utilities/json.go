// Package utilities holds the tolerant JSON readers used at the edge of every
// exchange client. Exchange payloads mix field spellings and encode numbers
// either as JSON numbers or as strings; these helpers accept all of them.
package utilities

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fastjson"
)

// String returns the first non-empty value among keys. Numbers and booleans
// come back in their JSON text form so large ids keep every digit.
func String(v *fastjson.Value, keys ...string) string {
	if v == nil {
		return ""
	}
	for _, k := range keys {
		if s := AsString(v.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

// AsString renders a scalar value as text
func AsString(f *fastjson.Value) string {
	if f == nil {
		return ""
	}
	switch f.Type() {
	case fastjson.TypeString:
		return string(f.GetStringBytes())
	case fastjson.TypeNumber:
		return string(f.MarshalTo(nil))
	case fastjson.TypeTrue:
		return "true"
	case fastjson.TypeFalse:
		return "false"
	}
	return ""
}

// Float returns the first numeric value among keys, accepting numeric strings
func Float(v *fastjson.Value, keys ...string) float64 {
	if v == nil {
		return 0
	}
	for _, k := range keys {
		if f, ok := AsFloat(v.Get(k)); ok {
			return f
		}
	}
	return 0
}

// AsFloat reads a number or numeric string
func AsFloat(f *fastjson.Value) (float64, bool) {
	if f == nil {
		return 0, false
	}
	switch f.Type() {
	case fastjson.TypeNumber:
		n, err := f.Float64()
		return n, err == nil
	case fastjson.TypeString:
		n, err := ParseFloat(string(f.GetStringBytes()))
		return n, err == nil
	}
	return 0, false
}

// Int is Float truncated to an integer
func Int(v *fastjson.Value, keys ...string) int64 {
	return int64(Float(v, keys...))
}

// Bool accepts JSON booleans and the strings "true"/"false"
func Bool(v *fastjson.Value, keys ...string) bool {
	if v == nil {
		return false
	}
	for _, k := range keys {
		f := v.Get(k)
		if f == nil {
			continue
		}
		switch f.Type() {
		case fastjson.TypeTrue:
			return true
		case fastjson.TypeFalse:
			return false
		case fastjson.TypeString:
			if b, err := strconv.ParseBool(string(f.GetStringBytes())); err == nil {
				return b
			}
		}
	}
	return false
}

// Items returns the elements of a top-level array, or of the first array
// found under one of the envelope keys.
func Items(v *fastjson.Value, envelopeKeys ...string) []*fastjson.Value {
	if v == nil {
		return nil
	}
	if v.Type() == fastjson.TypeArray {
		return v.GetArray()
	}
	for _, k := range envelopeKeys {
		if f := v.Get(k); f != nil && f.Type() == fastjson.TypeArray {
			return f.GetArray()
		}
	}
	return nil
}

// StringList reads a string array that may itself be stringified JSON,
// e.g. "[\"Yes\", \"No\"]".
func StringList(v *fastjson.Value, key string) []string {
	if v == nil {
		return nil
	}
	f := v.Get(key)
	if f == nil {
		return nil
	}
	if f.Type() == fastjson.TypeString {
		raw := strings.TrimSpace(string(f.GetStringBytes()))
		if raw == "" {
			return nil
		}
		inner, err := fastjson.Parse(raw)
		if err != nil {
			return []string{raw}
		}
		f = inner
	}
	if f.Type() != fastjson.TypeArray {
		return nil
	}
	out := make([]string, 0, len(f.GetArray()))
	for _, item := range f.GetArray() {
		out = append(out, AsString(item))
	}
	return out
}

// FloatList is StringList for numeric arrays
func FloatList(v *fastjson.Value, key string) []float64 {
	strs := StringList(v, key)
	if strs == nil {
		return nil
	}
	out := make([]float64, 0, len(strs))
	for _, s := range strs {
		n, _ := strconv.ParseFloat(s, 64)
		out = append(out, n)
	}
	return out
}

// Time reads unix seconds, unix milliseconds or an RFC 3339 string
func Time(v *fastjson.Value, keys ...string) time.Time {
	s := String(v, keys...)
	if s == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC()
		}
		return time.Unix(n, 0).UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ParseFloat safely parses a string to float64
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	return strconv.ParseFloat(s, 64)
}
