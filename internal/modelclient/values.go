package modelclient

import (
	"strconv"
	"strings"
)

// String reads key as a string. Numbers are formatted without exponent;
// null, missing and the literal "null" yield "".
func String(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		s := strings.TrimSpace(v)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Float reads key as a number. Numeric strings are accepted.
func Float(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(v, "$")), 64)
		return f, err == nil
	}
	return 0, false
}

// Object reads key as a nested object.
func Object(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

// Objects reads key as an array of objects, skipping other element types.
func Objects(m map[string]any, key string) []map[string]any {
	arr, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if o, ok := el.(map[string]any); ok {
			out = append(out, o)
		}
	}
	return out
}

// Strings reads key as a list of strings. A single "A,B" string is split on
// commas and spaces.
func Strings(m map[string]any, key string) []string {
	var out []string
	switch v := m[key].(type) {
	case []any:
		for _, el := range v {
			if s, ok := el.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, f)
		}
	}
	return out
}
