package coercion

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// bounds is a numeric field rule: default when absent or unparseable, clamp otherwise.
type bounds struct {
	def, min, max float64
}

func (b bounds) clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return b.def
	}
	return math.Max(b.min, math.Min(b.max, v))
}

// enumSpec is an enumerated field rule. Aliases map loose model wording onto members.
type enumSpec struct {
	def     string
	members []string
	aliases map[string]string
}

func (e enumSpec) resolve(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, m := range e.members {
		if v == m {
			return m
		}
	}
	if alias, ok := e.aliases[v]; ok {
		return alias
	}
	return e.def
}

// record reads one nested mapping with explicit defaults. Missing or
// mistyped leaves never fail.
type record map[string]any

func asRecord(v any) (record, bool) {
	m, ok := v.(map[string]any)
	return record(m), ok
}

func describeType(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// sub returns the nested mapping under the first present key, or an empty record.
func (r record) sub(keys ...string) record {
	for _, key := range keys {
		if m, ok := asRecord(r[key]); ok {
			return m
		}
	}
	return record{}
}

// present reports whether any key holds a mapping.
func (r record) present(keys ...string) bool {
	for _, key := range keys {
		if _, ok := asRecord(r[key]); ok {
			return true
		}
	}
	return false
}

func (r record) str(key, def string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return def
	}
	if _, isMap := v.(map[string]any); isMap {
		return def
	}
	if _, isList := v.([]any); isList {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func (r record) num(key string, rule bounds) float64 {
	v, ok := toFloat(r[key])
	if !ok {
		return rule.def
	}
	return rule.clamp(v)
}

func (r record) integer(key string, rule bounds) int {
	return int(math.Round(r.num(key, rule)))
}

func (r record) enum(key string, rule enumSpec) string {
	return rule.resolve(r.str(key, rule.def))
}

func (r record) boolean(key string, def bool) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return def
	}
	if s, isString := v.(string); isString {
		v = strings.ToLower(strings.TrimSpace(s))
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// strs reads a list of strings. A bare string becomes a one-element list;
// blanks are dropped; the result is never nil.
func (r record) strs(key string) []string {
	out := []string{}
	switch v := r[key].(type) {
	case []any:
		for _, item := range v {
			if _, isMap := item.(map[string]any); isMap {
				continue
			}
			s, err := cast.ToStringE(item)
			if err != nil {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// records reads a list of mappings, skipping anything else.
func (r record) records(key string) []record {
	list, _ := r[key].([]any)
	out := make([]record, 0, len(list))
	for _, item := range list {
		if m, ok := asRecord(item); ok {
			out = append(out, m)
		}
	}
	return out
}

// toFloat accepts numbers and coercible strings such as " 85 ", "0.7" or "85%".
func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if s == "" {
			return 0, false
		}
		v = strings.TrimSpace(s)
	}
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}
