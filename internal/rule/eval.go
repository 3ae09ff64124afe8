package rule

import (
	"fmt"
	"strconv"
	"strings"
)

// Lookup resolves a dotted path against a record. The flattened key is tried
// first, then the path is walked segment by segment through nested maps. A
// missing segment or nil along the path yields nil.
func Lookup(data map[string]interface{}, path string) interface{} {
	if data == nil {
		return nil
	}
	if v, ok := data[path]; ok {
		return v
	}
	var current interface{} = data
	for _, seg := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[seg]
		if !ok || current == nil {
			return nil
		}
	}
	return current
}

// Flatten collapses a nested record into a single level with dot-joined keys.
// Non-map values are copied as-is.
func Flatten(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	flattenInto(out, "", data)
	return out
}

func flattenInto(out map[string]interface{}, prefix string, data map[string]interface{}) {
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flattenInto(out, key, nested)
			continue
		}
		out[key] = v
	}
}

// toNumber coerces a dynamic value to float64. Numeric strings count.
func toNumber(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// toString stringifies a dynamic value for string comparisons.
func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// looseEquals reproduces coercive equality: if both sides coerce to numbers
// they compare numerically, otherwise as strings.
func looseEquals(a, b interface{}) bool {
	na, aok := toNumber(a)
	nb, bok := toNumber(b)
	if aok && bok {
		return na == nb
	}
	return toString(a) == toString(b)
}

// Eval evaluates a single condition against a record. A condition over a
// missing or uncoercible value is false, never an error.
func (e Expression) Eval(data map[string]interface{}) bool {
	resolved := Lookup(data, e.Field)
	if resolved == nil {
		return false
	}

	if e.DataType == TypeNumber {
		actual, ok := toNumber(resolved)
		if !ok {
			return false
		}
		expected, ok := toNumber(e.Value)
		if !ok {
			return false
		}
		switch e.Op {
		case OpGT:
			return actual > expected
		case OpGTE:
			return actual >= expected
		case OpLT:
			return actual < expected
		case OpLTE:
			return actual <= expected
		case OpEQ:
			return looseEquals(resolved, e.Value)
		case OpNEQ:
			return !looseEquals(resolved, e.Value)
		}
		return false
	}

	actual := toString(resolved)
	expected := toString(e.Value)
	switch e.Op {
	case OpGT:
		return actual > expected
	case OpGTE:
		return actual >= expected
	case OpLT:
		return actual < expected
	case OpLTE:
		return actual <= expected
	case OpEQ:
		return looseEquals(resolved, e.Value)
	case OpNEQ:
		return !looseEquals(resolved, e.Value)
	}
	return false
}

// Eval evaluates the rule against a record, folding conditions strictly left
// to right. A rule with no conditions is false.
func (r *Rule) Eval(data map[string]interface{}) bool {
	if r == nil || len(r.Expressions) == 0 {
		return false
	}
	result := r.Expressions[0].Eval(data)
	for i := 1; i < len(r.Expressions); i++ {
		next := r.Expressions[i].Eval(data)
		if r.Operators[i-1] == LogicOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}

// Score computes the weighted signal strength of a rule set: the weight sum
// of rules that evaluate true over the total weight, 0 when the total is 0.
func Score(rules []*Rule, data map[string]interface{}) float64 {
	var total, hit float64
	for _, r := range rules {
		if r == nil {
			continue
		}
		total += r.Weight
		if r.Eval(data) {
			hit += r.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return hit / total
}
