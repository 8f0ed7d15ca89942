package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

type filterOp int

const (
	opAll filterOp = iota
	opEq
	opContains
	opIn
	opAnd
)

// Filter selects documents by top level fields.
type Filter struct {
	op       filterOp
	field    string
	value    any
	values   []string
	children []Filter
}

// All matches every document.
func All() Filter { return Filter{op: opAll} }

// Eq matches documents whose field equals value.
func Eq(field string, value any) Filter {
	return Filter{op: opEq, field: field, value: value}
}

// Contains matches string fields containing fragment, ignoring case.
func Contains(field, fragment string) Filter {
	return Filter{op: opContains, field: field, value: fragment}
}

// In matches documents whose field, rendered as text, is one of values.
// An empty list matches nothing.
func In(field string, values ...string) Filter {
	return Filter{op: opIn, field: field, values: values}
}

// And matches documents satisfying every filter.
func And(filters ...Filter) Filter {
	return Filter{op: opAnd, children: filters}
}

func (f Filter) String() string {
	switch f.op {
	case opEq:
		return fmt.Sprintf("%s = %v", f.field, f.value)
	case opContains:
		return fmt.Sprintf("%s ~ %v", f.field, f.value)
	case opIn:
		return fmt.Sprintf("%s in %v", f.field, f.values)
	case opAnd:
		parts := make([]string, len(f.children))
		for i, c := range f.children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " and ") + ")"
	default:
		return "*"
	}
}

// match evaluates f against a decoded document.
func (f Filter) match(doc map[string]any) (bool, error) {
	switch f.op {
	case opAll:
		return true, nil
	case opEq:
		want, err := normalize(f.value)
		if err != nil {
			return false, err
		}
		got, ok := doc[f.field]
		return ok && reflect.DeepEqual(got, want), nil
	case opContains:
		s, ok := doc[f.field].(string)
		if !ok {
			return false, nil
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(fmt.Sprint(f.value))), nil
	case opIn:
		got, ok := textValue(doc[f.field])
		if !ok {
			return false, nil
		}
		for _, v := range f.values {
			if v == got {
				return true, nil
			}
		}
		return false, nil
	case opAnd:
		for _, c := range f.children {
			ok, err := c.match(doc)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown filter op %d", f.op)
	}
}

// normalize converts v to the shape encoding/json produces when decoding
// into any, so it can be compared with stored fields.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode filter value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode filter value: %w", err)
	}
	return out, nil
}

// textValue mirrors the ->> operator: strings as is, other scalars as JSON.
func textValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
