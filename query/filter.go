// Copyright (c) 2024 The Campus Insight Project and its Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campusdata/insight/datasets"
)

// A Filter is one node of a WHERE tree. Matching is total: every row of a
// bound dataset evaluates to true or false.
type Filter interface {
	// reports whether row i of the dataset satisfies the filter
	Matches(d datasets.Dataset, i int) bool
}

// matches every row (the empty WHERE)
type matchAll struct{}

func (matchAll) Matches(datasets.Dataset, int) bool { return true }

// logical conjunction of one or more filters
type andFilter struct {
	children []Filter
}

func (f andFilter) Matches(d datasets.Dataset, i int) bool {
	for _, child := range f.children {
		if !child.Matches(d, i) {
			return false
		}
	}
	return true
}

// logical disjunction of one or more filters
type orFilter struct {
	children []Filter
}

func (f orFilter) Matches(d datasets.Dataset, i int) bool {
	for _, child := range f.children {
		if child.Matches(d, i) {
			return true
		}
	}
	return false
}

// logical negation of one filter
type notFilter struct {
	child Filter
}

func (f notFilter) Matches(d datasets.Dataset, i int) bool {
	return !f.child.Matches(d, i)
}

// strict numeric comparison of a field against a literal
type comparison struct {
	op    string // GT, LT, or EQ
	field string
	value float64
}

func (f comparison) Matches(d datasets.Dataset, i int) bool {
	value := numeric(d.Value(i, f.field))
	switch f.op {
	case "GT":
		return value > f.value
	case "LT":
		return value < f.value
	}
	return value == f.value
}

// wildcard string match of a field against a pattern
type isFilter struct {
	field   string
	pattern string
}

func (f isFilter) Matches(d datasets.Dataset, i int) bool {
	value, _ := d.Value(i, f.field).(string)
	return matchPattern(f.pattern, value)
}

// matchPattern applies an IS pattern: a leading or trailing '*' (or both)
// matches any run of characters, including none.
func matchPattern(pattern, value string) bool {
	leading := strings.HasPrefix(pattern, "*")
	body := strings.TrimPrefix(pattern, "*")
	trailing := strings.HasSuffix(body, "*")
	body = strings.TrimSuffix(body, "*")
	switch {
	case leading && trailing:
		return strings.Contains(value, body)
	case leading:
		return strings.HasSuffix(value, body)
	case trailing:
		return strings.HasPrefix(value, body)
	}
	return value == body
}

// numeric row fields hold ints or floats; comparisons see them as floats
func numeric(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// parseFilter builds a Filter from a WHERE node, recording the dataset keys
// it references.
func parseFilter(raw json.RawMessage, keys *keyCollector) (Filter, error) {
	var node map[string]json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, InvalidQueryError{Message: "WHERE and its sub-filters must be objects"}
	}
	if len(node) == 0 {
		return matchAll{}, nil
	}
	if len(node) > 1 {
		return nil, InvalidQueryError{Message: "a filter must have exactly one key"}
	}

	var op string
	var body json.RawMessage
	for op, body = range node {
	}

	switch op {
	case "AND", "OR":
		children, err := parseFilterList(op, body, keys)
		if err != nil {
			return nil, err
		}
		if op == "AND" {
			return andFilter{children: children}, nil
		}
		return orFilter{children: children}, nil
	case "NOT":
		child, err := parseFilter(body, keys)
		if err != nil {
			return nil, err
		}
		return notFilter{child: child}, nil
	case "GT", "LT", "EQ":
		return parseComparison(op, body, keys)
	case "IS":
		return parseIs(body, keys)
	}
	return nil, InvalidQueryError{Message: fmt.Sprintf("unknown filter '%s'", op)}
}

// This helper parses the children of an AND or OR node; the list and every
// child must be non-empty.
func parseFilterList(op string, raw json.RawMessage, keys *keyCollector) ([]Filter, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil || len(elements) == 0 {
		return nil, InvalidQueryError{Message: fmt.Sprintf("%s requires a non-empty array of filters", op)}
	}
	children := make([]Filter, 0, len(elements))
	for _, element := range elements {
		child, err := parseFilter(element, keys)
		if err != nil {
			return nil, err
		}
		if _, empty := child.(matchAll); empty {
			return nil, InvalidQueryError{Message: fmt.Sprintf("%s elements must be non-empty filters", op)}
		}
		children = append(children, child)
	}
	return children, nil
}

// This helper parses the body of a GT, LT, or EQ node: one numeric dataset
// key mapped to one numeric literal.
func parseComparison(op string, raw json.RawMessage, keys *keyCollector) (Filter, error) {
	key, valueRaw, err := singleEntry(op, raw)
	if err != nil {
		return nil, err
	}
	id, field, err := splitDatasetKey(key)
	if err != nil {
		return nil, err
	}
	if !datasets.IsNumericField(field) {
		return nil, InvalidQueryError{Message: fmt.Sprintf("%s requires a numeric field, not '%s'", op, field)}
	}
	var value float64
	if err := json.Unmarshal(valueRaw, &value); err != nil {
		return nil, InvalidQueryError{Message: fmt.Sprintf("%s requires a numeric literal for key '%s'", op, key)}
	}
	keys.add(id, field)
	return comparison{op: op, field: field, value: value}, nil
}

// This helper parses the body of an IS node: one string dataset key mapped
// to one pattern, with wildcards allowed only at the pattern's ends.
func parseIs(raw json.RawMessage, keys *keyCollector) (Filter, error) {
	key, valueRaw, err := singleEntry("IS", raw)
	if err != nil {
		return nil, err
	}
	id, field, err := splitDatasetKey(key)
	if err != nil {
		return nil, err
	}
	if !datasets.IsStringField(field) {
		return nil, InvalidQueryError{Message: fmt.Sprintf("IS requires a string field, not '%s'", field)}
	}
	var pattern string
	if err := json.Unmarshal(valueRaw, &pattern); err != nil {
		return nil, InvalidQueryError{Message: fmt.Sprintf("IS requires a string pattern for key '%s'", key)}
	}
	body := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")
	if strings.Contains(body, "*") {
		return nil, InvalidQueryError{Message: fmt.Sprintf("'%s' has a wildcard in the middle (only leading and trailing '*' are allowed)", pattern)}
	}
	keys.add(id, field)
	return isFilter{field: field, pattern: pattern}, nil
}

// This helper unpacks a filter body that must hold exactly one key.
func singleEntry(op string, raw json.RawMessage) (string, json.RawMessage, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil || len(body) != 1 {
		return "", nil, InvalidQueryError{Message: fmt.Sprintf("%s requires an object with exactly one key", op)}
	}
	for key, value := range body {
		return key, value, nil
	}
	return "", nil, nil // unreachable: len(body) == 1
}
