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

// Package query implements the analytical query language. A query is a JSON
// object
//
//	{
//	  "WHERE": <filter>,
//	  "OPTIONS": {"COLUMNS": [<key>...], "ORDER": <key> | {"dir": ..., "keys": [...]}},
//	  "TRANSFORMATIONS": {"GROUP": [<dataset key>...], "APPLY": [<apply rule>...]}
//	}
//
// whose keys reference the fields of exactly one stored dataset as
// <datasetId>_<field>. Parse checks a raw query against this grammar;
// Execute runs a parsed query against the loaded dataset it references.
package query

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/campusdata/insight/datasets"
)

// MaxResultRows is the largest number of rows a query may produce.
const MaxResultRows = 5000

// A Query is the executable form of a parsed query.
type Query struct {
	// the single dataset the query references
	DatasetId string

	// the row filter built from WHERE
	Where Filter
	// the projected column keys, in result order
	Columns []string
	// the sort specification (nil when ORDER is absent)
	Order *Order

	// true when the query carries TRANSFORMATIONS
	Transformations bool
	// the grouping keys (full dataset keys)
	Group []string
	// the aggregate columns declared in APPLY
	Apply []ApplyRule

	// every field referenced anywhere in the query, for kind binding
	fields []string
}

// An Order is a parsed ORDER clause: one or more column keys in priority
// order, ascending unless Descending is set.
type Order struct {
	Descending bool
	Keys       []string
}

// An ApplyRule declares one synthetic aggregate column.
type ApplyRule struct {
	// the apply key naming the column (a bare identifier without '_')
	Key string
	// one of MAX, MIN, AVG, SUM, COUNT
	Operation string
	// the aggregated row field
	Field string
}

// gathers the dataset ids and fields referenced by a query's keys
type keyCollector struct {
	ids    []string
	seen   map[string]struct{}
	fields []string
}

func newKeyCollector() *keyCollector {
	return &keyCollector{seen: make(map[string]struct{})}
}

func (k *keyCollector) add(id, field string) {
	if _, found := k.seen[id]; !found {
		k.seen[id] = struct{}{}
		k.ids = append(k.ids, id)
	}
	k.fields = append(k.fields, field)
}

// Parse checks a raw JSON query against the query-language grammar and
// returns its executable form. All grammar and cross-reference trouble is
// reported as an InvalidQueryError.
func Parse(raw []byte) (*Query, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, InvalidQueryError{Message: "a query must be a JSON object"}
	}
	for key := range root {
		switch key {
		case "WHERE", "OPTIONS", "TRANSFORMATIONS":
		default:
			return nil, InvalidQueryError{Message: fmt.Sprintf("unexpected key '%s'", key)}
		}
	}
	whereRaw, found := root["WHERE"]
	if !found {
		return nil, InvalidQueryError{Message: "missing WHERE"}
	}
	optionsRaw, found := root["OPTIONS"]
	if !found {
		return nil, InvalidQueryError{Message: "missing OPTIONS"}
	}

	q := new(Query)
	keys := newKeyCollector()

	var err error
	if q.Where, err = parseFilter(whereRaw, keys); err != nil {
		return nil, err
	}
	// TRANSFORMATIONS parses before OPTIONS so COLUMNS can be checked against
	// the grouped keys and declared apply keys
	if transformationsRaw, found := root["TRANSFORMATIONS"]; found {
		if err := q.parseTransformations(transformationsRaw, keys); err != nil {
			return nil, err
		}
	}
	if err := q.parseOptions(optionsRaw, keys); err != nil {
		return nil, err
	}

	// every key must name one and the same dataset
	switch len(keys.ids) {
	case 1:
		q.DatasetId = keys.ids[0]
	case 0:
		return nil, InvalidQueryError{Message: "the query references no dataset"}
	default:
		return nil, InvalidQueryError{Message: fmt.Sprintf("the query references %d datasets (%s)",
			len(keys.ids), strings.Join(keys.ids, ", "))}
	}
	q.fields = keys.fields
	return q, nil
}

// This helper parses and checks the OPTIONS clause.
func (q *Query) parseOptions(raw json.RawMessage, keys *keyCollector) error {
	var options map[string]json.RawMessage
	if err := json.Unmarshal(raw, &options); err != nil {
		return InvalidQueryError{Message: "OPTIONS must be an object"}
	}
	for key := range options {
		switch key {
		case "COLUMNS", "ORDER":
		default:
			return InvalidQueryError{Message: fmt.Sprintf("unexpected key '%s' in OPTIONS", key)}
		}
	}

	if err := json.Unmarshal(options["COLUMNS"], &q.Columns); err != nil || len(q.Columns) == 0 {
		return InvalidQueryError{Message: "COLUMNS must be a non-empty array of keys"}
	}
	for _, column := range q.Columns {
		if err := q.checkColumn(column, keys); err != nil {
			return err
		}
	}

	// every declared apply key must be projected
	for _, rule := range q.Apply {
		if !slices.Contains(q.Columns, rule.Key) {
			return InvalidQueryError{Message: fmt.Sprintf("apply key '%s' does not appear in COLUMNS", rule.Key)}
		}
	}

	if orderRaw, found := options["ORDER"]; found {
		return q.parseOrder(orderRaw)
	}
	return nil
}

// This helper checks one COLUMNS entry: it must be a dataset key with a
// known field or an apply key declared in TRANSFORMATIONS, and under
// TRANSFORMATIONS every projected dataset key must also be grouped on.
func (q *Query) checkColumn(column string, keys *keyCollector) error {
	if !strings.Contains(column, "_") {
		// apply keys are the only keys without an id prefix
		if !q.Transformations || q.applyRule(column) == nil {
			return InvalidQueryError{Message: fmt.Sprintf("'%s' is not a dataset key or a declared apply key", column)}
		}
		return nil
	}
	id, field, err := splitDatasetKey(column)
	if err != nil {
		return err
	}
	if q.Transformations && !slices.Contains(q.Group, column) {
		return InvalidQueryError{Message: fmt.Sprintf("column '%s' does not appear in GROUP", column)}
	}
	keys.add(id, field)
	return nil
}

// This helper parses the ORDER clause, which is either a single column key
// (ascending) or an object {"dir": "UP"|"DOWN", "keys": [column...]}.
func (q *Query) parseOrder(raw json.RawMessage) error {
	var key string
	if err := json.Unmarshal(raw, &key); err == nil {
		if !slices.Contains(q.Columns, key) {
			return InvalidQueryError{Message: fmt.Sprintf("ORDER key '%s' is not in COLUMNS", key)}
		}
		q.Order = &Order{Keys: []string{key}}
		return nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return InvalidQueryError{Message: "ORDER must be a column key or a {dir, keys} object"}
	}
	for key := range object {
		switch key {
		case "dir", "keys":
		default:
			return InvalidQueryError{Message: fmt.Sprintf("unexpected key '%s' in ORDER", key)}
		}
	}

	var dir string
	if err := json.Unmarshal(object["dir"], &dir); err != nil || (dir != "UP" && dir != "DOWN") {
		return InvalidQueryError{Message: "ORDER dir must be 'UP' or 'DOWN'"}
	}
	var orderKeys []string
	if err := json.Unmarshal(object["keys"], &orderKeys); err != nil || len(orderKeys) == 0 {
		return InvalidQueryError{Message: "ORDER keys must be a non-empty array of columns"}
	}
	for _, key := range orderKeys {
		if !slices.Contains(q.Columns, key) {
			return InvalidQueryError{Message: fmt.Sprintf("ORDER key '%s' is not in COLUMNS", key)}
		}
	}
	q.Order = &Order{Descending: dir == "DOWN", Keys: orderKeys}
	return nil
}

// This helper parses and checks the TRANSFORMATIONS clause.
func (q *Query) parseTransformations(raw json.RawMessage, keys *keyCollector) error {
	q.Transformations = true

	var transformations map[string]json.RawMessage
	if err := json.Unmarshal(raw, &transformations); err != nil {
		return InvalidQueryError{Message: "TRANSFORMATIONS must be an object"}
	}
	for key := range transformations {
		switch key {
		case "GROUP", "APPLY":
		default:
			return InvalidQueryError{Message: fmt.Sprintf("unexpected key '%s' in TRANSFORMATIONS", key)}
		}
	}

	if err := json.Unmarshal(transformations["GROUP"], &q.Group); err != nil || len(q.Group) == 0 {
		return InvalidQueryError{Message: "GROUP must be a non-empty array of dataset keys"}
	}
	for _, key := range q.Group {
		id, field, err := splitDatasetKey(key)
		if err != nil {
			return err
		}
		keys.add(id, field)
	}

	var rules []map[string]map[string]string
	if err := json.Unmarshal(transformations["APPLY"], &rules); err != nil || rules == nil {
		return InvalidQueryError{Message: "APPLY must be an array of apply rules"}
	}
	for _, rule := range rules {
		if len(rule) != 1 {
			return InvalidQueryError{Message: "each apply rule must declare exactly one apply key"}
		}
		for applyKey, body := range rule {
			if err := q.parseApplyRule(applyKey, body, keys); err != nil {
				return err
			}
		}
	}
	return nil
}

// This helper checks a single apply rule {<applyKey>: {<OP>: <dataset key>}}.
func (q *Query) parseApplyRule(applyKey string, body map[string]string, keys *keyCollector) error {
	if applyKey == "" || strings.Contains(applyKey, "_") {
		return InvalidQueryError{Message: fmt.Sprintf("'%s' is not a legal apply key", applyKey)}
	}
	if q.applyRule(applyKey) != nil {
		return InvalidQueryError{Message: fmt.Sprintf("duplicate apply key '%s'", applyKey)}
	}
	if len(body) != 1 {
		return InvalidQueryError{Message: fmt.Sprintf("apply key '%s' must declare exactly one operation", applyKey)}
	}
	for op, key := range body {
		id, field, err := splitDatasetKey(key)
		if err != nil {
			return err
		}
		switch op {
		case "MAX", "MIN", "AVG", "SUM":
			if !datasets.IsNumericField(field) {
				return InvalidQueryError{Message: fmt.Sprintf("%s requires a numeric field, not '%s'", op, field)}
			}
		case "COUNT":
			// COUNT takes numeric and string fields alike
		default:
			return InvalidQueryError{Message: fmt.Sprintf("unknown apply operation '%s'", op)}
		}
		keys.add(id, field)
		q.Apply = append(q.Apply, ApplyRule{Key: applyKey, Operation: op, Field: field})
	}
	return nil
}

// applyRule returns the APPLY rule owning the given key, or nil.
func (q *Query) applyRule(key string) *ApplyRule {
	for i := range q.Apply {
		if q.Apply[i].Key == key {
			return &q.Apply[i]
		}
	}
	return nil
}

// bind checks the query's fields against the kind of the dataset it is about
// to run over. Parsing accepts any known field; only here, with the stored
// kind in hand, can section fields be told apart from room fields.
func (q *Query) bind(kind datasets.Kind) error {
	for _, field := range q.fields {
		if !datasets.KindHasField(kind, field) {
			return InvalidQueryError{Message: fmt.Sprintf("field '%s' does not belong to a dataset of kind '%s'",
				field, kind)}
		}
	}
	return nil
}

// splitDatasetKey breaks a dataset key into its id and field parts, checking
// the field against the union of section and room fields.
func splitDatasetKey(key string) (string, string, error) {
	id, field, found := strings.Cut(key, "_")
	if !found || id == "" {
		return "", "", InvalidQueryError{Message: fmt.Sprintf("'%s' is not a dataset key", key)}
	}
	if !datasets.IsField(field) {
		return "", "", InvalidQueryError{Message: fmt.Sprintf("unknown field in key '%s'", key)}
	}
	return id, field, nil
}

// fieldOf extracts the field part of an already-validated dataset key.
func fieldOf(key string) string {
	_, field, _ := strings.Cut(key, "_")
	return field
}
