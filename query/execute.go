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
	"cmp"
	"slices"

	"github.com/campusdata/insight/datasets"
)

// A Row is one result record: a mapping from each projected column name to
// its scalar value.
type Row map[string]any

// Execute runs the query against the dataset it references. The pipeline is
// filter, then the optional group/aggregate transform, then the result-size
// check, then projection and ordering.
func (q *Query) Execute(d datasets.Dataset) ([]Row, error) {
	if err := q.bind(d.Kind); err != nil {
		return nil, err
	}

	matched := make([]int, 0)
	for i := 0; i < d.NumRows(); i++ {
		if q.Where.Matches(d, i) {
			matched = append(matched, i)
		}
	}

	var rows []Row
	if q.Transformations {
		groups := groupRows(d, matched, q.groupFields())
		if len(groups) > MaxResultRows {
			return nil, ResultTooLargeError{NumRows: len(groups)}
		}
		rows = q.projectGroups(d, groups)
	} else {
		if len(matched) > MaxResultRows {
			return nil, ResultTooLargeError{NumRows: len(matched)}
		}
		rows = q.projectRows(d, matched)
	}

	if q.Order != nil {
		sortRows(rows, q.Order)
	}
	return rows, nil
}

// the fields named by the GROUP keys, in GROUP order
func (q *Query) groupFields() []string {
	fields := make([]string, len(q.Group))
	for i, key := range q.Group {
		fields[i] = fieldOf(key)
	}
	return fields
}

// projectRows maps each matched row to its projected record.
func (q *Query) projectRows(d datasets.Dataset, matched []int) []Row {
	rows := make([]Row, len(matched))
	for i, at := range matched {
		row := make(Row, len(q.Columns))
		for _, column := range q.Columns {
			row[column] = d.Value(at, fieldOf(column))
		}
		rows[i] = row
	}
	return rows
}

// projectGroups produces one record per group: the projected GROUP field
// values (shared by every row of the group) plus one aggregate per projected
// apply key.
func (q *Query) projectGroups(d datasets.Dataset, groups []group) []Row {
	rows := make([]Row, len(groups))
	for i, g := range groups {
		row := make(Row, len(q.Columns))
		for _, column := range q.Columns {
			if rule := q.applyRule(column); rule != nil {
				row[column] = aggregate(d, g.rows, *rule)
			} else {
				row[column] = d.Value(g.rows[0], fieldOf(column))
			}
		}
		rows[i] = row
	}
	return rows
}

// sortRows orders result records by the ORDER keys in priority order. The
// sort is stable, so records equal on every key keep their relative input
// order.
func sortRows(rows []Row, order *Order) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		for _, key := range order.Keys {
			c := compareValues(a[key], b[key])
			if order.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// compareValues orders two values of one column: strings lexicographically,
// numbers by value.
func compareValues(a, b any) int {
	if s, ok := a.(string); ok {
		t, _ := b.(string)
		return cmp.Compare(s, t)
	}
	return cmp.Compare(numeric(a), numeric(b))
}
