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

// These tests exercise query parsing and validation. Execution over datasets
// is covered in execute_test.go.

package query

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// asserts that parsing the given query reports an InvalidQueryError
func assertInvalidQuery(assert *assert.Assertions, raw string) {
	_, err := Parse([]byte(raw))
	assert.NotNil(err)
	var invalid InvalidQueryError
	assert.True(errors.As(err, &invalid), "expected InvalidQueryError, got %v", err)
}

// tests parsing of a representative well-formed query
func TestParse(t *testing.T) {
	assert := assert.New(t)

	q, err := Parse([]byte(`{
		"WHERE": {"GT": {"sections_avg": 97}},
		"OPTIONS": {
			"COLUMNS": ["sections_dept", "sections_avg"],
			"ORDER": "sections_avg"
		}
	}`))
	assert.Nil(err)
	assert.Equal("sections", q.DatasetId)
	assert.Equal([]string{"sections_dept", "sections_avg"}, q.Columns)
	assert.NotNil(q.Order)
	assert.False(q.Order.Descending)
	assert.Equal([]string{"sections_avg"}, q.Order.Keys)
	assert.False(q.Transformations)
}

// tests parsing of a query with TRANSFORMATIONS and a multi-key ORDER
func TestParseTransformations(t *testing.T) {
	assert := assert.New(t)

	q, err := Parse([]byte(`{
		"WHERE": {"IS": {"rooms_furniture": "*Tables*"}},
		"OPTIONS": {
			"COLUMNS": ["rooms_shortname", "maxSeats"],
			"ORDER": {"dir": "DOWN", "keys": ["maxSeats", "rooms_shortname"]}
		},
		"TRANSFORMATIONS": {
			"GROUP": ["rooms_shortname"],
			"APPLY": [{"maxSeats": {"MAX": "rooms_seats"}}]
		}
	}`))
	assert.Nil(err)
	assert.Equal("rooms", q.DatasetId)
	assert.True(q.Transformations)
	assert.Equal([]string{"rooms_shortname"}, q.Group)
	assert.Equal([]ApplyRule{{Key: "maxSeats", Operation: "MAX", Field: "seats"}}, q.Apply)
	assert.True(q.Order.Descending)
	assert.Equal([]string{"maxSeats", "rooms_shortname"}, q.Order.Keys)
}

// tests rejection of structurally broken queries
func TestParseRejectsBadShapes(t *testing.T) {
	assert := assert.New(t)

	// not an object / missing required clauses / unknown clauses
	assertInvalidQuery(assert, `[1, 2, 3]`)
	assertInvalidQuery(assert, `{"OPTIONS": {"COLUMNS": ["sections_avg"]}}`)
	assertInvalidQuery(assert, `{"WHERE": {}}`)
	assertInvalidQuery(assert, `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["sections_avg"]}, "EXTRA": 1}`)

	// COLUMNS must be a non-empty array of known keys
	assertInvalidQuery(assert, `{"WHERE": {}, "OPTIONS": {"COLUMNS": []}}`)
	assertInvalidQuery(assert, `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["sections_bogus"]}}`)
	assertInvalidQuery(assert, `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["avg"]}}`)
}

// tests rejection of broken WHERE trees
func TestParseRejectsBadFilters(t *testing.T) {
	assert := assert.New(t)

	options := `"OPTIONS": {"COLUMNS": ["sections_avg"]}`

	// AND and OR demand non-empty arrays of non-empty filters
	assertInvalidQuery(assert, fmt.Sprintf(`{"WHERE": {"AND": []}, %s}`, options))
	assertInvalidQuery(assert, fmt.Sprintf(`{"WHERE": {"OR": []}, %s}`, options))
	assertInvalidQuery(assert, fmt.Sprintf(`{"WHERE": {"AND": [{}]}, %s}`, options))

	// a filter node has exactly one operator
	assertInvalidQuery(assert, fmt.Sprintf(
		`{"WHERE": {"GT": {"sections_avg": 90}, "LT": {"sections_avg": 95}}, %s}`, options))
	assertInvalidQuery(assert, fmt.Sprintf(`{"WHERE": {"XOR": [{}]}, %s}`, options))

	// comparisons demand numeric fields and numeric literals
	assertInvalidQuery(assert, fmt.Sprintf(`{"WHERE": {"GT": {"sections_dept": 90}}, %s}`, options))
	assertInvalidQuery(assert, fmt.Sprintf(`{"WHERE": {"GT": {"sections_avg": "90"}}, %s}`, options))
	assertInvalidQuery(assert, fmt.Sprintf(`{"WHERE": {"EQ": {"sections_avg": 90, "sections_pass": 1}}, %s}`, options))

	// IS demands string fields, string patterns, and end-anchored wildcards
	assertInvalidQuery(assert, fmt.Sprintf(`{"WHERE": {"IS": {"sections_avg": "90"}}, %s}`, options))
	assertInvalidQuery(assert, fmt.Sprintf(`{"WHERE": {"IS": {"sections_dept": 90}}, %s}`, options))
	assertInvalidQuery(assert, fmt.Sprintf(`{"WHERE": {"IS": {"sections_dept": "cp*sc"}}, %s}`, options))
}

// tests that the query must reference exactly one dataset
func TestParseRejectsMultipleDatasets(t *testing.T) {
	assert := assert.New(t)

	assertInvalidQuery(assert, `{
		"WHERE": {"GT": {"sections_avg": 97}},
		"OPTIONS": {"COLUMNS": ["other_dept"]}
	}`)
}

// tests rejection of broken ORDER clauses
func TestParseRejectsBadOrder(t *testing.T) {
	assert := assert.New(t)

	where := `"WHERE": {}`
	assertInvalidQuery(assert, fmt.Sprintf(
		`{%s, "OPTIONS": {"COLUMNS": ["sections_avg"], "ORDER": "sections_dept"}}`, where))
	assertInvalidQuery(assert, fmt.Sprintf(
		`{%s, "OPTIONS": {"COLUMNS": ["sections_avg"], "ORDER": {"dir": "SIDEWAYS", "keys": ["sections_avg"]}}}`, where))
	assertInvalidQuery(assert, fmt.Sprintf(
		`{%s, "OPTIONS": {"COLUMNS": ["sections_avg"], "ORDER": {"dir": "UP", "keys": []}}}`, where))
	assertInvalidQuery(assert, fmt.Sprintf(
		`{%s, "OPTIONS": {"COLUMNS": ["sections_avg"], "ORDER": {"dir": "UP", "keys": ["sections_dept"]}}}`, where))
	assertInvalidQuery(assert, fmt.Sprintf(
		`{%s, "OPTIONS": {"COLUMNS": ["sections_avg"], "ORDER": {"dir": "UP", "keys": ["sections_avg"], "extra": 1}}}`, where))
}

// tests rejection of broken TRANSFORMATIONS clauses
func TestParseRejectsBadTransformations(t *testing.T) {
	assert := assert.New(t)

	where := `"WHERE": {}`

	// GROUP must be a non-empty array of dataset keys
	assertInvalidQuery(assert, fmt.Sprintf(`{%s,
		"OPTIONS": {"COLUMNS": ["sections_dept"]},
		"TRANSFORMATIONS": {"GROUP": [], "APPLY": []}}`, where))
	assertInvalidQuery(assert, fmt.Sprintf(`{%s,
		"OPTIONS": {"COLUMNS": ["sections_dept"]},
		"TRANSFORMATIONS": {"GROUP": ["overallAvg"], "APPLY": []}}`, where))

	// every projected dataset key must be grouped on
	assertInvalidQuery(assert, fmt.Sprintf(`{%s,
		"OPTIONS": {"COLUMNS": ["sections_dept", "sections_avg"]},
		"TRANSFORMATIONS": {"GROUP": ["sections_dept"], "APPLY": []}}`, where))

	// every declared apply key must be projected, and apply keys are unique
	assertInvalidQuery(assert, fmt.Sprintf(`{%s,
		"OPTIONS": {"COLUMNS": ["sections_dept"]},
		"TRANSFORMATIONS": {"GROUP": ["sections_dept"],
			"APPLY": [{"overallAvg": {"AVG": "sections_avg"}}]}}`, where))
	assertInvalidQuery(assert, fmt.Sprintf(`{%s,
		"OPTIONS": {"COLUMNS": ["sections_dept", "x"]},
		"TRANSFORMATIONS": {"GROUP": ["sections_dept"],
			"APPLY": [{"x": {"AVG": "sections_avg"}}, {"x": {"MAX": "sections_avg"}}]}}`, where))

	// apply keys carry no underscore; operations come from the closed set;
	// numeric aggregates demand numeric fields
	assertInvalidQuery(assert, fmt.Sprintf(`{%s,
		"OPTIONS": {"COLUMNS": ["sections_dept", "over_all"]},
		"TRANSFORMATIONS": {"GROUP": ["sections_dept"],
			"APPLY": [{"over_all": {"AVG": "sections_avg"}}]}}`, where))
	assertInvalidQuery(assert, fmt.Sprintf(`{%s,
		"OPTIONS": {"COLUMNS": ["sections_dept", "x"]},
		"TRANSFORMATIONS": {"GROUP": ["sections_dept"],
			"APPLY": [{"x": {"MEDIAN": "sections_avg"}}]}}`, where))
	assertInvalidQuery(assert, fmt.Sprintf(`{%s,
		"OPTIONS": {"COLUMNS": ["sections_dept", "x"]},
		"TRANSFORMATIONS": {"GROUP": ["sections_dept"],
			"APPLY": [{"x": {"SUM": "sections_title"}}]}}`, where))
}

// tests that COUNT, alone among the aggregates, accepts string fields
func TestParseCountAcceptsStringFields(t *testing.T) {
	assert := assert.New(t)

	q, err := Parse([]byte(`{
		"WHERE": {},
		"OPTIONS": {"COLUMNS": ["sections_dept", "numTitles"]},
		"TRANSFORMATIONS": {
			"GROUP": ["sections_dept"],
			"APPLY": [{"numTitles": {"COUNT": "sections_title"}}]
		}
	}`))
	assert.Nil(err)
	assert.Equal([]ApplyRule{{Key: "numTitles", Operation: "COUNT", Field: "title"}}, q.Apply)
}

// tests the IS wildcard matcher directly
func TestMatchPattern(t *testing.T) {
	assert := assert.New(t)

	assert.True(matchPattern("cpsc", "cpsc"))
	assert.False(matchPattern("cpsc", "cpsca"))
	assert.True(matchPattern("cp*", "cpsc"))
	assert.False(matchPattern("cp*", "math"))
	assert.True(matchPattern("*sc", "cpsc"))
	assert.True(matchPattern("*ps*", "cpsc"))
	assert.True(matchPattern("*", ""))
	assert.True(matchPattern("*", "anything"))
	assert.True(matchPattern("**", "anything"))
	assert.False(matchPattern("", "nonempty"))
}
