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

package datasets

// Field tables for the query language. No field name appears in more than
// one of the numeric/string tables, so a field's scalar type can be decided
// before the dataset's kind is known; kind membership is checked separately
// when a query is bound to a loaded dataset.

// a mapping from numeric field names to the kind(s) that define them
var numericFields = map[string]Kind{
	"avg":   Sections,
	"pass":  Sections,
	"fail":  Sections,
	"audit": Sections,
	"year":  Sections,
	"lat":   Rooms,
	"lon":   Rooms,
	"seats": Rooms,
}

// a mapping from string field names to the kind(s) that define them
var stringFields = map[string]Kind{
	"dept":       Sections,
	"id":         Sections,
	"instructor": Sections,
	"title":      Sections,
	"uuid":       Sections,
	"fullname":   Rooms,
	"shortname":  Rooms,
	"number":     Rooms,
	"name":       Rooms,
	"address":    Rooms,
	"type":       Rooms,
	"furniture":  Rooms,
	"href":       Rooms,
}

// returns true if the named field holds numeric values on some kind
func IsNumericField(field string) bool {
	_, found := numericFields[field]
	return found
}

// returns true if the named field holds string values on some kind
func IsStringField(field string) bool {
	_, found := stringFields[field]
	return found
}

// returns true if the named field is defined at all
func IsField(field string) bool {
	return IsNumericField(field) || IsStringField(field)
}

// returns true if rows of the given kind define the named field
func KindHasField(kind Kind, field string) bool {
	if k, found := numericFields[field]; found {
		return k == kind
	}
	if k, found := stringFields[field]; found {
		return k == kind
	}
	return false
}
