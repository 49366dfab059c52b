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
	"fmt"
)

// This error type is returned for queries that don't conform to the query
// language: bad grammar, unknown fields, keys spanning more than one dataset,
// or a reference to a dataset that isn't stored.
type InvalidQueryError struct {
	Message string
}

func (e InvalidQueryError) Error() string {
	return fmt.Sprintf("Invalid query: %s", e.Message)
}

// This error type is returned when a well-formed query produces more rows
// than a result may carry.
type ResultTooLargeError struct {
	NumRows int
}

func (e ResultTooLargeError) Error() string {
	return fmt.Sprintf("The query produced %d rows (only %d are allowed)",
		e.NumRows, MaxResultRows)
}
