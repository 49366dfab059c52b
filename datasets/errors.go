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

import (
	"fmt"
)

// This error type is returned when a dataset identifier is empty, all
// whitespace, or contains an underscore.
type InvalidIdError struct {
	Id string
}

func (e InvalidIdError) Error() string {
	return fmt.Sprintf("Invalid dataset id '%s': ids must be non-empty, not all whitespace, and free of underscores", e.Id)
}

// indicates that a kind string is neither "sections" nor "rooms"
type InvalidKindError struct {
	Kind string
}

func (e InvalidKindError) Error() string {
	return fmt.Sprintf("Invalid dataset kind '%s' (must be 'sections' or 'rooms')", e.Kind)
}

// This error type is returned when an archive cannot be turned into rows:
// malformed base64, a bad zip layout, unparseable entries, zero rows, or an
// attempt to add a dataset under an id that is already taken.
type InvalidContentError struct {
	Id      string
	Message string
}

func (e InvalidContentError) Error() string {
	return fmt.Sprintf("Invalid content for dataset '%s': %s", e.Id, e.Message)
}

// This error type is returned when a dataset is sought but not found.
type NotFoundError struct {
	Id string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("The dataset '%s' was not found", e.Id)
}
