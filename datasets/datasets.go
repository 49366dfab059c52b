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

// This package defines the row model shared by the rest of the service: the
// two row variants (Section and Room), the dataset kind enumeration, and the
// dataset container that binds an identifier to a homogeneous row collection.
package datasets

import (
	"strings"
)

// Kind identifies the row family a dataset holds. Its values double as the
// spelling used in URLs and in stored dataset documents.
type Kind string

const (
	Sections Kind = "sections"
	Rooms    Kind = "rooms"
)

// parses a kind from its string spelling
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Sections:
		return Sections, nil
	case Rooms:
		return Rooms, nil
	default:
		return "", InvalidKindError{Kind: s}
	}
}

// A Dataset is a named, immutable collection of rows of a single kind.
// Exactly one of the row slices is populated, as indicated by Kind.
type Dataset struct {
	// the user-supplied dataset identifier
	Id string
	// the row family held by this dataset
	Kind Kind
	// rows, populated iff Kind == Sections
	Sections []Section
	// rows, populated iff Kind == Rooms
	Rooms []Room
}

// creates a dataset holding section rows
func NewSections(id string, rows []Section) Dataset {
	return Dataset{Id: id, Kind: Sections, Sections: rows}
}

// creates a dataset holding room rows
func NewRooms(id string, rows []Room) Dataset {
	return Dataset{Id: id, Kind: Rooms, Rooms: rows}
}

// returns the number of rows in the dataset
func (d Dataset) NumRows() int {
	if d.Kind == Sections {
		return len(d.Sections)
	}
	return len(d.Rooms)
}

// Value returns the value of the named field on row i. The field must belong
// to the dataset's kind; query validation guarantees this before any access.
func (d Dataset) Value(i int, field string) any {
	if d.Kind == Sections {
		return d.Sections[i].Value(field)
	}
	return d.Rooms[i].Value(field)
}

// Info summarizes a stored dataset for listings.
type Info struct {
	Id      string `json:"id"`
	Kind    Kind   `json:"kind"`
	NumRows int    `json:"numRows"`
}

// ValidateId checks a user-supplied dataset identifier: it must be non-empty,
// not all whitespace, and free of underscores (underscores delimit fields in
// query keys). Every other character, including path separators, is legal.
func ValidateId(id string) error {
	if strings.TrimSpace(id) == "" || strings.Contains(id, "_") {
		return InvalidIdError{Id: id}
	}
	return nil
}
