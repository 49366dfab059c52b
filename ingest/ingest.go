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

// Package ingest routes dataset payloads to the ingester for their declared
// kind.
package ingest

import (
	"context"

	"github.com/campusdata/insight/datasets"
	"github.com/campusdata/insight/ingest/rooms"
	"github.com/campusdata/insight/ingest/sections"
)

// Rows converts a base64-encoded zip archive into a dataset of the declared
// kind. The geocoder is consulted only for room archives.
func Rows(ctx context.Context, id string, kind datasets.Kind,
	payloadBase64 string, geocoder rooms.Geocoder) (datasets.Dataset, error) {
	switch kind {
	case datasets.Sections:
		rows, err := sections.Ingest(ctx, id, payloadBase64)
		if err != nil {
			return datasets.Dataset{}, err
		}
		return datasets.NewSections(id, rows), nil
	case datasets.Rooms:
		rows, err := rooms.Ingest(ctx, id, payloadBase64, geocoder)
		if err != nil {
			return datasets.Dataset{}, err
		}
		return datasets.NewRooms(id, rows), nil
	}
	return datasets.Dataset{}, datasets.InvalidKindError{Kind: string(kind)}
}
