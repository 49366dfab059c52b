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

// This package contains testing utilities for the campus insight service.
package insighttest

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/campusdata/insight/geocode"
)

// Enables DEBUG log messages for the service's structured log (slog).
func EnableDebugLogging() {
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelDebug)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
}

//------------------
// Archive Builders
//------------------

// Archive builds an in-memory zip archive from a map of entry names to file
// bodies and returns it base64-encoded, the form in which dataset payloads
// travel. Entries are written in sorted order so archives are reproducible.
func Archive(entries map[string]string) string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for _, name := range names {
		w, err := writer.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			panic(err)
		}
	}
	if err := writer.Close(); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(buffer.Bytes())
}

// SectionsArchive builds a course archive: each entry becomes a file named
// courses/<key> holding the given body.
func SectionsArchive(courseFiles map[string]string) string {
	entries := make(map[string]string, len(courseFiles))
	for name, body := range courseFiles {
		entries["courses/"+name] = body
	}
	return Archive(entries)
}

// RoomsArchive builds a campus archive with the given index.htm body at the
// root plus building pages keyed by archive path.
func RoomsArchive(index string, pages map[string]string) string {
	entries := make(map[string]string, len(pages)+1)
	entries["index.htm"] = index
	for name, body := range pages {
		entries[name] = body
	}
	return Archive(entries)
}

// CourseFile renders a JSON course file whose "result" array holds the given
// records.
func CourseFile(records ...string) string {
	return fmt.Sprintf(`{"result":[%s]}`, strings.Join(records, ","))
}

// GeneratedSectionsArchive builds a course archive holding the given number
// of synthetic sections, split over files of at most 1000 records each, for
// tests that need datasets of a particular size.
func GeneratedSectionsArchive(numRows int) string {
	const recordsPerFile = 1000
	files := make(map[string]string)
	records := make([]string, 0, recordsPerFile)
	fileIndex := 0
	for i := 0; i < numRows; i++ {
		records = append(records, fmt.Sprintf(
			`{"id":%d,"Course":"%03d","Title":"generated %d",`+
				`"Professor":"generated, prof","Subject":"gen","Avg":%g,`+
				`"Pass":%d,"Fail":%d,"Audit":0,"Year":"%d","Section":"%03d"}`,
			i, i%500, i, 50.0+float64(i%50), 10+i%90, i%10, 1900+i%120, i%9))
		if len(records) == recordsPerFile || i == numRows-1 {
			files[fmt.Sprintf("GEN%d", fileIndex)] = CourseFile(records...)
			fileIndex++
			records = records[:0]
		}
	}
	return SectionsArchive(files)
}

//--------------------
// Geocoder Fixtures
//--------------------

// StubGeocoder is a rooms.Geocoder test fixture that resolves addresses from
// a fixed table and reports an AddressError for the rest.
type StubGeocoder struct {
	Locations map[string][2]float64
}

func (g StubGeocoder) Resolve(ctx context.Context, address string) (float64, float64, error) {
	if loc, found := g.Locations[address]; found {
		return loc[0], loc[1], nil
	}
	return 0, 0, geocode.AddressError{Address: address, Message: "address not found"}
}

// GeocoderServer runs a stub geocoding service that resolves the given
// addresses and reports {"error": ...} for the rest. The caller owns the
// returned server and must Close it.
func GeocoderServer(locations map[string][2]float64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if loc, found := locations[address]; found {
			fmt.Fprintf(w, `{"lat":%g,"lon":%g}`, loc[0], loc[1])
		} else {
			fmt.Fprint(w, `{"error":"address not found"}`)
		}
	}))
}
