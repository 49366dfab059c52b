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

// Package sections turns zipped course archives into section rows. An archive
// holds a single top-level courses/ directory whose files each contain one
// JSON object with a "result" array listing the sections of one course.
package sections

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/campusdata/insight/datasets"
)

// a single course file: one JSON object whose "result" array holds the
// sections taught for that course (a nil pointer distinguishes a missing or
// null array from an empty one)
type courseFile struct {
	Result *[]sectionRecord `json:"result"`
}

// one element of a course file's "result" array (fields arrive as numbers or
// strings depending on the source year, so they are coerced after decoding)
type sectionRecord struct {
	Id        any `json:"id"`
	Course    any `json:"Course"`
	Title     any `json:"Title"`
	Professor any `json:"Professor"`
	Subject   any `json:"Subject"`
	Avg       any `json:"Avg"`
	Pass      any `json:"Pass"`
	Fail      any `json:"Fail"`
	Audit     any `json:"Audit"`
	Year      any `json:"Year"`
	Section   any `json:"Section"`
}

// Ingest converts a base64-encoded zip archive of course files into section
// rows for the dataset with the given id. Malformed payloads, bad archive
// layouts, unparseable course files, and archives that produce zero rows all
// yield a datasets.InvalidContentError.
func Ingest(ctx context.Context, id, payloadBase64 string) ([]datasets.Section, error) {
	payload, err := base64.StdEncoding.DecodeString(payloadBase64)
	if err != nil {
		return nil, datasets.InvalidContentError{
			Id:      id,
			Message: fmt.Sprintf("payload is not valid base64: %s", err),
		}
	}
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, datasets.InvalidContentError{
			Id:      id,
			Message: fmt.Sprintf("payload is not a zip archive: %s", err),
		}
	}

	courseFiles, err := courseFilesInArchive(id, reader)
	if err != nil {
		return nil, err
	}

	// parse course files in parallel, accumulating rows under a mutex
	var (
		mutex    sync.Mutex
		sections []datasets.Section
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())
	for _, file := range courseFiles {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			rows, err := parseCourseFile(id, file)
			if err != nil {
				return err
			}
			mutex.Lock()
			sections = append(sections, rows...)
			mutex.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if len(sections) == 0 {
		return nil, datasets.InvalidContentError{
			Id:      id,
			Message: "archive contains no sections",
		}
	}
	return sections, nil
}

// This helper checks the archive layout and gathers the course files: every
// entry must sit beneath a single top-level courses/ directory, and at least
// one file must be present.
func courseFilesInArchive(id string, reader *zip.Reader) ([]*zip.File, error) {
	var files []*zip.File
	for _, file := range reader.File {
		// zip entry names use forward slashes on every platform
		if !strings.HasPrefix(file.Name, "courses/") {
			return nil, datasets.InvalidContentError{
				Id: id,
				Message: fmt.Sprintf("unexpected top-level entry '%s' (expected a single courses/ directory)",
					file.Name),
			}
		}
		if file.FileInfo().IsDir() {
			continue
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil, datasets.InvalidContentError{
			Id:      id,
			Message: "archive contains no course files",
		}
	}
	return files, nil
}

// This helper parses a single course file into section rows.
func parseCourseFile(id string, file *zip.File) ([]datasets.Section, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file.Name, err)
	}

	var course courseFile
	if err := json.Unmarshal(data, &course); err != nil {
		return nil, datasets.InvalidContentError{
			Id:      id,
			Message: fmt.Sprintf("%s is not a JSON course file: %s", file.Name, err),
		}
	}
	if course.Result == nil {
		return nil, datasets.InvalidContentError{
			Id:      id,
			Message: fmt.Sprintf("%s has no 'result' array", file.Name),
		}
	}

	sections := make([]datasets.Section, 0, len(*course.Result))
	for _, record := range *course.Result {
		section, err := record.toSection(id, file.Name)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// This helper converts a raw record to a Section, coercing fields that arrive
// as either numbers or strings. Any required field that is missing, null, or
// uncoercible fails the ingest.
func (r sectionRecord) toSection(id, filename string) (datasets.Section, error) {
	var section datasets.Section
	var ok bool

	bad := func(field string) error {
		return datasets.InvalidContentError{
			Id:      id,
			Message: fmt.Sprintf("%s: section record is missing required field '%s'", filename, field),
		}
	}

	if section.Uuid, ok = asString(r.Id); !ok {
		return section, bad("id")
	}
	if section.Id, ok = asString(r.Course); !ok {
		return section, bad("Course")
	}
	if section.Title, ok = asString(r.Title); !ok {
		return section, bad("Title")
	}
	if section.Instructor, ok = asString(r.Professor); !ok {
		return section, bad("Professor")
	}
	if section.Dept, ok = asString(r.Subject); !ok {
		return section, bad("Subject")
	}
	if section.Avg, ok = asFloat(r.Avg); !ok {
		return section, bad("Avg")
	}
	if section.Pass, ok = asInt(r.Pass); !ok {
		return section, bad("Pass")
	}
	if section.Fail, ok = asInt(r.Fail); !ok {
		return section, bad("Fail")
	}
	if section.Audit, ok = asInt(r.Audit); !ok {
		return section, bad("Audit")
	}
	if section.Year, ok = asInt(r.Year); !ok {
		return section, bad("Year")
	}

	// a course's aggregate entry carries the sentinel year
	if sec, ok := asString(r.Section); ok && sec == "overall" {
		section.Year = datasets.OverallYear
	}
	return section, nil
}

// coerces a decoded JSON value (string or number) to a string
func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

// coerces a decoded JSON value (number or numeric string) to a float
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// coerces a decoded JSON value (number or numeric string) to an int
func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}
