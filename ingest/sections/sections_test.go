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

// These tests exercise the course archive ingester against small in-memory
// archives.

package sections

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusdata/insight/datasets"
	"github.com/campusdata/insight/insighttest"
)

// a well-formed course file with two sections, one of them the course's
// "overall" aggregate entry
const cpsc310 = `{"result":[
 {"id":1293,"Course":"310","Title":"intr sftwr eng","Professor":"holmes, reid","Subject":"cpsc","Avg":78.32,"Pass":81,"Fail":4,"Audit":0,"Year":"2015","Section":"101"},
 {"id":1294,"Course":"310","Title":"intr sftwr eng","Professor":"","Subject":"cpsc","Avg":79.04,"Pass":83,"Fail":2,"Audit":1,"Year":"2015","Section":"overall"}
]}`

// a course file whose year arrives as a JSON number and whose id arrives as
// a string (both spellings occur in the wild)
const math200 = `{"result":[
 {"id":"4501","Course":"200","Title":"calculus iii","Professor":"behrend, kai","Subject":"math","Avg":68.5,"Pass":200,"Fail":30,"Audit":2,"Year":2016,"Section":"201"}
]}`

// tests ingestion of a small well-formed archive
func TestIngest(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.SectionsArchive(map[string]string{
		"CPSC310": cpsc310,
		"MATH200": math200,
	})
	rows, err := Ingest(context.Background(), "courses", payload)
	assert.Nil(err)
	assert.Equal(3, len(rows))

	byUuid := make(map[string]datasets.Section)
	for _, row := range rows {
		byUuid[row.Uuid] = row
	}

	regular := byUuid["1293"]
	assert.Equal("310", regular.Id)
	assert.Equal("intr sftwr eng", regular.Title)
	assert.Equal("holmes, reid", regular.Instructor)
	assert.Equal("cpsc", regular.Dept)
	assert.Equal(2015, regular.Year)
	assert.Equal(78.32, regular.Avg)
	assert.Equal(81, regular.Pass)
	assert.Equal(4, regular.Fail)
	assert.Equal(0, regular.Audit)

	// the aggregate entry gets the sentinel year
	overall := byUuid["1294"]
	assert.Equal(datasets.OverallYear, overall.Year)

	// fields coerce from numbers or strings as needed
	coerced := byUuid["4501"]
	assert.Equal("200", coerced.Id)
	assert.Equal(2016, coerced.Year)
}

// tests that a payload that isn't base64 is rejected
func TestIngestRejectsBadBase64(t *testing.T) {
	assert := assert.New(t)

	_, err := Ingest(context.Background(), "courses", "this is not base64!!")
	assertInvalidContent(assert, err)
}

// tests that a base64 payload that isn't a zip archive is rejected
func TestIngestRejectsNonZip(t *testing.T) {
	assert := assert.New(t)

	_, err := Ingest(context.Background(), "courses", "aGVsbG8gd29ybGQ=")
	assertInvalidContent(assert, err)
}

// tests that an archive with entries outside courses/ is rejected
func TestIngestRejectsStrayTopLevelEntries(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.Archive(map[string]string{
		"courses/CPSC310": cpsc310,
		"README":          "hi there",
	})
	_, err := Ingest(context.Background(), "courses", payload)
	assertInvalidContent(assert, err)
}

// tests that an archive whose files live somewhere other than courses/ is
// rejected
func TestIngestRejectsMissingCoursesDir(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.Archive(map[string]string{
		"lectures/CPSC310": cpsc310,
	})
	_, err := Ingest(context.Background(), "courses", payload)
	assertInvalidContent(assert, err)
}

// tests that an archive with a courses/ directory but no files is rejected
func TestIngestRejectsEmptyCoursesDir(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.Archive(map[string]string{
		"courses/": "",
	})
	_, err := Ingest(context.Background(), "courses", payload)
	assertInvalidContent(assert, err)
}

// tests that a course file that isn't JSON fails the whole ingest
func TestIngestRejectsNonJSONCourseFile(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.SectionsArchive(map[string]string{
		"CPSC310": cpsc310,
		"BROKEN":  "<html>not json</html>",
	})
	_, err := Ingest(context.Background(), "courses", payload)
	assertInvalidContent(assert, err)
}

// tests that a course file without a "result" array fails the ingest
func TestIngestRejectsMissingResult(t *testing.T) {
	assert := assert.New(t)

	for _, body := range []string{
		`{"rows":[]}`,
		`{"result":null}`,
		`{"result":"all of them"}`,
	} {
		payload := insighttest.SectionsArchive(map[string]string{"CPSC310": body})
		_, err := Ingest(context.Background(), "courses", payload)
		assertInvalidContent(assert, err)
	}
}

// tests that a record with a missing or null required field fails the ingest
func TestIngestRejectsIncompleteRecord(t *testing.T) {
	assert := assert.New(t)

	missingAvg := `{"result":[
 {"id":1293,"Course":"310","Title":"intr sftwr eng","Professor":"holmes, reid","Subject":"cpsc","Pass":81,"Fail":4,"Audit":0,"Year":"2015","Section":"101"}
]}`
	nullTitle := `{"result":[
 {"id":1293,"Course":"310","Title":null,"Professor":"holmes, reid","Subject":"cpsc","Avg":78.32,"Pass":81,"Fail":4,"Audit":0,"Year":"2015","Section":"101"}
]}`
	for _, body := range []string{missingAvg, nullTitle} {
		payload := insighttest.SectionsArchive(map[string]string{"CPSC310": body})
		_, err := Ingest(context.Background(), "courses", payload)
		assertInvalidContent(assert, err)
	}
}

// tests that an archive whose course files hold no sections at all is
// rejected
func TestIngestRejectsZeroSections(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.SectionsArchive(map[string]string{
		"CPSC310": `{"result":[]}`,
		"MATH200": `{"result":[]}`,
	})
	_, err := Ingest(context.Background(), "courses", payload)
	assertInvalidContent(assert, err)
}

// tests that a many-file archive comes through the parallel parse intact
func TestIngestManyFiles(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.GeneratedSectionsArchive(2500)
	rows, err := Ingest(context.Background(), "big", payload)
	assert.Nil(err)
	assert.Equal(2500, len(rows))

	// every generated row should be distinct
	seen := make(map[string]bool)
	for _, row := range rows {
		assert.False(seen[row.Uuid])
		seen[row.Uuid] = true
	}
}

// tests that a cancelled context aborts the ingest
func TestIngestHonorsCancellation(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := insighttest.SectionsArchive(map[string]string{"CPSC310": cpsc310})
	_, err := Ingest(ctx, "courses", payload)
	assert.True(errors.Is(err, context.Canceled))
}

// checks that an error is a datasets.InvalidContentError
func assertInvalidContent(assert *assert.Assertions, err error) {
	assert.NotNil(err)
	var contentErr datasets.InvalidContentError
	assert.True(errors.As(err, &contentErr))
	assert.Equal("courses", contentErr.Id)
}

// This runs setup, runs all tests, and does breakdown.
func TestMain(m *testing.M) {
	var status int
	setup()
	status = m.Run()
	breakdown()
	os.Exit(status)
}

// this function gets called at the begіnning of a test session
func setup() {
	insighttest.EnableDebugLogging()
}

// this function gets called after all tests have been run
func breakdown() {
}
