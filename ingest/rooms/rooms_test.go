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

// These tests exercise the campus archive ingester against small in-memory
// archives with a stub geocoder.

package rooms

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusdata/insight/datasets"
	"github.com/campusdata/insight/insighttest"
)

// an index page with a navigation table (no building cells) followed by the
// building table
const indexPage = `<html><body>
<table>
 <tbody><tr><td class="menu-item">Campus</td></tr></tbody>
</table>
<table>
 <thead><tr>
  <th class="views-field views-field-title">Building</th>
  <th class="views-field views-field-field-building-address">Address</th>
 </tr></thead>
 <tbody>
  <tr>
   <td class="views-field views-field-title"><a href="./campus/discover/buildings-and-classrooms/DMP.htm">Hugh Dempster Pavilion</a></td>
   <td class="views-field views-field-field-building-address">6245 Agronomy Road V6T 1Z4</td>
  </tr>
  <tr>
   <td class="views-field views-field-title"><a href="./campus/discover/buildings-and-classrooms/ANGU.htm">Henry Angus</a></td>
   <td class="views-field views-field-field-building-address">2053 Main Mall</td>
  </tr>
  <tr>
   <td class="views-field views-field-title"><a href="./campus/discover/buildings-and-classrooms/WOOD.htm">Woodward</a></td>
   <td class="views-field views-field-field-building-address">2194 Health Sciences Mall</td>
  </tr>
 </tbody>
</table>
</body></html>`

// a building page with two good rooms, one room with an unparseable capacity,
// and one row without a furniture cell
const dmpPage = `<html><body>
<table>
 <thead><tr>
  <th class="views-field views-field-field-room-number">Room</th>
  <th class="views-field views-field-field-room-capacity">Capacity</th>
  <th class="views-field views-field-field-room-furniture">Furniture</th>
  <th class="views-field views-field-field-room-type">Type</th>
 </tr></thead>
 <tbody>
  <tr>
   <td class="views-field views-field-field-room-number"><a href="http://students.example.edu/room/DMP-110">110</a></td>
   <td class="views-field views-field-field-room-capacity">120</td>
   <td class="views-field views-field-field-room-furniture">Classroom-Fixed Tables &amp; Movable Chairs</td>
   <td class="views-field views-field-field-room-type">Tiered Large Group</td>
  </tr>
  <tr>
   <td class="views-field views-field-field-room-number"><a href="http://students.example.edu/room/DMP-201">201</a></td>
   <td class="views-field views-field-field-room-capacity">40</td>
   <td class="views-field views-field-field-room-furniture">Classroom-Movable Tables &amp; Chairs</td>
   <td class="views-field views-field-field-room-type">Small Group</td>
  </tr>
  <tr>
   <td class="views-field views-field-field-room-number"><a href="http://students.example.edu/room/DMP-301">301</a></td>
   <td class="views-field views-field-field-room-capacity">unknown</td>
   <td class="views-field views-field-field-room-furniture">Classroom-Movable Tables &amp; Chairs</td>
   <td class="views-field views-field-field-room-type">Small Group</td>
  </tr>
  <tr>
   <td class="views-field views-field-field-room-number"><a href="http://students.example.edu/room/DMP-310">310</a></td>
   <td class="views-field views-field-field-room-capacity">20</td>
   <td class="views-field views-field-field-room-type">Small Group</td>
  </tr>
 </tbody>
</table>
</body></html>`

// a building page without a room table
const angubPage = `<html><body><p>No rooms here.</p></body></html>`

// locations the stub geocoder knows (Woodward's address is deliberately
// absent, so the building drops out)
var knownLocations = map[string][2]float64{
	"6245 Agronomy Road V6T 1Z4": {49.26125, -123.24807},
	"2053 Main Mall":             {49.26486, -123.25364},
}

// the archive paths of the building pages above
const (
	dmpPath  = "campus/discover/buildings-and-classrooms/DMP.htm"
	anguPath = "campus/discover/buildings-and-classrooms/ANGU.htm"
)

func testGeocoder() insighttest.StubGeocoder {
	return insighttest.StubGeocoder{Locations: knownLocations}
}

// tests ingestion of a small well-formed campus archive
func TestIngest(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.RoomsArchive(indexPage, map[string]string{
		dmpPath:  dmpPage,
		anguPath: angubPage,
		// WOOD.htm is deliberately missing
	})
	rows, err := Ingest(context.Background(), "campus", payload, testGeocoder())
	assert.Nil(err)

	// DMP-301 (bad capacity) and DMP-310 (no furniture cell) are skipped;
	// ANGU has no room table; WOOD never geocodes
	assert.Equal(2, len(rows))

	byName := make(map[string]datasets.Room)
	for _, row := range rows {
		byName[row.Name] = row
	}

	room := byName["DMP_110"]
	assert.Equal("Hugh Dempster Pavilion", room.Fullname)
	assert.Equal("DMP", room.Shortname)
	assert.Equal("110", room.Number)
	assert.Equal("6245 Agronomy Road V6T 1Z4", room.Address)
	assert.Equal(49.26125, room.Lat)
	assert.Equal(-123.24807, room.Lon)
	assert.Equal(120, room.Seats)
	assert.Equal("Tiered Large Group", room.Type)
	// the HTML parser unescapes entities in cell text
	assert.Equal("Classroom-Fixed Tables & Movable Chairs", room.Furniture)
	assert.Equal("http://students.example.edu/room/DMP-110", room.Href)

	assert.Equal(40, byName["DMP_201"].Seats)
}

// tests that a payload that isn't base64 or isn't a zip archive is rejected
func TestIngestRejectsBadPayload(t *testing.T) {
	assert := assert.New(t)

	_, err := Ingest(context.Background(), "campus", "not base64!!", testGeocoder())
	assertInvalidContent(assert, err)

	_, err = Ingest(context.Background(), "campus", "aGVsbG8gd29ybGQ=", testGeocoder())
	assertInvalidContent(assert, err)
}

// tests that an archive without index.htm at its root is rejected
func TestIngestRejectsMissingIndex(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.Archive(map[string]string{
		"pages/index.htm": indexPage,
		dmpPath:           dmpPage,
	})
	_, err := Ingest(context.Background(), "campus", payload, testGeocoder())
	assertInvalidContent(assert, err)
}

// tests that an index page without a building table is rejected
func TestIngestRejectsMissingBuildingTable(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.RoomsArchive(
		`<html><body><table><tbody><tr><td>nothing</td></tr></tbody></table></body></html>`,
		map[string]string{dmpPath: dmpPage})
	_, err := Ingest(context.Background(), "campus", payload, testGeocoder())
	assertInvalidContent(assert, err)
}

// tests that an archive that yields no rooms at all is rejected, even when
// its layout is fine
func TestIngestRejectsZeroRooms(t *testing.T) {
	assert := assert.New(t)

	// every building either fails to geocode or has no room table
	payload := insighttest.RoomsArchive(indexPage, map[string]string{
		anguPath: angubPage,
	})
	geocoder := insighttest.StubGeocoder{Locations: map[string][2]float64{
		"2053 Main Mall": {49.26486, -123.25364},
	}}
	_, err := Ingest(context.Background(), "campus", payload, geocoder)
	assertInvalidContent(assert, err)
}

// tests that a building whose geocode fails is skipped without failing the
// ingest
func TestIngestSkipsUnresolvableBuildings(t *testing.T) {
	assert := assert.New(t)

	payload := insighttest.RoomsArchive(indexPage, map[string]string{
		dmpPath:  dmpPage,
		anguPath: dmpPage, // reuse the room table for ANGU
	})
	// only DMP's address resolves
	geocoder := insighttest.StubGeocoder{Locations: map[string][2]float64{
		"6245 Agronomy Road V6T 1Z4": {49.26125, -123.24807},
	}}
	rows, err := Ingest(context.Background(), "campus", payload, geocoder)
	assert.Nil(err)
	for _, row := range rows {
		assert.Equal("DMP", row.Shortname)
	}
}

// tests that a cancelled context aborts the ingest
func TestIngestHonorsCancellation(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := insighttest.RoomsArchive(indexPage, map[string]string{dmpPath: dmpPage})
	_, err := Ingest(ctx, "campus", payload, testGeocoder())
	assert.True(errors.Is(err, context.Canceled))
}

// checks that an error is a datasets.InvalidContentError
func assertInvalidContent(assert *assert.Assertions, err error) {
	assert.NotNil(err)
	var contentErr datasets.InvalidContentError
	assert.True(errors.As(err, &contentErr))
	assert.Equal("campus", contentErr.Id)
}

// This runs setup, runs all tests, and does breakdown.
func TestMain(m *testing.M) {
	var status int
	setup()
	status = m.Run()
	breakdown()
	os.Exit(status)
}

// this function gets called at the beginning of a test session
func setup() {
	insighttest.EnableDebugLogging()
}

// this function gets called after all tests have been run
func breakdown() {
}
