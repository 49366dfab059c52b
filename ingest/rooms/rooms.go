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

// Package rooms turns zipped campus-site archives into room rows. An archive
// holds an index.htm page at its root whose building table links to one page
// per building; each building page lists that building's rooms.
package rooms

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/campusdata/insight/datasets"
)

// the number of geocoding requests kept in flight at once
const geocodeParallelism = 8

// CSS classes that mark the cells of the index page's building table and the
// building pages' room tables
const (
	titleClass     = "td.views-field.views-field-title"
	addressClass   = "td.views-field.views-field-field-building-address"
	numberClass    = ".views-field.views-field-field-room-number"
	capacityClass  = ".views-field.views-field-field-room-capacity"
	furnitureClass = ".views-field.views-field-field-room-furniture"
	roomTypeClass  = ".views-field.views-field-field-room-type"
)

// A Geocoder resolves a civic address to a latitude/longitude pair. It is
// satisfied by geocode.Client.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (float64, float64, error)
}

// a building row scraped from the index page
type building struct {
	fullname  string
	shortname string
	address   string
	href      string
	lat, lon  float64
}

// Ingest converts a base64-encoded zip archive of a campus site into room
// rows for the dataset with the given id. Buildings whose addresses the
// geocoder cannot resolve are dropped; an archive that yields zero rooms is
// a datasets.InvalidContentError.
func Ingest(ctx context.Context, id, payloadBase64 string, geocoder Geocoder) ([]datasets.Room, error) {
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

	index, err := documentInArchive(reader, "index.htm")
	if err != nil {
		return nil, datasets.InvalidContentError{
			Id:      id,
			Message: "archive has no readable index.htm at its root",
		}
	}
	buildings, err := parseIndex(id, index)
	if err != nil {
		return nil, err
	}

	located, err := geolocate(ctx, geocoder, buildings)
	if err != nil {
		return nil, err
	}

	// walk the building pages in parallel, accumulating rooms under a mutex
	var (
		mutex sync.Mutex
		rooms []datasets.Room
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())
	for _, bldg := range located {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			pageRooms := buildingRooms(reader, bldg)
			mutex.Lock()
			rooms = append(rooms, pageRooms...)
			mutex.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if len(rooms) == 0 {
		return nil, datasets.InvalidContentError{
			Id:      id,
			Message: "archive contains no rooms",
		}
	}
	return rooms, nil
}

// This helper opens the named archive entry and parses it as an HTML
// document.
func documentInArchive(reader *zip.Reader, name string) (*goquery.Document, error) {
	file, err := reader.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return goquery.NewDocumentFromReader(file)
}

// This helper scrapes the index page's building table: the first table whose
// body cells carry both the building-title and building-address class sets.
func parseIndex(id string, index *goquery.Document) ([]building, error) {
	var table *goquery.Selection
	index.Find("table").EachWithBreak(func(i int, t *goquery.Selection) bool {
		if t.Find(titleClass).Length() > 0 && t.Find(addressClass).Length() > 0 {
			table = t
			return false
		}
		return true
	})
	if table == nil {
		return nil, datasets.InvalidContentError{
			Id:      id,
			Message: "index.htm has no building table",
		}
	}

	buildings := make([]building, 0)
	table.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		link := tr.Find(titleClass).Find("a")
		fullname := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		address := strings.TrimSpace(tr.Find(addressClass).Text())
		if fullname == "" || href == "" || address == "" {
			return
		}

		// hrefs arrive as "./campus/.../DMP.htm"; root them to the archive
		// and take the building code from the page's file name
		href = strings.TrimPrefix(href, "./")
		shortname := strings.TrimSuffix(path.Base(href), ".htm")
		if shortname == "" {
			return
		}

		buildings = append(buildings, building{
			fullname:  fullname,
			shortname: shortname,
			address:   address,
			href:      href,
		})
	})
	return buildings, nil
}

// This helper geolocates the given buildings, dropping any whose address the
// geocoder cannot resolve.
func geolocate(ctx context.Context, geocoder Geocoder, buildings []building) ([]building, error) {
	var (
		mutex   sync.Mutex
		located []building
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(geocodeParallelism)
	for _, bldg := range buildings {
		group.Go(func() error {
			lat, lon, err := geocoder.Resolve(groupCtx, bldg.address)
			if err != nil {
				// an unresolvable address drops the building, not the ingest
				slog.Debug(fmt.Sprintf("Skipping building %s ('%s'): %s",
					bldg.shortname, bldg.address, err.Error()))
				return nil
			}
			bldg.lat, bldg.lon = lat, lon
			mutex.Lock()
			located = append(located, bldg)
			mutex.Unlock()
			return nil
		})
	}
	group.Wait() // the workers swallow geocoding errors
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return located, nil
}

// This helper scrapes one building's page for its rooms. A missing page or a
// page without a room table contributes zero rooms.
func buildingRooms(reader *zip.Reader, bldg building) []datasets.Room {
	page, err := documentInArchive(reader, bldg.href)
	if err != nil {
		slog.Debug(fmt.Sprintf("Building %s has no readable page at %s",
			bldg.shortname, bldg.href))
		return nil
	}

	// the room table is the first one whose header carries all four room
	// cell classes
	var table *goquery.Selection
	page.Find("table").EachWithBreak(func(i int, t *goquery.Selection) bool {
		header := t.Find("thead th")
		if header.Filter(numberClass).Length() > 0 &&
			header.Filter(capacityClass).Length() > 0 &&
			header.Filter(furnitureClass).Length() > 0 &&
			header.Filter(roomTypeClass).Length() > 0 {
			table = t
			return false
		}
		return true
	})
	if table == nil {
		return nil
	}

	rooms := make([]datasets.Room, 0)
	table.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		numberCell := tr.Find("td" + numberClass)
		capacityCell := tr.Find("td" + capacityClass)
		furnitureCell := tr.Find("td" + furnitureClass)
		typeCell := tr.Find("td" + roomTypeClass)
		if numberCell.Length() == 0 || capacityCell.Length() == 0 ||
			furnitureCell.Length() == 0 || typeCell.Length() == 0 {
			return
		}

		link := numberCell.Find("a")
		number := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if number == "" || href == "" {
			return
		}
		seats, err := strconv.Atoi(strings.TrimSpace(capacityCell.Text()))
		if err != nil {
			return
		}

		rooms = append(rooms, datasets.Room{
			Fullname:  bldg.fullname,
			Shortname: bldg.shortname,
			Number:    number,
			Name:      bldg.shortname + "_" + number,
			Address:   bldg.address,
			Lat:       bldg.lat,
			Lon:       bldg.lon,
			Seats:     seats,
			Type:      strings.TrimSpace(typeCell.Text()),
			Furniture: strings.TrimSpace(furnitureCell.Text()),
			Href:      href,
		})
	})
	return rooms
}
