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

// Package catalog is the facade over ingestion, persistence, and the query
// engine. It owns the dataset lifecycle: an id goes from absent to present
// through a successful add, stays immutable while present, and returns to
// absent through a remove. Mutations on one id are serialized; queries take
// a shared guard so a dataset can't be removed out from under them.
package catalog

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/frictionlessdata/datapackage-go/datapackage"
	"github.com/frictionlessdata/datapackage-go/validator"
	"github.com/google/uuid"

	"github.com/campusdata/insight/config"
	"github.com/campusdata/insight/datasets"
	"github.com/campusdata/insight/geocode"
	"github.com/campusdata/insight/ingest"
	"github.com/campusdata/insight/ingest/rooms"
	"github.com/campusdata/insight/journal"
	"github.com/campusdata/insight/query"
	"github.com/campusdata/insight/store"
)

// A Catalog carries out the four dataset operations against a single store.
type Catalog struct {
	// the persistent dataset store
	store *store.Store
	// the geocoder consulted by room ingestion
	geocoder rooms.Geocoder

	// per-id guards, created on first use (see guard below)
	mutex  sync.Mutex
	guards map[string]*sync.RWMutex
}

// creates a catalog wired up from the service configuration
func New() *Catalog {
	return &Catalog{
		store:    store.New(config.Store.Directory),
		geocoder: geocode.New(),
		guards:   make(map[string]*sync.RWMutex),
	}
}

// guard returns the guard serializing operations on the given dataset id.
func (c *Catalog) guard(id string) *sync.RWMutex {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	g, found := c.guards[id]
	if !found {
		g = new(sync.RWMutex)
		c.guards[id] = g
	}
	return g
}

// AddDataset ingests a base64-encoded archive of the declared kind and stores
// it under the given id, returning the sorted list of all stored dataset ids.
// Adding an id that is already present fails with InvalidContentError, as
// does any trouble with the archive itself; a failed add leaves the store
// unchanged.
func (c *Catalog) AddDataset(ctx context.Context, id, payloadBase64 string,
	kind datasets.Kind) ([]string, error) {
	if err := datasets.ValidateId(id); err != nil {
		return nil, err
	}
	start := time.Now()

	g := c.guard(id)
	g.Lock()
	defer g.Unlock()

	if c.store.Exists(id) {
		return nil, datasets.InvalidContentError{Id: id,
			Message: "a dataset with this id is already stored"}
	}
	if size := int64(base64.StdEncoding.DecodedLen(len(payloadBase64))); size > config.Archives.MaxSize {
		return nil, datasets.InvalidContentError{Id: id,
			Message: fmt.Sprintf("archive exceeds the %s size limit",
				humanize.Bytes(uint64(config.Archives.MaxSize)))}
	}

	dataset, err := ingest.Rows(ctx, id, kind, payloadBase64, c.geocoder)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(dataset); err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("Added dataset '%s' (%d %s rows)", id,
		dataset.NumRows(), kind))
	c.recordActivity("add", dataset, time.Since(start))

	ids, err := c.store.ListIds()
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

// RemoveDataset deletes the dataset with the given id, returning the id. A
// missing dataset is a NotFoundError.
func (c *Catalog) RemoveDataset(ctx context.Context, id string) (string, error) {
	if err := datasets.ValidateId(id); err != nil {
		return "", err
	}
	start := time.Now()

	g := c.guard(id)
	g.Lock()
	defer g.Unlock()

	if err := c.store.Delete(id); err != nil {
		return "", err
	}
	slog.Info(fmt.Sprintf("Removed dataset '%s'", id))
	c.recordActivity("remove", datasets.Dataset{Id: id}, time.Since(start))
	return id, nil
}

// ListDatasets summarizes every stored dataset. The listing is a
// point-in-time snapshot of the store directory: concurrent adds may or may
// not appear, but every entry is internally consistent.
func (c *Catalog) ListDatasets(ctx context.Context) ([]datasets.Info, error) {
	stored, err := c.store.ListAll()
	if err != nil {
		return nil, err
	}
	infos := make([]datasets.Info, len(stored))
	for i, dataset := range stored {
		infos[i] = datasets.Info{
			Id:      dataset.Id,
			Kind:    dataset.Kind,
			NumRows: dataset.NumRows(),
		}
	}
	return infos, nil
}

// PerformQuery parses and validates a raw JSON query, loads the single
// dataset it references, and executes it. A query referencing an unstored
// dataset fails with InvalidQueryError.
func (c *Catalog) PerformQuery(ctx context.Context, rawQuery []byte) ([]query.Row, error) {
	q, err := query.Parse(rawQuery)
	if err != nil {
		return nil, err
	}

	g := c.guard(q.DatasetId)
	g.RLock()
	defer g.RUnlock()

	dataset, err := c.store.Load(q.DatasetId)
	if err != nil {
		var notFound datasets.NotFoundError
		if errors.As(err, &notFound) {
			return nil, query.InvalidQueryError{
				Message: fmt.Sprintf("the query references dataset '%s', which is not stored", q.DatasetId)}
		}
		return nil, err
	}
	return q.Execute(dataset)
}

// recordActivity journals a completed mutation. Journal trouble is logged
// and swallowed; the operation itself has already succeeded.
func (c *Catalog) recordActivity(action string, dataset datasets.Dataset,
	elapsed time.Duration) {
	record := journal.Record{
		Id:        uuid.New(),
		Dataset:   dataset.Id,
		Kind:      dataset.Kind,
		Action:    action,
		NumRows:   dataset.NumRows(),
		Elapsed:   elapsed,
		Timestamp: time.Now(),
	}
	if action == "add" {
		manifest, err := manifestFor(dataset)
		if err != nil {
			slog.Warn(fmt.Sprintf("Couldn't build a manifest for dataset '%s': %s",
				dataset.Id, err.Error()))
		} else {
			record.Manifest = manifest
		}
	}
	if err := journal.RecordActivity(record); err != nil {
		slog.Warn(fmt.Sprintf("Couldn't journal the %s of dataset '%s': %s",
			action, dataset.Id, err.Error()))
	}
}

// manifestFor builds a data-package manifest describing an added dataset.
func manifestFor(dataset datasets.Dataset) (*datapackage.Package, error) {
	descriptor := map[string]any{
		"name":        "manifest",
		"profile":     "data-package",
		"created":     time.Now().Format(time.RFC3339),
		"keywords":    []any{"campus-insight", string(dataset.Kind)},
		"description": fmt.Sprintf("dataset '%s' (%d %s rows)", dataset.Id, dataset.NumRows(), dataset.Kind),
		"resources": []any{
			map[string]any{
				"name":      "rows",
				"path":      "rows.json",
				"format":    "json",
				"mediatype": "application/json",
			},
		},
	}
	return datapackage.New(descriptor, ".", validator.InMemoryLoader())
}
