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

// This package persists datasets as self-describing JSON documents, one file
// per dataset, in a single local directory. Filenames are the encoded form
// of the dataset id plus the document extension; reloading a document
// reconstructs the typed rows from the kind embedded in it.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/campusdata/insight/datasets"
)

// the extension carried by every dataset document
const docExt = ".json"

// A Store reads and writes dataset documents under a single root directory.
type Store struct {
	// root directory holding the dataset documents
	dir string
}

// creates a store rooted at the given directory (created lazily on the
// first save)
func New(dir string) *Store {
	return &Store{dir: dir}
}

// the on-disk form of a dataset: a tagged document whose kind field selects
// which row array is populated
type document struct {
	Id       string             `json:"id"`
	Kind     datasets.Kind      `json:"kind"`
	Sections []datasets.Section `json:"sections,omitempty"`
	Rooms    []datasets.Room    `json:"rooms,omitempty"`
}

// returns the path of the document holding the dataset with the given id
func (s *Store) path(id string) string {
	return filepath.Join(s.dir, encodeName(id)+docExt)
}

// Save writes the dataset to its document. The write goes to a temporary
// file that is renamed into place, so a crashed or cancelled save never
// leaves a partial document behind. Overwriting an existing document is a
// programmer error; callers check existence first.
func (s *Store) Save(dataset datasets.Dataset) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating store directory %s: %w", s.dir, err)
	}

	doc := document{
		Id:       dataset.Id,
		Kind:     dataset.Kind,
		Sections: dataset.Sections,
		Rooms:    dataset.Rooms,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding dataset '%s': %w", dataset.Id, err)
	}

	final := s.path(dataset.Id)
	temp := final + ".tmp-" + uuid.New().String()
	if err := os.WriteFile(temp, data, 0644); err != nil {
		return fmt.Errorf("writing dataset '%s': %w", dataset.Id, err)
	}
	if err := os.Rename(temp, final); err != nil {
		os.Remove(temp)
		return fmt.Errorf("committing dataset '%s': %w", dataset.Id, err)
	}
	return nil
}

// Load reads and rebuilds the dataset with the given id, returning
// datasets.NotFoundError if no document exists for it.
func (s *Store) Load(id string) (datasets.Dataset, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return datasets.Dataset{}, datasets.NotFoundError{Id: id}
		}
		return datasets.Dataset{}, fmt.Errorf("reading dataset '%s': %w", id, err)
	}
	return decodeDocument(data)
}

// rebuilds a typed dataset from document bytes
func decodeDocument(data []byte) (datasets.Dataset, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return datasets.Dataset{}, fmt.Errorf("parsing dataset document: %w", err)
	}
	switch doc.Kind {
	case datasets.Sections:
		return datasets.NewSections(doc.Id, doc.Sections), nil
	case datasets.Rooms:
		return datasets.NewRooms(doc.Id, doc.Rooms), nil
	}
	return datasets.Dataset{}, fmt.Errorf("dataset document for '%s' declares unknown kind '%s'", doc.Id, doc.Kind)
}

// Exists reports whether a document exists for the given id.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// ListIds enumerates the ids of every stored dataset, in no particular
// order. A store whose directory has not been created yet is empty.
func (s *Store) ListIds() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading store directory %s: %w", s.dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, docExt) {
			continue
		}
		id, err := decodeName(strings.TrimSuffix(name, docExt))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListAll loads every stored dataset (one parse per document).
func (s *Store) ListAll() ([]datasets.Dataset, error) {
	ids, err := s.ListIds()
	if err != nil {
		return nil, err
	}
	all := make([]datasets.Dataset, 0, len(ids))
	for _, id := range ids {
		dataset, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		all = append(all, dataset)
	}
	return all, nil
}

// Delete removes the dataset with the given id, returning
// datasets.NotFoundError if no document exists for it.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return datasets.NotFoundError{Id: id}
		}
		return fmt.Errorf("deleting dataset '%s': %w", id, err)
	}
	return nil
}
