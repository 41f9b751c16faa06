// Package database persists the whole application state as a single JSON
// document on disk: users, per-user images, and per-image compressions.
// Every mutation rewrites the entire file. Concurrent writers inside the
// process are serialized with a mutex; there is no cross-process locking.
package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/arjunmehta14/image-press/models"
)

// ErrConflict is returned from a Write mutator that refuses to overwrite
// an existing record.
var ErrConflict = errors.New("record already exists")

// Document is the full persisted state. Lookups are pure reads over an
// already-loaded Document so hot paths load once and query many times.
type Document struct {
	Users        map[string]models.User                            `json:"users"`
	Images       map[string]map[string]models.UserImage            `json:"images"`
	Compressions map[string]map[string]models.UserImageCompression `json:"compressions"`
}

func emptyDocument() *Document {
	return &Document{
		Users:        map[string]models.User{},
		Images:       map[string]map[string]models.UserImage{},
		Compressions: map[string]map[string]models.UserImageCompression{},
	}
}

type Store struct {
	path string
	mu   sync.Mutex
}

// Open prepares the store at path, creating the parent directory and an
// empty document file when missing.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("db file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	s := &Store{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if _, err := s.Write(func(*Document) error { return nil }); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Read loads the current document. An empty or missing file yields the
// empty skeleton rather than an error.
func (s *Store) Read() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (*Document, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return emptyDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read db file: %w", err)
	}
	if len(b) == 0 {
		return emptyDocument(), nil
	}
	doc := emptyDocument()
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("decode db file: %w", err)
	}
	return doc, nil
}

// Write loads the current document, applies mutate to a working copy,
// serializes it, and overwrites the file. The pre-mutation snapshot is left
// untouched on any failure, so callers never observe a half-applied
// document in memory; the file itself is rewritten in place and may hold a
// partial write if the OS write fails midway.
func (s *Store) Write(mutate func(*Document) error) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if err := mutate(doc); err != nil {
		return nil, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode db document: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return nil, fmt.Errorf("write db file: %w", err)
	}
	return doc, nil
}

// User looks up a user by username.
func (d *Document) User(username string) (models.User, bool) {
	u, ok := d.Users[username]
	return u, ok
}

// UserByID looks up a user by generated id.
func (d *Document) UserByID(id string) (models.User, bool) {
	for _, u := range d.Users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// UserImages returns every image owned by userID, possibly nil.
func (d *Document) UserImages(userID string) map[string]models.UserImage {
	return d.Images[userID]
}

// UserImage looks up one image record under its owner.
func (d *Document) UserImage(userID, imageID string) (models.UserImage, bool) {
	img, ok := d.Images[userID][imageID]
	return img, ok
}

// ImageCompressions returns every compression derived from imageID,
// possibly nil.
func (d *Document) ImageCompressions(imageID string) map[string]models.UserImageCompression {
	return d.Compressions[imageID]
}

// ImageCompression looks up one compression record under its parent image.
func (d *Document) ImageCompression(imageID, compressionID string) (models.UserImageCompression, bool) {
	c, ok := d.Compressions[imageID][compressionID]
	return c, ok
}
