package house

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// Store defines the operations on the room temperature document.
type Store interface {
	// ReadAll loads and parses the persisted document.
	ReadAll(ctx context.Context) (Document, error)

	// FindByName returns the room matching name case-insensitively.
	FindByName(ctx context.Context, name string) (Room, error)

	// SetTemperature replaces the temperature of the named room and
	// persists the whole document.
	SetTemperature(ctx context.Context, name string, temp float64) (Change, error)

	// Path returns the location of the document.
	Path() string
}

// JSONStore implements Store on top of a single JSON file.
// The file is re-read on every call; nothing is cached in memory.
type JSONStore struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Option configures a JSONStore.
type Option func(*JSONStore)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *JSONStore) {
		s.logger = logger
	}
}

// NewJSONStore creates a store backed by the file at path.
// The file does not need to exist yet; reads fail with ErrStoreUnavailable
// until it is seeded.
func NewJSONStore(path string, opts ...Option) (*JSONStore, error) {
	if path == "" {
		return nil, fmt.Errorf("house: store path is required")
	}
	s := &JSONStore{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "house.store", "path", path)
	return s, nil
}

// Path returns the file path of the store.
func (s *JSONStore) Path() string {
	return s.path
}

// Seed writes doc as the full document, replacing whatever is there.
func (s *JSONStore) Seed(doc Document) error {
	if name, ok := doc.checkUnique(); !ok {
		return fmt.Errorf("%w: %q", ErrDuplicateRoom, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("house: create directory: %w", err)
	}
	return s.save(doc)
}

// ReadAll loads and parses the persisted document.
func (s *JSONStore) ReadAll(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// FindByName returns the room matching name case-insensitively.
func (s *JSONStore) FindByName(ctx context.Context, name string) (Room, error) {
	doc, err := s.ReadAll(ctx)
	if err != nil {
		return Room{}, err
	}

	i := doc.index(name)
	if i < 0 {
		return Room{}, &NotFoundError{Name: name, Available: doc.Names()}
	}
	return doc.House.Rooms[i], nil
}

// SetTemperature reads the document, replaces the temperature of the named
// room and writes the document back, all under the writer lock.
// An unknown room leaves the file untouched.
func (s *JSONStore) SetTemperature(ctx context.Context, name string, temp float64) (Change, error) {
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return Change{}, ErrInvalidTemperature
	}
	if err := ctx.Err(); err != nil {
		return Change{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return Change{}, err
	}

	i := doc.index(name)
	if i < 0 {
		return Change{}, &NotFoundError{Name: name, Available: doc.Names()}
	}

	prev := doc.House.Rooms[i].Temperature
	doc.House.Rooms[i].Temperature = temp

	if err := s.save(doc); err != nil {
		return Change{}, err
	}

	s.logger.Info("room temperature updated",
		"room", doc.House.Rooms[i].Name,
		"previous", prev,
		"temperature", temp,
	)

	return Change{Room: doc.House.Rooms[i], Previous: prev}, nil
}

// load reads the document from disk. Callers hold mu.
func (s *JSONStore) load() (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Document{}, unavailable(s.path, err)
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return Document{}, unavailable(s.path, fmt.Errorf("parse document: %w", err))
	}

	if name, ok := doc.checkUnique(); !ok {
		return Document{}, unavailable(s.path, fmt.Errorf("%w: %q", ErrDuplicateRoom, name))
	}

	return doc, nil
}

// save writes the full document to a temp file and renames it into place.
// Callers hold mu for writing.
func (s *JSONStore) save(doc Document) error {
	if doc.House.Rooms == nil {
		doc.House.Rooms = []Room{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("house: marshal document: %w", err)
	}
	data = append(data, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("house: write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("failed to remove temp file", "error", rmErr)
		}
		return fmt.Errorf("house: replace document: %w", err)
	}

	return nil
}

// Ensure JSONStore implements Store.
var _ Store = (*JSONStore)(nil)
