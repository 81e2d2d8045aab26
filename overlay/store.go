package overlay

import (
	"errors"
	"sort"

	"github.com/tsawler/ocroverlay/surface"
)

// ErrExists is returned when an image is already tracked.
var ErrExists = errors.New("overlay: image already tracked")

// Store holds at most one Record per image. Records are removed exactly when
// they are disposed. A Store is not safe for concurrent use; it belongs to
// the event loop goroutine.
type Store struct {
	records map[string]*Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Create starts tracking an image in the Unmanaged state.
func (s *Store) Create(img surface.Image) (*Record, error) {
	if _, ok := s.records[img.ID]; ok {
		return nil, ErrExists
	}
	r := &Record{Image: img, State: Unmanaged}
	s.records[img.ID] = r
	return r, nil
}

// Get returns the live record for an image.
func (s *Store) Get(imageID string) (*Record, bool) {
	r, ok := s.records[imageID]
	return r, ok
}

// Dispose releases a record's resources and forgets it. It reports whether
// the image was tracked.
func (s *Store) Dispose(imageID string) bool {
	r, ok := s.records[imageID]
	if !ok {
		return false
	}
	r.dispose()
	delete(s.records, imageID)
	return true
}

// DisposeAll disposes every record and returns how many there were.
func (s *Store) DisposeAll() int {
	ids := s.IDs()
	for _, id := range ids {
		s.Dispose(id)
	}
	return len(ids)
}

// Len returns the number of tracked images.
func (s *Store) Len() int {
	return len(s.records)
}

// IDs returns the tracked image IDs in sorted order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
