// Package store implements the page store: the durable mapping from
// page ID to page record, kept as one JSON-encoded collection under a
// single key in the kv store.
package store

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/tehewdev/staticforge/internal/errors"
	"github.com/tehewdev/staticforge/internal/kv"
	"github.com/tehewdev/staticforge/internal/page"
)

// Store owns the persisted page collection. Construct once per process
// and inject into consumers.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a Store over an initialized kv database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// NewWithClock creates a Store with an injected clock, for tests.
func NewWithClock(db *sql.DB, now func() time.Time) *Store {
	return &Store{db: db, now: now}
}

// List returns all persisted pages in storage order. Fails soft: a
// missing key or a corrupt collection yields an empty slice, never an
// error, so the UI stays usable. Callers sort as needed.
func (s *Store) List() []*page.Page {
	raw, err := kv.Get(s.db, kv.KeyPages)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			log.Printf("store: failed to load pages: %v", err)
		}
		return []*page.Page{}
	}

	var pages []*page.Page
	if err := json.Unmarshal([]byte(raw), &pages); err != nil {
		// Treated as an empty store; the persisted value is left in
		// place for external repair.
		log.Printf("store: %v", errors.NewDeserialization(err))
		return []*page.Page{}
	}
	if pages == nil {
		return []*page.Page{}
	}
	return pages
}

// FindByID returns the page with the given ID, or NOT_FOUND.
func (s *Store) FindByID(id string) (*page.Page, error) {
	for _, p := range s.List() {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errors.NewNotFound(id)
}

// Save inserts or replaces a page by ID and persists the whole
// collection in one write. Sets updated_at on every save and
// created_at on first insert only. On a capacity failure the persisted
// collection keeps its pre-write state and the error is returned to
// the caller; the in-memory change is lost.
func (s *Store) Save(p *page.Page) (*page.Page, error) {
	if p == nil || p.ID == "" {
		return nil, errors.NewInvalidRequest("page id is required")
	}

	now := s.now().UnixMilli()
	pages := s.List()

	saved := *p
	saved.UpdatedAt = now

	replaced := false
	for i, existing := range pages {
		if existing.ID == p.ID {
			saved.CreatedAt = existing.CreatedAt
			pages[i] = &saved
			replaced = true
			break
		}
	}
	if !replaced {
		saved.CreatedAt = now
		pages = append(pages, &saved)
	}

	if err := s.persist(pages); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Delete removes the page with the given ID. No-op (not an error) when
// absent. The delete is permanent and immediate; there is no history.
func (s *Store) Delete(id string) error {
	pages := s.List()

	kept := pages[:0]
	for _, p := range pages {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(pages) {
		return nil
	}

	return s.persist(kept)
}

// persist serializes the collection and replaces the stored value in a
// single write.
func (s *Store) persist(pages []*page.Page) error {
	data, err := json.Marshal(pages)
	if err != nil {
		return errors.NewInternal(err)
	}
	return kv.Set(s.db, kv.KeyPages, string(data))
}
