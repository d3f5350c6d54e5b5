// Package page defines the page record and its derived artifacts:
// the normalized slug, the default document template, markdown import,
// and file export.
package page

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tehewdev/staticforge/internal/errors"
)

// Page is a self-contained HTML document managed by the store.
// Timestamps are epoch milliseconds. The JSON field names are part of
// the persisted storage format and must not change without a new
// storage key.
type Page struct {
	ID        string   `json:"id"`
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
	Tags      []string `json:"tags,omitempty"`
}

// Filename returns the publish/export filename for the page,
// derived from the normalized slug.
func (p *Page) Filename() string {
	return NormalizeSlug(p.Slug) + ".html"
}

// New creates a fresh page with a new ID, a derived slug, and the
// default template as content. Timestamps are set by the store on
// first save.
func New(title string) (*Page, error) {
	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if title == "" {
		title = "New Page"
	}

	return &Page{
		ID:      id,
		Slug:    "page-" + strings.ToLower(id[:8]),
		Title:   title,
		Content: DefaultTemplate,
	}, nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
