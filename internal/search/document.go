// Package search provides full-text search over the local catalog using
// Bleve. Books are denormalized into flat documents so a single query covers
// titles, authors and subjects at once.
package search

import (
	"strings"

	"github.com/shelfmark/shelfmark/internal/domain"
)

// BookDocument is the flat shape a book takes in the Bleve index.
//
// Authors are denormalized into one space-joined field: the index trades a
// little storage for single-query matching on any author name.
type BookDocument struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Author      string   `json:"author,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	Description string   `json:"description,omitempty"`
	ISBN        string   `json:"isbn,omitempty"`
	Language    string   `json:"language,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	UpdatedAt   int64    `json:"updated_at"`
}

// NewBookDocument builds an index document from a catalog book.
func NewBookDocument(b *domain.Book) *BookDocument {
	return &BookDocument{
		ID:          b.ID,
		Title:       b.Title,
		Subtitle:    b.Subtitle,
		Author:      strings.Join(b.Authors, " "),
		Publisher:   b.Publisher,
		Description: b.Description,
		ISBN:        b.ISBN,
		Language:    b.Language,
		Subjects:    b.Subjects,
		UpdatedAt:   b.UpdatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map with lowercase field names so the
// indexed fields line up with the mapping (Bleve would otherwise use the
// capitalized Go names).
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"updated_at": d.UpdatedAt,
	}
	if d.Subtitle != "" {
		m["subtitle"] = d.Subtitle
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if d.Language != "" {
		m["language"] = d.Language
	}
	if len(d.Subjects) > 0 {
		m["subjects"] = d.Subjects
	}
	return m
}
