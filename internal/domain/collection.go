package domain

import "slices"

// Collection represents a named grouping of books ("TBR 2026", "Cookbooks").
// Unlike tags, collections are ordered and carry a description.
type Collection struct {
	Syncable
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	BookIDs     []string `json:"book_ids,omitempty" merge:"union"`
}

// AddBook adds a book ID to the collection if not already present.
func (c *Collection) AddBook(bookID string) bool {
	if slices.Contains(c.BookIDs, bookID) {
		return false // Already present
	}
	c.BookIDs = append(c.BookIDs, bookID)
	return true
}

// RemoveBook removes a book ID from the collection.
func (c *Collection) RemoveBook(bookID string) bool {
	for i, id := range c.BookIDs {
		if id == bookID {
			c.BookIDs = append(c.BookIDs[:i], c.BookIDs[i+1:]...)
			return true
		}
	}
	return false
}

// ContainsBook checks if a book ID is in this collection.
func (c *Collection) ContainsBook(bookID string) bool {
	return slices.Contains(c.BookIDs, bookID)
}
