package domain

// Tag is a user-defined label for organizing books.
// Slug is the canonical form (lowercase, hyphenated); clients transform for
// display: "slow-burn" → "Slow Burn".
type Tag struct {
	Syncable
	Name    string   `json:"name" validate:"required"`
	Slug    string   `json:"slug" validate:"required"`
	BookIDs []string `json:"book_ids,omitempty" merge:"union"`
}
