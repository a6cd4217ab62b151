package domain

// Rating is a user's star rating for a book, kept separate from the reading
// log so a book can be rated without ever being logged.
type Rating struct {
	Syncable
	BookID string `json:"book_id" validate:"required"`
	Value  int    `json:"value" validate:"min=1,max=5"`
}
