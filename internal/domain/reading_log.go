package domain

import "time"

// ReadingStatus describes where a book sits in the user's reading life.
type ReadingStatus string

// Reading statuses.
const (
	StatusWantToRead ReadingStatus = "want_to_read"
	StatusReading    ReadingStatus = "reading"
	StatusFinished   ReadingStatus = "finished"
	StatusAbandoned  ReadingStatus = "abandoned"
)

// Valid reports whether the status is one of the known values.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusWantToRead, StatusReading, StatusFinished, StatusAbandoned:
		return true
	}
	return false
}

// ReadingLog records one read-through of a book.
//
// Rating is a pointer because "unrated" and "rated zero" must stay
// distinguishable for the merge engine's empty-field rules.
type ReadingLog struct {
	Syncable
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Rating     *int          `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	BookID     string        `json:"book_id" validate:"required"`
	Status     ReadingStatus `json:"status" validate:"required"`
	Notes      string        `json:"notes,omitempty"`
}
