package domain

// Book represents a single book in the user's catalog.
//
// Authors and Subjects are merged by set union during conflict resolution so
// a locally-added author never vanishes when remote metadata wins. ExternalIDs
// holds cross-references into remote catalog sources (openlibrary, goodreads,
// isbn db ids) and is additive metadata: both sides are always unioned.
type Book struct {
	Syncable
	ExternalIDs map[string]string `json:"external_ids,omitempty" merge:"extids"`
	Title       string            `json:"title" validate:"required"`
	Subtitle    string            `json:"subtitle,omitempty"`
	ISBN        string            `json:"isbn,omitempty"`
	Publisher   string            `json:"publisher,omitempty"`
	PublishYear string            `json:"publish_year,omitempty"`
	Language    string            `json:"language,omitempty"`
	Description string            `json:"description,omitempty"`
	CoverURL    string            `json:"cover_url,omitempty"`
	Authors     []string          `json:"authors,omitempty" merge:"union"`
	Subjects    []string          `json:"subjects,omitempty" merge:"union"`
	PageCount   *int              `json:"page_count,omitempty" validate:"omitempty,gt=0"`
}

// HasAuthor checks whether the book lists the given author.
func (b *Book) HasAuthor(name string) bool {
	for _, a := range b.Authors {
		if a == name {
			return true
		}
	}
	return false
}

// SetExternalID records a cross-reference to a remote catalog source.
func (b *Book) SetExternalID(source, id string) {
	if b.ExternalIDs == nil {
		b.ExternalIDs = make(map[string]string)
	}
	b.ExternalIDs[source] = id
}
