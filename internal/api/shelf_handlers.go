package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark/internal/domain"
)

func (s *Server) registerShelfRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "rateBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/rating",
		Summary:     "Rate book",
		Description: "Sets the rating for a book, replacing any previous rating",
		Tags:        []string{"Shelf"},
	}, s.handleRateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns all tags",
		Tags:        []string{"Shelf"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags",
		Summary:     "Create tag",
		Description: "Creates a new tag with a normalized slug",
		Tags:        []string{"Shelf"},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "tagBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/{id}/books",
		Summary:     "Tag book",
		Description: "Attaches a tag to a book",
		Tags:        []string{"Shelf"},
	}, s.handleTagBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCollections",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections",
		Summary:     "List collections",
		Description: "Returns all collections",
		Tags:        []string{"Shelf"},
	}, s.handleListCollections)

	huma.Register(s.api, huma.Operation{
		OperationID: "createCollection",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections",
		Summary:     "Create collection",
		Description: "Creates a named collection",
		Tags:        []string{"Shelf"},
	}, s.handleCreateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "addToCollection",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections/{id}/books",
		Summary:     "Add book to collection",
		Description: "Puts a book into a collection",
		Tags:        []string{"Shelf"},
	}, s.handleAddToCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "startReading",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/reading-logs",
		Summary:     "Start reading",
		Description: "Opens a reading log for a book",
		Tags:        []string{"Shelf"},
	}, s.handleStartReading)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReadingStatus",
		Method:      http.MethodPatch,
		Path:        "/api/v1/reading-logs/{id}",
		Summary:     "Update reading status",
		Description: "Moves a reading log to a new status, optionally recording a rating",
		Tags:        []string{"Shelf"},
	}, s.handleUpdateReadingStatus)
}

// === DTOs ===

// RateBookInput wraps the rating request for Huma.
type RateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body struct {
		Value int `json:"value" minimum:"1" maximum:"5" doc:"Star rating"`
	}
}

// RatingResponse contains rating data in API responses.
type RatingResponse struct {
	ID        string    `json:"id" doc:"Rating ID"`
	BookID    string    `json:"book_id" doc:"Rated book ID"`
	Value     int       `json:"value" doc:"Star rating"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// RatingOutput wraps a rating response for Huma.
type RatingOutput struct {
	Body RatingResponse
}

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID      string   `json:"id" doc:"Tag ID"`
	Name    string   `json:"name" doc:"Tag name"`
	Slug    string   `json:"slug" doc:"URL-safe slug"`
	BookIDs []string `json:"book_ids,omitempty" doc:"Books carrying this tag"`
}

// TagOutput wraps a tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// ListTagsOutput wraps the tag listing for Huma.
type ListTagsOutput struct {
	Body struct {
		Tags []TagResponse `json:"tags" doc:"All tags"`
	}
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"50" doc:"Tag name"`
	}
}

// TagBookInput wraps the tag attachment request for Huma.
type TagBookInput struct {
	ID   string `path:"id" doc:"Tag ID"`
	Body struct {
		BookID string `json:"book_id" doc:"Book to tag"`
	}
}

// CollectionResponse contains collection data in API responses.
type CollectionResponse struct {
	ID          string   `json:"id" doc:"Collection ID"`
	Name        string   `json:"name" doc:"Collection name"`
	Description string   `json:"description,omitempty" doc:"Collection description"`
	BookIDs     []string `json:"book_ids,omitempty" doc:"Books in the collection, in order"`
}

// CollectionOutput wraps a collection response for Huma.
type CollectionOutput struct {
	Body CollectionResponse
}

// ListCollectionsOutput wraps the collection listing for Huma.
type ListCollectionsOutput struct {
	Body struct {
		Collections []CollectionResponse `json:"collections" doc:"All collections"`
	}
}

// CreateCollectionInput wraps the create collection request for Huma.
type CreateCollectionInput struct {
	Body struct {
		Name        string `json:"name" minLength:"1" doc:"Collection name"`
		Description string `json:"description,omitempty" doc:"Collection description"`
	}
}

// AddToCollectionInput wraps the collection membership request for Huma.
type AddToCollectionInput struct {
	ID   string `path:"id" doc:"Collection ID"`
	Body struct {
		BookID string `json:"book_id" doc:"Book to add"`
	}
}

// ReadingLogResponse contains reading log data in API responses.
type ReadingLogResponse struct {
	ID         string     `json:"id" doc:"Reading log ID"`
	BookID     string     `json:"book_id" doc:"Book being read"`
	Status     string     `json:"status" doc:"Reading status"`
	StartedAt  *time.Time `json:"started_at,omitempty" doc:"When reading started"`
	FinishedAt *time.Time `json:"finished_at,omitempty" doc:"When reading finished"`
	Rating     *int       `json:"rating,omitempty" doc:"Rating recorded with this read"`
	Notes      string     `json:"notes,omitempty" doc:"Free-form notes"`
}

// ReadingLogOutput wraps a reading log response for Huma.
type ReadingLogOutput struct {
	Body ReadingLogResponse
}

// StartReadingInput contains parameters for opening a reading log.
type StartReadingInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateReadingStatusInput wraps the status change request for Huma.
type UpdateReadingStatusInput struct {
	ID   string `path:"id" doc:"Reading log ID"`
	Body struct {
		Status string `json:"status" enum:"want_to_read,reading,finished,abandoned" doc:"New reading status"`
		Rating *int   `json:"rating,omitempty" minimum:"1" maximum:"5" doc:"Optional rating"`
	}
}

func toTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug, BookIDs: t.BookIDs}
}

func toCollectionResponse(c *domain.Collection) CollectionResponse {
	return CollectionResponse{ID: c.ID, Name: c.Name, Description: c.Description, BookIDs: c.BookIDs}
}

func toReadingLogResponse(l *domain.ReadingLog) ReadingLogResponse {
	return ReadingLogResponse{
		ID:         l.ID,
		BookID:     l.BookID,
		Status:     string(l.Status),
		StartedAt:  l.StartedAt,
		FinishedAt: l.FinishedAt,
		Rating:     l.Rating,
		Notes:      l.Notes,
	}
}

// === Handlers ===

func (s *Server) handleRateBook(ctx context.Context, input *RateBookInput) (*RatingOutput, error) {
	rating, err := s.shelf.RateBook(ctx, input.ID, input.Body.Value)
	if err != nil {
		return nil, err
	}
	return &RatingOutput{Body: RatingResponse{
		ID:        rating.ID,
		BookID:    rating.BookID,
		Value:     rating.Value,
		UpdatedAt: rating.UpdatedAt,
	}}, nil
}

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*ListTagsOutput, error) {
	tags, err := s.store.Tags.All(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListTagsOutput{}
	out.Body.Tags = make([]TagResponse, len(tags))
	for i, t := range tags {
		out.Body.Tags[i] = toTagResponse(t)
	}
	return out, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	tag, err := s.shelf.CreateTag(ctx, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleTagBook(ctx context.Context, input *TagBookInput) (*TagOutput, error) {
	tag, err := s.shelf.TagBook(ctx, input.ID, input.Body.BookID)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleListCollections(ctx context.Context, _ *struct{}) (*ListCollectionsOutput, error) {
	cols, err := s.store.Collections.All(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListCollectionsOutput{}
	out.Body.Collections = make([]CollectionResponse, len(cols))
	for i, c := range cols {
		out.Body.Collections[i] = toCollectionResponse(c)
	}
	return out, nil
}

func (s *Server) handleCreateCollection(ctx context.Context, input *CreateCollectionInput) (*CollectionOutput, error) {
	col, err := s.shelf.CreateCollection(ctx, input.Body.Name, input.Body.Description)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: toCollectionResponse(col)}, nil
}

func (s *Server) handleAddToCollection(ctx context.Context, input *AddToCollectionInput) (*CollectionOutput, error) {
	col, err := s.shelf.AddToCollection(ctx, input.ID, input.Body.BookID)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: toCollectionResponse(col)}, nil
}

func (s *Server) handleStartReading(ctx context.Context, input *StartReadingInput) (*ReadingLogOutput, error) {
	log, err := s.shelf.StartReading(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReadingLogOutput{Body: toReadingLogResponse(log)}, nil
}

func (s *Server) handleUpdateReadingStatus(ctx context.Context, input *UpdateReadingStatusInput) (*ReadingLogOutput, error) {
	log, err := s.shelf.UpdateReadingStatus(ctx, input.ID, domain.ReadingStatus(input.Body.Status), input.Body.Rating)
	if err != nil {
		return nil, err
	}
	return &ReadingLogOutput{Body: toReadingLogResponse(log)}, nil
}
