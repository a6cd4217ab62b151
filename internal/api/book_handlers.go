package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark/internal/domain"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns the whole catalog",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "createBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books",
		Summary:     "Create book",
		Description: "Adds a book to the catalog and queues it for sync",
		Tags:        []string{"Books"},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book by ID",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookByISBN",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/isbn/{isbn}",
		Summary:     "Get book by ISBN",
		Description: "Returns a book by ISBN, accepting any common ISBN format",
		Tags:        []string{"Books"},
	}, s.handleGetBookByISBN)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Replaces a book's metadata and queues the change for sync",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete book",
		Description: "Removes a book and queues the deletion for sync",
		Tags:        []string{"Books"},
	}, s.handleDeleteBook)
}

// === DTOs ===

// BookRequest is the client-supplied metadata for a book. Every field is
// schema-optional: the same shape carries full records on create and partial
// fetched metadata on merge. The service layer enforces what create requires.
type BookRequest struct {
	Title       string            `json:"title,omitempty" doc:"Book title"`
	Subtitle    string            `json:"subtitle,omitempty" doc:"Book subtitle"`
	ISBN        string            `json:"isbn,omitempty" doc:"ISBN in any common format"`
	Publisher   string            `json:"publisher,omitempty" doc:"Publisher name"`
	PublishYear string            `json:"publish_year,omitempty" doc:"Year of publication"`
	Language    string            `json:"language,omitempty" doc:"Language name or ISO code"`
	Description string            `json:"description,omitempty" doc:"Description or synopsis"`
	CoverURL    string            `json:"cover_url,omitempty" doc:"Cover image URL"`
	Authors     []string          `json:"authors,omitempty" doc:"Author names"`
	Subjects    []string          `json:"subjects,omitempty" doc:"Subject headings"`
	PageCount   *int              `json:"page_count,omitempty" doc:"Number of pages"`
	ExternalIDs map[string]string `json:"external_ids,omitempty" doc:"IDs in remote catalog sources"`
}

// BookResponse contains book data in API responses.
type BookResponse struct {
	ID          string            `json:"id" doc:"Book ID"`
	Title       string            `json:"title" doc:"Book title"`
	Subtitle    string            `json:"subtitle,omitempty" doc:"Book subtitle"`
	ISBN        string            `json:"isbn,omitempty" doc:"Normalized ISBN"`
	Publisher   string            `json:"publisher,omitempty" doc:"Publisher name"`
	PublishYear string            `json:"publish_year,omitempty" doc:"Year of publication"`
	Language    string            `json:"language,omitempty" doc:"ISO language code"`
	Description string            `json:"description,omitempty" doc:"Description or synopsis"`
	CoverURL    string            `json:"cover_url,omitempty" doc:"Cover image URL"`
	Authors     []string          `json:"authors,omitempty" doc:"Author names"`
	Subjects    []string          `json:"subjects,omitempty" doc:"Subject headings"`
	PageCount   *int              `json:"page_count,omitempty" doc:"Number of pages"`
	ExternalIDs map[string]string `json:"external_ids,omitempty" doc:"IDs in remote catalog sources"`
	SyncPending bool              `json:"sync_pending" doc:"Whether local changes await sync"`
	CreatedAt   time.Time         `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time         `json:"updated_at" doc:"Last update time"`
}

// BookOutput wraps a book response for Huma.
type BookOutput struct {
	Body BookResponse
}

// ListBooksResponse contains the full catalog listing.
type ListBooksResponse struct {
	Books []BookResponse `json:"books" doc:"Books in the catalog"`
	Total int            `json:"total" doc:"Number of books"`
}

// ListBooksOutput wraps the list response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body BookRequest
}

// GetBookInput contains parameters for getting a book.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// GetBookByISBNInput contains parameters for the ISBN lookup.
type GetBookByISBNInput struct {
	ISBN string `path:"isbn" doc:"ISBN in any common format"`
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body BookRequest
}

// DeleteBookInput contains parameters for deleting a book.
type DeleteBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

func toBookDomain(req BookRequest) *domain.Book {
	return &domain.Book{
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		ISBN:        req.ISBN,
		Publisher:   req.Publisher,
		PublishYear: req.PublishYear,
		Language:    req.Language,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		Authors:     req.Authors,
		Subjects:    req.Subjects,
		PageCount:   req.PageCount,
		ExternalIDs: req.ExternalIDs,
	}
}

func toBookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Subtitle:    b.Subtitle,
		ISBN:        b.ISBN,
		Publisher:   b.Publisher,
		PublishYear: b.PublishYear,
		Language:    b.Language,
		Description: b.Description,
		CoverURL:    b.CoverURL,
		Authors:     b.Authors,
		Subjects:    b.Subjects,
		PageCount:   b.PageCount,
		ExternalIDs: b.ExternalIDs,
		SyncPending: b.SyncPending,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*ListBooksOutput, error) {
	books, err := s.catalog.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]BookResponse, len(books))
	for i, b := range books {
		resp[i] = toBookResponse(b)
	}
	return &ListBooksOutput{Body: ListBooksResponse{Books: resp, Total: len(resp)}}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	book, err := s.catalog.CreateBook(ctx, toBookDomain(input.Body))
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.catalog.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleGetBookByISBN(ctx context.Context, input *GetBookByISBNInput) (*BookOutput, error) {
	book, err := s.catalog.GetBookByISBN(ctx, input.ISBN)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	book := toBookDomain(input.Body)
	book.ID = input.ID

	updated, err := s.catalog.UpdateBook(ctx, book)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(updated)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *DeleteBookInput) (*MessageOutput, error) {
	if err := s.catalog.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Book deleted"}}, nil
}
