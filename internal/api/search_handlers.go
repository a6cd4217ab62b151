package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search books",
		Description: "Full-text search over the catalog. An empty query browses everything, newest first",
		Tags:        []string{"Search"},
	}, s.handleSearchBooks)
}

// SearchBooksInput contains search parameters.
type SearchBooksInput struct {
	Query  string `query:"q" doc:"Search text"`
	Limit  int    `query:"limit" minimum:"0" maximum:"100" doc:"Page size, default 20"`
	Offset int    `query:"offset" minimum:"0" doc:"Page offset"`
}

// SearchBooksOutput wraps a search result page for Huma.
type SearchBooksOutput struct {
	Body search.Result
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	result, err := s.search.Search(ctx, search.Params{
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &SearchBooksOutput{Body: *result}, nil
}
