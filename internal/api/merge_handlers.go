package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark/internal/merge"
)

func (s *Server) registerMergeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "previewBookMerge",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/merge/preview",
		Summary:     "Preview book merge",
		Description: "Compares a stored book against fetched metadata field by field without changing anything",
		Tags:        []string{"Merge"},
	}, s.handlePreviewBookMerge)

	huma.Register(s.api, huma.Operation{
		OperationID: "mergeBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/merge",
		Summary:     "Merge book",
		Description: "Resolves a stored book against fetched metadata using the given strategy and stores the result",
		Tags:        []string{"Merge"},
	}, s.handleMergeBook)
}

// === DTOs ===

// PreviewMergeInput wraps fetched metadata for a merge preview.
type PreviewMergeInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body BookRequest
}

// PreviewMergeOutput wraps the field-by-field comparison for Huma.
type PreviewMergeOutput struct {
	Body merge.Preview
}

// MergeBookRequest selects a strategy and carries the fetched metadata.
type MergeBookRequest struct {
	Strategy     string            `json:"strategy" enum:"keep-existing,keep-fetched,fill-empty,selective" doc:"Merge strategy"`
	FieldActions map[string]string `json:"field_actions,omitempty" doc:"Per-field actions for the selective strategy, keyed by JSON field name"`
	Fetched      BookRequest       `json:"fetched" doc:"Fetched metadata to merge in"`
}

// MergeBookInput wraps the merge request for Huma.
type MergeBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body MergeBookRequest
}

// === Handlers ===

func (s *Server) handlePreviewBookMerge(ctx context.Context, input *PreviewMergeInput) (*PreviewMergeOutput, error) {
	preview, err := s.catalog.PreviewBookMerge(ctx, input.ID, toBookDomain(input.Body))
	if err != nil {
		return nil, err
	}
	return &PreviewMergeOutput{Body: *preview}, nil
}

func (s *Server) handleMergeBook(ctx context.Context, input *MergeBookInput) (*BookOutput, error) {
	var actions map[string]merge.FieldAction
	if len(input.Body.FieldActions) > 0 {
		actions = make(map[string]merge.FieldAction, len(input.Body.FieldActions))
		for field, action := range input.Body.FieldActions {
			actions[field] = merge.FieldAction(action)
		}
	}

	merged, err := s.catalog.MergeBook(ctx, input.ID, toBookDomain(input.Body.Fetched), merge.Strategy(input.Body.Strategy), actions)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(merged)}, nil
}
