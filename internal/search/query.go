package search

import (
	"context"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a catalog search.
type Params struct {
	Query  string
	Limit  int
	Offset int
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{Limit: 20}
}

// Result is a page of search hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is one matching book.
type Hit struct {
	ID        string            `json:"id"`
	Score     float64           `json:"score"`
	Title     string            `json:"title"`
	Subtitle  string            `json:"subtitle,omitempty"`
	Author    string            `json:"author,omitempty"`
	Publisher string            `json:"publisher,omitempty"`
	Highlight map[string]string `json:"highlight,omitempty"`
}

// Search runs a full-text query over the catalog. An empty query matches
// everything, newest first - that is the browse view.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(params.Query), params.Limit, params.Offset, false)
	req.Fields = []string{"title", "subtitle", "author", "publisher"}
	if params.Query == "" {
		req.SortBy([]string{"-updated_at"})
	}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("title")
	req.Highlight.AddField("author")

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
	}
	for _, hit := range res.Hits {
		h := Hit{
			ID:        hit.ID,
			Score:     hit.Score,
			Title:     stringField(hit.Fields, "title"),
			Subtitle:  stringField(hit.Fields, "subtitle"),
			Author:    stringField(hit.Fields, "author"),
			Publisher: stringField(hit.Fields, "publisher"),
		}
		if len(hit.Fragments) > 0 {
			h.Highlight = make(map[string]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlight[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}
	return result, nil
}

// buildQuery turns the user's text into a disjunction over the searchable
// fields, with a fuzzy fallback for typos.
func buildQuery(text string) query.Query {
	if text == "" {
		return bleve.NewMatchAllQuery()
	}

	title := bleve.NewMatchQuery(text)
	title.SetField("title")
	title.SetBoost(3.0)

	titleFuzzy := bleve.NewMatchQuery(text)
	titleFuzzy.SetField("title")
	titleFuzzy.SetFuzziness(1)

	author := bleve.NewMatchQuery(text)
	author.SetField("author")
	author.SetBoost(2.0)

	subtitle := bleve.NewMatchQuery(text)
	subtitle.SetField("subtitle")

	subjects := bleve.NewMatchQuery(text)
	subjects.SetField("subjects")

	description := bleve.NewMatchQuery(text)
	description.SetField("description")

	isbn := bleve.NewTermQuery(text)
	isbn.SetField("isbn")

	return bleve.NewDisjunctionQuery(title, titleFuzzy, author, subtitle, subjects, description, isbn)
}

// stringField reads a stored string field off a hit.
func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
