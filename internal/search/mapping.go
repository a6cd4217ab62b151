package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for book documents: English
// stemming on the prose fields, keyword matching for ISBN and language, term
// vectors on title and author for highlighting.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = en.AnalyzerName
	titleField.Store = true
	titleField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleField)

	subtitleField := bleve.NewTextFieldMapping()
	subtitleField.Analyzer = en.AnalyzerName
	subtitleField.Store = true
	docMapping.AddFieldMappingsAt("subtitle", subtitleField)

	authorField := bleve.NewTextFieldMapping()
	authorField.Analyzer = simple.Name // Names must not be stemmed.
	authorField.Store = true
	authorField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("author", authorField)

	publisherField := bleve.NewTextFieldMapping()
	publisherField.Analyzer = simple.Name
	publisherField.Store = true
	docMapping.AddFieldMappingsAt("publisher", publisherField)

	// Searchable but not stored: descriptions can be long.
	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = en.AnalyzerName
	descField.Store = false
	docMapping.AddFieldMappingsAt("description", descField)

	subjectsField := bleve.NewTextFieldMapping()
	subjectsField.Analyzer = en.AnalyzerName
	subjectsField.Store = true
	docMapping.AddFieldMappingsAt("subjects", subjectsField)

	isbnField := bleve.NewTextFieldMapping()
	isbnField.Analyzer = keyword.Name
	isbnField.Store = true
	docMapping.AddFieldMappingsAt("isbn", isbnField)

	languageField := bleve.NewTextFieldMapping()
	languageField.Analyzer = keyword.Name
	languageField.Store = true
	docMapping.AddFieldMappingsAt("language", languageField)

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	idField.Store = true
	idField.Index = false
	docMapping.AddFieldMappingsAt("id", idField)

	updatedField := bleve.NewNumericFieldMapping()
	updatedField.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
