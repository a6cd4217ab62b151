package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/domain"
	"github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/validation"
)

func TestValidator_BookRequiresTitle(t *testing.T) {
	v := validation.New()

	book := &domain.Book{}
	err := v.Validate(book)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	book.Title = "Dune"
	assert.NoError(t, v.Validate(book))
}

func TestValidator_RatingRange(t *testing.T) {
	v := validation.New()

	rating := &domain.Rating{BookID: "bk-1", Value: 6}
	err := v.Validate(rating)
	require.Error(t, err)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, errors.CodeValidation, domainErr.Code)

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "value")

	rating.Value = 5
	assert.NoError(t, v.Validate(rating))
}

func TestValidator_ReadingLogOptionalRating(t *testing.T) {
	v := validation.New()

	// Nil rating is fine - "unrated" is a legitimate state.
	log := &domain.ReadingLog{BookID: "bk-1", Status: domain.StatusReading}
	assert.NoError(t, v.Validate(log))

	zero := 0
	log.Rating = &zero
	assert.Error(t, v.Validate(log), "explicit zero rating is out of range")
}
