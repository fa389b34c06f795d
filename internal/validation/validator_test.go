package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/validation"
)

type testRequest struct {
	Title    string `json:"title" validate:"notblank,max=500"`
	Category string `json:"category" validate:"category"`
	Rating   *int   `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
}

func intPtr(v int) *int { return &v }

func TestValidator_Valid(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{Title: "Dune", Category: "book", Rating: intPtr(5)})
	assert.NoError(t, err)

	err = v.Validate(testRequest{Title: "Dune", Category: "video-game"})
	assert.NoError(t, err)
}

func TestValidator_Errors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       testRequest
		wantField string
	}{
		{"blank title", testRequest{Title: "   ", Category: "movie"}, "title"},
		{"empty title", testRequest{Title: "", Category: "movie"}, "title"},
		{"unknown category", testRequest{Title: "x", Category: "tv"}, "category"},
		{"rating too low", testRequest{Title: "x", Category: "movie", Rating: intPtr(0)}, "rating"},
		{"rating too high", testRequest{Title: "x", Category: "movie", Rating: intPtr(6)}, "rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

			var domainErr *domainerrors.Error
			require.True(t, domainerrors.As(err, &domainErr))
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}
