package policies

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/pkg/errors"
)

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"person", true},
		{"works_on", true},
		{"a", true},
		{"type2", true},
		{"snake_case_name", true},
		{strings.Repeat("a", 64), true},

		{"", false},
		{"Person", false},
		{"2type", false},
		{"_leading", false},
		{"has-dash", false},
		{"has space", false},
		{"trailing_ümlaut", false},
		{strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run("input_"+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidIdentifier(tt.input))
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("entity_type", "person"))

	err := ValidateIdentifier("entity_type", "Person")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidIdentifier))

	var domainErr *errors.DomainError
	require.True(t, stderrors.As(err, &domainErr))
	assert.Equal(t, "entity_type", domainErr.Details["field"])
	assert.Equal(t, "Person", domainErr.Details["value"])
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("3b241101-e2bb-4255-8caf-4136c566a962"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
}

func TestValidateUUID(t *testing.T) {
	assert.NoError(t, ValidateUUID("entity_id", "3b241101-e2bb-4255-8caf-4136c566a962"))

	err := ValidateUUID("entity_id", "42")
	require.Error(t, err)

	var domainErr *errors.DomainError
	require.True(t, stderrors.As(err, &domainErr))
	assert.Equal(t, "INVALID_UUID", domainErr.Code)
	assert.Equal(t, "entity_id", domainErr.Details["field"])
}
