package policies

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/domain/config"
	"lattice/pkg/errors"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{"out", DirectionOut, false},
		{"in", DirectionIn, false},
		{"both", DirectionBoth, false},
		{"", DirectionBoth, false},
		{"sideways", "", true},
		{"OUT", "", true},
	}

	for _, tt := range tests {
		t.Run("input_"+tt.input, func(t *testing.T) {
			got, err := ParseDirection(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, stderrors.Is(err, errors.ErrInvalidDirection))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTraversalPolicy_Normalize(t *testing.T) {
	policy := NewTraversalPolicy(config.DefaultDomainConfig())

	tests := []struct {
		name       string
		depth      int
		limit      int
		offset     int
		direction  string
		wantDepth  int
		wantLimit  int
		wantOffset int
		wantDir    Direction
	}{
		{
			name:      "zero values take defaults",
			wantDepth: 2, wantLimit: 50, wantOffset: 0, wantDir: DirectionBoth,
		},
		{
			name:  "explicit values within range pass through",
			depth: 4, limit: 120, offset: 30, direction: "out",
			wantDepth: 4, wantLimit: 120, wantOffset: 30, wantDir: DirectionOut,
		},
		{
			name:  "depth clamps to ceiling",
			depth: 99,
			wantDepth: 8, wantLimit: 50, wantOffset: 0, wantDir: DirectionBoth,
		},
		{
			name:  "negative depth clamps to floor",
			depth: -3,
			wantDepth: 1, wantLimit: 50, wantOffset: 0, wantDir: DirectionBoth,
		},
		{
			name:  "limit clamps to ceiling",
			limit: 9000,
			wantDepth: 2, wantLimit: 500, wantOffset: 0, wantDir: DirectionBoth,
		},
		{
			name:   "offset clamps to ceiling",
			offset: 1_000_000,
			wantDepth: 2, wantLimit: 50, wantOffset: 10000, wantDir: DirectionBoth,
		},
		{
			name:   "negative offset clamps to zero",
			offset: -5,
			wantDepth: 2, wantLimit: 50, wantOffset: 0, wantDir: DirectionBoth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := policy.Normalize(tt.depth, tt.limit, tt.offset, tt.direction)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDepth, params.Depth)
			assert.Equal(t, tt.wantLimit, params.Limit)
			assert.Equal(t, tt.wantOffset, params.Offset)
			assert.Equal(t, tt.wantDir, params.Direction)
		})
	}
}

func TestTraversalPolicy_Normalize_InvalidDirection(t *testing.T) {
	policy := NewTraversalPolicy(nil)

	_, err := policy.Normalize(0, 0, 0, "diagonal")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidDirection))
}

func TestTraversalPolicy_Budgets(t *testing.T) {
	policy := NewTraversalPolicy(config.DefaultDomainConfig())
	assert.Equal(t, 5000, policy.VisitBudget())
	assert.Equal(t, 8, policy.MaxDepth())
}
