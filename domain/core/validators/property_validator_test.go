package validators

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"
	"lattice/pkg/errors"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// violationCodes flattens collected validation errors into field -> codes
func violationCodes(t *testing.T, err error) map[string][]string {
	t.Helper()

	var validationErrs *errors.ValidationErrors
	require.True(t, stderrors.As(err, &validationErrs), "expected *ValidationErrors, got %T", err)

	result := make(map[string][]string)
	for _, e := range validationErrs.Errors {
		field, _ := e.Details["field"].(string)
		result[field] = append(result[field], e.Code)
	}
	return result
}

func personProperties() []schema.PropertyDefinition {
	return []schema.PropertyDefinition{
		{Name: "name", Type: schema.TypeString, Required: true, MinLength: intPtr(1), MaxLength: intPtr(80)},
		{Name: "age", Type: schema.TypeInteger, Minimum: floatPtr(0), Maximum: floatPtr(150)},
		{Name: "score", Type: schema.TypeFloat, Minimum: floatPtr(0), Maximum: floatPtr(1)},
		{Name: "active", Type: schema.TypeBoolean, Default: true},
		{Name: "joined_at", Type: schema.TypeDateTime},
		{Name: "external_id", Type: schema.TypeUUID},
		{Name: "status", Type: schema.TypeEnum, Values: []string{"active", "suspended"}},
		{Name: "metadata", Type: schema.TypeJSON},
		{Name: "code", Type: schema.TypeString, Pattern: "[A-Z]{3}-[0-9]{4}"},
	}
}

func TestPropertyValidator_Apply_Valid(t *testing.T) {
	validator := NewPropertyValidator()

	bag := valueobjects.NewPropertyBag(map[string]interface{}{
		"name":        "Ada Lovelace",
		"age":         float64(36),
		"score":       0.97,
		"joined_at":   "2024-03-01T12:00:00Z",
		"external_id": "3b241101-e2bb-4255-8caf-4136c566a962",
		"status":      "active",
		"metadata":    map[string]interface{}{"tags": []interface{}{"math"}},
		"code":        "ABC-1234",
	})

	normalized, err := validator.Apply(personProperties(), bag)
	require.NoError(t, err)

	// Default applied for the absent boolean
	active, ok := normalized.Get("active")
	require.True(t, ok)
	assert.Equal(t, true, active)

	// Present values pass through untouched
	name, _ := normalized.Get("name")
	assert.Equal(t, "Ada Lovelace", name)
}

func TestPropertyValidator_Apply_Violations(t *testing.T) {
	tests := []struct {
		name      string
		bag       map[string]interface{}
		wantField string
		wantCode  string
	}{
		{
			name:      "missing required property",
			bag:       map[string]interface{}{},
			wantField: "name",
			wantCode:  "PROPERTY_REQUIRED",
		},
		{
			name:      "unknown property rejected",
			bag:       map[string]interface{}{"name": "x", "nickname": "lovelace"},
			wantField: "nickname",
			wantCode:  "UNKNOWN_PROPERTY",
		},
		{
			name:      "string type mismatch",
			bag:       map[string]interface{}{"name": 42},
			wantField: "name",
			wantCode:  "PROPERTY_TYPE_MISMATCH",
		},
		{
			name:      "non-integral number for integer",
			bag:       map[string]interface{}{"name": "x", "age": 36.5},
			wantField: "age",
			wantCode:  "PROPERTY_TYPE_MISMATCH",
		},
		{
			name:      "integer below minimum",
			bag:       map[string]interface{}{"name": "x", "age": float64(-1)},
			wantField: "age",
			wantCode:  "PROPERTY_BELOW_MINIMUM",
		},
		{
			name:      "integer above maximum",
			bag:       map[string]interface{}{"name": "x", "age": float64(200)},
			wantField: "age",
			wantCode:  "PROPERTY_ABOVE_MAXIMUM",
		},
		{
			name:      "float above maximum",
			bag:       map[string]interface{}{"name": "x", "score": 1.5},
			wantField: "score",
			wantCode:  "PROPERTY_ABOVE_MAXIMUM",
		},
		{
			name:      "boolean type mismatch",
			bag:       map[string]interface{}{"name": "x", "active": "yes"},
			wantField: "active",
			wantCode:  "PROPERTY_TYPE_MISMATCH",
		},
		{
			name:      "malformed datetime",
			bag:       map[string]interface{}{"name": "x", "joined_at": "yesterday"},
			wantField: "joined_at",
			wantCode:  "PROPERTY_TYPE_MISMATCH",
		},
		{
			name:      "malformed uuid",
			bag:       map[string]interface{}{"name": "x", "external_id": "not-a-uuid"},
			wantField: "external_id",
			wantCode:  "PROPERTY_TYPE_MISMATCH",
		},
		{
			name:      "enum value not declared",
			bag:       map[string]interface{}{"name": "x", "status": "banned"},
			wantField: "status",
			wantCode:  "PROPERTY_NOT_IN_ENUM",
		},
		{
			name:      "string too long",
			bag:       map[string]interface{}{"name": strings.Repeat("a", 81)},
			wantField: "name",
			wantCode:  "PROPERTY_TOO_LONG",
		},
		{
			name:      "pattern mismatch",
			bag:       map[string]interface{}{"name": "x", "code": "abc-1234"},
			wantField: "code",
			wantCode:  "PROPERTY_PATTERN_MISMATCH",
		},
		{
			name:      "pattern must match whole string",
			bag:       map[string]interface{}{"name": "x", "code": "xxABC-1234xx"},
			wantField: "code",
			wantCode:  "PROPERTY_PATTERN_MISMATCH",
		},
	}

	validator := NewPropertyValidator()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.Apply(personProperties(), valueobjects.NewPropertyBag(tt.bag))
			require.Error(t, err)

			codes := violationCodes(t, err)
			assert.Contains(t, codes[tt.wantField], tt.wantCode)
		})
	}
}

func TestPropertyValidator_Apply_CollectsAllViolations(t *testing.T) {
	validator := NewPropertyValidator()

	bag := valueobjects.NewPropertyBag(map[string]interface{}{
		"age":      float64(-5),
		"status":   "banned",
		"nickname": "extra",
	})

	_, err := validator.Apply(personProperties(), bag)
	require.Error(t, err)

	codes := violationCodes(t, err)
	assert.Contains(t, codes["name"], "PROPERTY_REQUIRED")
	assert.Contains(t, codes["age"], "PROPERTY_BELOW_MINIMUM")
	assert.Contains(t, codes["status"], "PROPERTY_NOT_IN_ENUM")
	assert.Contains(t, codes["nickname"], "UNKNOWN_PROPERTY")
}

func TestPropertyValidator_Apply_DefaultBeatsRequired(t *testing.T) {
	validator := NewPropertyValidator()

	defs := []schema.PropertyDefinition{
		{Name: "tier", Type: schema.TypeEnum, Required: true, Values: []string{"free", "pro"}, Default: "free"},
	}

	normalized, err := validator.Apply(defs, valueobjects.EmptyPropertyBag())
	require.NoError(t, err)

	tier, ok := normalized.Get("tier")
	require.True(t, ok)
	assert.Equal(t, "free", tier)
}

func TestPropertyValidator_Apply_IntegerKinds(t *testing.T) {
	validator := NewPropertyValidator()
	defs := []schema.PropertyDefinition{{Name: "count", Type: schema.TypeInteger}}

	for _, value := range []interface{}{int(7), int32(7), int64(7), float64(7)} {
		bag := valueobjects.NewPropertyBag(map[string]interface{}{"count": value})
		_, err := validator.Apply(defs, bag)
		assert.NoError(t, err, "value %T should be accepted as integer", value)
	}
}

func TestPropertyValidator_Apply_EmptyDefinitions(t *testing.T) {
	validator := NewPropertyValidator()

	_, err := validator.Apply(nil, valueobjects.EmptyPropertyBag())
	assert.NoError(t, err)

	_, err = validator.Apply(nil, valueobjects.NewPropertyBag(map[string]interface{}{"anything": 1}))
	require.Error(t, err)
	codes := violationCodes(t, err)
	assert.Contains(t, codes["anything"], "UNKNOWN_PROPERTY")
}

func BenchmarkPropertyValidator_Apply(b *testing.B) {
	validator := NewPropertyValidator()
	defs := personProperties()
	bag := valueobjects.NewPropertyBag(map[string]interface{}{
		"name":   "Ada",
		"age":    float64(36),
		"status": "active",
		"code":   "ABC-1234",
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = validator.Apply(defs, bag)
	}
}
