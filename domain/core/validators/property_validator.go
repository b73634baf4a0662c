package validators

import (
	"fmt"
	"math"
	"regexp"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"
	"lattice/pkg/errors"
)

// PropertyValidator validates property bags against property definitions.
// All violations are collected rather than stopping at the first, so one
// response tells the caller everything wrong with the bag.
type PropertyValidator struct {
	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

// NewPropertyValidator creates a property validator
func NewPropertyValidator() *PropertyValidator {
	return &PropertyValidator{
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Apply validates the bag against the definitions and applies declared
// defaults for absent properties. The returned bag is the normalized one;
// use it only when the error is nil.
func (v *PropertyValidator) Apply(defs []schema.PropertyDefinition, bag valueobjects.PropertyBag) (valueobjects.PropertyBag, error) {
	validationErrors := errors.NewValidationErrors()

	declared := make(map[string]schema.PropertyDefinition, len(defs))
	for _, def := range defs {
		declared[def.Name] = def
	}

	// Strict bags: every key must be declared
	for _, name := range bag.Names() {
		if _, ok := declared[name]; !ok {
			validationErrors.AddWithCode(name, "UNKNOWN_PROPERTY",
				fmt.Sprintf("Property %q is not declared for this type", name))
		}
	}

	normalized := bag
	for _, def := range defs {
		value, present := normalized.Get(def.Name)

		if !present {
			if def.HasDefault() {
				normalized = normalized.With(def.Name, def.Default)
				continue
			}
			if def.Required {
				validationErrors.AddWithCode(def.Name, "PROPERTY_REQUIRED",
					fmt.Sprintf("Property %q is required", def.Name))
			}
			continue
		}

		v.validateValue(def, value, validationErrors)
	}

	if validationErrors.HasErrors() {
		return normalized, validationErrors
	}
	return normalized, nil
}

// validateValue checks a single present value against its definition
func (v *PropertyValidator) validateValue(def schema.PropertyDefinition, value interface{}, out *errors.ValidationErrors) {
	switch def.Type {
	case schema.TypeString:
		s, ok := value.(string)
		if !ok {
			v.typeMismatch(def, value, out)
			return
		}
		v.validateStringBounds(def, s, out)

	case schema.TypeInteger:
		n, ok := integralValue(value)
		if !ok {
			v.typeMismatch(def, value, out)
			return
		}
		v.validateNumericBounds(def, n, out)

	case schema.TypeFloat:
		n, ok := numericValue(value)
		if !ok {
			v.typeMismatch(def, value, out)
			return
		}
		v.validateNumericBounds(def, n, out)

	case schema.TypeBoolean:
		if _, ok := value.(bool); !ok {
			v.typeMismatch(def, value, out)
		}

	case schema.TypeDateTime:
		s, ok := value.(string)
		if !ok {
			v.typeMismatch(def, value, out)
			return
		}
		if _, err := parseDateTime(s); err != nil {
			out.AddWithCode(def.Name, "PROPERTY_TYPE_MISMATCH",
				fmt.Sprintf("Property %q must be an RFC 3339 datetime", def.Name))
		}

	case schema.TypeUUID:
		s, ok := value.(string)
		if !ok {
			v.typeMismatch(def, value, out)
			return
		}
		if _, err := uuid.Parse(s); err != nil {
			out.AddWithCode(def.Name, "PROPERTY_TYPE_MISMATCH",
				fmt.Sprintf("Property %q must be a valid UUID", def.Name))
		}

	case schema.TypeEnum:
		s, ok := value.(string)
		if !ok {
			v.typeMismatch(def, value, out)
			return
		}
		if !def.AllowsEnumValue(s) {
			out.AddWithCode(def.Name, "PROPERTY_NOT_IN_ENUM",
				fmt.Sprintf("Property %q must be one of the declared enum values", def.Name))
		}

	case schema.TypeJSON:
		// Any value is acceptable

	default:
		out.AddWithCode(def.Name, "UNKNOWN_PROPERTY_TYPE",
			fmt.Sprintf("Property %q has unsupported type %q", def.Name, def.Type))
	}
}

func (v *PropertyValidator) validateStringBounds(def schema.PropertyDefinition, s string, out *errors.ValidationErrors) {
	length := utf8.RuneCountInString(s)

	if def.MinLength != nil && length < *def.MinLength {
		out.AddWithCode(def.Name, "PROPERTY_TOO_SHORT",
			fmt.Sprintf("Property %q must be at least %d characters", def.Name, *def.MinLength))
	}
	if def.MaxLength != nil && length > *def.MaxLength {
		out.AddWithCode(def.Name, "PROPERTY_TOO_LONG",
			fmt.Sprintf("Property %q must be at most %d characters", def.Name, *def.MaxLength))
	}

	if def.Pattern != "" {
		re, err := v.compiledPattern(def.Pattern)
		if err != nil {
			out.AddWithCode(def.Name, "INVALID_PATTERN",
				fmt.Sprintf("Property %q has a pattern that does not compile", def.Name))
			return
		}
		if !re.MatchString(s) {
			out.AddWithCode(def.Name, "PROPERTY_PATTERN_MISMATCH",
				fmt.Sprintf("Property %q does not match the required pattern", def.Name))
		}
	}
}

func (v *PropertyValidator) validateNumericBounds(def schema.PropertyDefinition, n float64, out *errors.ValidationErrors) {
	if def.Minimum != nil && n < *def.Minimum {
		out.AddWithCode(def.Name, "PROPERTY_BELOW_MINIMUM",
			fmt.Sprintf("Property %q must be at least %v", def.Name, *def.Minimum))
	}
	if def.Maximum != nil && n > *def.Maximum {
		out.AddWithCode(def.Name, "PROPERTY_ABOVE_MAXIMUM",
			fmt.Sprintf("Property %q must be at most %v", def.Name, *def.Maximum))
	}
}

func (v *PropertyValidator) typeMismatch(def schema.PropertyDefinition, value interface{}, out *errors.ValidationErrors) {
	out.AddWithCode(def.Name, "PROPERTY_TYPE_MISMATCH",
		fmt.Sprintf("Property %q must be of type %s, got %T", def.Name, def.Type, value))
}

// compiledPattern compiles and caches an anchored pattern. Patterns come
// from published schemas, so the cache is small and long-lived.
func (v *PropertyValidator) compiledPattern(pattern string) (*regexp.Regexp, error) {
	v.mu.RLock()
	re, ok := v.patterns[pattern]
	v.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.patterns[pattern] = re
	v.mu.Unlock()
	return re, nil
}

// numericValue converts any accepted numeric representation to float64
func numericValue(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// integralValue accepts integer kinds plus JSON numbers that happen to be
// integral, since encoding/json decodes all numbers as float64
func integralValue(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		if n == math.Trunc(n) {
			return n, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// parseDateTime accepts RFC 3339 with or without fractional seconds
func parseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t, err
}
