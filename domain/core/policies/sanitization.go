package policies

import (
	"regexp"

	"github.com/google/uuid"

	"lattice/pkg/errors"
)

// MaxIdentifierLength bounds type and property names in bytes
const MaxIdentifierLength = 64

// Identifiers are lowercase snake_case starting with a letter
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// IsValidIdentifier reports whether s is a well-formed schema identifier
func IsValidIdentifier(s string) bool {
	return len(s) > 0 && len(s) <= MaxIdentifierLength && identifierPattern.MatchString(s)
}

// ValidateIdentifier checks a schema identifier and names the offending
// field in the returned error
func ValidateIdentifier(field, value string) error {
	if IsValidIdentifier(value) {
		return nil
	}
	return errors.NewDomainError(
		errors.DomainValidationError,
		"INVALID_IDENTIFIER",
		"Identifier must be lowercase snake_case starting with a letter, 64 bytes max",
	).WithDetail("field", field).WithDetail("value", value)
}

// IsValidUUID reports whether s parses as an RFC 4122 UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ValidateUUID checks a UUID-shaped input and names the offending field
// in the returned error
func ValidateUUID(field, value string) error {
	if value != "" && IsValidUUID(value) {
		return nil
	}
	return errors.NewDomainError(
		errors.DomainValidationError,
		"INVALID_UUID",
		"Value must be a valid UUID",
	).WithDetail("field", field).WithDetail("value", value)
}
