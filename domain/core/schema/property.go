package schema

// PropertyType enumerates the value types a property definition may declare
type PropertyType string

const (
	TypeString   PropertyType = "string"
	TypeInteger  PropertyType = "integer"
	TypeFloat    PropertyType = "float"
	TypeBoolean  PropertyType = "boolean"
	TypeDateTime PropertyType = "datetime"
	TypeUUID     PropertyType = "uuid"
	TypeEnum     PropertyType = "enum"
	TypeJSON     PropertyType = "json"
)

// IsValid reports whether the type is one of the supported set
func (t PropertyType) IsValid() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeDateTime, TypeUUID, TypeEnum, TypeJSON:
		return true
	default:
		return false
	}
}

// SupportedPropertyTypes returns all valid property types
func SupportedPropertyTypes() []PropertyType {
	return []PropertyType{
		TypeString, TypeInteger, TypeFloat, TypeBoolean,
		TypeDateTime, TypeUUID, TypeEnum, TypeJSON,
	}
}

// PropertyDefinition describes one property of an entity or edge type.
// Bound fields are pointers so absent and zero are distinguishable.
type PropertyDefinition struct {
	Name      string       `json:"name" yaml:"name"`
	Type      PropertyType `json:"type" yaml:"type"`
	Required  bool         `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength *int         `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength *int         `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Minimum   *float64     `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum   *float64     `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Pattern   string       `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Values    []string     `json:"values,omitempty" yaml:"values,omitempty"`
	Default   interface{}  `json:"default,omitempty" yaml:"default,omitempty"`
}

// HasDefault reports whether a default value is declared
func (d PropertyDefinition) HasDefault() bool {
	return d.Default != nil
}

// AllowsEnumValue reports whether the value is an enum member
func (d PropertyDefinition) AllowsEnumValue(value string) bool {
	for _, v := range d.Values {
		if v == value {
			return true
		}
	}
	return false
}
