package validators

import (
	"fmt"
	"regexp"

	"lattice/domain/config"
	"lattice/domain/core/policies"
	"lattice/domain/core/schema"
	"lattice/domain/core/valueobjects"
	"lattice/pkg/errors"
)

// SchemaValidator enforces structural integrity of schema definitions at
// publish time and validates entity and edge instances against a published
// schema afterwards.
type SchemaValidator struct {
	cfg        *config.DomainConfig
	properties *PropertyValidator
}

// NewSchemaValidator creates a schema validator with the given limits
func NewSchemaValidator(cfg *config.DomainConfig) *SchemaValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &SchemaValidator{
		cfg:        cfg,
		properties: NewPropertyValidator(),
	}
}

// PropertyValidator exposes the instance-level validator so callers can
// reuse its pattern cache.
func (v *SchemaValidator) PropertyValidator() *PropertyValidator {
	return v.properties
}

// ValidateDefinition checks a schema definition before it is published.
// Every structural problem is reported, not just the first.
func (v *SchemaValidator) ValidateDefinition(def *schema.SchemaDefinition) error {
	if def == nil {
		return errors.NewDomainError(errors.DomainValidationError, "SCHEMA_REQUIRED",
			"Schema definition is required")
	}

	validationErrors := errors.NewValidationErrors()

	if len(def.EntityTypes) == 0 {
		validationErrors.AddWithCode("entity_types", "SCHEMA_EMPTY",
			"Schema must declare at least one entity type")
	}
	if len(def.EntityTypes) > v.cfg.MaxEntityTypesPerSchema {
		validationErrors.AddWithCode("entity_types", "TOO_MANY_ENTITY_TYPES",
			fmt.Sprintf("Schema declares %d entity types, maximum is %d", len(def.EntityTypes), v.cfg.MaxEntityTypesPerSchema))
	}
	if len(def.EdgeTypes) > v.cfg.MaxEdgeTypesPerSchema {
		validationErrors.AddWithCode("edge_types", "TOO_MANY_EDGE_TYPES",
			fmt.Sprintf("Schema declares %d edge types, maximum is %d", len(def.EdgeTypes), v.cfg.MaxEdgeTypesPerSchema))
	}

	declaredEntities := make(map[string]bool, len(def.EntityTypes))
	for _, et := range def.EntityTypes {
		field := "entity_types." + et.Name
		if declaredEntities[et.Name] {
			validationErrors.AddWithCode(field, "DUPLICATE_ENTITY_TYPE",
				fmt.Sprintf("Entity type %q is declared more than once", et.Name))
			continue
		}
		declaredEntities[et.Name] = true

		v.validateTypeName(field, et.Name, validationErrors)
		v.validatePropertyList(field, et.Properties, validationErrors)
	}

	declaredEdges := make(map[string]bool, len(def.EdgeTypes))
	for _, et := range def.EdgeTypes {
		field := "edge_types." + et.Name
		if declaredEdges[et.Name] {
			validationErrors.AddWithCode(field, "DUPLICATE_EDGE_TYPE",
				fmt.Sprintf("Edge type %q is declared more than once", et.Name))
			continue
		}
		declaredEdges[et.Name] = true

		v.validateTypeName(field, et.Name, validationErrors)
		v.validatePropertyList(field, et.Properties, validationErrors)
		v.validateEndpointTypes(field+".source_types", et.SourceTypes, declaredEntities, validationErrors)
		v.validateEndpointTypes(field+".target_types", et.TargetTypes, declaredEntities, validationErrors)
	}

	return validationErrors.ErrOrNil()
}

// validateTypeName checks an entity or edge type identifier
func (v *SchemaValidator) validateTypeName(field, name string, out *errors.ValidationErrors) {
	if !policies.IsValidIdentifier(name) {
		out.AddWithCode(field, "INVALID_IDENTIFIER",
			fmt.Sprintf("Type name %q must be a lowercase identifier of at most %d bytes", name, policies.MaxIdentifierLength))
	}
}

// validatePropertyList checks the property definitions of one type
func (v *SchemaValidator) validatePropertyList(typeField string, props []schema.PropertyDefinition, out *errors.ValidationErrors) {
	if len(props) > v.cfg.MaxPropertiesPerType {
		out.AddWithCode(typeField, "TOO_MANY_PROPERTIES",
			fmt.Sprintf("Type declares %d properties, maximum is %d", len(props), v.cfg.MaxPropertiesPerType))
	}

	seen := make(map[string]bool, len(props))
	for _, prop := range props {
		field := typeField + "." + prop.Name
		if seen[prop.Name] {
			out.AddWithCode(field, "DUPLICATE_PROPERTY",
				fmt.Sprintf("Property %q is declared more than once", prop.Name))
			continue
		}
		seen[prop.Name] = true

		if !policies.IsValidIdentifier(prop.Name) {
			out.AddWithCode(field, "INVALID_IDENTIFIER",
				fmt.Sprintf("Property name %q must be a lowercase identifier of at most %d bytes", prop.Name, policies.MaxIdentifierLength))
		}
		v.validatePropertyDefinition(field, prop, out)
	}
}

// validatePropertyDefinition checks one property's type and constraints
func (v *SchemaValidator) validatePropertyDefinition(field string, prop schema.PropertyDefinition, out *errors.ValidationErrors) {
	if !prop.Type.IsValid() {
		out.AddWithCode(field, "UNKNOWN_PROPERTY_TYPE",
			fmt.Sprintf("Property type %q is not supported", prop.Type))
		return
	}

	switch prop.Type {
	case schema.TypeEnum:
		if len(prop.Values) == 0 {
			out.AddWithCode(field, "ENUM_VALUES_REQUIRED",
				"Enum properties must declare at least one value")
		}
		if len(prop.Values) > v.cfg.MaxEnumValuesPerProperty {
			out.AddWithCode(field, "TOO_MANY_ENUM_VALUES",
				fmt.Sprintf("Enum declares %d values, maximum is %d", len(prop.Values), v.cfg.MaxEnumValuesPerProperty))
		}
		seen := make(map[string]bool, len(prop.Values))
		for _, value := range prop.Values {
			if seen[value] {
				out.AddWithCode(field, "DUPLICATE_ENUM_VALUE",
					fmt.Sprintf("Enum value %q is declared more than once", value))
			}
			seen[value] = true
		}

	case schema.TypeString:
		if prop.MinLength != nil && *prop.MinLength < 0 {
			out.AddWithCode(field, "INVALID_LENGTH_BOUND", "MinLength must not be negative")
		}
		if prop.MaxLength != nil && *prop.MaxLength < 0 {
			out.AddWithCode(field, "INVALID_LENGTH_BOUND", "MaxLength must not be negative")
		}
		if prop.MinLength != nil && prop.MaxLength != nil && *prop.MinLength > *prop.MaxLength {
			out.AddWithCode(field, "INVERTED_LENGTH_BOUNDS",
				fmt.Sprintf("MinLength %d exceeds MaxLength %d", *prop.MinLength, *prop.MaxLength))
		}
		if prop.Pattern != "" {
			if _, err := regexp.Compile(prop.Pattern); err != nil {
				out.AddWithCode(field, "INVALID_PATTERN",
					fmt.Sprintf("Pattern does not compile: %v", err))
			}
		}

	case schema.TypeInteger, schema.TypeFloat:
		if prop.Minimum != nil && prop.Maximum != nil && *prop.Minimum > *prop.Maximum {
			out.AddWithCode(field, "INVERTED_BOUNDS",
				fmt.Sprintf("Minimum %v exceeds Maximum %v", *prop.Minimum, *prop.Maximum))
		}
	}

	if prop.HasDefault() {
		v.validateDefault(field, prop, out)
	}
}

// validateDefault makes sure a declared default would itself pass
// instance validation, so applying it can never produce an invalid bag
func (v *SchemaValidator) validateDefault(field string, prop schema.PropertyDefinition, out *errors.ValidationErrors) {
	probe := errors.NewValidationErrors()
	v.properties.validateValue(prop, prop.Default, probe)
	if probe.HasErrors() {
		out.AddWithCode(field, "INVALID_DEFAULT",
			fmt.Sprintf("Default value %v does not satisfy the property's own constraints", prop.Default))
	}
}

// validateEndpointTypes checks that endpoint constraints only reference
// entity types declared in the same schema
func (v *SchemaValidator) validateEndpointTypes(field string, endpointTypes []string, declared map[string]bool, out *errors.ValidationErrors) {
	seen := make(map[string]bool, len(endpointTypes))
	for _, name := range endpointTypes {
		if seen[name] {
			out.AddWithCode(field, "DUPLICATE_ENDPOINT_TYPE",
				fmt.Sprintf("Endpoint type %q is listed more than once", name))
		}
		seen[name] = true
		if !declared[name] {
			out.AddWithCode(field, "UNDECLARED_ENDPOINT_TYPE",
				fmt.Sprintf("Endpoint type %q is not declared in this schema", name))
		}
	}
}

// ValidateEntity checks an entity instance against the schema and returns
// the normalized property bag with defaults applied.
func (v *SchemaValidator) ValidateEntity(def *schema.SchemaDefinition, entityType string, properties valueobjects.PropertyBag) (valueobjects.PropertyBag, error) {
	if def == nil {
		return properties, errors.NewDomainError(errors.DomainValidationError, "SCHEMA_REQUIRED",
			"No schema is published for this workspace")
	}

	typeDef, ok := def.EntityType(entityType)
	if !ok {
		return properties, errors.NewDomainError(errors.DomainValidationError, "UNKNOWN_ENTITY_TYPE",
			fmt.Sprintf("Entity type %q is not declared in schema version %d", entityType, def.Version)).
			WithDetail("entity_type", entityType).
			WithDetail("schema_version", fmt.Sprintf("%d", def.Version))
	}

	return v.properties.Apply(typeDef.Properties, properties)
}

// ValidateEdge checks an edge instance against the schema, including the
// endpoint type constraints, and returns the normalized property bag.
func (v *SchemaValidator) ValidateEdge(def *schema.SchemaDefinition, edgeType, sourceType, targetType string, properties valueobjects.PropertyBag) (valueobjects.PropertyBag, error) {
	if def == nil {
		return properties, errors.NewDomainError(errors.DomainValidationError, "SCHEMA_REQUIRED",
			"No schema is published for this workspace")
	}

	typeDef, ok := def.EdgeType(edgeType)
	if !ok {
		return properties, errors.NewDomainError(errors.DomainValidationError, "UNKNOWN_EDGE_TYPE",
			fmt.Sprintf("Edge type %q is not declared in schema version %d", edgeType, def.Version)).
			WithDetail("edge_type", edgeType).
			WithDetail("schema_version", fmt.Sprintf("%d", def.Version))
	}

	if !typeDef.AllowsSource(sourceType) {
		return properties, errors.NewDomainError(errors.DomainValidationError, "EDGE_ENDPOINT_NOT_ALLOWED",
			fmt.Sprintf("Edge type %q does not allow source entities of type %q", edgeType, sourceType)).
			WithDetail("edge_type", edgeType).
			WithDetail("endpoint", "source").
			WithDetail("entity_type", sourceType)
	}
	if !typeDef.AllowsTarget(targetType) {
		return properties, errors.NewDomainError(errors.DomainValidationError, "EDGE_ENDPOINT_NOT_ALLOWED",
			fmt.Sprintf("Edge type %q does not allow target entities of type %q", edgeType, targetType)).
			WithDetail("edge_type", edgeType).
			WithDetail("endpoint", "target").
			WithDetail("entity_type", targetType)
	}

	return v.properties.Apply(typeDef.Properties, properties)
}
