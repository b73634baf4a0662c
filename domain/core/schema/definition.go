package schema

import "time"

// EntityTypeDefinition describes one entity type and its properties
type EntityTypeDefinition struct {
	Name        string               `json:"name" yaml:"name"`
	DisplayName string               `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  []PropertyDefinition `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Property looks up a property definition by name
func (d EntityTypeDefinition) Property(name string) (PropertyDefinition, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDefinition{}, false
}

// EdgeTypeDefinition describes one edge type, the entity types it may
// connect, and its properties. Empty SourceTypes or TargetTypes means
// unconstrained.
type EdgeTypeDefinition struct {
	Name        string               `json:"name" yaml:"name"`
	DisplayName string               `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	SourceTypes []string             `json:"source_types,omitempty" yaml:"source_types,omitempty"`
	TargetTypes []string             `json:"target_types,omitempty" yaml:"target_types,omitempty"`
	Properties  []PropertyDefinition `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Property looks up a property definition by name
func (d EdgeTypeDefinition) Property(name string) (PropertyDefinition, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDefinition{}, false
}

// AllowsSource reports whether an entity type may be the edge's source
func (d EdgeTypeDefinition) AllowsSource(entityType string) bool {
	return allowsEndpoint(d.SourceTypes, entityType)
}

// AllowsTarget reports whether an entity type may be the edge's target
func (d EdgeTypeDefinition) AllowsTarget(entityType string) bool {
	return allowsEndpoint(d.TargetTypes, entityType)
}

func allowsEndpoint(constraint []string, entityType string) bool {
	if len(constraint) == 0 {
		return true
	}
	for _, t := range constraint {
		if t == entityType {
			return true
		}
	}
	return false
}

// SchemaDefinition is one immutable published version of a workspace's
// schema. Version numbers are assigned on publish and never reused.
type SchemaDefinition struct {
	Version     int                    `json:"version" yaml:"version"`
	Name        string                 `json:"name,omitempty" yaml:"name,omitempty"`
	EntityTypes []EntityTypeDefinition `json:"entity_types,omitempty" yaml:"entity_types,omitempty"`
	EdgeTypes   []EdgeTypeDefinition   `json:"edge_types,omitempty" yaml:"edge_types,omitempty"`
	PublishedBy string                 `json:"published_by,omitempty" yaml:"published_by,omitempty"`
	PublishedAt time.Time              `json:"published_at,omitempty" yaml:"published_at,omitempty"`
}

// EntityType looks up an entity type definition by name
func (s *SchemaDefinition) EntityType(name string) (EntityTypeDefinition, bool) {
	for _, t := range s.EntityTypes {
		if t.Name == name {
			return t, true
		}
	}
	return EntityTypeDefinition{}, false
}

// EdgeType looks up an edge type definition by name
func (s *SchemaDefinition) EdgeType(name string) (EdgeTypeDefinition, bool) {
	for _, t := range s.EdgeTypes {
		if t.Name == name {
			return t, true
		}
	}
	return EdgeTypeDefinition{}, false
}

// HasEntityType reports whether the entity type is declared
func (s *SchemaDefinition) HasEntityType(name string) bool {
	_, ok := s.EntityType(name)
	return ok
}

// HasEdgeType reports whether the edge type is declared
func (s *SchemaDefinition) HasEdgeType(name string) bool {
	_, ok := s.EdgeType(name)
	return ok
}
