package config

import "fmt"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Workspace constraints
	MaxEntitiesPerWorkspace int
	MaxEdgesPerWorkspace    int
	MaxMembersPerWorkspace  int
	MaxWorkspaceNameLength  int

	// Schema constraints
	MaxEntityTypesPerSchema   int
	MaxEdgeTypesPerSchema     int
	MaxPropertiesPerType      int
	MaxEnumValuesPerProperty  int
	MaxIdentifierLength       int
	MaxSchemaVersionsRetained int

	// Entity constraints
	MaxEntityNameLength int
	MaxPropertyBytes    int

	// Traversal bounds
	DefaultTraversalDepth int
	MaxTraversalDepth     int
	DefaultTraversalLimit int
	MaxTraversalLimit     int
	MaxTraversalOffset    int
	MaxVisitedEntities    int

	// Validation settings
	AllowSelfReferentialEdges bool
	AllowDuplicateEdges       bool

	// Feature flags
	EnableSchemaSeeding  bool
	EnableGraphEvents    bool
	EnableQueryCaching   bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Workspace constraints
		MaxEntitiesPerWorkspace: 50000,
		MaxEdgesPerWorkspace:    250000,
		MaxMembersPerWorkspace:  100,
		MaxWorkspaceNameLength:  120,

		// Schema constraints
		MaxEntityTypesPerSchema:   100,
		MaxEdgeTypesPerSchema:     100,
		MaxPropertiesPerType:      64,
		MaxEnumValuesPerProperty:  64,
		MaxIdentifierLength:       64,
		MaxSchemaVersionsRetained: 0, // keep all versions

		// Entity constraints
		MaxEntityNameLength: 200,
		MaxPropertyBytes:    64 * 1024,

		// Traversal bounds
		DefaultTraversalDepth: 2,
		MaxTraversalDepth:     8,
		DefaultTraversalLimit: 50,
		MaxTraversalLimit:     500,
		MaxTraversalOffset:    10000,
		MaxVisitedEntities:    5000,

		// Validation settings
		AllowSelfReferentialEdges: false,
		AllowDuplicateEdges:       false,

		// Feature flags
		EnableSchemaSeeding: false,
		EnableGraphEvents:   true,
		EnableQueryCaching:  true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More restrictive limits for production
	config.MaxEntitiesPerWorkspace = 20000
	config.MaxEdgesPerWorkspace = 100000
	config.MaxPropertyBytes = 32 * 1024
	config.MaxVisitedEntities = 2500

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development. Duplicate edges stay rejected in
	// every profile; the store-level adjacency index assumes the (source,
	// target, type) triple is unique.
	config.MaxEntitiesPerWorkspace = 500000
	config.MaxEdgesPerWorkspace = 2500000
	config.AllowSelfReferentialEdges = true
	config.EnableSchemaSeeding = true

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.DefaultTraversalDepth < 1 || c.DefaultTraversalDepth > c.MaxTraversalDepth {
		return fmt.Errorf("default traversal depth %d outside [1, %d]", c.DefaultTraversalDepth, c.MaxTraversalDepth)
	}
	if c.DefaultTraversalLimit < 1 || c.DefaultTraversalLimit > c.MaxTraversalLimit {
		return fmt.Errorf("default traversal limit %d outside [1, %d]", c.DefaultTraversalLimit, c.MaxTraversalLimit)
	}
	if c.MaxVisitedEntities < c.MaxTraversalLimit {
		return fmt.Errorf("visited ceiling %d below traversal limit %d", c.MaxVisitedEntities, c.MaxTraversalLimit)
	}
	if c.MaxIdentifierLength <= 0 {
		return fmt.Errorf("identifier length limit must be positive")
	}
	return nil
}
