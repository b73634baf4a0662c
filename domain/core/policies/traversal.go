package policies

import (
	"lattice/domain/config"
	"lattice/pkg/errors"
)

// Direction of edge traversal relative to the start entity
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// ParseDirection converts input into a direction. Empty input means the
// default; anything else unrecognized is a validation error, never a
// silent fallback.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "":
		return DirectionBoth, nil
	case string(DirectionOut):
		return DirectionOut, nil
	case string(DirectionIn):
		return DirectionIn, nil
	case string(DirectionBoth):
		return DirectionBoth, nil
	default:
		return "", errors.NewDomainError(
			errors.DomainValidationError,
			"INVALID_DIRECTION",
			"Traversal direction must be one of: out, in, both",
		).WithDetail("direction", s)
	}
}

// TraversalParams are the bounded knobs of a graph traversal after
// normalization
type TraversalParams struct {
	Depth     int       `json:"depth"`
	Limit     int       `json:"limit"`
	Offset    int       `json:"offset"`
	Direction Direction `json:"direction"`
}

// TraversalPolicy applies defaults and clamps traversal input into safe
// bounds before any graph work happens
type TraversalPolicy struct {
	cfg *config.DomainConfig
}

// NewTraversalPolicy creates a policy bound to domain limits
func NewTraversalPolicy(cfg *config.DomainConfig) *TraversalPolicy {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &TraversalPolicy{cfg: cfg}
}

// Normalize applies defaults for unset values and silently clamps
// out-of-range numerics; the caller proceeds with the clamped result.
// Only an unknown direction is an error.
func (p *TraversalPolicy) Normalize(depth, limit, offset int, direction string) (TraversalParams, error) {
	dir, err := ParseDirection(direction)
	if err != nil {
		return TraversalParams{}, err
	}

	params := TraversalParams{Direction: dir}

	switch {
	case depth == 0:
		params.Depth = p.cfg.DefaultTraversalDepth
	case depth < 1:
		params.Depth = 1
	case depth > p.cfg.MaxTraversalDepth:
		params.Depth = p.cfg.MaxTraversalDepth
	default:
		params.Depth = depth
	}

	switch {
	case limit == 0:
		params.Limit = p.cfg.DefaultTraversalLimit
	case limit < 1:
		params.Limit = 1
	case limit > p.cfg.MaxTraversalLimit:
		params.Limit = p.cfg.MaxTraversalLimit
	default:
		params.Limit = limit
	}

	switch {
	case offset < 0:
		params.Offset = 0
	case offset > p.cfg.MaxTraversalOffset:
		params.Offset = p.cfg.MaxTraversalOffset
	default:
		params.Offset = offset
	}

	return params, nil
}

// VisitBudget is the hard ceiling on entities a single traversal may
// touch, independent of user input
func (p *TraversalPolicy) VisitBudget() int {
	return p.cfg.MaxVisitedEntities
}

// MaxDepth exposes the configured depth ceiling
func (p *TraversalPolicy) MaxDepth() int {
	return p.cfg.MaxTraversalDepth
}
