// Package domain defines the core business entities for Bidwright.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Run: The entities produced for one uploaded document
//   - Stage: A position in the parse, retrieve, draft, review sequence
//   - RequirementSet: The parsed requirements or a fallback record
//   - Block: One structured line of an export document
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
