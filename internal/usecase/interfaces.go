package usecase

import (
	"context"
	"errors"

	"github.com/capbridge/capbridge/internal/domain"
)

// Standard errors returned by use cases and adapters.
var (
	ErrCapabilityNotFound = errors.New("capability not found")
)

// Registry is the process-wide store of built capability descriptors.
// Implementations must support concurrent lookups; registration happens
// during the build phase and applies the registry's duplicate policy.
type Registry interface {
	// Register stores a descriptor under its name, applying the duplicate
	// policy on collision. A ConflictError is returned only under the
	// "error" policy.
	Register(desc *domain.CapabilityDescriptor) error

	// Lookup returns the descriptor registered under name, or
	// ErrCapabilityNotFound.
	Lookup(name string) (*domain.CapabilityDescriptor, error)

	// List returns all descriptors of the given kind, or all of them when
	// kind is empty. Order is unspecified.
	List(kind domain.CapabilityKind) []*domain.CapabilityDescriptor
}

// SourceConfig identifies one API description source, with optional headers
// sent when fetching it.
type SourceConfig struct {
	URL     string
	Headers map[string]string
}

// RouteSource produces the normalized route list for one API description,
// along with the backend base URL requests should target. Parsing the raw
// description format is this collaborator's concern, not the engine's.
type RouteSource interface {
	Fetch(ctx context.Context, cfg SourceConfig) ([]domain.Route, string, error)
}

// Binder exposes a built capability over the invocation protocol. The MCP
// adapter implements it; use cases stay free of protocol types.
type Binder interface {
	Bind(desc *domain.CapabilityDescriptor) error
}
