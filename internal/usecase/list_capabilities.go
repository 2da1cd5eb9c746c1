package usecase

import (
	"log/slog"

	"github.com/capbridge/capbridge/internal/domain"
)

// ListCapabilitiesUseCase serves registry listings to the protocol boundary.
type ListCapabilitiesUseCase struct {
	registry Registry
	logger   *slog.Logger
}

// NewListCapabilitiesUseCase creates the listing use case.
func NewListCapabilitiesUseCase(registry Registry, logger *slog.Logger) *ListCapabilitiesUseCase {
	return &ListCapabilitiesUseCase{
		registry: registry,
		logger:   logger.With("usecase", "ListCapabilities"),
	}
}

// Execute returns all registered descriptors, optionally filtered by kind.
func (uc *ListCapabilitiesUseCase) Execute(kind domain.CapabilityKind) []*domain.CapabilityDescriptor {
	descs := uc.registry.List(kind)
	uc.logger.Debug("Listed capabilities.", slog.Int("count", len(descs)), slog.String("kind_filter", string(kind)))
	return descs
}
