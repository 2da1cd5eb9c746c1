// Package memreg provides the in-memory capability registry.
package memreg

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/capbridge/capbridge/internal/domain"
	"github.com/capbridge/capbridge/internal/usecase"
)

// DuplicatePolicy decides what happens when a capability name is registered
// twice. It is fixed at registry construction and applied uniformly to every
// registration.
type DuplicatePolicy string

const (
	// PolicyWarn logs the collision and replaces the existing entry.
	PolicyWarn DuplicatePolicy = "warn"
	// PolicyError rejects the new registration with a ConflictError.
	PolicyError DuplicatePolicy = "error"
	// PolicyReplace silently overwrites the existing entry.
	PolicyReplace DuplicatePolicy = "replace"
	// PolicyIgnore keeps the existing entry and discards the new one.
	PolicyIgnore DuplicatePolicy = "ignore"
)

// ParseDuplicatePolicy maps a config string onto a policy, defaulting to warn.
func ParseDuplicatePolicy(s string) DuplicatePolicy {
	switch DuplicatePolicy(strings.ToLower(s)) {
	case PolicyError:
		return PolicyError
	case PolicyReplace:
		return PolicyReplace
	case PolicyIgnore:
		return PolicyIgnore
	default:
		return PolicyWarn
	}
}

// Registry is an in-memory implementation of usecase.Registry. Reads are
// concurrent; writes are mutually exclusive with each other but entries are
// immutable once stored, so readers never observe partial state.
// NOTE: not persistent; contents are rebuilt from sources on restart.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*domain.CapabilityDescriptor
	policy  DuplicatePolicy
	logger  *slog.Logger
}

// New creates an empty registry with the given duplicate policy.
func New(policy DuplicatePolicy, logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*domain.CapabilityDescriptor),
		policy:  policy,
		logger:  logger.With("component", "registry"),
	}
}

// Register stores the descriptor under its name, applying the duplicate
// policy on collision.
func (r *Registry) Register(desc *domain.CapabilityDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		switch r.policy {
		case PolicyError:
			r.logger.Warn("Rejecting duplicate registration.", slog.String("name", desc.Name))
			return &domain.ConflictError{Name: desc.Name}
		case PolicyIgnore:
			r.logger.Debug("Ignoring duplicate registration.", slog.String("name", desc.Name))
			return nil
		case PolicyWarn:
			r.logger.Warn("Replacing existing capability.", slog.String("name", desc.Name))
		}
		// PolicyReplace overwrites without comment.
	}
	r.entries[desc.Name] = desc
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*domain.CapabilityDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.entries[name]
	if !ok {
		return nil, usecase.ErrCapabilityNotFound
	}
	return desc, nil
}

// List returns every descriptor of the given kind; an empty kind returns all.
func (r *Registry) List(kind domain.CapabilityKind) []*domain.CapabilityDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*domain.CapabilityDescriptor, 0, len(r.entries))
	for _, desc := range r.entries {
		if kind != "" && desc.Kind != kind {
			continue
		}
		list = append(list, desc)
	}
	return list
}
