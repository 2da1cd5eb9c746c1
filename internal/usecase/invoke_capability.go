package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/capbridge/capbridge/internal/capability"
)

// InvokeCapabilityUseCase resolves a capability by name and drives one
// invocation translator through to its terminal result.
type InvokeCapabilityUseCase struct {
	registry   Registry
	dispatcher capability.Dispatcher
	coerce     capability.CoercionScope
	logger     *slog.Logger
}

// NewInvokeCapabilityUseCase creates the invocation use case.
func NewInvokeCapabilityUseCase(registry Registry, dispatcher capability.Dispatcher, coerce capability.CoercionScope, logger *slog.Logger) *InvokeCapabilityUseCase {
	return &InvokeCapabilityUseCase{
		registry:   registry,
		dispatcher: dispatcher,
		coerce:     coerce,
		logger:     logger.With("usecase", "InvokeCapability"),
	}
}

// Execute looks up the capability and runs a fresh translator for it. Each
// call owns its own translator; concurrent invocations never share state.
// The returned error is non-nil only when the capability does not exist;
// invocation failures are carried inside the Result.
func (uc *InvokeCapabilityUseCase) Execute(ctx context.Context, name string, args map[string]interface{}) (capability.Result, error) {
	log := uc.logger.With(
		slog.String("capability", name),
		slog.String("invocation_id", uuid.NewString()))

	desc, err := uc.registry.Lookup(name)
	if err != nil {
		log.Warn("Capability not found.", slog.Any("error", err))
		return capability.Result{}, fmt.Errorf("capability %q: %w", name, err)
	}

	log.Info("Invoking capability.", slog.String("kind", string(desc.Kind)))
	translator := capability.NewTranslator(desc, uc.dispatcher, uc.coerce, log)
	result := translator.Run(ctx, args)

	if result.Failed() {
		log.Warn("Invocation failed.", slog.Any("error", result.Err))
	} else {
		log.Info("Invocation succeeded.", slog.Int("upstream_status", result.UpstreamStatus))
	}
	return result, nil
}
