package usecase

import (
	"log/slog"

	"github.com/capbridge/capbridge/internal/capability"
	"github.com/capbridge/capbridge/internal/domain"
)

// RouteFailure records one route that could not be built or registered.
type RouteFailure struct {
	Method domain.Method
	Path   string
	Err    error
}

// BuildReport summarizes a build pass: which descriptors were registered and
// which routes failed and why. A failed route never aborts the batch.
type BuildReport struct {
	Built  []*domain.CapabilityDescriptor
	Failed []RouteFailure
}

// BuildCapabilitiesUseCase runs the build pipeline per route:
// extract -> classify -> build -> register.
type BuildCapabilitiesUseCase struct {
	rules    []domain.RouteMap
	registry Registry
	logger   *slog.Logger
}

// NewBuildCapabilitiesUseCase creates the build orchestrator. The rules are
// the user-supplied route maps, evaluated before the built-in defaults.
func NewBuildCapabilitiesUseCase(rules []domain.RouteMap, registry Registry, logger *slog.Logger) *BuildCapabilitiesUseCase {
	return &BuildCapabilitiesUseCase{
		rules:    rules,
		registry: registry,
		logger:   logger.With("usecase", "BuildCapabilities"),
	}
}

// Execute builds and registers a capability for every route. Build-time
// errors are collected per route; rebuilding the same routes with the same
// rules yields identical names and kinds.
func (uc *BuildCapabilitiesUseCase) Execute(routes []domain.Route, baseURL string) BuildReport {
	var report BuildReport
	for _, route := range routes {
		log := uc.logger.With(slog.String("method", string(route.Method)), slog.String("path", route.Path))

		ext, err := capability.Extract(route)
		if err != nil {
			log.Warn("Skipping route: schema extraction failed.", slog.Any("error", err))
			report.Failed = append(report.Failed, RouteFailure{Method: route.Method, Path: route.Path, Err: err})
			continue
		}

		kind, err := capability.Classify(route, uc.rules)
		if err != nil {
			log.Error("Skipping route: classification failed.", slog.Any("error", err))
			report.Failed = append(report.Failed, RouteFailure{Method: route.Method, Path: route.Path, Err: err})
			continue
		}

		desc, err := capability.Build(route, ext, kind, baseURL)
		if err != nil {
			log.Warn("Skipping route: descriptor build failed.", slog.Any("error", err))
			report.Failed = append(report.Failed, RouteFailure{Method: route.Method, Path: route.Path, Err: err})
			continue
		}

		if err := uc.registry.Register(desc); err != nil {
			log.Warn("Skipping route: registration rejected.", slog.String("name", desc.Name), slog.Any("error", err))
			report.Failed = append(report.Failed, RouteFailure{Method: route.Method, Path: route.Path, Err: err})
			continue
		}

		log.Debug("Capability registered.", slog.String("name", desc.Name), slog.String("kind", string(desc.Kind)))
		report.Built = append(report.Built, desc)
	}

	uc.logger.Info("Build pass finished.",
		slog.Int("built", len(report.Built)),
		slog.Int("failed", len(report.Failed)))
	return report
}
