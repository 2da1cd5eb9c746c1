package usecase

import (
	"context"
	"fmt"
	"log/slog"
)

// SyncSourceUseCase orchestrates one source end to end: fetch the API
// description, build and register capabilities, and bind the results to the
// invocation protocol server.
type SyncSourceUseCase struct {
	source RouteSource
	build  *BuildCapabilitiesUseCase
	binder Binder
	logger *slog.Logger
}

// NewSyncSourceUseCase creates the sync orchestrator.
func NewSyncSourceUseCase(source RouteSource, build *BuildCapabilitiesUseCase, binder Binder, logger *slog.Logger) *SyncSourceUseCase {
	return &SyncSourceUseCase{
		source: source,
		build:  build,
		binder: binder,
		logger: logger.With("usecase", "SyncSource"),
	}
}

// Execute fetches and builds one source. Route-level build failures are
// reported, not fatal; a fetch failure aborts the sync for this source only.
func (uc *SyncSourceUseCase) Execute(ctx context.Context, cfg SourceConfig) (BuildReport, error) {
	log := uc.logger.With(slog.String("source", cfg.URL))
	log.Info("Syncing source.")

	routes, baseURL, err := uc.source.Fetch(ctx, cfg)
	if err != nil {
		log.Error("Failed to fetch routes.", slog.Any("error", err))
		return BuildReport{}, fmt.Errorf("fetching routes from %s: %w", cfg.URL, err)
	}
	log.Info("Fetched routes.", slog.Int("count", len(routes)), slog.String("base_url", baseURL))

	report := uc.build.Execute(routes, baseURL)
	for _, failure := range report.Failed {
		log.Warn("Route failed to build.",
			slog.String("method", string(failure.Method)),
			slog.String("path", failure.Path),
			slog.Any("error", failure.Err))
	}

	for _, desc := range report.Built {
		if err := uc.binder.Bind(desc); err != nil {
			log.Warn("Failed to bind capability to the protocol server.",
				slog.String("name", desc.Name), slog.Any("error", err))
			report.Failed = append(report.Failed, RouteFailure{
				Method: desc.Route.Method,
				Path:   desc.Route.Path,
				Err:    err,
			})
		}
	}

	log.Info("Source synced.", slog.Int("built", len(report.Built)), slog.Int("failed", len(report.Failed)))
	return report, nil
}

// ExecuteAll syncs every configured source, continuing past per-source
// failures and returning the last error observed.
func (uc *SyncSourceUseCase) ExecuteAll(ctx context.Context, cfgs []SourceConfig) error {
	var lastErr error
	for _, cfg := range cfgs {
		if _, err := uc.Execute(ctx, cfg); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
