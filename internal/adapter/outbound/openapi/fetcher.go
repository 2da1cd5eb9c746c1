// Package openapi turns OpenAPI documents into the normalized route lists
// the capability engine consumes.
package openapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/capbridge/capbridge/internal/adapter/outbound/github"
	"github.com/capbridge/capbridge/internal/domain"
	"github.com/capbridge/capbridge/internal/usecase"
)

// RouteSource implements usecase.RouteSource for OpenAPI descriptions loaded
// from a URL or a local file.
type RouteSource struct {
	httpClient *http.Client
	logger     *slog.Logger
	discoverer *autoDiscoverer
	github     *github.Loader
}

// NewRouteSource creates an OpenAPI route source.
func NewRouteSource(client *http.Client, logger *slog.Logger) *RouteSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &RouteSource{
		httpClient: client,
		logger:     logger.With("component", "openapi_source"),
		discoverer: newAutoDiscoverer(client, logger),
		github:     github.NewLoader(),
	}
}

// Fetch loads and parses the description, then normalizes it into routes.
// The second return value is the backend base URL resolved from the
// document's servers block.
func (s *RouteSource) Fetch(ctx context.Context, cfg usecase.SourceConfig) ([]domain.Route, string, error) {
	log := s.logger.With(slog.String("source", cfg.URL))
	log.Info("Fetching API description.")

	resolved := cfg.URL
	if !github.IsGitHubURL(cfg.URL) {
		resolved = s.discoverer.Resolve(ctx, cfg.URL, cfg.Headers)
	}

	data, err := s.load(ctx, resolved, cfg.Headers)
	if err != nil {
		return nil, "", err
	}

	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		log.Error("Failed to parse API description.", slog.Any("error", err))
		return nil, "", fmt.Errorf("parsing description from %s: %w", cfg.URL, err)
	}
	if err := doc.Validate(ctx); err != nil {
		// Descriptions in the wild are frequently imperfect; warn and keep going.
		log.Warn("API description failed validation.", slog.Any("error", err))
	}

	routes, baseURL, err := Normalize(doc, resolved, s.logger)
	if err != nil {
		return nil, "", err
	}
	log.Info("Normalized API description.", slog.Int("routes", len(routes)), slog.String("base_url", baseURL))
	return routes, baseURL, nil
}

func (s *RouteSource) load(ctx context.Context, source string, headers map[string]string) ([]byte, error) {
	log := s.logger.With(slog.String("source", source))

	if github.IsGitHubURL(source) {
		data, err := s.github.LoadFile(ctx, source)
		if err != nil {
			log.Error("Failed to fetch description from GitHub.", slog.Any("error", err))
			return nil, fmt.Errorf("fetching description from %s: %w", source, err)
		}
		return data, nil
	}

	u, parseErr := url.ParseRequestURI(source)
	if parseErr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request for %s: %w", source, err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			log.Error("Failed to fetch description from URL.", slog.Any("error", err))
			return nil, fmt.Errorf("fetching description from %s: %w", source, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Warn("Non-OK status fetching description.", slog.Int("status", resp.StatusCode))
			return nil, fmt.Errorf("fetching description from %s: status %s", source, resp.Status)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading description from %s: %w", source, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		log.Error("Failed to read description file.", slog.Any("error", err))
		return nil, fmt.Errorf("reading description file %s: %w", source, err)
	}
	return data, nil
}
