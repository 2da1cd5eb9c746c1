package openapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Well-known description paths probed when a source looks like a bare base
// URL rather than a direct schema URL.
var commonOpenAPIPaths = []string{
	"/openapi.json",            // FastAPI default
	"/docs/openapi.json",       // Alternative FastAPI path
	"/swagger.json",            // Swagger/OpenAPI 2.0
	"/v3/api-docs",             // SpringDoc OpenAPI 3.0
	"/api-docs",                // SpringFox
	"/api/openapi.json",        // Custom API prefix
	"/api/v1/openapi.json",     // Versioned API
	"/swagger/v1/swagger.json", // .NET default
}

const probeTimeout = 5 * time.Second

// autoDiscoverer probes well-known paths to locate an API description when
// the configured source is only a service base URL.
type autoDiscoverer struct {
	client *http.Client
	logger *slog.Logger
}

func newAutoDiscoverer(client *http.Client, logger *slog.Logger) *autoDiscoverer {
	return &autoDiscoverer{
		client: client,
		logger: logger.With("component", "openapi_autodiscoverer"),
	}
}

// Resolve returns the source unchanged when it already looks like a direct
// schema URL, and otherwise tries auto-discovery. Discovery failure falls
// back to the original source so manually configured URLs keep working.
func (d *autoDiscoverer) Resolve(ctx context.Context, source string, headers map[string]string) string {
	log := d.logger.With(slog.String("source", source))

	lower := strings.ToLower(source)
	if strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") ||
		strings.Contains(lower, "openapi") || strings.Contains(lower, "swagger") || strings.Contains(lower, "api-docs") {
		return source
	}

	discovered, err := d.discover(ctx, source, headers)
	if err != nil {
		log.Warn("Auto-discovery failed, using original source.", slog.Any("error", err))
		return source
	}
	log.Info("Auto-discovered API description.", slog.String("url", discovered))
	return discovered
}

func (d *autoDiscoverer) discover(ctx context.Context, baseURL string, headers map[string]string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}

	for _, path := range commonOpenAPIPaths {
		probeURL := strings.TrimRight(parsed.String(), "/") + path
		ok, err := d.probe(ctx, probeURL, headers)
		if err != nil {
			d.logger.Debug("Probe failed.", slog.String("url", probeURL), slog.Any("error", err))
			continue
		}
		if ok {
			return probeURL, nil
		}
	}
	return "", fmt.Errorf("no API description found at %s", baseURL)
}

func (d *autoDiscoverer) probe(ctx context.Context, probeURL string, headers map[string]string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json, application/vnd.oai.openapi+json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	contentType := resp.Header.Get("Content-Type")
	return strings.Contains(contentType, "application/json") ||
		strings.Contains(contentType, "application/vnd.oai.openapi+json"), nil
}
