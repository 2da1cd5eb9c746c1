// Package adminhttp serves the management endpoints that sit next to the
// protocol transport: on-demand source sync, capability listing and health.
package adminhttp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/capbridge/capbridge/internal/domain"
	"github.com/capbridge/capbridge/internal/usecase"
)

// Handlers holds the use cases the admin endpoints delegate to.
type Handlers struct {
	syncUC *usecase.SyncSourceUseCase
	listUC *usecase.ListCapabilitiesUseCase
	logger *slog.Logger
}

// NewHandlers creates the admin handler set.
func NewHandlers(syncUC *usecase.SyncSourceUseCase, listUC *usecase.ListCapabilitiesUseCase, logger *slog.Logger) *Handlers {
	return &Handlers{
		syncUC: syncUC,
		listUC: listUC,
		logger: logger.With("component", "admin_handler"),
	}
}

// RegisterRoutes sets up the admin endpoints on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/sync", h.handleSync)
	mux.HandleFunc("GET /admin/capabilities", h.handleListCapabilities)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// SyncRequest is the JSON body for POST /admin/sync.
type SyncRequest struct {
	Source  string            `json:"source"`
	Headers map[string]string `json:"headers,omitempty"`
}

// SyncResponse reports the outcome of a sync, including per-route failures.
type SyncResponse struct {
	Source string        `json:"source"`
	Built  []string      `json:"built"`
	Failed []FailedRoute `json:"failed,omitempty"`
}

// FailedRoute is one route that could not be turned into a capability.
type FailedRoute struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Error  string `json:"error"`
}

func (h *Handlers) handleSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode sync request body.", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Source == "" {
		http.Error(w, "Missing 'source' field in request body", http.StatusBadRequest)
		return
	}

	h.logger.Info("Received sync request.", slog.String("source", req.Source))
	report, err := h.syncUC.Execute(r.Context(), usecase.SourceConfig{URL: req.Source, Headers: req.Headers})
	if err != nil {
		h.logger.Error("Sync failed.", slog.String("source", req.Source), slog.Any("error", err))
		http.Error(w, fmt.Sprintf("Failed to sync source: %v", err), http.StatusBadGateway)
		return
	}

	resp := SyncResponse{Source: req.Source, Built: make([]string, 0, len(report.Built))}
	for _, desc := range report.Built {
		resp.Built = append(resp.Built, desc.Name)
	}
	for _, failure := range report.Failed {
		resp.Failed = append(resp.Failed, FailedRoute{
			Method: string(failure.Method),
			Path:   failure.Path,
			Error:  failure.Err.Error(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode sync response.", slog.Any("error", err))
	}
}

// CapabilitySummary is the list-endpoint view of a registered capability.
type CapabilitySummary struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Description string   `json:"description,omitempty"`
	URI         string   `json:"uri,omitempty"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Tags        []string `json:"tags,omitempty"`
}

func (h *Handlers) handleListCapabilities(w http.ResponseWriter, r *http.Request) {
	kind := domain.CapabilityKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.IsValid() {
		http.Error(w, fmt.Sprintf("Unknown capability kind %q", kind), http.StatusBadRequest)
		return
	}

	descs := h.listUC.Execute(kind)
	summaries := make([]CapabilitySummary, 0, len(descs))
	for _, desc := range descs {
		summaries = append(summaries, CapabilitySummary{
			Name:        desc.Name,
			Kind:        string(desc.Kind),
			Description: desc.Description,
			URI:         desc.URITemplate,
			Method:      string(desc.Route.Method),
			Path:        desc.Route.Path,
			Tags:        desc.Tags,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		h.logger.Error("Failed to encode capability list.", slog.Any("error", err))
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}
