package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/capbridge/capbridge/configs"
	"github.com/capbridge/capbridge/internal/adapter/inbound/adminhttp"
	"github.com/capbridge/capbridge/internal/adapter/inbound/mcpbridge"
	"github.com/capbridge/capbridge/internal/adapter/outbound/httpdispatch"
	"github.com/capbridge/capbridge/internal/adapter/outbound/memreg"
	"github.com/capbridge/capbridge/internal/adapter/outbound/openapi"
	"github.com/capbridge/capbridge/internal/capability"
	"github.com/capbridge/capbridge/internal/domain"
	"github.com/capbridge/capbridge/internal/usecase"
)

func main() {
	var transport string
	flag.StringVar(&transport, "transport", "sse", "Transport mode: sse or stdio")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Configuration ===
	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// === Logging ===
	logLevel := cfg.ParsedLogLevel()
	var logger *slog.Logger
	if transport == "stdio" {
		// In STDIO mode stdout carries the protocol, so log to a file.
		logFile, err := os.OpenFile("/tmp/capbridge.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: logLevel}))
		} else {
			logger = slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: logLevel}))
		}
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	}
	slog.SetDefault(logger)
	logger.Info("Logger initialized.", slog.String("level", logLevel.String()), slog.String("transport", transport))

	// === OpenTelemetry ===
	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry.", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === MCP Server ===
	mcpSrv := mcpGoServer.NewMCPServer(
		"capbridge",
		"0.1.0",
		mcpGoServer.WithToolCapabilities(true),
		mcpGoServer.WithResourceCapabilities(true, true),
	)
	logger.Info("MCP server initialized.")

	// === Dependency Injection ===
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	registry := memreg.New(memreg.ParseDuplicatePolicy(cfg.DuplicatePolicy), logger)
	dispatcher := httpdispatch.New(httpClient, logger)
	coerce := capability.ParseCoercionScope(cfg.CoerceStringArgs)

	invokeUC := usecase.NewInvokeCapabilityUseCase(registry, dispatcher, coerce, logger)
	binder := mcpbridge.NewBinder(mcpSrv, invokeUC, logger)
	buildUC := usecase.NewBuildCapabilitiesUseCase(toRouteMaps(cfg.RouteMaps, logger), registry, logger)
	source := openapi.NewRouteSource(httpClient, logger)
	syncUC := usecase.NewSyncSourceUseCase(source, buildUC, binder, logger)
	listUC := usecase.NewListCapabilitiesUseCase(registry, logger)
	logger.Debug("Dependencies initialized.")

	// === Initial Sync ===
	sourceConfigs := make([]usecase.SourceConfig, len(cfg.Sources))
	for i, s := range cfg.Sources {
		sourceConfigs[i] = usecase.SourceConfig{URL: s.URL, Headers: s.Headers}
	}
	logger.Info("Performing initial source synchronization.", slog.Int("sources", len(sourceConfigs)))
	if err := syncUC.ExecuteAll(ctx, sourceConfigs); err != nil {
		logger.Error("Initial sync failed for at least one source. Continuing startup; capabilities may be missing.", slog.Any("error", err))
	} else {
		logger.Info("Initial sync completed.")
	}

	// === Transport ===
	switch transport {
	case "stdio":
		logger.Info("Starting in STDIO mode.")
		stdioServer := mcpGoServer.NewStdioServer(mcpSrv)
		if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
			logger.Error("STDIO server error.", slog.Any("error", err))
			os.Exit(1)
		}

	case "sse":
		logger.Info("Starting in SSE mode.")
		sseServer := mcpGoServer.NewSSEServer(mcpSrv, mcpGoServer.WithBaseURL("http://"+cfg.ListenAddr))

		adminMux := http.NewServeMux()
		adminhttp.NewHandlers(syncUC, listUC, logger).RegisterRoutes(adminMux)
		adminServer := &http.Server{Addr: cfg.AdminListenAddr, Handler: adminMux}
		go func() {
			logger.Info("Admin HTTP server starting.", slog.String("address", adminServer.Addr))
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Admin HTTP server failed.", slog.Any("error", err))
			}
		}()

		go func() {
			logger.Info("MCP SSE server starting.", slog.String("address", cfg.ListenAddr))
			if err := sseServer.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("MCP SSE server failed.", slog.Any("error", err))
				stop()
			}
		}()

		<-ctx.Done()

		logger.Info("Shutting down servers.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Admin HTTP server graceful shutdown failed.", slog.Any("error", err))
		}
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("MCP SSE server graceful shutdown failed.", slog.Any("error", err))
		}
		logger.Info("Servers shut down gracefully.")

	default:
		logger.Error("Invalid transport mode.", slog.String("transport", transport))
		os.Exit(1)
	}
}

// toRouteMaps converts config rules into domain rules, dropping rules with an
// unknown kind so one typo does not take the server down.
func toRouteMaps(rules []configs.RouteMapRule, logger *slog.Logger) []domain.RouteMap {
	out := make([]domain.RouteMap, 0, len(rules))
	for _, rule := range rules {
		kind := domain.CapabilityKind(rule.Kind)
		if !kind.IsValid() {
			logger.Warn("Ignoring route map with unknown kind.", slog.String("kind", rule.Kind), slog.String("pattern", rule.Pattern))
			continue
		}
		methods := make([]domain.Method, 0, len(rule.Methods))
		for _, m := range rule.Methods {
			methods = append(methods, domain.Method(m))
		}
		out = append(out, domain.RouteMap{
			Methods:    methods,
			Pattern:    rule.Pattern,
			PathParams: rule.PathParams,
			Kind:       kind,
		})
	}
	return out
}

// initOtelProvider sets up the OTLP trace exporter and returns a shutdown
// function. Tracing is disabled when no endpoint is configured.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, OpenTelemetry tracing disabled.")
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("capbridge"),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
