package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/stacklok/hubgate/pkg/auth"
	"github.com/stacklok/hubgate/pkg/config"
	"github.com/stacklok/hubgate/pkg/gateway"
	"github.com/stacklok/hubgate/pkg/hub"
	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/spaces/discovery"
	"github.com/stacklok/hubgate/pkg/spaces/proxy"
	"github.com/stacklok/hubgate/pkg/tools"
	"github.com/stacklok/hubgate/pkg/transport"
	"github.com/stacklok/hubgate/pkg/transport/metrics"
	"github.com/stacklok/hubgate/pkg/transport/session"
	"github.com/stacklok/hubgate/pkg/transport/stateless"
	"github.com/stacklok/hubgate/pkg/transport/stdio"
	"github.com/stacklok/hubgate/pkg/transport/streamable"
	"github.com/stacklok/hubgate/pkg/transport/types"
	"github.com/stacklok/hubgate/pkg/versions"
)

// DefaultPort is the default HTTP listen port.
const DefaultPort = "3000"

// drainTimeout bounds how long shutdown waits for in-flight requests.
const drainTimeout = 10 * time.Second

const (
	transportStreamable = "streamable"
	transportStateless  = "stateless"
	transportStdio      = "stdio"
)

var (
	servePort      string
	serveHost      string
	serveTransport string
	serveBouquet   string
	serveGradio    string
)

// httpTransport is what the serve command needs from an HTTP transport
// beyond the base contract: route registration and the management surface.
type httpTransport interface {
	types.Transport
	RegisterRoutes(r chi.Router)
	GetSessions() []session.Metadata
	GetMetrics() metrics.Snapshot
	Metrics() *metrics.Metrics
	GetConfiguration() map[string]any
}

// newServeCommand creates the 'serve' subcommand
func newServeCommand() *cobra.Command {
	defaultPort := DefaultPort
	if envPort := os.Getenv("PORT"); envPort != "" {
		defaultPort = envPort
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		Long: `Start the MCP gateway on the selected transport.

The streamable transport serves stateful streamable-HTTP/SSE sessions on
/mcp. The stateless transport answers each POST /mcp independently. The
stdio transport serves the process's standard streams and takes its bearer
token from the HF_TOKEN environment variable.`,
		RunE: serveCmdFunc,
	}

	cmd.Flags().StringVar(&servePort, "port", defaultPort, "Port to listen on (can also be set via PORT env var)")
	cmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host to listen on")
	cmd.Flags().StringVar(&serveTransport, "transport", transportStreamable,
		"Transport to serve: streamable, stateless or stdio")
	cmd.Flags().StringVar(&serveBouquet, "bouquet", "", "Tool preset for the stdio transport")
	cmd.Flags().StringVar(&serveGradio, "gradio", "", "Comma-separated space list for the stdio transport")

	return cmd
}

func serveCmdFunc(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	settings := config.Load()
	versionInfo := versions.GetVersionInfo()

	hubClient := hub.NewClient(settings.HubURL)
	validator := hub.NewTokenValidator(settings.HubURL)
	provider := hub.NewSettingsProvider(settings.SettingsURL)
	api := hub.NewAPI(settings.HubURL)

	discoverer := discovery.New(hubClient, settings)
	invoker := proxy.NewInvoker()
	registry := tools.NewRegistry(api, discoverer, invoker)
	factory := gateway.NewFactory(settings, registry, discoverer, invoker, provider, versionInfo.Version)

	switch serveTransport {
	case transportStdio:
		return serveStdio(ctx, factory, validator)
	case transportStreamable:
		return serveHTTP(ctx, settings, validator, discoverer,
			streamable.New(settings, factory), versionInfo.Version)
	case transportStateless:
		return serveHTTP(ctx, settings, validator, discoverer,
			stateless.New(settings, factory, versionInfo.Version), versionInfo.Version)
	default:
		return fmt.Errorf("unknown transport %q", serveTransport)
	}
}

// serveStdio runs the stdio transport until the parent closes stdin or a
// signal arrives.
func serveStdio(ctx context.Context, factory *gateway.Factory, validator auth.TokenValidator) error {
	t := stdio.New(factory, validator, os.Getenv("HF_TOKEN"), &gateway.Request{
		Bouquet: serveBouquet,
		Gradio:  serveGradio,
	})
	if err := t.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to start stdio transport: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-t.Done():
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	return t.Cleanup(cleanupCtx)
}

// serveHTTP runs one of the HTTP transports behind a chi router with the
// health, metrics and management endpoints, and drains on shutdown.
func serveHTTP(
	ctx context.Context,
	settings *config.Settings,
	validator auth.TokenValidator,
	discoverer *discovery.Discoverer,
	t httpTransport,
	version string,
) error {
	if err := t.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize transport: %w", err)
	}

	r := chi.NewRouter()

	// MCP endpoints: promote x-mcp-* query parameters to headers, then
	// resolve the caller's identity, then hand off to the transport.
	r.Group(func(r chi.Router) {
		r.Use(promoteQueryParams)
		r.Use(auth.Middleware(validator))
		t.RegisterRoutes(r)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		transport.WriteJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": version,
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(t.Metrics().Registry(), promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/sessions", func(w http.ResponseWriter, _ *http.Request) {
			transport.WriteJSON(w, http.StatusOK, map[string]any{
				"sessions": t.GetSessions(),
				"count":    t.GetActiveConnectionCount(),
			})
		})
		r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			transport.WriteJSON(w, http.StatusOK, t.GetMetrics())
		})
		r.Get("/config", func(w http.ResponseWriter, _ *http.Request) {
			transport.WriteJSON(w, http.StatusOK, t.GetConfiguration())
		})
		r.Get("/cache", func(w http.ResponseWriter, _ *http.Request) {
			transport.WriteJSON(w, http.StatusOK, map[string]any{
				"spaceInfo": discoverer.MetadataCache().Stats(),
				"schemas":   discoverer.SchemaCache().Stats(),
			})
		})
		r.Post("/cache/clear", func(w http.ResponseWriter, _ *http.Request) {
			discoverer.ClearCaches()
			transport.WriteJSON(w, http.StatusOK, map[string]any{"cleared": true})
		})
	})

	addr := net.JoinHostPort(serveHost, servePort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Gateway listening on %s (transport=%s)", addr, serveTransport)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down gateway")

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	// Refuse new work first, then let in-flight requests finish, then tear
	// down sessions and timers.
	if err := t.Shutdown(drainCtx); err != nil {
		logger.Warnw("transport drain failed", "error", err)
	}
	if err := srv.Shutdown(drainCtx); err != nil {
		logger.Warnw("HTTP server shutdown failed", "error", err)
	}
	return t.Cleanup(drainCtx)
}

// promoteQueryParams lifts the recognised query parameters onto request
// headers before anything downstream reads them.
func promoteQueryParams(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		types.PromoteQueryParams(r)
		next.ServeHTTP(w, r)
	})
}
