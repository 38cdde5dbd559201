package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/artic-catalog-client/pkg/client"
	"github.com/Sternrassler/artic-catalog-client/pkg/logging"
	"github.com/Sternrassler/artic-catalog-client/pkg/metrics"
	"github.com/spf13/cobra"
)

// proxyPrefix is the path prefix forwarded to the catalog.
const proxyPrefix = "/api/v1/"

// NewProxyCommand creates the proxy command.
func NewProxyCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run a caching HTTP proxy in front of the catalog",
		Long: `Serve /api/v1/... through the shared client so several processes reuse one
response cache and one request budget.

Endpoints:
  /health     liveness probe
  /metrics    Prometheus metrics
  /api/v1/... forwarded to the catalog`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = rootOpts.Config.Proxy.Addr
			}
			return runProxy(cmd.Context(), rootOpts, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func runProxy(ctx context.Context, opts *RootOptions, addr string) error {
	logger := logging.NewLogger("proxy")

	a, err := newApp(ctx, opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "setup", err)
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newProxyMux(a.client),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", addr).
			Str("upstream", a.client.BaseURL()).
			Bool("redis", a.redis != nil).
			Msg("Starting catalog proxy")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitFailure, "proxy server", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down catalog proxy")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newProxyMux(c *client.Client) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle(proxyPrefix, catalogProxyHandler(c))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func catalogProxyHandler(c *client.Client) http.HandlerFunc {
	logger := logging.NewLogger("proxy")

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Example: /api/v1/artworks?page=2 -> artworks?page=2
		endpoint := strings.TrimPrefix(r.URL.Path, proxyPrefix)

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		resp, err := c.Get(ctx, endpoint, r.URL.Query())
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, client.ErrRateLimited) {
				status = http.StatusTooManyRequests
			}
			logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Proxy request failed")
			http.Error(w, fmt.Sprintf("catalog request failed: %v", err), status)
			return
		}
		defer resp.Body.Close()

		// Copy response headers
		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}

		// Copy status code
		w.WriteHeader(resp.StatusCode)

		// Copy body
		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to write response")
		}
	}
}
