package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Sternrassler/artic-catalog-client/internal/tui"
	"github.com/Sternrassler/artic-catalog-client/pkg/controller"
	"github.com/Sternrassler/artic-catalog-client/pkg/logging"
	"github.com/Sternrassler/artic-catalog-client/pkg/metrics"
	"github.com/Sternrassler/artic-catalog-client/pkg/selection"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// BrowseOptions holds flags for the browse command.
type BrowseOptions struct {
	Export      string
	MetricsAddr string
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the collection interactively",
		Long: `Open the interactive table. Mark rows with space, whole pages with a,
and move between pages with n and p. Marks are kept per page.

With --export the selected artworks are resolved and written as JSON after
the browser exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Export, "export", "", "write selected artworks to this JSON file on exit")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while browsing")
	return cmd
}

func runBrowse(cmd *cobra.Command, rootOpts *RootOptions, opts *BrowseOptions) error {
	ctx := cmd.Context()
	cfg := rootOpts.Config

	// The terminal belongs to the table from here on.
	logger, logFile, err := logging.SetupFile(cfg.LoggingConfig(true))
	if err != nil {
		return WrapExitError(ExitCommandError, "setup logging", err)
	}
	defer logFile.Close()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "setup", err)
	}
	defer a.Close()

	if opts.MetricsAddr != "" {
		srv := &http.Server{Addr: opts.MetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", opts.MetricsAddr).Msg("Metrics server failed")
			}
		}()
		defer srv.Close()
	}

	ctrl := controller.New(a.catalog, selection.NewStore(), cfg.Rows)
	logger.Info().Str("session", ctrl.SessionID()).Msg("Browse session started")

	program := tea.NewProgram(tui.New(ctx, ctrl),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return WrapExitError(ExitFailure, "run browser", err)
	}

	ids := ctrl.SelectedIDs()
	logger.Info().Int("selected", len(ids)).Msg("Browse session ended")

	if opts.Export == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%d artworks selected\n", len(ids))
		return nil
	}

	n, err := exportSelection(ctx, a, ids, opts.Export)
	if err != nil && n == 0 {
		return WrapExitError(ExitFailure, "export", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d artworks to %s\n", n, opts.Export)
	if err != nil {
		return WrapExitError(ExitFailure, "export incomplete", err)
	}
	return nil
}

// exportSelection resolves ids and writes them to path as a JSON array
// sorted by id. A partial lookup still writes the records that resolved and
// returns the lookup error with their count.
func exportSelection(ctx context.Context, a *app, ids []int, path string) (int, error) {
	result, lookupErr := resolve(ctx, a.batch, ids)
	if lookupErr != nil && len(result.Artworks) == 0 {
		return 0, lookupErr
	}

	data, err := json.MarshalIndent(result.Artworks, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	return len(result.Artworks), lookupErr
}
