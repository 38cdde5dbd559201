package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Sternrassler/artic-catalog-client/pkg/catalog"
	"github.com/Sternrassler/artic-catalog-client/pkg/pagination"
	"github.com/spf13/cobra"
)

// NewPageCommand creates the page command.
func NewPageCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "page <n>",
		Short: "Print one page of the artwork listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid page %q", args[0]))
			}
			if limit == 0 {
				limit = rootOpts.Config.Rows
			}
			return runPage(cmd, rootOpts, n, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "rows per page (default from config)")
	return cmd
}

func runPage(cmd *cobra.Command, opts *RootOptions, page, limit int) error {
	a, err := newApp(cmd.Context(), opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "setup", err)
	}
	defer a.Close()

	resp, err := a.catalog.FetchPage(cmd.Context(), page, limit)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidRequest) {
			return WrapExitError(ExitCommandError, "invalid request", err)
		}
		return WrapExitError(ExitFailure, "fetch page", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.JSON(resp)
	}

	w := pagination.NewWindow(resp.Pagination.CurrentPage, limit, resp.Pagination.Total)
	footer := fmt.Sprintf("%s (page %d of %d)", w.Report(), w.Page(), w.TotalPages())
	return out.Artworks(resp.Data, footer)
}
