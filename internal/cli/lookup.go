package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/Sternrassler/artic-catalog-client/pkg/catalog"
	"github.com/Sternrassler/artic-catalog-client/pkg/pagination"
	"github.com/spf13/cobra"
)

// LookupResult is the outcome of resolving a list of ids.
type LookupResult struct {
	Artworks []catalog.Artwork `json:"artworks"`
	Missing  []int             `json:"missing,omitempty"`
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <id>...",
		Short: "Resolve artwork ids into full records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := strconv.Atoi(arg)
				if err != nil || id < 1 {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q", arg))
				}
				ids = append(ids, id)
			}
			return runLookup(cmd, rootOpts, ids)
		},
	}
}

func runLookup(cmd *cobra.Command, opts *RootOptions, ids []int) error {
	a, err := newApp(cmd.Context(), opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "setup", err)
	}
	defer a.Close()

	result, lookupErr := resolve(cmd.Context(), a.batch, ids)
	if lookupErr != nil && len(result.Artworks) == 0 {
		return WrapExitError(ExitFailure, "lookup", lookupErr)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		err = out.JSON(result)
	} else {
		footer := fmt.Sprintf("Resolved %d of %d ids", len(result.Artworks), len(result.Artworks)+len(result.Missing))
		if len(result.Missing) > 0 {
			footer += fmt.Sprintf(" (missing: %v)", result.Missing)
		}
		err = out.Artworks(result.Artworks, footer)
	}
	if err != nil {
		return err
	}

	// Partial output was printed; the exit code still reports the failure.
	if lookupErr != nil {
		return WrapExitError(ExitFailure, "lookup incomplete", lookupErr)
	}
	return nil
}

// resolve fetches ids and returns the records sorted by id. Duplicate ids
// are looked up once. When some chunks fail the records that did resolve are
// returned with the error, and every unresolved id is listed in Missing.
func resolve(ctx context.Context, batch *pagination.BatchFetcher, ids []int) (LookupResult, error) {
	records, err := batch.FetchByIDs(ctx, ids)

	result := LookupResult{Artworks: make([]catalog.Artwork, 0, len(records))}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if a, ok := records[id]; ok {
			result.Artworks = append(result.Artworks, a)
		} else {
			result.Missing = append(result.Missing, id)
		}
	}

	slices.SortFunc(result.Artworks, func(x, y catalog.Artwork) int { return x.ID - y.ID })
	slices.Sort(result.Missing)
	return result, err
}
