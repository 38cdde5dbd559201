package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/Sternrassler/artic-catalog-client/pkg/catalog"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Catalog or network failure
	ExitCommandError = 2 // Command error (bad arguments, invalid config)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string `json:"status"`         // "ok" or "error"
	Data   any    `json:"data,omitempty"` // success payload
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// JSON writes data wrapped in an ok response.
func (f *OutputFormatter) JSON(data any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{Status: "ok", Data: data})
}

// Artworks writes records as an aligned table followed by footer.
func (f *OutputFormatter) Artworks(artworks []catalog.Artwork, footer string) error {
	tw := tabwriter.NewWriter(f.Writer, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tORIGIN\tARTIST\tINSCRIPTIONS\tDATE")
	for _, a := range artworks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			strconv.Itoa(a.ID),
			a.DisplayTitle(),
			a.DisplayOrigin(),
			a.DisplayArtist(),
			a.DisplayInscriptions(),
			a.DisplayDate(),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if footer != "" {
		_, err := fmt.Fprintln(f.Writer, footer)
		return err
	}
	return nil
}
