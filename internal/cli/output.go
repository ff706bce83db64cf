package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/sandrolain/goxq/pkg/types"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query raised an error
	ExitCommandError = 2 // Command error (unreadable files, invalid plans, etc.)
)

// Error codes of command errors.
const (
	ErrCodeGeneric    = "E001"
	ErrCodeReadFailed = "E002"
	ErrCodeCompile    = "E003"
	ErrCodeConfig     = "E004"
	ErrCodeBinding    = "E005"
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output
	Verbose   bool
	NoColor   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	QueryID string    `json:"query_id,omitempty"` // compiled query ID
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Position int    `json:"position,omitempty"`
}

func (f *OutputFormatter) paint(attr color.Attribute) *color.Color {
	c := color.New(attr)
	if f.NoColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any, queryID string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data, QueryID: queryID})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format. Query errors are shown
// with their code and position.
func (f *OutputFormatter) Error(code string, err error) error {
	cliErr := CLIError{Code: code, Message: err.Error()}
	var qe *types.Error
	if errors.As(err, &qe) {
		cliErr.Code = qe.Code.String()
		cliErr.Message = qe.Message
		cliErr.Position = qe.Position
	}
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: &cliErr})
	}

	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	f.paint(color.FgRed).Fprintf(w, "Error [%s]", cliErr.Code)
	if cliErr.Position > 0 {
		fmt.Fprintf(w, " at %d", cliErr.Position)
	}
	fmt.Fprintf(w, ": %s\n", cliErr.Message)
	return nil
}

// Heading prints a section title in text format.
func (f *OutputFormatter) Heading(title string) {
	if f.Format == "json" {
		return
	}
	f.paint(color.FgCyan).Fprintln(f.Writer, title)
}

// Note prints a highlighted label followed by a message in text format.
func (f *OutputFormatter) Note(label, message string) {
	if f.Format == "json" {
		return
	}
	f.paint(color.FgYellow).Fprintf(f.Writer, "%s ", label)
	fmt.Fprintln(f.Writer, message)
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, "[verbose] "+format+"\n", args...)
}
