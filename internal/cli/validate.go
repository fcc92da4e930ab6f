package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/branchpoll/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Polls  []string                   `json:"polls"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <defs-dir>",
		Short: "Validate poll definitions without publishing",
		Long: `Validate the CUE and YAML poll definitions in a directory.

Checks structure (ids, titles, question types, choices) and that every
depends_on names an earlier question. Nothing is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, defsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadPolls(defsDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil {
		code, msg := firstLoadError(loadErrors)
		return outputCommandError(formatter, code, msg)
	}

	formatter.VerboseLog("Found %d definition file(s) in %s", loadResult.FileCount, defsDir)

	validationErrors, ids := validatePolls(loadResult, formatter)

	// Add any load errors as validation errors
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			line := 0
			if loadErr.Pos.IsValid() {
				line = loadErr.Pos.Line()
			}
			validationErrors = append(validationErrors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    line,
			})
		}
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors, ids)
	}

	return formatter.Render(ValidationResult{Valid: true, Polls: ids}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %d poll(s) valid\n", len(ids))
	})
}

// validatePolls runs structural validation on each loaded poll. Field paths are prefixed with the poll id.
func validatePolls(loaded *LoadResult, formatter *OutputFormatter) ([]compiler.ValidationError, []string) {
	var all []compiler.ValidationError
	ids := make([]string, 0, len(loaded.Polls))

	for _, p := range loaded.Polls {
		formatter.VerboseLog("Validating poll: %s", p.ID)
		ids = append(ids, p.ID)

		errs := compiler.Validate(p)
		for i := range errs {
			errs[i].Field = p.ID + "." + errs[i].Field
		}
		all = append(all, errs...)
	}
	return all, ids
}

// outputCommandError outputs a single command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError, ids []string) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Polls:  ids,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return failure
}

// ValidateDefsDir validates all poll definitions in a directory.
// This is a helper function for external callers.
func ValidateDefsDir(defsDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadPolls(defsDir, LoadModeFailFast)
	if loadResult == nil || len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	silent := &OutputFormatter{Format: "text", Writer: io.Discard}
	errs, _ := validatePolls(loadResult, silent)
	return errs, nil
}
