package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kinda/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Classes int                        `json:"classes"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest-dir>",
		Short: "Validate class manifests without defining them",
		Long: `Validate the CUE class manifests in a directory.

Checks names, versions, references, duplicate declarations, reserved
member names and dependency cycles, and reports every problem found.
Faster than compile because no class is built.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, loadErrors := LoadClasses(dir, LoadModeCollectAll)
	if loaded == nil {
		return failLoad(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	var errs []compiler.ValidationError
	for _, err := range loadErrors {
		ve := compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
		if le, ok := err.(*LoadError); ok {
			ve.Code, ve.Message = le.Code, le.Message
		}
		errs = append(errs, ve)
	}
	for _, spec := range loaded.Classes {
		formatter.VerboseLog("Validating class: %s", spec.Name)
	}
	errs = append(errs, ValidateClasses(loaded)...)

	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Classes: len(loaded.Classes)})
	}
	fmt.Fprintf(formatter.Writer, "✓ All %d class(es) valid\n", len(loaded.Classes))
	return nil
}

// ValidateClasses runs manifest validation over loaded specs. Fields are
// reported as class.<Name> rather than by batch index.
func ValidateClasses(loaded *LoadResult) []compiler.ValidationError {
	errs := compiler.Validate(loaded.Classes)
	for i := range errs {
		errs[i].Field = relabel(errs[i].Field, loaded)
	}
	return errs
}

func relabel(field string, loaded *LoadResult) string {
	rest, ok := strings.CutPrefix(field, "classes[")
	if !ok {
		return field
	}
	num, rest, ok := strings.Cut(rest, "]")
	if !ok {
		return field
	}
	idx, err := strconv.Atoi(num)
	if err != nil || idx < 0 || idx >= len(loaded.Classes) {
		return field
	}
	return "class." + loaded.Classes[idx].Name + rest
}

// outputValidationErrors reports every validation error and fails with
// exit code 1.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
