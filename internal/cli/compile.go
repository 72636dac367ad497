package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kinda/internal/class"
	"github.com/roach88/kinda/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // manifest output path
}

// CompiledClass is one defined class with its resolved composition.
type CompiledClass struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Hash         string   `json:"hash"`
	Superclasses []string `json:"superclasses"`
	Members      int      `json:"members"`
	Statics      int      `json:"statics"`
}

// CompilationResult is the output of compile.
type CompilationResult struct {
	Classes []CompiledClass `json:"classes"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <manifest-dir>",
		Short: "Compile CUE class manifests and resolve their composition",
		Long: `Compile the CUE class manifests in a directory, validate them and define
every class in a fresh registry.

For each class the output lists its content hash and its superclass
linearization: included classes in inclusion order, the class itself last.

Example:
  kinda compile ./classes
  kinda compile ./classes --output manifest.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled manifest as JSON")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, errs := LoadClasses(dir, LoadModeCollectAll)
	if loaded == nil {
		return failLoad(formatter, errs)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}

	_, classes, err := defineClasses(loaded.Classes, opts.Logger(cmd))
	if err != nil {
		return failLoad(formatter, []error{err})
	}

	result := CompilationResult{Classes: make([]CompiledClass, len(classes))}
	for i, c := range classes {
		formatter.VerboseLog("Defined class: %s", c)
		hash, err := ir.ManifestHash(loaded.Classes[i])
		if err != nil {
			return fail(formatter, ErrCodeGeneric, err.Error())
		}
		result.Classes[i] = CompiledClass{
			Name:         c.Name(),
			Version:      c.Version(),
			Hash:         hash,
			Superclasses: classNames(c.Superclasses()),
			Members:      len(c.Prototype().Members()),
			Statics:      len(c.StaticMembers()),
		}
	}

	if opts.Output != "" {
		if err := writeManifest(ir.Manifest{Classes: loaded.Classes}, opts.Output); err != nil {
			return fail(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d class(es)\n\n", len(result.Classes))
	for _, c := range result.Classes {
		ref := c.Name
		if c.Version != "" {
			ref += "@" + c.Version
		}
		fmt.Fprintf(w, "  %s  %s\n", ref, shortHash(c.Hash))
		fmt.Fprintf(w, "    %s\n", strings.Join(c.Superclasses, " → "))
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote manifest to %s\n", opts.Output)
	}
	return nil
}

// outputCompileErrors reports every compile error and fails with exit code 2.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		code, message := ErrCodeGeneric, err.Error()
		if le, ok := err.(*LoadError); ok {
			code, message = le.Code, le.Message
			if le.Pos.IsValid() {
				message = fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), message)
			}
		}
		cliErrors[i] = CLIError{Code: code, Message: message}
	}

	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{Status: "error", Error: &cliErrors[0], Data: cliErrors}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
		fmt.Fprintln(formatter.Writer)
		for _, e := range cliErrors {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
		}
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

func writeManifest(m ir.Manifest, filename string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(filename, append(data, '\n'), 0o644)
}

func classNames(classes []*class.Class) []string {
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = c.String()
	}
	return names
}

func shortHash(h string) string {
	if len(h) > 12 {
		h = h[:12]
	}
	return h
}
