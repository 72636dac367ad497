package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/kinda/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config carries the environment defaults the flags were seeded from.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the kinda CLI.
//
// Flag defaults come from KINDA_* environment variables. An invalid
// environment is reported when a command runs, not when the tree is built.
func NewRootCommand() *cobra.Command {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Config{Format: "text", LogLevel: "info", TraceDB: ":memory:"}
	}
	opts := &RootOptions{Config: cfg}

	cmd := &cobra.Command{
		Use:   "kinda",
		Short: "kinda - versioned class composition",
		Long: `Compose classes from versioned mixins and drive their event managers.

Class manifests are CUE files declaring entries under "class". Scenarios are
YAML files that create objects, emit events and assert on the dispatch trace.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return WrapExitError(ExitCommandError, "invalid environment", cfgErr)
			}
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// Logger returns a stderr-bound logger honoring KINDA_LOG_LEVEL and --verbose.
func (o *RootOptions) Logger(cmd *cobra.Command) *slog.Logger {
	return o.Config.NewLogger(cmd.ErrOrStderr(), o.Verbose)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
