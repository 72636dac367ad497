package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/kinda/internal/harness"
	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Filter   string // glob over scenario file names, without extension

	// NewRunID overrides run ID generation (for testing).
	// If nil, runs are keyed by a UUIDv7.
	NewRunID func() string
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string           `json:"name"`
	File   string           `json:"file"`
	RunID  string           `json:"run_id,omitempty"`
	Pass   bool             `json:"pass"`
	Errors []string         `json:"errors,omitempty"`
	Trace  []ir.TraceRecord `json:"trace,omitempty"`
}

// RunResult aggregates every scenario executed by one invocation.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir>...",
		Short: "Execute scenarios and print their dispatch traces",
		Long: `Execute YAML scenarios against a fresh registry and event session each.

Every scenario's trace is written to the trace database under a new run ID
and printed. Directories are searched recursively for .yaml and .yml files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, database errors, etc.)

Examples:
  kinda run ./scenarios/dedup.yaml
  kinda run ./scenarios --filter "async_*"
  KINDA_TRACE_DB=./traces.db kinda run ./scenarios --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", opts.Config.TraceDB, "path to SQLite trace database")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd)

	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return fail(formatter, ErrCodeNotFound, err.Error())
		}
		files = append(files, found...)
	}

	db := opts.Database
	if db == "" {
		db = ":memory:"
	}
	st, err := store.Open(db)
	if err != nil {
		return fail(formatter, ErrCodeOpenFailed, fmt.Sprintf("opening trace database: %v", err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing trace database", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	newRunID := opts.NewRunID
	if newRunID == nil {
		newRunID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}

	result := RunResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		if ctx.Err() != nil {
			return WrapExitError(ExitCommandError, "interrupted", ctx.Err())
		}
		sr := runScenario(ctx, file, newRunID(), st, logger)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
		logger.Debug("scenario finished", "name", sr.Name, "run", sr.RunID, "pass", sr.Pass)
	}

	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{Status: "ok", Data: result}); err != nil {
			return err
		}
	} else {
		writeRunText(formatter.Writer, result, opts.Verbose)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

func runScenario(ctx context.Context, file, runID string, st *store.Store, logger *slog.Logger) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	sr := ScenarioResult{Name: name, File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	res, err := harness.RunWith(ctx, scenario, harness.Options{
		Store:  st,
		RunID:  runID,
		Logger: logger,
	})
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}

	sr.RunID = res.RunID
	sr.Pass = res.Pass
	sr.Errors = res.Errors
	sr.Trace = res.Trace
	logger.Debug("scenario trace recorded", "run", res.RunID, "records", len(res.Trace))
	return sr
}

func writeRunText(w io.Writer, result RunResult, verbose bool) {
	for _, sr := range result.Scenarios {
		mark := "✓"
		if !sr.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s", mark, sr.Name)
		if sr.RunID != "" {
			fmt.Fprintf(w, " (run %s)", sr.RunID)
		}
		fmt.Fprintln(w)

		if !sr.Pass || verbose {
			for _, rec := range sr.Trace {
				fmt.Fprintf(w, "  [%d] %s\n", rec.Seq, harness.FormatRecord(rec))
			}
		}
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(strings.TrimRight(e, "\n"), "\n", "\n  "))
		}
	}

	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}

// findScenarioFiles returns path itself when it is a file, or every YAML
// file below it when it is a directory. filter applies to directory
// entries only.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario path not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing scenario path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}
