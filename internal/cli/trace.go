package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kinda/internal/harness"
	"github.com/roach88/kinda/internal/ir"
	"github.com/roach88/kinda/internal/queryir"
	"github.com/roach88/kinda/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - filter to one record kind
	Object   string
	Event    string
	Listener string
	Since    int64 // first sequence number shown (0 = from the start)
}

// TraceResult holds one run's recorded trace.
type TraceResult struct {
	Run    store.Run        `json:"run"`
	Trace  []ir.TraceRecord `json:"trace"`
	Stats  TraceStats       `json:"stats"`
	Filter string           `json:"filter,omitempty"`
}

// TraceStats counts a run's records by kind.
type TraceStats struct {
	Total     int `json:"total"`
	Emits     int `json:"emits"`
	Deferred  int `json:"deferred"`
	Async     int `json:"async"`
	Listeners int `json:"listeners"`
	Creates   int `json:"creates"`
	Sessions  int `json:"sessions"`
}

var traceKinds = []ir.TraceKind{
	ir.TraceEmit, ir.TraceDefer, ir.TraceAsync, ir.TraceListener,
	ir.TraceBegin, ir.TraceEnd, ir.TraceCreate,
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show recorded dispatch traces",
		Long: `Show dispatch traces recorded by "kinda run".

Without a run ID, lists every run in the database with its record count.
With a run ID, prints that run's records in sequence order.

Examples:
  kinda trace --db ./traces.db
  kinda trace --db ./traces.db 0192f0c4-7d1e-7c3a-9f1b-2a6b8e4d5c10
  kinda trace --db ./traces.db <run-id> --kind listener --format json
  kinda trace --db ./traces.db <run-id> --object film --event rated --since 3`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListRuns(opts, cmd)
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.TraceDB, "path to SQLite trace database")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show records of this kind")
	cmd.Flags().StringVar(&opts.Object, "object", "", "only show records for this object")
	cmd.Flags().StringVar(&opts.Event, "event", "", "only show records for this event")
	cmd.Flags().StringVar(&opts.Listener, "listener", "", "only show calls of this listener")
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only show records with seq >= N")

	return cmd
}

func openTraceStore(opts *TraceOptions, f *OutputFormatter) (*store.Store, error) {
	if opts.Database == "" || opts.Database == ":memory:" {
		return nil, fail(f, ErrCodeNotFound, "a trace database file is required (--db or KINDA_TRACE_DB)")
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, fail(f, ErrCodeOpenFailed, fmt.Sprintf("opening trace database: %v", err))
	}
	return st, nil
}

func runListRuns(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openTraceStore(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return fail(formatter, ErrCodeGeneric, err.Error())
	}

	if formatter.JSON() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %-24s %d record(s)\n", r.ID, r.Name, r.Records)
	}
	return nil
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	query, filter, err := traceQuery(opts, runID)
	if err != nil {
		return fail(formatter, ErrCodeGeneric, err.Error())
	}

	st, err := openTraceStore(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return fail(formatter, ErrCodeGeneric, err.Error())
	}
	var run *store.Run
	for i := range runs {
		if runs[i].ID == runID {
			run = &runs[i]
			break
		}
	}
	if run == nil {
		return fail(formatter, ErrCodeNotFound, fmt.Sprintf("run not found: %s", runID))
	}

	all, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return fail(formatter, ErrCodeGeneric, err.Error())
	}
	result := TraceResult{Run: *run, Trace: all, Stats: traceStats(all), Filter: filter}
	if filter != "" {
		if result.Trace, err = st.QueryTrace(ctx, query); err != nil {
			return fail(formatter, ErrCodeGeneric, err.Error())
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	writeTraceText(formatter.Writer, result)
	return nil
}

// traceQuery builds the filter from the flags and a space-separated
// description of it ("" when no flag is set).
func traceQuery(opts *TraceOptions, runID string) (queryir.Select, string, error) {
	var (
		preds []queryir.Predicate
		desc  []string
	)
	if opts.Kind != "" && !slices.Contains(traceKinds, ir.TraceKind(opts.Kind)) {
		return queryir.Select{}, "", fmt.Errorf("invalid kind %q: must be one of %v", opts.Kind, traceKinds)
	}
	for _, f := range []struct{ field, value string }{
		{queryir.FieldKind, opts.Kind},
		{queryir.FieldObject, opts.Object},
		{queryir.FieldEvent, opts.Event},
		{queryir.FieldListener, opts.Listener},
	} {
		if f.value == "" {
			continue
		}
		preds = append(preds, queryir.Equals{Field: f.field, Value: ir.IRString(f.value)})
		desc = append(desc, f.field+"="+f.value)
	}
	if opts.Since != 0 {
		preds = append(preds, queryir.SeqRange{Min: opts.Since})
		desc = append(desc, fmt.Sprintf("seq>=%d", opts.Since))
	}

	q := queryir.Where(runID, preds...)
	if err := queryir.Validate(q); err != nil {
		return queryir.Select{}, "", err
	}
	return q, strings.Join(desc, " "), nil
}

func traceStats(trace []ir.TraceRecord) TraceStats {
	stats := TraceStats{Total: len(trace)}
	for _, rec := range trace {
		switch rec.Kind {
		case ir.TraceEmit:
			stats.Emits++
		case ir.TraceDefer:
			stats.Deferred++
		case ir.TraceAsync:
			stats.Async++
		case ir.TraceListener:
			stats.Listeners++
		case ir.TraceCreate:
			stats.Creates++
		case ir.TraceBegin:
			stats.Sessions++
		}
	}
	return stats
}

func writeTraceText(w io.Writer, r TraceResult) {
	fmt.Fprintf(w, "Run %s (%s)\n", r.Run.ID, r.Run.Name)
	if r.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n", r.Filter)
	}
	fmt.Fprintln(w)
	if len(r.Trace) == 0 {
		fmt.Fprintln(w, "  (no records)")
	}
	for _, rec := range r.Trace {
		fmt.Fprintf(w, "  [%d] %s\n", rec.Seq, harness.FormatRecord(rec))
	}
	s := r.Stats
	fmt.Fprintf(w, "\n%d record(s): %d emit, %d deferred, %d async, %d listener call(s), %d create(s), %d session(s)\n",
		s.Total, s.Emits, s.Deferred, s.Async, s.Listeners, s.Creates, s.Sessions)
}
