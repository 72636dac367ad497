package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kinda/internal/class"
	"github.com/roach88/kinda/internal/version"
)

// InspectResult describes one class's composed prototype.
type InspectResult struct {
	Name         string             `json:"name"`
	Version      string             `json:"version,omitempty"`
	Parent       string             `json:"parent,omitempty"`
	Superclasses []string           `json:"superclasses"`
	Members      []class.MemberInfo `json:"members"`
	Statics      []class.MemberInfo `json:"statics"`
	Defaults     map[string]any     `json:"defaults,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <manifest-dir> <class>",
		Short: "Show the composed members of a class",
		Long: `Define the classes in a manifest directory and show one of them.

The class is named as Name or Name@version; an unversioned name selects the
newest version. Members are listed in definition order, including those
contributed by included classes.

Example:
  kinda inspect ./classes Movie
  kinda inspect ./classes Movie@0.1.0 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, dir, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ref, err := version.ParseRef(name)
	if err != nil {
		return fail(formatter, ErrCodeGeneric, fmt.Sprintf("invalid class reference %q: %v", name, err))
	}

	loaded, errs := LoadClasses(dir, LoadModeFailFast)
	if loaded == nil || len(errs) > 0 {
		return failLoad(formatter, errs)
	}
	registry, _, err := defineClasses(loaded.Classes, opts.Logger(cmd))
	if err != nil {
		return failLoad(formatter, []error{err})
	}

	c, ok := registry.Lookup(ref)
	if !ok {
		return fail(formatter, ErrCodeNotFound, fmt.Sprintf("class %s is not defined", ref))
	}

	result, err := describeClass(c)
	if err != nil {
		return fail(formatter, ErrCodeGeneric, err.Error())
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	writeInspectText(formatter.Writer, result)
	return nil
}

// describeClass instantiates c to read the defaults of its enumerable
// members. Only the initializer runs; creator hooks do not.
func describeClass(c *class.Class) (InspectResult, error) {
	result := InspectResult{
		Name:         c.Name(),
		Version:      c.Version(),
		Superclasses: classNames(c.Superclasses()),
		Members:      c.Prototype().Members(),
		Statics:      c.StaticMembers(),
	}
	if p := c.Parent(); p != nil {
		result.Parent = p.String()
	}

	o, err := c.Instantiate()
	if err != nil {
		return InspectResult{}, fmt.Errorf("instantiate %s: %w", c, err)
	}
	for _, k := range o.Keys() {
		v, err := o.Get(k)
		if err != nil {
			return InspectResult{}, fmt.Errorf("read %s.%s: %w", c, k, err)
		}
		if result.Defaults == nil {
			result.Defaults = make(map[string]any)
		}
		result.Defaults[k] = v
	}
	return result, nil
}

func writeInspectText(w io.Writer, r InspectResult) {
	ref := version.Ref{Name: r.Name, Version: r.Version}
	fmt.Fprintf(w, "Class %s\n", ref)
	if r.Parent != "" {
		fmt.Fprintf(w, "  extends %s\n", r.Parent)
	}
	fmt.Fprintf(w, "  superclasses: %s\n", strings.Join(r.Superclasses, " → "))

	fmt.Fprintf(w, "\nMembers (%d):\n", len(r.Members))
	for _, m := range r.Members {
		fmt.Fprintf(w, "  %-16s %s%s", m.Name, m.Kind, accessors(m))
		if v, ok := r.Defaults[m.Name]; ok {
			fmt.Fprintf(w, " = %v", v)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nStatics (%d):\n", len(r.Statics))
	for _, m := range r.Statics {
		fmt.Fprintf(w, "  %-16s %s%s\n", m.Name, m.Kind, accessors(m))
	}
}

func accessors(m class.MemberInfo) string {
	if m.Kind != class.KindProperty.String() {
		return ""
	}
	var parts []string
	if m.Getter {
		parts = append(parts, "get")
	}
	if m.Setter {
		parts = append(parts, "set")
	}
	if m.Enumerable {
		parts = append(parts, "enumerable")
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
