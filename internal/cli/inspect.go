package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/model"
)

// InspectResult describes a composed store.
type InspectResult struct {
	bundle.Inventory
	Values  map[string]any `json:"values"`
	Pending string         `json:"pending_reaction,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <bundles-dir>",
		Short: "Compose bundles and describe the resulting store",
		Long: `Compose the bundles in a directory, hydrating persisted slices from the
configured cache, and print the store inventory: bundles, actions,
selectors with their current values, reactors, the persistence map and
the reaction that would run next.

Examples:
  bundlecore inspect ./bundles
  bundlecore inspect ./bundles --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	res, err := loadValid(dir, formatter)
	if err != nil {
		return err
	}

	rt, err := compose(cmd.Context(), opts.Config, res.Specs(), opts.Logger())
	if err != nil {
		_ = formatter.Error(ErrCodeCacheFailed, err.Error(), nil)
		return err
	}
	defer rt.Close()

	values, err := rt.store.SelectAll()
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to evaluate selectors", err)
	}

	result := InspectResult{Inventory: rt.store.Inventory(), Values: values}
	if r, ok := rt.sched.Pending(); ok {
		result.Pending = r.Reactor
	}

	return formatter.Success(result, func(w io.Writer) { writeInspect(w, result) })
}

func writeInspect(w io.Writer, r InspectResult) {
	fmt.Fprintf(w, "Store %s (%d chunk(s))\n", r.ID, r.Chunks)
	fmt.Fprintf(w, "Bundles:   %s\n", list(r.Bundles))
	fmt.Fprintf(w, "Actions:   %s\n", list(r.Actions))
	fmt.Fprintf(w, "Reactors:  %s\n", list(r.Reactors))

	fmt.Fprintln(w, "Selectors:")
	names := make([]string, 0, len(r.Values))
	for k := range r.Values {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		data, err := model.MarshalCanonical(r.Values[k])
		if err != nil {
			data = []byte(fmt.Sprintf("%v", r.Values[k]))
		}
		fmt.Fprintf(w, "  %s = %s\n", k, data)
	}

	if len(r.Persistence) > 0 {
		fmt.Fprintln(w, "Persistence:")
		triggers := make([]string, 0, len(r.Persistence))
		for t := range r.Persistence {
			triggers = append(triggers, t)
		}
		sort.Strings(triggers)
		for _, t := range triggers {
			fmt.Fprintf(w, "  %s -> %s\n", t, strings.Join(r.Persistence[t], ", "))
		}
	}

	if r.Pending != "" {
		fmt.Fprintf(w, "Next reaction: %s\n", r.Pending)
	}
}

func list(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
