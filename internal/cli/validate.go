package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/bundlecore/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Bundles []string                   `json:"bundles,omitempty"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <bundles-dir>",
		Short: "Validate bundle declarations",
		Long: `Validate CUE bundle declarations without composing a store.

Checks that every declaration compiles and that names are consistent
across bundles: no duplicate bundles, actions, selectors or reactors,
and reactors only watch declared selectors.`,
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
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	res, err := LoadBundles(dir)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			_ = formatter.Error(le.Code, le.Error(), nil)
			return NewExitError(ExitCommandError, le.Error())
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load bundles", err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, dir)

	names := make([]string, len(res.Declarations))
	for i, d := range res.Declarations {
		names[i] = d.Name
		formatter.VerboseLog("Validated bundle: %s", d.Name)
	}

	if len(res.Invalid) > 0 {
		result := ValidationResult{Valid: false, Bundles: names, Errors: res.Invalid}
		first := res.Invalid[0]
		_ = formatter.Failure(result, first.Code, first.Message, func(w io.Writer) {
			fmt.Fprintln(w, "✗ Validation failed")
			fmt.Fprintln(w)
			for _, e := range res.Invalid {
				fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
			}
		})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(res.Invalid)))
	}

	return formatter.Success(ValidationResult{Valid: true, Bundles: names}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %d bundle(s) valid\n", len(names))
	})
}
