package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/bundlecore/internal/engine"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/persist"
)

// Input is one line of run input: a plain action or a named action
// creator call.
type Input struct {
	Type    string `json:"type,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Action  string `json:"action,omitempty"`
	Args    []any  `json:"args,omitempty"`
}

// Change is one line of run output.
type Change struct {
	Seq     int64          `json:"seq"`
	Changed map[string]any `json:"changed"`
}

// RunSummary is printed once input is exhausted.
type RunSummary struct {
	Dispatched int           `json:"dispatched"`
	Seq        int64         `json:"seq"`
	State      model.State   `json:"state"`
	Cache      persist.Stats `json:"cache"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <bundles-dir>",
		Short: "Run a store and feed it actions from stdin",
		Long: `Compose the bundles in a directory and run the store's idle loop.

Actions are read from stdin as JSON values, one per line:
  {"type": "INC"}
  {"type": "SET", "payload": 3}
  {"action": "doIncrement", "args": []}

Every transition that changes a selector prints a JSON line with the
changed values. Reactions run between inputs. Persisted slices are
hydrated from and written to the configured cache.

Example:
  echo '{"action":"doIncrement"}' | bundlecore run ./bundles`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runStore(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.Logger()

	res, err := loadValid(dir, formatter)
	if err != nil {
		return err
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	rt, err := compose(ctx, opts.Config, res.Specs(), logger)
	if err != nil {
		_ = formatter.Error(ErrCodeCacheFailed, err.Error(), nil)
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			logger.Error("error closing cache", "error", closeErr)
		}
	}()

	out := json.NewEncoder(cmd.OutOrStdout())
	rt.store.SubscribeToAll(func(changed map[string]any) {
		_ = out.Encode(Change{Seq: rt.store.Seq(), Changed: changed})
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	dispatched := make(chan int, 1)
	go func() {
		dispatched <- feed(cmd.InOrStdin(), rt.store, logger.Warn)
	}()

	logger.Info("store running", "store_id", rt.store.ID(), "bundles", len(res.Declarations))
	if err := rt.store.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "store error", err)
	}
	rt.store.Destroy()

	n := 0
	select {
	case n = <-dispatched:
	case <-ctx.Done():
	}
	summary := RunSummary{
		Dispatched: n,
		Seq:        rt.store.Seq(),
		State:      rt.store.GetState(),
		Cache:      rt.bridge.Stats(),
	}
	return formatter.Success(summary, func(w io.Writer) {
		fmt.Fprintf(w, "Dispatched %d input(s), %d action(s) reduced\n", summary.Dispatched, summary.Seq)
		fmt.Fprintf(w, "Cache: %d written, %d skipped, %d stale, %d failed\n",
			summary.Cache.Written, summary.Cache.Skipped, summary.Cache.Stale, summary.Cache.Failed)
	})
}

// feed decodes inputs from r and enqueues them on st. At end of input it
// stops the store once all earlier work, including reactions, has run.
// Returns the number of inputs enqueued.
func feed(r io.Reader, st *engine.Store, warn func(msg string, args ...any)) int {
	dec := json.NewDecoder(r)
	n := 0
	for {
		var in Input
		err := dec.Decode(&in)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			warn("invalid input, stopping", "error", err)
			break
		}
		if in.Type == "" && in.Action == "" {
			warn("input has neither type nor action, skipping", "input", n)
			continue
		}
		if !enqueue(st, in) {
			return n
		}
		n++
	}

	var stopWhenIdle func() error
	stopWhenIdle = func() error {
		if st.PendingTasks() > 0 {
			st.Defer(stopWhenIdle)
			return nil
		}
		st.Stop()
		return nil
	}
	st.Defer(stopWhenIdle)
	return n
}

func enqueue(st *engine.Store, in Input) bool {
	if in.Action != "" {
		st.Defer(func() error {
			_, err := st.Action(in.Action, in.Args...)
			return err
		})
		return true
	}
	return st.Enqueue(model.Action{Type: in.Type, Payload: in.Payload})
}
