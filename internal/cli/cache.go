package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/bundlecore/internal/persist"
	"github.com/roach88/bundlecore/internal/store"
)

// CacheEntry describes one persisted slice.
type CacheEntry struct {
	Key       string          `json:"key"`
	Seq       int64           `json:"seq"`
	Hash      string          `json:"hash"`
	Size      int             `json:"size"`
	Writer    string          `json:"writer,omitempty"`
	UpdatedAt int64           `json:"updated_at,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the persistence cache",
		Long: `Inspect or clear the slices persisted in the configured cache.

The backend and path come from cache.backend and cache.path in the
config, or BUNDLECORE_CACHE_BACKEND and BUNDLECORE_CACHE_PATH.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List persisted slices",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(rootOpts, cmd, func(ctx context.Context, c persist.Cache, f *OutputFormatter) error {
				return runCacheList(ctx, c, f)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <key>",
		Short:         "Print one persisted slice",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(rootOpts, cmd, func(ctx context.Context, c persist.Cache, f *OutputFormatter) error {
				return runCacheShow(ctx, c, f, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "clear [key...]",
		Short:         "Delete persisted slices (all when no key is given)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(rootOpts, cmd, func(ctx context.Context, c persist.Cache, f *OutputFormatter) error {
				return runCacheClear(ctx, c, f, args)
			})
		},
	})
	return cmd
}

func withCache(opts *RootOptions, cmd *cobra.Command, fn func(context.Context, persist.Cache, *OutputFormatter) error) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	c, err := openCache(opts.Config.Cache)
	if err != nil {
		_ = formatter.Error(ErrCodeCacheFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open cache", err)
	}
	defer c.Close()

	formatter.VerboseLog("Using %s cache", backendName(opts))
	return fn(cmd.Context(), c, formatter)
}

func backendName(opts *RootOptions) string {
	if opts.Config.Cache.Backend == "" {
		return "memory"
	}
	return opts.Config.Cache.Backend + " " + opts.Config.Cache.Path
}

func listEntries(ctx context.Context, c persist.Cache) ([]CacheEntry, error) {
	if s, ok := c.(*store.Store); ok {
		rows, err := s.Rows(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]CacheEntry, len(rows))
		for i, r := range rows {
			out[i] = CacheEntry{Key: r.Key, Seq: r.Seq, Hash: r.Hash, Size: r.Size, Writer: r.Writer, UpdatedAt: r.UpdatedAt}
		}
		return out, nil
	}

	keys, err := c.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CacheEntry, 0, len(keys))
	for _, k := range keys {
		e, ok, err := c.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, CacheEntry{Key: k, Seq: e.Seq, Hash: e.Hash, Size: len(e.Value)})
		}
	}
	return out, nil
}

func runCacheList(ctx context.Context, c persist.Cache, f *OutputFormatter) error {
	entries, err := listEntries(ctx, c)
	if err != nil {
		_ = f.Error(ErrCodeCacheFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list cache", err)
	}
	return f.Success(entries, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintln(w, "Cache is empty.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tSEQ\tSIZE\tHASH")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", e.Key, e.Seq, e.Size, shortHash(e.Hash))
		}
		_ = tw.Flush()
	})
}

func runCacheShow(ctx context.Context, c persist.Cache, f *OutputFormatter, key string) error {
	e, ok, err := c.Get(ctx, key)
	if err != nil {
		_ = f.Error(ErrCodeCacheFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read cache", err)
	}
	if !ok {
		msg := fmt.Sprintf("slice %q not found in cache", key)
		_ = f.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitFailure, msg)
	}
	entry := CacheEntry{Key: key, Seq: e.Seq, Hash: e.Hash, Size: len(e.Value), Value: e.Value}
	return f.Success(entry, func(w io.Writer) {
		fmt.Fprintf(w, "%s (seq %d, %s)\n%s\n", key, e.Seq, shortHash(e.Hash), e.Value)
	})
}

func runCacheClear(ctx context.Context, c persist.Cache, f *OutputFormatter, keys []string) error {
	if len(keys) == 0 {
		all, err := c.Keys(ctx)
		if err != nil {
			_ = f.Error(ErrCodeCacheFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list cache", err)
		}
		keys = all
	}
	for _, k := range keys {
		if err := c.Delete(ctx, k); err != nil {
			_ = f.Error(ErrCodeCacheFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to delete %q", k), err)
		}
	}
	return f.Success(map[string]any{"deleted": keys}, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted %d slice(s)\n", len(keys))
	})
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}
