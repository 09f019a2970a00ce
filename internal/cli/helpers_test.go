package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const counterBundles = `package bundles

bundle: counter: {
	initial: 0
	on: INC: {op: "add"}
	on: SET: {op: "payload"}
	on: RESET: {op: "set", value: 0}
	selectors: selectCount: {path: "counter"}
	reactors: reactClamp: {
		when: {selector: "selectCount", op: "gt", value: 2}
		dispatch: {type: "RESET"}
	}
	actions: doIncrement: {type: "INC"}
	persist: ["INC", "SET", "RESET"]
}
`

// writeBundles writes src as bundles.cue in a fresh directory.
func writeBundles(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bundles.cue"), []byte(src), 0o644))
	return dir
}

// isolateConfig points HOME at an empty directory and clears BUNDLECORE_
// overrides that matter to the commands under test.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BUNDLECORE_CONFIG", "")
	t.Setenv("BUNDLECORE_CACHE_BACKEND", "")
	t.Setenv("BUNDLECORE_CACHE_PATH", "")
}

// execute runs the root command with args and stdin.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// useSQLiteCache configures a SQLite cache in a fresh directory and
// returns its path.
func useSQLiteCache(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	t.Setenv("BUNDLECORE_CACHE_BACKEND", "sqlite")
	t.Setenv("BUNDLECORE_CACHE_PATH", path)
	return path
}
