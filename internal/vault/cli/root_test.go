package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "vault", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"serve", "export", "stats", "keygen"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"cache-driver", "cache-file", "log-level"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	for _, name := range []string{"export", "keygen"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		out := sub.Flags().Lookup("output")
		require.NotNil(t, out, name)
		assert.Equal(t, "o", out.Shorthand)
	}

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	require.NotNil(t, serve.Flags().Lookup("port"))
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestKeygen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "master.key")

	stdout, _, err := execute(t, "keygen", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	key, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, stdout, strings.TrimSpace(string(key)))

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, _, err := execute(t, "keygen", "-o", path)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, ExitCode(err))

		again, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, key, again)
	})
}

func TestStatsAndExport(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VAULT_MASTER_KEY_PATH", filepath.Join(dir, "master.key"))
	t.Setenv("LOG_LEVEL", "error")

	_, _, err := execute(t, "keygen")
	require.NoError(t, err)

	cache := filepath.Join(dir, "vault.db")

	t.Run("stats", func(t *testing.T) {
		stdout, _, err := execute(t, "stats", "--cache-file", cache)
		require.NoError(t, err)

		var stats map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
		assert.EqualValues(t, 12, stats["totalDomains"])
		assert.EqualValues(t, 3, stats["uniqueProviderCount"])
	})

	t.Run("export to stdout", func(t *testing.T) {
		stdout, _, err := execute(t, "export", "--cache-file", cache)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(stdout, "BEGIN:VCALENDAR\r\n"))
		assert.Equal(t, 12, strings.Count(stdout, "BEGIN:VEVENT"))
	})

	t.Run("export to file reuses the seeded cache", func(t *testing.T) {
		first, _, err := execute(t, "export", "--cache-file", cache)
		require.NoError(t, err)

		out := filepath.Join(dir, "renewals.ics")
		_, stderr, err := execute(t, "export", "--cache-file", cache, "-o", out)
		require.NoError(t, err)
		assert.Contains(t, stderr, "wrote 12 renewals")

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, first, string(data))
	})
}

func TestInvalidCacheDriver(t *testing.T) {
	_, _, err := execute(t, "stats", "--cache-driver", "etcd")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestMissingMasterKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VAULT_MASTER_KEY_PATH", filepath.Join(dir, "absent.key"))

	_, _, err := execute(t, "stats", "--cache-file", filepath.Join(dir, "vault.db"))
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "absent.key"))
}

func TestUnopenableCacheIsARuntimeFailure(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VAULT_MASTER_KEY_PATH", filepath.Join(dir, "master.key"))
	t.Setenv("LOG_LEVEL", "error")

	_, _, err := execute(t, "keygen")
	require.NoError(t, err)

	cache := filepath.Join(dir, "missing", "vault.db")
	for _, name := range []string{"stats", "export"} {
		t.Run(name, func(t *testing.T) {
			_, _, err := execute(t, name, "--cache-file", cache)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, ExitCode(err))
		})
	}

	t.Run("unwritable output", func(t *testing.T) {
		out := filepath.Join(dir, "no-such-dir", "renewals.ics")
		_, _, err := execute(t, "export", "--cache-file", filepath.Join(dir, "vault.db"), "-o", out)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, ExitCode(err))
		assert.Contains(t, err.Error(), "failed to write calendar")
	})
}
