package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func findFlag[T cli.Flag](t *testing.T, cmd *cli.Command, name string) T {
	t.Helper()
	for _, flag := range cmd.Flags {
		if f, ok := flag.(T); ok {
			for _, n := range flag.Names() {
				if n == name {
					return f
				}
			}
		}
	}
	var zero T
	t.Fatalf("flag %q not found on %s", name, cmd.Name)
	return zero
}

func testApp(out io.Writer) *cli.App {
	app := newApp()
	app.Writer = out
	app.ErrWriter = io.Discard
	return app
}

func TestCommandFlags(t *testing.T) {
	app := newApp()

	t.Run("every command requires db", func(t *testing.T) {
		for _, name := range []string{"import", "backfill", "search", "status"} {
			dbFlag := findFlag[*cli.StringFlag](t, findCommand(t, app, name), "db")
			assert.True(t, dbFlag.Required, name)
		}
	})

	t.Run("missing db flag fails", func(t *testing.T) {
		err := testApp(io.Discard).Run([]string{"semsearch", "status"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db")
	})

	t.Run("provider defaults to precomputed and reads the environment", func(t *testing.T) {
		providerFlag := findFlag[*cli.StringFlag](t, findCommand(t, app, "search"), "provider")
		assert.Equal(t, "precomputed", providerFlag.Value)
		assert.Equal(t, []string{"EMBEDDING_PROVIDER"}, providerFlag.EnvVars)
	})

	t.Run("credentials have EnvVars and no defaults", func(t *testing.T) {
		cmd := findCommand(t, app, "backfill")
		key := findFlag[*cli.StringFlag](t, cmd, "openai-key")
		assert.Empty(t, key.Value)
		assert.Equal(t, []string{"OPENAI_API_KEY"}, key.EnvVars)

		endpoint := findFlag[*cli.StringFlag](t, cmd, "azure-endpoint")
		assert.Equal(t, []string{"AZURE_OPENAI_ENDPOINT"}, endpoint.EnvVars)
	})

	t.Run("search defaults", func(t *testing.T) {
		cmd := findCommand(t, app, "search")
		assert.Equal(t, 5, findFlag[*cli.IntFlag](t, cmd, "limit").Value)
		assert.InDelta(t, 0.65, findFlag[*cli.Float64Flag](t, cmd, "threshold").Value, 1e-9)
	})

	t.Run("backfill defaults", func(t *testing.T) {
		cmd := findCommand(t, app, "backfill")
		assert.Equal(t, 100, findFlag[*cli.IntFlag](t, cmd, "batch-size").Value)
		assert.Equal(t, 100, findFlag[*cli.IntFlag](t, cmd, "report-interval").Value)
		assert.Equal(t, 3, findFlag[*cli.IntFlag](t, cmd, "max-retries").Value)
		assert.Equal(t, 1, findFlag[*cli.IntFlag](t, cmd, "concurrency").Value)
	})
}

func TestBackfillCommandValidation(t *testing.T) {
	dir := t.TempDir()

	for _, flag := range []string{"batch-size", "report-interval", "max-retries", "concurrency"} {
		t.Run(flag+" must be positive", func(t *testing.T) {
			err := testApp(io.Discard).Run([]string{"semsearch", "backfill", "--db", dir, "--" + flag, "0"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), flag)
		})
	}
}

func TestImportCommandValidation(t *testing.T) {
	dir := t.TempDir()

	t.Run("file argument is required", func(t *testing.T) {
		err := testApp(io.Discard).Run([]string{"semsearch", "import", "--db", dir})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog file")
	})

	t.Run("invalid entry is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"code": "W-1"}]`), 0o600))

		err := testApp(io.Discard).Run([]string{"semsearch", "import", "--db", dir, path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog entry 0")
	})

	t.Run("malformed file is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

		err := testApp(io.Discard).Run([]string{"semsearch", "import", "--db", dir, path})
		assert.Error(t, err)
	})
}

const testCatalog = `[
	{"code": "W-1", "name": "Widget", "manufacturer": "Acme", "category": "Tools", "description": "Does things"},
	{"code": "W-2", "name": "Gadget", "manufacturer": "Acme", "category": "Tools", "description": "Spins fast"},
	{"code": "W-3", "name": "Gizmo", "category": "Toys", "description": "Beeps on command"}
]`

func TestCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o600))

	run := func(t *testing.T, args ...string) string {
		t.Helper()
		var out bytes.Buffer
		err := testApp(&out).Run(append([]string{"semsearch", "--log-level", "error"}, args...))
		require.NoError(t, err)
		return out.String()
	}

	out := run(t, "import", "--db", dir, "--no-embed", catalogPath)
	assert.Contains(t, out, "Imported 3 new and 0 updated items")
	assert.Contains(t, out, "3 items, 0 embedded")

	out = run(t, "status", "--db", dir)
	assert.Contains(t, out, "3 pending")
	assert.Contains(t, out, "not stamped")

	out = run(t, "backfill", "--db", dir)
	assert.Contains(t, out, "Generated 3, skipped 0, failed 0")

	out = run(t, "status", "--db", dir)
	assert.Contains(t, out, "3 embedded, 0 pending")
	assert.Contains(t, out, "Corpus:   precomputed")

	out = run(t, "search", "--db", dir, "--limit", "1", "Gadget by Acme in Tools. Spins fast")
	assert.Contains(t, out, "Found 1 of 1 hits")
	assert.Contains(t, out, "1: W-2 'Gadget' [1.000]")

	out = run(t, "import", "--db", dir, catalogPath)
	assert.Contains(t, out, "Imported 0 new and 3 updated items")
	assert.Contains(t, out, "3 items, 3 embedded")

	t.Run("provider switch is reported", func(t *testing.T) {
		out := run(t, "status", "--db", dir, "--dimension", "8")
		assert.Contains(t, out, "produced by another provider")

		out = run(t, "backfill", "--db", dir, "--dimension", "8")
		assert.Contains(t, out, "cleared 3 stored vectors")
		assert.Contains(t, out, "Generated 3")
	})

	t.Run("empty query fails", func(t *testing.T) {
		err := testApp(io.Discard).Run([]string{"semsearch", "search", "--db", dir, "   "})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
			{"WaRn", slog.LevelWarn},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "log-level", Value: "info"},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				require.NoError(t, app.Run([]string{"test", "--log-level", tc.input}))
				assert.True(t, slog.Default().Enabled(t.Context(), tc.expected))
				if tc.expected > slog.LevelDebug {
					assert.False(t, slog.Default().Enabled(t.Context(), tc.expected-4))
				}
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Value: "info"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}

		err := app.Run([]string{"test", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
