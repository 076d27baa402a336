package exporter

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelError}))
}

func TestExporter_WriteFile_GeofeedLayout(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out", "nested")
	records := [][]string{
		{"172.20.0.0/24", "EX", "", "", "AS4242420000", "EXAMPLE-NET"},
		{"fd42::/48", "", "", "", "AS4242420001", "NET, WITH COMMA"},
	}

	path, err := WriteFile(newTestLogger(), dir, "geofeed.csv", records)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "geofeed.csv"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t,
		"172.20.0.0/24,EX,,,AS4242420000,EXAMPLE-NET\n"+
			"fd42::/48,,,,AS4242420001,\"NET, WITH COMMA\"\n",
		string(content))
}

func TestExporter_WriteFile_Overwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := WriteFile(newTestLogger(), dir, "ptr.csv", [][]string{{"AMS", "NL", "North Holland", "Amsterdam"}, {"ZRH", "CH", "Zurich", "Zurich"}})
	require.NoError(t, err)
	path, err := WriteFile(newTestLogger(), dir, "ptr.csv", [][]string{{"AMS", "NL", "North Holland", "Amsterdam"}})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "AMS,NL,North Holland,Amsterdam\n", string(content))
}

func TestExporter_NewCSVExporter_InvalidDirectory(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	notADir := filepath.Join(tempDir, "file_not_dir")
	require.NoError(t, os.WriteFile(notADir, []byte("test"), 0644))

	_, err := NewCSVExporter(newTestLogger(), filepath.Join(notADir, "subdir"), "geofeed.csv")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to create output directory")
}

func TestExporter_Render_MatchesWriteFile(t *testing.T) {
	t.Parallel()

	records := [][]string{{"a", "b"}, {"c", "d\"e"}}
	rendered, err := Render(records)
	require.NoError(t, err)

	path, err := WriteFile(newTestLogger(), t.TempDir(), "x.csv", records)
	require.NoError(t, err)
	written, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, string(written), string(rendered))
}

func TestExporter_UnifiedDiff(t *testing.T) {
	t.Parallel()

	require.Empty(t, UnifiedDiff("ptr.csv", []byte("a\n"), []byte("a\n")))

	diff := UnifiedDiff("ptr.csv", []byte("AMS,NL\nZRH,CH\n"), []byte("AMS,NL\nLHR,GB\n"))
	require.Contains(t, diff, "--- old/ptr.csv")
	require.Contains(t, diff, "+++ new/ptr.csv")
	require.Contains(t, diff, "-ZRH,CH")
	require.Contains(t, diff, "+LHR,GB")
}

func TestExporter_DiffAgainstFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	records := [][]string{{"172.20.0.0/24", "EX", "", "", "AS4242420000", "EXAMPLE-NET"}}

	diff, err := DiffAgainstFile(dir, "geofeed.csv", records)
	require.NoError(t, err)
	require.True(t, strings.Contains(diff, "+172.20.0.0/24,EX,,,AS4242420000,EXAMPLE-NET"), diff)

	_, err = WriteFile(newTestLogger(), dir, "geofeed.csv", records)
	require.NoError(t, err)

	diff, err = DiffAgainstFile(dir, "geofeed.csv", records)
	require.NoError(t, err)
	require.Empty(t, diff)
}
