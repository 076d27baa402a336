package exporter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// UnifiedDiff returns a unified diff between two renditions of the same file, or "" when they
// are identical.
func UnifiedDiff(name string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath("old/"+name), string(before), string(after))
	return fmt.Sprint(gotextdiff.ToUnified("old/"+name, "new/"+name, string(before), edits))
}

// DiffAgainstFile compares records with the current content of outputDir/name. A missing file
// diffs as empty.
func DiffAgainstFile(outputDir, name string, records [][]string) (string, error) {
	after, err := Render(records)
	if err != nil {
		return "", err
	}

	before, err := os.ReadFile(filepath.Join(outputDir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to read existing %s: %w", name, err)
	}

	return UnifiedDiff(name, before, after), nil
}
