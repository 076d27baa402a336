package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/malbeclabs/geofeed/internal/metrics"
)

// Rule maps a line prefix to the field it populates.
type Rule struct {
	Prefix string
	Field  string
}

// Fields holds the extracted values of one object, keyed by Rule.Field.
type Fields map[string]string

func (f Fields) Get(field string) string {
	return f[field]
}

// Object is one parsed registry file.
type Object struct {
	Name   string
	Path   string
	Fields Fields
}

// ParseObject scans r line by line. A line matches a rule when it starts with the rule's prefix;
// its value is whatever follows the first run of whitespace after the prefix, trimmed. A field that
// appears more than once keeps its last value. Lines have no length limit.
func ParseObject(r io.Reader, rules []Rule) (Fields, error) {
	fields := make(Fields, len(rules))

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if line != "" {
			applyRules(fields, strings.TrimRight(line, "\r\n"), rules)
		}
		if err != nil {
			break
		}
	}

	return fields, nil
}

func applyRules(fields Fields, line string, rules []Rule) {
	for _, rule := range rules {
		if strings.HasPrefix(line, rule.Prefix) {
			fields[rule.Field] = extractValue(line[len(rule.Prefix):])
			return
		}
	}
}

// extractValue returns the text after the first whitespace run of rest. "route6:   fd00::/48"
// with prefix "route" leaves rest "6:   fd00::/48" and yields "fd00::/48".
func extractValue(rest string) string {
	idx := strings.IndexAny(rest, " \t")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(rest[idx:])
}

// LoadDir parses every regular file in dir in lexical filename order.
func LoadDir(log *slog.Logger, dir string, rules []Rule) ([]Object, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, NewFileIOError("read_registry_dir", "failed to list registry directory", err).
			WithContext("dir", dir)
	}

	objects := make([]Object, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			log.Debug("Skipping subdirectory in registry directory",
				slog.String("dir", dir),
				slog.String("name", entry.Name()))
			continue
		}

		path := filepath.Join(dir, entry.Name())
		fields, err := parseFile(path, rules)
		if err != nil {
			return nil, err
		}
		objects = append(objects, Object{
			Name:   entry.Name(),
			Path:   path,
			Fields: fields,
		})
	}

	metrics.ObjectsParsedTotal.WithLabelValues(filepath.Base(dir)).Add(float64(len(objects)))
	return objects, nil
}

func parseFile(path string, rules []Rule) (Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewFileIOError("open_registry_object", "failed to open registry object", err).
			WithContext("file", path)
	}
	defer f.Close()

	fields, err := ParseObject(f, rules)
	if err != nil {
		return nil, NewFileIOError("read_registry_object", fmt.Sprintf("failed to read %s", filepath.Base(path)), err).
			WithContext("file", path)
	}
	return fields, nil
}
