package publish

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/malbeclabs/geofeed/internal/config"
)

// ObjectKey builds the destination key for filePath: an optional prefix followed by the
// sanitized, optionally timestamped, file name.
func ObjectKey(filePath string, prefix *string, format config.TimestampFormat, now time.Time) (string, error) {
	filename := filepath.Base(filePath)
	if filename == "." || filename == "/" || filename == "" {
		return "", fmt.Errorf("invalid filename: %s", filePath)
	}

	var name string
	switch format {
	case config.TimestampFormatNone:
		name = filename
	case config.TimestampFormatUnix:
		name = fmt.Sprintf("%d_%s", now.Unix(), filename)
	default:
		// 2025-11-05T12-30-45Z
		name = fmt.Sprintf("%s_%s", now.UTC().Format("2006-01-02T15-04-05Z"), filename)
	}
	name = Sanitize(name)

	if prefix != nil && *prefix != "" {
		return strings.TrimSuffix(*prefix, "/") + "/" + name, nil
	}
	return name, nil
}

// Sanitize replaces every character outside [A-Za-z0-9._-] with an underscore.
func Sanitize(filename string) string {
	var result strings.Builder
	for _, c := range filename {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' {
			result.WriteRune(c)
		} else {
			result.WriteRune('_')
		}
	}
	return result.String()
}
