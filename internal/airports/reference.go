package airports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ReadReference parses a code,country,state,city CSV. A leading header row whose first cell is
// "code" is skipped, as are rows that are too short or have no code.
func ReadReference(log *slog.Logger, name string, r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var entries []Entry
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		if row == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "code") {
			continue
		}
		if len(rec) < 4 {
			log.Debug("Skipping short reference row",
				slog.String("source", name),
				slog.Int("row", row),
				slog.Int("fields", len(rec)))
			continue
		}

		code := strings.TrimSpace(rec[0])
		if code == "" {
			log.Debug("Skipping reference row without code",
				slog.String("source", name),
				slog.Int("row", row))
			continue
		}

		entries = append(entries, Entry{
			Code:    code,
			Country: strings.TrimSpace(rec[1]),
			Region:  strings.TrimSpace(rec[2]),
			City:    strings.TrimSpace(rec[3]),
		})
	}

	return entries, nil
}
