package airports

import (
	"embed"
	"encoding/csv"
	"fmt"
	"strings"
)

//go:embed data/iata.csv
var iataCSV embed.FS

// LoadBundled returns the embedded IATA airport dataset.
func LoadBundled() ([]Entry, error) {
	f, err := iataCSV.Open("data/iata.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv is empty")
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) < 4 {
			continue
		}
		code := strings.TrimSpace(rec[0])
		if code == "" {
			continue
		}
		entries = append(entries, Entry{
			Code:    code,
			Country: strings.ToUpper(strings.TrimSpace(rec[1])),
			Region:  strings.TrimSpace(rec[2]),
			City:    strings.TrimSpace(rec[3]),
		})
	}

	return entries, nil
}
