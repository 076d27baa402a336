package airports

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

// RawAirport is one value of the airport dataset object.
// Example: {"KJFK": {"icao": "KJFK", "iata": "JFK", "city": "New York", ...}}
type RawAirport struct {
	ICAO      string  `json:"icao"`
	IATA      string  `json:"iata"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Country   string  `json:"country"`
	Elevation int     `json:"elevation"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	TZ        string  `json:"tz"`
}

// LoadDataset decodes an airport dataset object into entries sorted by IATA code.
// Airports without an IATA code are skipped. When two airports share a code the one
// with the lowest ICAO key is kept.
func LoadDataset(log *slog.Logger, r io.Reader) ([]Entry, error) {
	var raw map[string]RawAirport
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode airport dataset: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no airport data found in dataset")
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]struct{}, len(raw))
	entries := make([]Entry, 0, len(raw))
	var skipped, duplicates int
	for _, k := range keys {
		a := raw[k]
		code := strings.ToUpper(strings.TrimSpace(a.IATA))
		if code == "" {
			skipped++
			continue
		}
		if _, ok := seen[code]; ok {
			duplicates++
			continue
		}
		seen[code] = struct{}{}
		entries = append(entries, Entry{
			Code:    code,
			Country: strings.ToUpper(strings.TrimSpace(a.Country)),
			Region:  strings.TrimSpace(a.State),
			City:    strings.TrimSpace(a.City),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Code < entries[j].Code })

	log.Debug("Loaded airport dataset",
		slog.Int("airports", len(raw)),
		slog.Int("entries", len(entries)),
		slog.Int("without_iata", skipped),
		slog.Int("duplicate_iata", duplicates))
	return entries, nil
}
