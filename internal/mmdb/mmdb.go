package mmdb

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/maxmind/mmdbwriter"
	"github.com/maxmind/mmdbwriter/mmdbtype"
	"github.com/oschwald/maxminddb-golang"

	"github.com/malbeclabs/geofeed/internal/geofeed"
)

const DatabaseType = "Registry-Geofeed"

// Record is the value stored for every geofeed network.
type Record struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	ASN         uint32 `maxminddb:"autonomous_system_number"`
	ASNOrg      string `maxminddb:"autonomous_system_organization"`
	OriginLabel string `maxminddb:"origin"`
}

// Write renders rows as a MaxMind DB at path. Rows whose CIDR does not parse are skipped with a
// warning; reserved ranges are kept since registry networks usually live in them.
func Write(log *slog.Logger, path string, rows []geofeed.Row) (int, error) {
	tree, err := mmdbwriter.New(mmdbwriter.Options{
		DatabaseType:            DatabaseType,
		Description:             map[string]string{"en": "Registry route objects joined with inetnum holders"},
		RecordSize:              28,
		IncludeReservedNetworks: true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create mmdb tree: %w", err)
	}

	inserted := 0
	for _, row := range rows {
		_, network, err := net.ParseCIDR(row.CIDR)
		if err != nil {
			log.Warn("Skipping geofeed row with unparsable CIDR",
				slog.String("cidr", row.CIDR),
				slog.String("error", err.Error()))
			continue
		}

		rec := mmdbtype.Map{
			"country": mmdbtype.Map{
				"iso_code": mmdbtype.String(row.Country),
			},
			"autonomous_system_organization": mmdbtype.String(row.NetName),
			"origin":                         mmdbtype.String(row.ASN),
		}
		if asn, ok := ParseASN(row.ASN); ok {
			rec["autonomous_system_number"] = mmdbtype.Uint32(asn)
		}

		if err := tree.Insert(network, rec); err != nil {
			return inserted, fmt.Errorf("failed to insert %s: %w", row.CIDR, err)
		}
		inserted++
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return inserted, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return inserted, fmt.Errorf("failed to create mmdb file: %w", err)
	}
	if _, err := tree.WriteTo(f); err != nil {
		f.Close()
		return inserted, fmt.Errorf("failed to write mmdb file: %w", err)
	}
	if err := f.Close(); err != nil {
		return inserted, fmt.Errorf("failed to close mmdb file: %w", err)
	}

	log.Info("Wrote mmdb", slog.String("file", path), slog.Int("networks", inserted))
	return inserted, nil
}

// ParseASN extracts the number from an "AS4242420000" style origin.
func ParseASN(origin string) (uint32, bool) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(origin)), "AS")
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// Reader looks up addresses in a database produced by Write.
type Reader struct {
	db *maxminddb.Reader
}

func Open(path string) (*Reader, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmdb %s: %w", path, err)
	}
	if db.Metadata.DatabaseType != DatabaseType {
		db.Close()
		return nil, fmt.Errorf("unexpected database type %q", db.Metadata.DatabaseType)
	}
	return &Reader{db: db}, nil
}

// Lookup returns the record and network containing ip. ok is false when no network matches.
func (r *Reader) Lookup(ip net.IP) (rec *Record, network *net.IPNet, ok bool, err error) {
	var out Record
	network, ok, err = r.db.LookupNetwork(ip, &out)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to look up %s: %w", ip, err)
	}
	if !ok {
		return nil, network, false, nil
	}
	return &out, network, true, nil
}

func (r *Reader) Close() error {
	return r.db.Close()
}
