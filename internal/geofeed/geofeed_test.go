package geofeed

import (
	"log/slog"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/geofeed/internal/registry"
)

func newTestLogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelError}))
}

func TestGeofeed_Join_MatchedRoute(t *testing.T) {
	t.Parallel()

	routes := registry.NewRouteTable()
	routes.Set("172.20.0.0/24", "AS4242420000")

	allocs := registry.NewAllocationTable()
	allocs.Set("172.20.0.0/24", registry.Allocation{NetName: "EXAMPLE-NET", Country: "EX"})

	res := Join(newTestLogger(), routes, allocs, Options{Sort: true})
	require.Empty(t, res.Warnings)
	require.Equal(t, 1, res.Matched)
	require.Equal(t, 0, res.Dropped)
	require.Equal(t, [][]string{{"172.20.0.0/24", "EX", "", "", "AS4242420000", "EXAMPLE-NET"}}, res.Records())
}

func TestGeofeed_Join_UnmatchedRouteDropped(t *testing.T) {
	t.Parallel()

	routes := registry.NewRouteTable()
	routes.Set("172.21.0.0/24", "AS4242420001")

	res := Join(newTestLogger(), routes, registry.NewAllocationTable(), Options{})
	require.Empty(t, res.Rows)
	require.Equal(t, 0, res.Matched)
	require.Equal(t, 1, res.Dropped)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, registry.ErrorTypeUnmatchedRoute, res.Warnings[0].Type)
	require.Equal(t, "172.21.0.0/24", res.Warnings[0].GetContext("cidr"))
}

func TestGeofeed_Join_Ordering(t *testing.T) {
	t.Parallel()

	routes := registry.NewRouteTable()
	routes.Set("172.20.2.0/24", "AS4242420002")
	routes.Set("172.20.1.0/24", "AS4242420001")
	routes.Set("172.20.0.0/24", "AS4242420002")
	routes.Set("fd42::/48", "AS4242420001")
	routes.Set("10.0.0.0/8", "AS1")

	allocs := registry.NewAllocationTable()
	for _, cidr := range []string{"172.20.2.0/24", "172.20.1.0/24", "172.20.0.0/24", "fd42::/48"} {
		allocs.Set(cidr, registry.Allocation{NetName: "N", Country: "C"})
	}

	log := newTestLogger()

	unsorted := Join(log, routes, allocs, Options{Sort: false})
	require.Equal(t, []string{"172.20.2.0/24", "172.20.1.0/24", "172.20.0.0/24", "fd42::/48"}, cidrs(unsorted.Rows))

	sorted := Join(log, routes, allocs, Options{Sort: true})
	want := []Row{
		{CIDR: "172.20.1.0/24", Country: "C", ASN: "AS4242420001", NetName: "N"},
		{CIDR: "fd42::/48", Country: "C", ASN: "AS4242420001", NetName: "N"},
		{CIDR: "172.20.0.0/24", Country: "C", ASN: "AS4242420002", NetName: "N"},
		{CIDR: "172.20.2.0/24", Country: "C", ASN: "AS4242420002", NetName: "N"},
	}
	if diff := cmp.Diff(want, sorted.Rows); diff != "" {
		t.Fatalf("sorted rows mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, sorted.Dropped)
}

func TestGeofeed_SortRows_StringComparison(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{CIDR: "10.0.0.0/8", ASN: "AS64512"},
		{CIDR: "10.1.0.0/16", ASN: "AS4242420000"},
	}
	SortRows(rows)
	require.Equal(t, "AS4242420000", rows[0].ASN, "ASNs compare as strings, not numbers")
}

func cidrs(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CIDR)
	}
	return out
}
