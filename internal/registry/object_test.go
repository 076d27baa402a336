package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeObject(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRegistry_ParseObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		rules []Rule
		want  Fields
	}{
		{
			name: "route object",
			input: "route:              172.20.0.0/24\n" +
				"descr:              Example route\n" +
				"origin:             AS4242420000\n" +
				"mnt-by:             EXAMPLE-MNT\n" +
				"source:             DN42\n",
			rules: RouteRules,
			want:  Fields{FieldCIDR: "172.20.0.0/24", FieldASN: "AS4242420000"},
		},
		{
			name: "route6 attribute matches route prefix",
			input: "route6:             fd42:4242:2601::/48\n" +
				"origin:             AS4242420001\n",
			rules: RouteRules,
			want:  Fields{FieldCIDR: "fd42:4242:2601::/48", FieldASN: "AS4242420001"},
		},
		{
			name: "last occurrence wins",
			input: "route:              172.20.0.0/24\n" +
				"origin:             AS4242420000\n" +
				"origin:             AS4242420099\n",
			rules: RouteRules,
			want:  Fields{FieldCIDR: "172.20.0.0/24", FieldASN: "AS4242420099"},
		},
		{
			name: "empty last occurrence overwrites",
			input: "origin:             AS4242420000\n" +
				"origin:\n",
			rules: RouteRules,
			want:  Fields{FieldASN: ""},
		},
		{
			name: "prefix must be at line start",
			input: "remarks:            route: 10.0.0.0/8\n" +
				" origin:            AS1\n",
			rules: RouteRules,
			want:  Fields{},
		},
		{
			name: "prefix is case sensitive",
			input: "Route:              172.20.0.0/24\n" +
				"ORIGIN:             AS1\n",
			rules: RouteRules,
			want:  Fields{},
		},
		{
			name: "crlf and tabs",
			input: "cidr:\t\t172.22.0.0/23\r\n" +
				"netname:            EXAMPLE-NET  \r\n" +
				"country:            DE\r\n",
			rules: InetnumRules,
			want:  Fields{FieldCIDR: "172.22.0.0/23", FieldNetName: "EXAMPLE-NET", FieldCountry: "DE"},
		},
		{
			name: "value keeps inner spaces",
			input: "netname:            SOME NET NAME\n",
			rules: InetnumRules,
			want:  Fields{FieldNetName: "SOME NET NAME"},
		},
		{
			name:  "empty input",
			input: "",
			rules: InetnumRules,
			want:  Fields{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseObject(strings.NewReader(tt.input), tt.rules)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_ParseObject_LongLine(t *testing.T) {
	t.Parallel()

	input := "route:              172.20.0.0/24\n" +
		"remarks:            " + strings.Repeat("x", 2<<20) + "\n" +
		"origin:             AS4242420000\n" +
		"descr:              " + strings.Repeat("y", 3<<20)

	got, err := ParseObject(strings.NewReader(input), RouteRules)
	require.NoError(t, err)
	require.Equal(t, Fields{FieldCIDR: "172.20.0.0/24", FieldASN: "AS4242420000"}, got)
}

func TestRegistry_ParseObject_NoTrailingNewline(t *testing.T) {
	t.Parallel()

	got, err := ParseObject(strings.NewReader("cidr:               172.20.0.0/24"), InetnumRules)
	require.NoError(t, err)
	require.Equal(t, Fields{FieldCIDR: "172.20.0.0/24"}, got)
}

func TestRegistry_ExtractValue(t *testing.T) {
	t.Parallel()

	require.Equal(t, "172.20.0.0/24", extractValue(":              172.20.0.0/24"))
	require.Equal(t, "fd00::/8", extractValue("6: fd00::/8"))
	require.Equal(t, "", extractValue(":"))
	require.Equal(t, "", extractValue(":   "))
}

func TestRegistry_LoadDir_LexicalOrderAndSkipsDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeObject(t, dir, "b", "cidr:               10.0.1.0/24\n")
	writeObject(t, dir, "a", "cidr:               10.0.0.0/24\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	objects, err := LoadDir(logger, dir, InetnumRules)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	require.Equal(t, "a", objects[0].Name)
	require.Equal(t, "10.0.0.0/24", objects[0].Fields.Get(FieldCIDR))
	require.Equal(t, "b", objects[1].Name)
	require.Equal(t, filepath.Join(dir, "b"), objects[1].Path)
}

func TestRegistry_LoadDir_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := LoadDir(logger, filepath.Join(t.TempDir(), "missing"), RouteRules)
	require.Error(t, err)

	var regErr *Error
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, ErrorTypeFileIO, regErr.Type)
	require.Equal(t, "read_registry_dir", regErr.Operation)
}
