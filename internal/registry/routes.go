package registry

import (
	"log/slog"
)

const (
	FieldCIDR    = "cidr"
	FieldASN     = "asn"
	FieldNetName = "netname"
	FieldCountry = "country"
)

var (
	// RouteRules extract the prefix and origin of route and route6 objects. "route" also matches
	// the "route6:" attribute.
	RouteRules = []Rule{
		{Prefix: "route", Field: FieldCIDR},
		{Prefix: "origin", Field: FieldASN},
	}

	// InetnumRules extract the prefix, name and country of inetnum and inet6num objects.
	InetnumRules = []Rule{
		{Prefix: "cidr", Field: FieldCIDR},
		{Prefix: "netname", Field: FieldNetName},
		{Prefix: "country", Field: FieldCountry},
	}
)

// LoadRoutes parses the route objects in dir into routes. Objects without a prefix or an origin
// are skipped and returned as warnings, one per object.
func LoadRoutes(log *slog.Logger, dir string, routes *RouteTable) ([]*Error, error) {
	objects, err := LoadDir(log, dir, RouteRules)
	if err != nil {
		return nil, err
	}

	var warnings []*Error
	for _, obj := range objects {
		cidr := obj.Fields.Get(FieldCIDR)
		asn := obj.Fields.Get(FieldASN)

		var missing []string
		if cidr == "" {
			missing = append(missing, "route")
		}
		if asn == "" {
			missing = append(missing, "origin")
		}
		if len(missing) > 0 {
			w := NewMissingFieldError("parse_routes", obj.Name, missing).WithContext("dir", dir)
			log.Warn("Invalid route file, missing route or origin", w.LogAttrs()...)
			warnings = append(warnings, w)
			continue
		}

		routes.Set(cidr, asn)
	}

	log.Debug("Parsed route directory",
		slog.String("dir", dir),
		slog.Int("files", len(objects)),
		slog.Int("invalid", len(warnings)))

	return warnings, nil
}

// LoadInetnums parses the inetnum objects in dir into allocs. Only the cidr attribute is
// required; netname and country may be empty.
func LoadInetnums(log *slog.Logger, dir string, allocs *AllocationTable) ([]*Error, error) {
	objects, err := LoadDir(log, dir, InetnumRules)
	if err != nil {
		return nil, err
	}

	var warnings []*Error
	for _, obj := range objects {
		cidr := obj.Fields.Get(FieldCIDR)
		if cidr == "" {
			w := NewMissingFieldError("parse_inetnums", obj.Name, []string{"cidr"}).WithContext("dir", dir)
			log.Warn("Invalid inetnum file, missing CIDR", w.LogAttrs()...)
			warnings = append(warnings, w)
			continue
		}

		allocs.Set(cidr, Allocation{
			NetName: obj.Fields.Get(FieldNetName),
			Country: obj.Fields.Get(FieldCountry),
		})
	}

	log.Debug("Parsed inetnum directory",
		slog.String("dir", dir),
		slog.Int("files", len(objects)),
		slog.Int("invalid", len(warnings)))

	return warnings, nil
}
