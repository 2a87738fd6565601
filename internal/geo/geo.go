// Package geo resolves client addresses against a local MaxMind database.
package geo

import (
	"fmt"
	"net"

	"github.com/biter777/countries"
	"github.com/oschwald/geoip2-golang"

	"qrtrack/entity"
)

type MaxMind struct {
	db *geoip2.Reader
}

// Open with an empty path returns a resolver that never finds anything
func Open(path string) (*MaxMind, error) {
	if path == "" {
		return &MaxMind{}, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &MaxMind{db: db}, nil
}

func (m *MaxMind) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Lookup never fails; unknown, private and malformed addresses give an empty location
func (m *MaxMind) Lookup(ip string) entity.Location {
	if m == nil || m.db == nil {
		return entity.Location{}
	}
	parsed := Public(ip)
	if parsed == nil {
		return entity.Location{}
	}
	record, err := m.db.City(parsed)
	if err != nil || record.Country.IsoCode == "" {
		return entity.Location{}
	}
	loc := entity.Location{
		Country:     CountryName(record.Country.IsoCode),
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		Latitude:    record.Location.Latitude,
		Longitude:   record.Location.Longitude,
		Timezone:    record.Location.TimeZone,
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].IsoCode
	}
	return loc
}

// Public parses ip and drops addresses that can not be geolocated
func Public(ip string) net.IP {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil
	}
	if parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsUnspecified() ||
		parsed.IsLinkLocalUnicast() || parsed.IsMulticast() {
		return nil
	}
	return parsed
}

// CountryName english name for an ISO alpha-2 code, the code itself when unknown
func CountryName(code string) string {
	country := countries.ByName(code)
	if country == countries.Unknown {
		return code
	}
	return country.String()
}
