// Package zone provides the in-memory Hesiod zone index and the loader for the zone
// configuration file (JSON, YAML or TOML) it is built from.
package zone

import (
	"sort"

	"github.com/haukened/hesiod-dns/internal/dns/domain"
)

// recordKey addresses a record by map type and lookup key.
type recordKey struct {
	mapType domain.MapType
	key     string
}

// Zone is the authoritative record collection for one Hesiod domain.
// It is immutable once built and safe for concurrent readers.
type Zone struct {
	domain  string
	lhs     string
	rhs     string
	ttl     uint32
	records map[recordKey]domain.Record
}

// Entry pairs a record with the key it is indexed under. The key can differ from
// Record.Key(): services are indexed by service name, not host.
type Entry struct {
	Key    string
	Record domain.Record
}

// Build converts configuration entries into records and indexes them.
// Users are keyed by username, groups by name and services by service name.
// Duplicate keys within one map type overwrite earlier entries.
func Build(domainName, lhs, rhs string, ttl uint32, users []UserEntry, groups []GroupEntry, services []ServiceEntry) *Zone {
	z := &Zone{
		domain:  domainName,
		lhs:     lhs,
		rhs:     rhs,
		ttl:     ttl,
		records: make(map[recordKey]domain.Record, len(users)+len(groups)+len(services)),
	}

	for _, u := range users {
		z.put(u.Username, u.Record())
	}
	for _, g := range groups {
		z.put(g.Name, g.Record())
	}
	for _, s := range services {
		z.put(s.Name, s.Record())
	}
	return z
}

// FromConfig builds a zone from a loaded configuration file.
func FromConfig(cfg *Config) *Zone {
	return Build(cfg.Domain, cfg.LHS, cfg.RHS, cfg.TTL, cfg.Users, cfg.Groups, cfg.Services)
}

func (z *Zone) put(key string, r domain.Record) {
	z.records[recordKey{mapType: r.MapType(), key: key}] = r
}

// Lookup returns the record stored under key in the given map.
func (z *Zone) Lookup(key string, mapType domain.MapType) (domain.Record, bool) {
	r, ok := z.records[recordKey{mapType: mapType, key: key}]
	return r, ok
}

// RecordCount returns the number of records across all map types.
func (z *Zone) RecordCount() int {
	return len(z.records)
}

// Records returns every entry ordered by map type, then key.
func (z *Zone) Records() []Entry {
	keys := make([]recordKey, 0, len(z.records))
	for k := range z.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].mapType != keys[j].mapType {
			return keys[i].mapType < keys[j].mapType
		}
		return keys[i].key < keys[j].key
	})

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k.key, Record: z.records[k]})
	}
	return entries
}

// Domain returns the administrative domain the zone serves.
func (z *Zone) Domain() string { return z.domain }

// LHS returns the left-hand suffix, e.g. ".ns".
func (z *Zone) LHS() string { return z.lhs }

// RHS returns the right-hand suffix, e.g. ".example.internal".
func (z *Zone) RHS() string { return z.rhs }

// TTL returns the TTL applied to every answer.
func (z *Zone) TTL() uint32 { return z.ttl }

// Suffix returns lhs+rhs, the part of every query name after <key>.<map>.
func (z *Zone) Suffix() string { return z.lhs + z.rhs }

// OwnerName returns the fully qualified owner name for key in the given map.
func (z *Zone) OwnerName(key string, mapType domain.MapType) string {
	return key + "." + mapType.Label() + z.Suffix() + "."
}
