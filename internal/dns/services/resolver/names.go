// Package resolver answers Hesiod queries: it maps query names of the form
// <key>.<map><lhs><rhs> to zone records and turns query datagrams into responses.
package resolver

import (
	"strings"

	"github.com/haukened/hesiod-dns/internal/dns/domain"
	"github.com/haukened/hesiod-dns/internal/dns/repos/answercache"
)

// NameResolver resolves query names against a zone.
type NameResolver struct {
	zone   ZoneIndex
	cache  AnswerCache
	filter KeyFilter
}

// NameResolverOptions configures a NameResolver. Cache and Filter are optional.
type NameResolverOptions struct {
	Zone   ZoneIndex
	Cache  AnswerCache
	Filter KeyFilter
}

// NewNameResolver returns a resolver over opts.Zone.
func NewNameResolver(opts NameResolverOptions) *NameResolver {
	return &NameResolver{
		zone:   opts.Zone,
		cache:  opts.Cache,
		filter: opts.Filter,
	}
}

// Resolve returns the encoded record for name, or false when the name is outside
// the zone, names an unknown map, or has no record.
//
// One trailing dot is ignored. The suffix match is byte-exact. The map label is
// the last label before the suffix and matches case-insensitively; everything
// before it is the key, which may itself contain dots.
func (r *NameResolver) Resolve(name string) (string, bool) {
	if r.cache != nil {
		if a, ok := r.cache.Get(name); ok {
			return a.Text, a.Found
		}
	}

	text, found := r.resolve(name)

	if r.cache != nil {
		r.cache.Put(name, answercache.Answer{Text: text, Found: found})
	}
	return text, found
}

func (r *NameResolver) resolve(name string) (string, bool) {
	name = strings.TrimSuffix(name, ".")

	prefix, ok := strings.CutSuffix(name, r.zone.Suffix())
	if !ok {
		return "", false
	}

	i := strings.LastIndexByte(prefix, '.')
	if i < 0 {
		return "", false
	}
	key, label := prefix[:i], prefix[i+1:]

	mapType, err := domain.ParseMapType(label)
	if err != nil {
		return "", false
	}

	if r.filter != nil && !r.filter.MightContain(mapType, key) {
		return "", false
	}

	rec, ok := r.zone.Lookup(key, mapType)
	if !ok {
		return "", false
	}
	return rec.Encode(), true
}
