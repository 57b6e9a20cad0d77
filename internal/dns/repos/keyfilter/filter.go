// Package keyfilter provides a Bloom filter over the (map type, key) pairs of a zone,
// used to reject lookups for keys that are certainly absent before touching the index.
package keyfilter

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/hesiod-dns/internal/dns/domain"
)

// defaultFPRate is the target false-positive rate when none is given.
const defaultFPRate = 0.01

// Filter answers "might this key exist in this map?". A false result is exact.
// The filter is populated once and read-only afterwards, so reads need no locking.
type Filter struct {
	bf *bitsbloom.BloomFilter
}

// Keyed is the subset of an entry the filter needs.
type Keyed struct {
	MapType domain.MapType
	Key     string
}

// New sizes a filter for the given keys at fpRate and adds all of them.
// An fpRate outside (0,1) falls back to 1%.
func New(keys []Keyed, fpRate float64) *Filter {
	if !(fpRate > 0 && fpRate < 1) {
		fpRate = defaultFPRate
	}
	n := uint(max(len(keys), 1))
	f := &Filter{bf: bitsbloom.NewWithEstimates(n, fpRate)}
	for _, key := range keys {
		f.bf.Add(encode(key.MapType, key.Key))
	}
	return f
}

// MightContain returns false only when key is definitely not in the map.
func (f *Filter) MightContain(mapType domain.MapType, key string) bool {
	return f.bf.Test(encode(mapType, key))
}

// encode prefixes the key with its map type so equal keys in different maps hash apart.
func encode(mapType domain.MapType, key string) []byte {
	b := make([]byte, 0, len(key)+1)
	b = append(b, byte(mapType))
	return append(b, key...)
}
