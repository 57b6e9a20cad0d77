package resolver

import (
	"github.com/miekg/dns"

	"github.com/haukened/hesiod-dns/internal/dns/domain"
	"github.com/haukened/hesiod-dns/internal/dns/repos/answercache"
)

// ZoneIndex is the read side of the zone the resolver answers from.
type ZoneIndex interface {
	Lookup(key string, mapType domain.MapType) (domain.Record, bool)
	Suffix() string
	TTL() uint32
}

// AnswerCache memoises Resolve results by query name.
type AnswerCache interface {
	Get(name string) (answercache.Answer, bool)
	Put(name string, a answercache.Answer)
}

// KeyFilter rejects keys that are certainly not in the zone.
type KeyFilter interface {
	MightContain(mapType domain.MapType, key string) bool
}

// Resolver maps a query name to encoded record text.
type Resolver interface {
	Resolve(name string) (string, bool)
}

// MessageCodec converts datagrams to and from DNS messages.
type MessageCodec interface {
	DecodeQuery(data []byte) (*dns.Msg, error)
	EncodeResponse(msg *dns.Msg) ([]byte, error)
}
