package resolver

import (
	"fmt"

	"github.com/miekg/dns"

	"github.com/haukened/hesiod-dns/internal/dns/common/log"
	"github.com/haukened/hesiod-dns/internal/dns/domain"
	"github.com/haukened/hesiod-dns/internal/dns/gateways/wire"
)

// DefaultMaxQuestions bounds the questions answered from one datagram.
const DefaultMaxQuestions = 16

// QueryHandler turns one query datagram into one response datagram.
type QueryHandler struct {
	codec        MessageCodec
	resolver     Resolver
	logger       log.Logger
	ttl          uint32
	maxQuestions int
}

// QueryHandlerOptions configures a QueryHandler.
type QueryHandlerOptions struct {
	Codec    MessageCodec
	Resolver Resolver
	Logger   log.Logger
	// TTL is stamped on every answer.
	TTL uint32
	// MaxQuestions caps answered questions per datagram; <= 0 means DefaultMaxQuestions.
	// Questions past the cap are still echoed.
	MaxQuestions int
}

// NewQueryHandler returns a handler wired to opts.
func NewQueryHandler(opts QueryHandlerOptions) *QueryHandler {
	maxQ := opts.MaxQuestions
	if maxQ <= 0 {
		maxQ = DefaultMaxQuestions
	}
	return &QueryHandler{
		codec:        opts.Codec,
		resolver:     opts.Resolver,
		logger:       opts.Logger,
		ttl:          opts.TTL,
		maxQuestions: maxQ,
	}
}

// HandleDatagram parses data, answers it from the zone and returns the encoded
// response. A parse failure returns an error wrapping wire.ErrMalformed and no
// response. An encode failure also returns an error and no response.
// The response never exceeds the UDP payload size the query advertised.
func (h *QueryHandler) HandleDatagram(data []byte) ([]byte, error) {
	query, err := h.codec.DecodeQuery(data)
	if err != nil {
		return nil, err
	}

	resp := h.answer(query)
	h.fit(query, resp)

	out, err := h.codec.EncodeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("query %d: %w", query.Id, err)
	}
	return out, nil
}

// answer builds the response for a parsed query.
func (h *QueryHandler) answer(query *dns.Msg) *dns.Msg {
	resp := &dns.Msg{
		MsgHdr: dns.MsgHdr{
			Id:               query.Id,
			Response:         true,
			Opcode:           query.Opcode,
			Authoritative:    true,
			RecursionDesired: query.RecursionDesired,
			CheckingDisabled: query.CheckingDisabled,
			Rcode:            dns.RcodeSuccess,
		},
		Question: query.Question,
	}

	if query.Opcode != dns.OpcodeQuery {
		resp.Rcode = dns.RcodeNotImplemented
		h.logger.Debug(map[string]any{
			"id":     query.Id,
			"opcode": dns.OpcodeToString[query.Opcode],
		}, "Unsupported opcode")
		return resp
	}

	for i, q := range query.Question {
		if i >= h.maxQuestions {
			h.logger.Debug(map[string]any{
				"id":        query.Id,
				"questions": len(query.Question),
				"limit":     h.maxQuestions,
			}, "Question limit reached")
			break
		}
		if !domain.RRClass(q.Qclass).IsHesiodQueryable() || q.Qtype != dns.TypeTXT {
			continue
		}
		text, ok := h.resolver.Resolve(q.Name)
		if !ok {
			continue
		}
		resp.Answer = append(resp.Answer, wire.NewTXT(q.Name, uint16(domain.RRClassHS), h.ttl, text))
	}

	if len(resp.Answer) == 0 {
		resp.Rcode = dns.RcodeNameError
	}

	h.logger.Debug(map[string]any{
		"id":      query.Id,
		"answers": len(resp.Answer),
		"rcode":   dns.RcodeToString[resp.Rcode],
	}, "Answered query")
	return resp
}

// fit limits resp to the payload size the query advertised through EDNS0, or
// 512 bytes without it. Answers that do not fit are dropped and TC is set.
// An OPT record in the query is answered with one in the response.
func (h *QueryHandler) fit(query, resp *dns.Msg) {
	size := dns.MinMsgSize
	if opt := query.IsEdns0(); opt != nil {
		size = max(int(opt.UDPSize()), dns.MinMsgSize)
		resp.SetEdns0(dns.DefaultMsgSize, opt.Do())
	}

	answers := len(resp.Answer)
	resp.Truncate(size)
	if resp.Truncated {
		h.logger.Debug(map[string]any{
			"id":      query.Id,
			"limit":   size,
			"answers": answers,
			"kept":    len(resp.Answer),
		}, "Response truncated")
	}
}
