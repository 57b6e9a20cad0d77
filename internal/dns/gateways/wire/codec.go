// Package wire converts between raw DNS datagrams and github.com/miekg/dns messages,
// and between record text and TXT character-strings.
package wire

import (
	"errors"
	"fmt"

	"github.com/miekg/dns"

	"github.com/haukened/hesiod-dns/internal/dns/common/log"
)

// ErrMalformed marks a datagram that could not be parsed as a DNS message.
var ErrMalformed = errors.New("malformed DNS message")

// Codec unpacks queries and packs responses.
type Codec struct {
	logger log.Logger
}

// NewCodec returns a Codec that logs at debug level through logger.
func NewCodec(logger log.Logger) *Codec {
	return &Codec{logger: logger}
}

// DecodeQuery parses a wire-format message. Any parse failure wraps ErrMalformed.
func (c *Codec) DecodeQuery(data []byte) (*dns.Msg, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c.logger.Debug(map[string]any{
		"id":        msg.Id,
		"opcode":    dns.OpcodeToString[msg.Opcode],
		"questions": len(msg.Question),
		"size":      len(data),
	}, "Decoded DNS query")

	return msg, nil
}

// EncodeResponse serializes msg to wire format.
func (c *Codec) EncodeResponse(msg *dns.Msg) ([]byte, error) {
	data, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("failed to pack DNS response: %w", err)
	}

	c.logger.Debug(map[string]any{
		"id":      msg.Id,
		"rcode":   dns.RcodeToString[msg.Rcode],
		"answers": len(msg.Answer),
		"size":    len(data),
	}, "Encoded DNS response")

	return data, nil
}
