// Package client sends Hesiod lookups to a running server.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/miekg/dns"

	"github.com/haukened/hesiod-dns/internal/dns/common/log"
	"github.com/haukened/hesiod-dns/internal/dns/domain"
	"github.com/haukened/hesiod-dns/internal/dns/gateways/wire"
)

// DefaultTimeout bounds one exchange.
const DefaultTimeout = 5 * time.Second

// ErrTruncated is returned when the server set TC because the answer did not
// fit in the advertised UDP payload size.
var ErrTruncated = errors.New("response truncated")

// Client queries one Hesiod server over UDP.
type Client struct {
	addr   string
	lhs    string
	rhs    string
	dns    *dns.Client
	logger log.Logger
}

// Options configures a Client.
type Options struct {
	Server  string
	Port    uint16
	LHS     string
	RHS     string
	Timeout time.Duration
	Logger  log.Logger
}

// New returns a client for opts.Server:opts.Port.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Client{
		addr:   net.JoinHostPort(opts.Server, strconv.Itoa(int(opts.Port))),
		lhs:    opts.LHS,
		rhs:    opts.RHS,
		dns:    &dns.Client{Net: "udp", Timeout: timeout, UDPSize: dns.DefaultMsgSize},
		logger: logger,
	}
}

// QueryName builds the fully qualified name for key in the given map.
func (c *Client) QueryName(key string, mapType domain.MapType) string {
	return dns.Fqdn(key + "." + mapType.Label() + c.lhs + c.rhs)
}

// Lookup asks the server for key and returns the text of every TXT answer.
// NXDOMAIN yields no texts and no error; any other failure rcode is an error.
func (c *Client) Lookup(ctx context.Context, key string, mapType domain.MapType) ([]string, error) {
	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = false
	m.Question = []dns.Question{{
		Name:   c.QueryName(key, mapType),
		Qtype:  dns.TypeTXT,
		Qclass: dns.ClassHESIOD,
	}}
	m.SetEdns0(dns.DefaultMsgSize, false)

	resp, rtt, err := c.dns.ExchangeContext(ctx, m, c.addr)
	if err != nil {
		return nil, fmt.Errorf("query %s at %s: %w", m.Question[0].Name, c.addr, err)
	}

	c.logger.Debug(map[string]any{
		"server":  c.addr,
		"name":    m.Question[0].Name,
		"rcode":   dns.RcodeToString[resp.Rcode],
		"answers": len(resp.Answer),
		"rtt":     rtt.String(),
	}, "Lookup response")

	if resp.Truncated {
		return nil, fmt.Errorf("query %s at %s: %w", m.Question[0].Name, c.addr, ErrTruncated)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
	default:
		return nil, fmt.Errorf("query %s at %s: server returned %s", m.Question[0].Name, c.addr, dns.RcodeToString[resp.Rcode])
	}

	texts := make([]string, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			texts = append(texts, wire.JoinTXT(txt.Txt))
		}
	}
	return texts, nil
}
