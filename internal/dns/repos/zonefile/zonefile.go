// Package zonefile writes a zone out as BIND-style HS TXT records and checks
// such files offline with the same record codec the server answers with.
package zonefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/miekg/dns"

	"github.com/haukened/hesiod-dns/internal/dns/domain"
	"github.com/haukened/hesiod-dns/internal/dns/gateways/wire"
	"github.com/haukened/hesiod-dns/internal/dns/repos/zone"
)

// defaultTTL applies to records that carry no TTL of their own.
const defaultTTL = 3600

var (
	// ErrUnknownMap means no label of the owner name names a Hesiod map.
	ErrUnknownMap = errors.New("cannot determine map type from owner name")
	// ErrOutsideSuffix means the owner name does not end with the zone's lhs+rhs.
	ErrOutsideSuffix = errors.New("owner name outside the Hesiod suffix")
)

// Generate writes every record of z, ordered by map then key, one per line.
func Generate(w io.Writer, z *zone.Zone) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "; Hesiod zone for %s\n", z.Domain())
	fmt.Fprintf(bw, "; lhs=%s rhs=%s records=%d\n", z.LHS(), z.RHS(), z.RecordCount())
	fmt.Fprintf(bw, "$TTL %d\n\n", z.TTL())

	var current domain.MapType
	for _, e := range z.Records() {
		mt := e.Record.MapType()
		if mt != current {
			if current != 0 {
				bw.WriteString("\n")
			}
			fmt.Fprintf(bw, "; %s\n", mt.Label())
			current = mt
		}
		rr := wire.NewTXT(z.OwnerName(e.Key, mt), uint16(domain.RRClassHS), z.TTL(), e.Record.Encode())
		bw.WriteString(rr.String())
		bw.WriteString("\n")
	}

	return bw.Flush()
}

// Diagnostic is one problem found by Validate.
type Diagnostic struct {
	Line int
	Err  error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %v", d.Line, d.Err)
}

// Report summarises a validation run.
type Report struct {
	Records     int
	Diagnostics []Diagnostic
}

// OK reports whether no record failed.
func (r Report) OK() bool { return len(r.Diagnostics) == 0 }

// Options narrows what Validate accepts.
type Options struct {
	// Suffix is the zone's lhs+rhs. When set, an owner must end with it and
	// the map label is the one right before it. When empty, Validate uses the
	// "; lhs= rhs=" header Generate writes, if present.
	Suffix string
}

// Validate checks every TXT record of class HS or IN in a zone file. Other
// records, directives and comments are skipped; records spanning lines with
// parentheses are read as one. The returned error is only for read failures;
// record problems land in the Report.
func Validate(r io.Reader, opts Options) (Report, error) {
	var rep Report
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	suffix := opts.Suffix
	origin := "."
	var lastOwner string

	var (
		entry     strings.Builder
		entryLine int
		depth     int
	)

	for lineNo := 1; sc.Scan(); lineNo++ {
		raw := sc.Text()
		body, comment, delta := scanLine(raw)

		if depth == 0 {
			trimmed := strings.TrimSpace(body)
			if trimmed == "" {
				if suffix == "" {
					suffix = headerSuffix(comment)
				}
				continue
			}
			if trimmed[0] == '$' {
				if o, ok := originDirective(trimmed); ok {
					origin = o
				}
				continue
			}
			entry.Reset()
			entryLine = lineNo
		} else {
			entry.WriteByte(' ')
		}
		entry.WriteString(body)
		depth += delta
		if depth > 0 {
			continue
		}
		depth = 0

		text := entry.String()
		owner, class, rrtype := recordFields(text)
		if owner != "" {
			lastOwner = owner
		} else {
			text = lastOwner + " " + text
		}
		if !strings.EqualFold(rrtype, "TXT") || !class.IsHesiodQueryable() {
			continue
		}
		rep.Records++

		if err := checkRecord(text, origin, suffix); err != nil {
			rep.Diagnostics = append(rep.Diagnostics, Diagnostic{Line: entryLine, Err: err})
		}
	}
	if err := sc.Err(); err != nil {
		return rep, fmt.Errorf("reading zone file: %w", err)
	}
	if depth > 0 {
		rep.Diagnostics = append(rep.Diagnostics, Diagnostic{Line: entryLine, Err: errors.New("unbalanced parentheses")})
	}
	return rep, nil
}

// scanLine splits a line into the part before any comment and the comment
// itself, and reports the net parenthesis depth change. Quoted text is opaque.
func scanLine(line string) (body, comment string, delta int) {
	quoted := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && quoted:
			i++
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == ';':
			return line[:i], line[i:], delta
		case c == '(':
			delta++
		case c == ')':
			delta--
		}
	}
	return line, "", delta
}

// recordFields finds the owner, class and type of a record without parsing its
// data. owner is empty when the line starts with blank space and inherits the
// previous owner. A record without a class token is IN.
func recordFields(text string) (owner string, class domain.RRClass, rrtype string) {
	class = domain.RRClassIN
	fields := strings.Fields(strings.NewReplacer("(", " ", ")", " ").Replace(text))
	if len(fields) == 0 {
		return "", class, ""
	}
	if text[0] != ' ' && text[0] != '\t' {
		owner, fields = fields[0], fields[1:]
	}
	for _, f := range fields {
		if c := domain.ParseRRClass(f); c != 0 {
			class = c
			continue
		}
		if _, ok := dns.StringToClass[strings.ToUpper(f)]; ok {
			class = 0
			continue
		}
		if isTTL(f) {
			continue
		}
		return owner, class, f
	}
	return owner, class, ""
}

func isTTL(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isDigit(c) && !strings.ContainsRune("smhdwSMHDW", rune(c)) {
			return false
		}
	}
	return s != "" && isDigit(s[0])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// originDirective returns the origin set by a $ORIGIN line.
func originDirective(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "$ORIGIN") {
		return "", false
	}
	return dns.Fqdn(fields[1]), true
}

// headerSuffix reads lhs+rhs back from the comment Generate writes.
func headerSuffix(comment string) string {
	var lhs, rhs string
	found := false
	for _, f := range strings.Fields(strings.TrimLeft(comment, "; ")) {
		if v, ok := strings.CutPrefix(f, "lhs="); ok {
			lhs, found = v, true
		} else if v, ok := strings.CutPrefix(f, "rhs="); ok {
			rhs = v
		}
	}
	if !found {
		return ""
	}
	return lhs + rhs
}

func checkRecord(text, origin, suffix string) error {
	zp := dns.NewZoneParser(strings.NewReader(text+"\n"), origin, "")
	zp.SetDefaultTTL(defaultTTL)
	rr, ok := zp.Next()
	if err := zp.Err(); err != nil {
		return err
	}
	txt, isTXT := rr.(*dns.TXT)
	if !ok || !isTXT {
		return fmt.Errorf("not a TXT record: %s", strings.TrimSpace(text))
	}

	mt, err := mapTypeOf(txt.Hdr.Name, suffix)
	if err != nil {
		return err
	}
	if _, err := domain.Decode(mt, wire.JoinTXT(txt.Txt)); err != nil {
		return fmt.Errorf("invalid %s %s record: %w", domain.RRClass(txt.Hdr.Class), mt.Label(), err)
	}
	return nil
}

// mapTypeOf finds the map an owner name belongs to. With a suffix, the map
// label is the last label before it and owners outside it are rejected.
// Without one, the right-most label that names a map is taken.
func mapTypeOf(owner, suffix string) (domain.MapType, error) {
	if suffix != "" {
		prefix, ok := strings.CutSuffix(strings.TrimSuffix(owner, "."), suffix)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrOutsideSuffix, owner)
		}
		i := strings.LastIndexByte(prefix, '.')
		if i < 0 {
			return 0, fmt.Errorf("%w: %s", ErrUnknownMap, owner)
		}
		mt, err := domain.ParseMapType(prefix[i+1:])
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrUnknownMap, owner)
		}
		return mt, nil
	}

	labels := dns.SplitDomainName(owner)
	for i := len(labels) - 1; i >= 0; i-- {
		if mt, err := domain.ParseMapType(labels[i]); err == nil {
			return mt, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownMap, owner)
}
