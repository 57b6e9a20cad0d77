package wire

import (
	"strings"

	"github.com/miekg/dns"
)

// MaxCharacterString is the largest payload of one TXT character-string (RFC 1035 3.3).
const MaxCharacterString = 255

// SplitTXT cuts text into character-strings of at most 255 bytes each and escapes
// them for dns.TXT. Text that fits is a single string; longer text spans several
// strings of one record, which readers concatenate.
func SplitTXT(text string) []string {
	if text == "" {
		return []string{""}
	}
	chunks := make([]string, 0, len(text)/MaxCharacterString+1)
	for len(text) > 0 {
		n := min(len(text), MaxCharacterString)
		chunks = append(chunks, escapeTXT(text[:n]))
		text = text[n:]
	}
	return chunks
}

// JoinTXT concatenates the character-strings of a dns.TXT (as unpacked or parsed
// by miekg/dns) back into raw text.
func JoinTXT(strs []string) string {
	var b strings.Builder
	for _, s := range strs {
		b.WriteString(unescapeTXT(s))
	}
	return b.String()
}

// NewTXT builds a Hesiod TXT answer carrying text.
func NewTXT(owner string, class uint16, ttl uint32, text string) *dns.TXT {
	return &dns.TXT{
		Hdr: dns.RR_Header{
			Name:   owner,
			Rrtype: dns.TypeTXT,
			Class:  class,
			Ttl:    ttl,
		},
		Txt: SplitTXT(text),
	}
}

// escapeTXT protects the two bytes miekg/dns treats specially inside TXT strings.
func escapeTXT(s string) string {
	if !strings.ContainsAny(s, `\"`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// unescapeTXT reverses \X and \DDD escapes.
func unescapeTXT(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			v := int(s[i+1]-'0')*100 + int(s[i+2]-'0')*10 + int(s[i+3]-'0')
			if v <= 255 {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i+1])
		i++
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
