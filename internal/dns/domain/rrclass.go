package domain

import "strings"

// RRClass represents a DNS class. Hesiod data lives in HS.
type RRClass uint16

// DNS Resource Record Class constants
const (
	RRClassIN RRClass = 1 // IN - Internet
	RRClassCH RRClass = 3 // CH - Chaos
	RRClassHS RRClass = 4 // HS - Hesiod
)

// IsHesiodQueryable reports whether a question in this class may be answered
// from a Hesiod zone. HS is the native class; IN is accepted for resolvers that
// cannot send HS queries.
func (c RRClass) IsHesiodQueryable() bool {
	return c == RRClassHS || c == RRClassIN
}

// String returns the textual representation of the RRClass.
func (c RRClass) String() string {
	switch c {
	case RRClassIN:
		return "IN"
	case RRClassCH:
		return "CH"
	case RRClassHS:
		return "HS"
	default:
		return "UNKNOWN"
	}
}

// ParseRRClass converts a class mnemonic, in any case, to an RRClass value.
// Unknown names yield 0.
func ParseRRClass(s string) RRClass {
	switch strings.ToUpper(s) {
	case "IN":
		return RRClassIN
	case "CH":
		return RRClassCH
	case "HS":
		return RRClassHS
	default:
		return 0
	}
}
