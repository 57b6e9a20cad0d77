package domain

import (
	"fmt"
	"strings"
)

// MapType identifies the Hesiod map a record belongs to. The set is closed.
type MapType uint8

// Hesiod map types.
const (
	MapPasswd MapType = iota + 1
	MapGroup
	MapService
	MapFilsys
)

// MapTypes lists every map type in label order used for iteration and sorting.
var MapTypes = []MapType{MapPasswd, MapGroup, MapService, MapFilsys}

// Label returns the lowercase label used for the map type in query names
// (e.g. "passwd" in admin.passwd.ns.example.internal).
func (m MapType) Label() string {
	switch m {
	case MapPasswd:
		return "passwd"
	case MapGroup:
		return "group"
	case MapService:
		return "service"
	case MapFilsys:
		return "filsys"
	default:
		return ""
	}
}

// IsValid returns true if m is one of the four Hesiod map types.
func (m MapType) IsValid() bool {
	return m >= MapPasswd && m <= MapFilsys
}

// String returns the label, or UNKNOWN(<value>) for values outside the set.
func (m MapType) String() string {
	if !m.IsValid() {
		return fmt.Sprintf("UNKNOWN(%d)", uint8(m))
	}
	return m.Label()
}

// ParseMapType converts a map label to a MapType. Matching is case-insensitive.
func ParseMapType(s string) (MapType, error) {
	switch strings.ToLower(s) {
	case "passwd":
		return MapPasswd, nil
	case "group":
		return MapGroup, nil
	case "service":
		return MapService, nil
	case "filsys":
		return MapFilsys, nil
	default:
		return 0, fmt.Errorf("unknown map type: %s", s)
	}
}
