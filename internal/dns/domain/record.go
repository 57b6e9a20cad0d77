package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrFieldCount is returned when a record's text does not split into the
	// number of fields its map type requires.
	ErrFieldCount = errors.New("wrong field count")

	// ErrNumericParse is returned when a uid, gid or port field is not a valid
	// unsigned integer in range.
	ErrNumericParse = errors.New("invalid numeric field")
)

// Record is a Hesiod record. It is implemented only by Passwd, Group, Service
// and Filsys.
type Record interface {
	// MapType reports which variant the record is.
	MapType() MapType
	// Key is the variant's natural key: username, group name, host or mount path.
	Key() string
	// Encode returns the canonical TXT text form. It never fails.
	Encode() string

	sealed()
}

// Passwd is a Unix passwd entry: user:*:uid:gid:gecos:home:shell
type Passwd struct {
	Username string
	UID      uint32
	GID      uint32
	Gecos    string
	Home     string
	Shell    string
}

// Group is a Unix group entry: name:*:gid:member1,member2
type Group struct {
	Name    string
	GID     uint32
	Members []string
}

// Service is a service location: host:port:protocol
type Service struct {
	Host     string
	Port     uint16
	Protocol string
}

// Filsys is a filesystem mount: type path source mode
type Filsys struct {
	FSType    string
	MountPath string
	Source    string
	Mode      string
}

func (Passwd) MapType() MapType  { return MapPasswd }
func (Group) MapType() MapType   { return MapGroup }
func (Service) MapType() MapType { return MapService }
func (Filsys) MapType() MapType  { return MapFilsys }

func (r Passwd) Key() string  { return r.Username }
func (r Group) Key() string   { return r.Name }
func (r Service) Key() string { return r.Host }
func (r Filsys) Key() string  { return r.MountPath }

func (Passwd) sealed()  {}
func (Group) sealed()   {}
func (Service) sealed() {}
func (Filsys) sealed()  {}

// Encode renders the passwd line. The password field is always "*".
func (r Passwd) Encode() string {
	return fmt.Sprintf("%s:*:%d:%d:%s:%s:%s", r.Username, r.UID, r.GID, r.Gecos, r.Home, r.Shell)
}

// Encode renders the group line. An empty member list leaves a trailing empty field.
func (r Group) Encode() string {
	return fmt.Sprintf("%s:*:%d:%s", r.Name, r.GID, strings.Join(r.Members, ","))
}

func (r Service) Encode() string {
	return fmt.Sprintf("%s:%d:%s", r.Host, r.Port, r.Protocol)
}

func (r Filsys) Encode() string {
	return strings.Join([]string{r.FSType, r.MountPath, r.Source, r.Mode}, " ")
}

// decoders is the per-map-type dispatch table used by Decode.
var decoders = map[MapType]func(string) (Record, error){
	MapPasswd:  decodePasswd,
	MapGroup:   decodeGroup,
	MapService: decodeService,
	MapFilsys:  decodeFilsys,
}

// Decode parses the canonical text form of a record of the given map type.
// Fields are split into at most the expected count, so the final field keeps any
// further separators. Fewer fields yield ErrFieldCount; bad numbers yield
// ErrNumericParse.
func Decode(mapType MapType, text string) (Record, error) {
	decode, ok := decoders[mapType]
	if !ok {
		return nil, fmt.Errorf("unsupported map type: %s", mapType)
	}
	return decode(text)
}

// splitFields splits text into exactly n parts or reports ErrFieldCount.
func splitFields(mapType MapType, text, sep string, n int) ([]string, error) {
	parts := strings.SplitN(text, sep, n)
	if len(parts) != n {
		kind := "colon"
		if sep == " " {
			kind = "space"
		}
		return nil, fmt.Errorf("%w: %s record requires %d %s-separated fields, got %d",
			ErrFieldCount, mapType, n, kind, len(parts))
	}
	return parts, nil
}

func parseUint(field, value string, bits int) (uint64, error) {
	n, err := strconv.ParseUint(value, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrNumericParse, field, value)
	}
	return n, nil
}

func decodePasswd(text string) (Record, error) {
	parts, err := splitFields(MapPasswd, text, ":", 7)
	if err != nil {
		return nil, err
	}
	// parts[1] is the password placeholder
	uid, err := parseUint("uid", parts[2], 32)
	if err != nil {
		return nil, err
	}
	gid, err := parseUint("gid", parts[3], 32)
	if err != nil {
		return nil, err
	}
	return Passwd{
		Username: parts[0],
		UID:      uint32(uid),
		GID:      uint32(gid),
		Gecos:    parts[4],
		Home:     parts[5],
		Shell:    parts[6],
	}, nil
}

func decodeGroup(text string) (Record, error) {
	parts, err := splitFields(MapGroup, text, ":", 4)
	if err != nil {
		return nil, err
	}
	gid, err := parseUint("gid", parts[2], 32)
	if err != nil {
		return nil, err
	}
	members := []string{}
	if parts[3] != "" {
		members = strings.Split(parts[3], ",")
	}
	return Group{
		Name:    parts[0],
		GID:     uint32(gid),
		Members: members,
	}, nil
}

func decodeService(text string) (Record, error) {
	parts, err := splitFields(MapService, text, ":", 3)
	if err != nil {
		return nil, err
	}
	port, err := parseUint("port", parts[1], 16)
	if err != nil {
		return nil, err
	}
	return Service{
		Host:     parts[0],
		Port:     uint16(port),
		Protocol: parts[2],
	}, nil
}

func decodeFilsys(text string) (Record, error) {
	parts, err := splitFields(MapFilsys, text, " ", 4)
	if err != nil {
		return nil, err
	}
	return Filsys{
		FSType:    parts[0],
		MountPath: parts[1],
		Source:    parts[2],
		Mode:      parts[3],
	}, nil
}
