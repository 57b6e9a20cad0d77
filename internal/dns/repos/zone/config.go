package zone

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"golang.org/x/net/idna"

	"github.com/haukened/hesiod-dns/internal/dns/domain"
)

const (
	defaultTTL      = 300
	defaultDNSPort  = 53
	defaultHTTPPort = 8080
	defaultProtocol = "tcp"
	defaultShell    = "/bin/bash"
)

// Config is the Hesiod zone configuration file.
type Config struct {
	Domain   string         `koanf:"domain" validate:"required,hesiod_domain"`
	LHS      string         `koanf:"lhs" validate:"required,hesiod_suffix"`
	RHS      string         `koanf:"rhs" validate:"required,hesiod_suffix"`
	TTL      uint32         `koanf:"ttl"`
	DNSPort  uint16         `koanf:"dns_port" validate:"gte=1"`
	HTTPPort uint16         `koanf:"http_port" validate:"gte=1"`
	Services []ServiceEntry `koanf:"services" validate:"unique=Name,dive"`
	Users    []UserEntry    `koanf:"users" validate:"unique=Username,dive"`
	Groups   []GroupEntry   `koanf:"groups" validate:"unique=Name,dive"`
}

// ServiceEntry describes a service reachable at host:port.
type ServiceEntry struct {
	Name     string `koanf:"name" validate:"required"`
	Host     string `koanf:"host" validate:"required,excludes=:"`
	Port     uint16 `koanf:"port" validate:"gte=1"`
	Protocol string `koanf:"protocol" validate:"required"`
}

// UserEntry describes a passwd entry.
type UserEntry struct {
	Username string `koanf:"username" validate:"required,excludes=:"`
	UID      uint32 `koanf:"uid"`
	GID      uint32 `koanf:"gid"`
	Gecos    string `koanf:"gecos" validate:"excludes=:"`
	Home     string `koanf:"home" validate:"required,excludes=:"`
	Shell    string `koanf:"shell" validate:"required"`
}

// GroupEntry describes a group and its members.
type GroupEntry struct {
	Name    string   `koanf:"name" validate:"required,excludes=:"`
	GID     uint32   `koanf:"gid"`
	Members []string `koanf:"members" validate:"dive,required,excludesall=:0x2C"`
}

// Record converts the entry to its passwd record.
func (u UserEntry) Record() domain.Record {
	return domain.Passwd{
		Username: u.Username,
		UID:      u.UID,
		GID:      u.GID,
		Gecos:    u.Gecos,
		Home:     u.Home,
		Shell:    u.Shell,
	}
}

// Record converts the entry to its group record.
func (g GroupEntry) Record() domain.Record {
	members := make([]string, len(g.Members))
	copy(members, g.Members)
	return domain.Group{
		Name:    g.Name,
		GID:     g.GID,
		Members: members,
	}
}

// Record converts the entry to its service record.
func (s ServiceEntry) Record() domain.Record {
	return domain.Service{
		Host:     s.Host,
		Port:     s.Port,
		Protocol: s.Protocol,
	}
}

// parserFor picks a koanf parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return json.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file type %q", ext)
	}
}

// LoadConfig reads, defaults and validates a zone configuration file.
func LoadConfig(path string) (*Config, error) {
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"ttl":       defaultTTL,
		"dns_port":  defaultDNSPort,
		"http_port": defaultHTTPPort,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading config defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config %s: %w", path, err)
	}
	cfg.applyEntryDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyEntryDefaults fills per-entry fields the file may omit.
func (c *Config) applyEntryDefaults() {
	for i := range c.Services {
		if c.Services[i].Protocol == "" {
			c.Services[i].Protocol = defaultProtocol
		}
	}
	for i := range c.Users {
		if c.Users[i].Shell == "" {
			c.Users[i].Shell = defaultShell
		}
	}
	for i := range c.Groups {
		if c.Groups[i].Members == nil {
			c.Groups[i].Members = []string{}
		}
	}
}

// Validate checks the configuration with the registered Hesiod rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidations(v); err != nil {
		return fmt.Errorf("error registering validation: %w", err)
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

var registerValidations = func(v *validator.Validate) error {
	if err := v.RegisterValidation("hesiod_domain", validDomain); err != nil {
		return err
	}
	return v.RegisterValidation("hesiod_suffix", validSuffix)
}

// validDomain accepts a dotted name without leading or trailing dot whose labels
// pass IDNA lookup rules.
func validDomain(fl validator.FieldLevel) bool {
	return isDomainName(fl.Field().String())
}

// validSuffix accepts a name suffix such as ".ns" or ".example.internal".
func validSuffix(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !strings.HasPrefix(s, ".") {
		return false
	}
	return isDomainName(strings.TrimPrefix(s, "."))
}

func isDomainName(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.Contains(s, "..") {
		return false
	}
	_, err := idna.Lookup.ToASCII(s)
	return err == nil
}
