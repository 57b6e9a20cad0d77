package zone

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalJSON = `{
	"domain": "example.internal",
	"lhs": ".ns",
	"rhs": ".example.internal"
}`

const fullJSON = `{
	"domain": "flatracoon.internal",
	"lhs": ".ns",
	"rhs": ".flatracoon.internal",
	"ttl": 600,
	"dns_port": 5353,
	"http_port": 9090,
	"services": [
		{"name": "web", "host": "web.svc", "port": 443, "protocol": "tcp"},
		{"name": "dns", "host": "dns.svc", "port": 53}
	],
	"users": [
		{"username": "admin", "uid": 1000, "gid": 1000, "gecos": "Admin", "home": "/home/admin", "shell": "/bin/zsh"},
		{"username": "op", "uid": 1001, "gid": 1000, "home": "/home/op"}
	],
	"groups": [
		{"name": "ops", "gid": 1001, "members": ["admin", "op"]},
		{"name": "empty", "gid": 1002}
	]
}`

const fullYAML = `
domain: flatracoon.internal
lhs: .ns
rhs: .flatracoon.internal
ttl: 120
users:
  - username: admin
    uid: 1000
    gid: 1000
    home: /home/admin
groups:
  - name: ops
    gid: 1001
    members: [admin]
`

const fullTOML = `domain = "flatracoon.internal"
lhs = ".ns"
rhs = ".flatracoon.internal"

[[services]]
name = "web"
host = "web.svc"
port = 443
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MinimalAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "hesiod.json", minimalJSON))
	require.NoError(t, err)

	assert.Equal(t, "example.internal", cfg.Domain)
	assert.Equal(t, uint32(300), cfg.TTL)
	assert.Equal(t, uint16(53), cfg.DNSPort)
	assert.Equal(t, uint16(8080), cfg.HTTPPort)
	assert.Empty(t, cfg.Services)
	assert.Empty(t, cfg.Users)
	assert.Empty(t, cfg.Groups)
}

func TestLoadConfig_FullJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "hesiod.json", fullJSON))
	require.NoError(t, err)

	assert.Equal(t, uint32(600), cfg.TTL)
	assert.Equal(t, uint16(5353), cfg.DNSPort)
	assert.Equal(t, uint16(9090), cfg.HTTPPort)
	require.Len(t, cfg.Services, 2)
	require.Len(t, cfg.Users, 2)
	require.Len(t, cfg.Groups, 2)

	assert.Equal(t, "/bin/zsh", cfg.Users[0].Shell)
	assert.Equal(t, "/bin/bash", cfg.Users[1].Shell, "shell defaults to /bin/bash")
	assert.Equal(t, "", cfg.Users[1].Gecos)
	assert.Equal(t, "tcp", cfg.Services[1].Protocol, "protocol defaults to tcp")
	assert.Equal(t, []string{"admin", "op"}, cfg.Groups[0].Members)
	assert.Equal(t, []string{}, cfg.Groups[1].Members)

	z := FromConfig(cfg)
	assert.Equal(t, 6, z.RecordCount())
}

func TestLoadConfig_YAMLAndTOML(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "hesiod.yaml", fullYAML))
	require.NoError(t, err)
	assert.Equal(t, uint32(120), cfg.TTL)
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, uint32(1000), cfg.Users[0].UID)

	cfg, err = LoadConfig(writeConfig(t, "hesiod.toml", fullTOML))
	require.NoError(t, err)
	require.Len(t, cfg.Services, 1)
	assert.Equal(t, uint16(443), cfg.Services[0].Port)
	assert.Equal(t, "tcp", cfg.Services[0].Protocol)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		errPart string
	}{
		{"unsupported extension", "hesiod.ini", minimalJSON, "unsupported config file type"},
		{"malformed json", "hesiod.json", `{"domain": `, "failed to load"},
		{"missing domain", "hesiod.json", `{"lhs": ".ns", "rhs": ".x.internal"}`, "Domain"},
		{"lhs without dot", "hesiod.json", `{"domain": "x.internal", "lhs": "ns", "rhs": ".x.internal"}`, "LHS"},
		{"rhs with empty label", "hesiod.json", `{"domain": "x.internal", "lhs": ".ns", "rhs": ".x..internal"}`, "RHS"},
		{"invalid domain", "hesiod.json", `{"domain": "bad_domain!", "lhs": ".ns", "rhs": ".x.internal"}`, "Domain"},
		{"colon in username", "hesiod.json", `{"domain": "x.internal", "lhs": ".ns", "rhs": ".x.internal",
			"users": [{"username": "a:b", "uid": 1, "gid": 1, "home": "/h"}]}`, "Username"},
		{"comma in member", "hesiod.json", `{"domain": "x.internal", "lhs": ".ns", "rhs": ".x.internal",
			"groups": [{"name": "g", "gid": 1, "members": ["a,b"]}]}`, "Members"},
		{"duplicate service", "hesiod.json", `{"domain": "x.internal", "lhs": ".ns", "rhs": ".x.internal",
			"services": [{"name": "w", "host": "a", "port": 1}, {"name": "w", "host": "b", "port": 2}]}`, "Services"},
		{"zero port", "hesiod.json", `{"domain": "x.internal", "lhs": ".ns", "rhs": ".x.internal",
			"services": [{"name": "w", "host": "a", "port": 0}]}`, "Port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.errPart), "error %q should mention %q", err, tt.errPart)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
