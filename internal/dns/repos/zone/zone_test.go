package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/hesiod-dns/internal/dns/domain"
)

func testZone() *Zone {
	return Build("test.internal", ".ns", ".test.internal", 300,
		[]UserEntry{
			{Username: "admin", UID: 1000, GID: 1000, Gecos: "Admin", Home: "/home/admin", Shell: "/bin/zsh"},
		},
		[]GroupEntry{
			{Name: "ops", GID: 1001, Members: []string{"admin"}},
		},
		[]ServiceEntry{
			{Name: "web", Host: "web.svc", Port: 443, Protocol: "tcp"},
		},
	)
}

func TestBuild_IndexesEveryEntry(t *testing.T) {
	z := testZone()

	assert.Equal(t, 3, z.RecordCount())
	assert.Equal(t, "test.internal", z.Domain())
	assert.Equal(t, ".ns", z.LHS())
	assert.Equal(t, ".test.internal", z.RHS())
	assert.Equal(t, ".ns.test.internal", z.Suffix())
	assert.Equal(t, uint32(300), z.TTL())

	rec, ok := z.Lookup("admin", domain.MapPasswd)
	require.True(t, ok)
	assert.Equal(t, "admin:*:1000:1000:Admin:/home/admin:/bin/zsh", rec.Encode())

	rec, ok = z.Lookup("ops", domain.MapGroup)
	require.True(t, ok)
	assert.Equal(t, "ops:*:1001:admin", rec.Encode())
}

func TestBuild_ServicesKeyedByName(t *testing.T) {
	z := testZone()

	rec, ok := z.Lookup("web", domain.MapService)
	require.True(t, ok)
	assert.Equal(t, "web.svc:443:tcp", rec.Encode())

	_, ok = z.Lookup("web.svc", domain.MapService)
	assert.False(t, ok, "services must not be indexed by host")
}

func TestLookup_MapTypesAreSeparate(t *testing.T) {
	z := Build("x", ".ns", ".x", 60,
		[]UserEntry{{Username: "shared", Home: "/home/shared", Shell: "/bin/sh"}},
		[]GroupEntry{{Name: "shared", GID: 5}},
		nil,
	)

	assert.Equal(t, 2, z.RecordCount())
	p, ok := z.Lookup("shared", domain.MapPasswd)
	require.True(t, ok)
	assert.Equal(t, domain.MapPasswd, p.MapType())
	g, ok := z.Lookup("shared", domain.MapGroup)
	require.True(t, ok)
	assert.Equal(t, domain.MapGroup, g.MapType())
	_, ok = z.Lookup("shared", domain.MapFilsys)
	assert.False(t, ok)
}

func TestBuild_DuplicateKeysLastWriteWins(t *testing.T) {
	z := Build("x", ".ns", ".x", 60, nil, nil, []ServiceEntry{
		{Name: "web", Host: "old.svc", Port: 80, Protocol: "tcp"},
		{Name: "web", Host: "new.svc", Port: 443, Protocol: "tcp"},
	})

	assert.Equal(t, 1, z.RecordCount())
	rec, ok := z.Lookup("web", domain.MapService)
	require.True(t, ok)
	assert.Equal(t, "new.svc:443:tcp", rec.Encode())
}

func TestLookup_ExactMatchOnly(t *testing.T) {
	z := testZone()
	_, ok := z.Lookup("ADMIN", domain.MapPasswd)
	assert.False(t, ok)
	_, ok = z.Lookup("", domain.MapPasswd)
	assert.False(t, ok)
}

func TestRecords_SortedByMapThenKey(t *testing.T) {
	z := Build("x", ".ns", ".x", 60,
		[]UserEntry{{Username: "zed"}, {Username: "amy"}},
		[]GroupEntry{{Name: "wheel"}},
		[]ServiceEntry{{Name: "api"}},
	)

	got := z.Records()
	require.Len(t, got, 4)
	keys := make([]string, 0, len(got))
	for _, e := range got {
		keys = append(keys, e.Record.MapType().Label()+"/"+e.Key)
	}
	assert.Equal(t, []string{"passwd/amy", "passwd/zed", "group/wheel", "service/api"}, keys)
}

func TestBuild_GroupMembersAreCopied(t *testing.T) {
	members := []string{"a", "b"}
	z := Build("x", ".ns", ".x", 60, nil, []GroupEntry{{Name: "g", GID: 1, Members: members}}, nil)
	members[0] = "mutated"

	rec, ok := z.Lookup("g", domain.MapGroup)
	require.True(t, ok)
	assert.Equal(t, "g:*:1:a,b", rec.Encode())
}

func TestOwnerName(t *testing.T) {
	z := testZone()
	assert.Equal(t, "admin.passwd.ns.test.internal.", z.OwnerName("admin", domain.MapPasswd))
}

func TestFromConfig(t *testing.T) {
	cfg := &Config{
		Domain: "test.internal",
		LHS:    ".ns",
		RHS:    ".test.internal",
		TTL:    600,
		Services: []ServiceEntry{
			{Name: "web", Host: "web.svc", Port: 443, Protocol: "tcp"},
		},
	}
	z := FromConfig(cfg)
	assert.Equal(t, 1, z.RecordCount())
	assert.Equal(t, uint32(600), z.TTL())
}
