package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryex/api/internal/infra/redis"
	"github.com/queryex/api/pkg/domain/access"
	"github.com/queryex/api/pkg/domain/shared"
	"github.com/queryex/api/pkg/logger"
)

type fakeDirectory struct {
	groups     []string
	dn         string
	groupsErr  error
	dnErr      error
	groupCalls atomic.Int32
}

func (d *fakeDirectory) Groups(_ context.Context, _ string) ([]string, error) {
	d.groupCalls.Add(1)
	return d.groups, d.groupsErr
}

func (d *fakeDirectory) DistinguishedName(_ context.Context, _ string) (string, error) {
	return d.dn, d.dnErr
}

func (d *fakeDirectory) Name() string { return "fake" }

func newTestPrincipalService(dir *fakeDirectory) *PrincipalService {
	return NewPrincipalService(
		NewMemoryPrincipalCache(time.Hour),
		dir,
		access.AdminPolicy{Users: []string{"root"}, Groups: []string{"Domain Admins"}},
		logger.NewNop(),
	)
}

func TestPrincipalService_Resolve_FromClaims(t *testing.T) {
	dir := &fakeDirectory{dn: "CN=Juan Perez,OU=Madrid,DC=corp,DC=example"}
	svc := newTestPrincipalService(dir)

	p, err := svc.Resolve(context.Background(), access.Identity{
		Username: `CORP\jperez`,
		GroupClaims: []string{
			"CN=Ventas,OU=Groups,DC=corp,DC=example",
			`CORP\Compras`,
			"OU=NoName,DC=corp",
			"",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "jperez", p.Username)
	assert.Equal(t, []string{"Ventas", "Compras"}, p.Groups)
	assert.Equal(t, "OU=Madrid,DC=corp,DC=example", p.OrgUnit)
	assert.False(t, p.Admin)
	assert.Zero(t, dir.groupCalls.Load())
}

func TestPrincipalService_Resolve_FromDirectory(t *testing.T) {
	dir := &fakeDirectory{groups: []string{"Usuarios", "domain admins"}}
	svc := newTestPrincipalService(dir)

	p, err := svc.Resolve(context.Background(), access.Identity{Username: "jperez@corp.example"})
	require.NoError(t, err)

	assert.Equal(t, "jperez", p.Username)
	assert.Equal(t, []string{"Usuarios", "domain admins"}, p.Groups)
	assert.Empty(t, p.OrgUnit)
	assert.True(t, p.Admin)
	assert.Equal(t, int32(1), dir.groupCalls.Load())
}

func TestPrincipalService_Resolve_DirectoryFailureDegrades(t *testing.T) {
	dir := &fakeDirectory{groupsErr: errors.New("ldap down"), dnErr: errors.New("ldap down")}
	svc := newTestPrincipalService(dir)

	p, err := svc.Resolve(context.Background(), access.Identity{Username: "root"})
	require.NoError(t, err)

	assert.Empty(t, p.Groups)
	assert.NotNil(t, p.Groups)
	assert.Empty(t, p.OrgUnit)
	assert.True(t, p.Admin, "named administrators do not depend on the directory")
}

func TestPrincipalService_Resolve_RequiresUsername(t *testing.T) {
	svc := newTestPrincipalService(&fakeDirectory{})

	_, err := svc.Resolve(context.Background(), access.Identity{Username: `CORP\`})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.Refresh(context.Background(), access.Identity{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestPrincipalService_CachesUntilRefresh(t *testing.T) {
	dir := &fakeDirectory{groups: []string{"Ventas"}}
	svc := newTestPrincipalService(dir)
	ctx := context.Background()
	id := access.Identity{Username: "Ana"}

	first, err := svc.Resolve(ctx, id)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, access.Identity{Username: "ANA"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), dir.groupCalls.Load())

	dir.groups = []string{"Ventas", "Compras"}
	refreshed, err := svc.Refresh(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int32(2), dir.groupCalls.Load())
	assert.Equal(t, []string{"Ventas"}, first.Groups)
	assert.Equal(t, []string{"Ventas", "Compras"}, refreshed.Groups)

	again, err := svc.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, refreshed.Groups, again.Groups)
	assert.Equal(t, int32(2), dir.groupCalls.Load())
}

func TestPrincipalService_ClaimsNotReusedAcrossCredentials(t *testing.T) {
	svc := newTestPrincipalService(&fakeDirectory{})
	ctx := context.Background()

	admin, err := svc.Resolve(ctx, access.Identity{Username: "ana", GroupClaims: []string{"Domain Admins"}})
	require.NoError(t, err)
	assert.True(t, admin.Admin)

	demoted, err := svc.Resolve(ctx, access.Identity{Username: "ana", GroupClaims: []string{"Ventas"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ventas"}, demoted.Groups)
	assert.False(t, demoted.Admin)

	same, err := svc.Resolve(ctx, access.Identity{Username: "ANA", GroupClaims: []string{`CORP\ventas`}})
	require.NoError(t, err)
	assert.Equal(t, demoted.ResolvedAt, same.ResolvedAt, "equivalent claims share a cache entry")
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "ana", cacheKey("Ana", access.Identity{}))

	a := cacheKey("ana", access.Identity{GroupClaims: []string{"Ventas", "Compras"}})
	b := cacheKey("ana", access.Identity{GroupClaims: []string{"CN=compras,OU=G,DC=corp", "ventas"}})
	c := cacheKey("ana", access.Identity{GroupClaims: []string{"Ventas"}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, "ana", c)
}

func TestPrincipalService_ConcurrentResolve(t *testing.T) {
	dir := &fakeDirectory{groups: []string{"Ventas"}}
	svc := newTestPrincipalService(dir)

	var wg sync.WaitGroup
	results := make([]*access.Principal, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := svc.Resolve(context.Background(), access.Identity{Username: "ana"})
			if err == nil {
				results[i] = p
			}
		}()
	}
	wg.Wait()

	for _, p := range results {
		require.NotNil(t, p)
		assert.Equal(t, "ana", p.Username)
		assert.Equal(t, []string{"Ventas"}, p.Groups)
	}
	assert.LessOrEqual(t, dir.groupCalls.Load(), int32(len(results)))
}

func TestMemoryPrincipalCache_Expiry(t *testing.T) {
	c := NewMemoryPrincipalCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ana", access.Principal{Username: "ana"}))

	p, err := c.Get(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "ana", p.Username)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "ana")
	assert.ErrorIs(t, err, redis.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "ana", access.Principal{Username: "ana"}))
	require.NoError(t, c.Delete(ctx, "ana"))
	_, err = c.Get(ctx, "ana")
	assert.ErrorIs(t, err, redis.ErrCacheMiss)
}

func TestMemoryPrincipalCache_SweepsExpired(t *testing.T) {
	c := NewMemoryPrincipalCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ana", access.Principal{Username: "ana"}))
	require.NoError(t, c.Set(ctx, "luis", access.Principal{Username: "luis"}))
	assert.Len(t, c.entries, 2)

	now = now.Add(2 * time.Minute)
	require.NoError(t, c.Set(ctx, "eva", access.Principal{Username: "eva"}))
	assert.Len(t, c.entries, 1)
	assert.Contains(t, c.entries, "eva")
}
