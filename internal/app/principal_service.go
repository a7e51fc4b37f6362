package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/queryex/api/internal/infra/directory"
	"github.com/queryex/api/internal/infra/redis"
	"github.com/queryex/api/internal/metrics"
	"github.com/queryex/api/pkg/domain/access"
	"github.com/queryex/api/pkg/domain/shared"
	"github.com/queryex/api/pkg/logger"
)

// PrincipalService resolves callers into principals: groups, organizational
// unit and administrator status. Results are cached per username and group
// claims until they expire or are refreshed, so a credential carrying
// different claims never reuses another credential's groups.
//
// Groups come from the credential's claims when it carries any, otherwise
// from the directory. Directory failures degrade to no groups or no OU.
type PrincipalService struct {
	cache  PrincipalCache
	dir    directory.Directory
	admins access.AdminPolicy
	flight singleflight.Group
	now    func() time.Time
	logger *logger.Logger
}

// NewPrincipalService creates a new principal service.
func NewPrincipalService(
	cache PrincipalCache,
	dir directory.Directory,
	admins access.AdminPolicy,
	log *logger.Logger,
) *PrincipalService {
	if dir == nil {
		dir = directory.Nop{}
	}
	return &PrincipalService{
		cache:  cache,
		dir:    dir,
		admins: admins,
		now:    time.Now,
		logger: log.With("service", "principal"),
	}
}

// cacheKey is the lowercased username, suffixed with a digest of the
// translated group claims when the credential carries any.
func cacheKey(username string, id access.Identity) string {
	key := strings.ToLower(username)
	if !id.HasGroupClaims() {
		return key
	}
	groups := groupsFromClaims(id.GroupClaims)
	for i, g := range groups {
		groups[i] = strings.ToLower(g)
	}
	slices.Sort(groups)
	sum := sha256.Sum256([]byte(strings.Join(slices.Compact(groups), "\n")))
	return key + "#" + hex.EncodeToString(sum[:8])
}

// Resolve returns the cached principal for the identity, resolving it on a
// miss. Concurrent misses for the same user share one resolution.
func (s *PrincipalService) Resolve(ctx context.Context, id access.Identity) (*access.Principal, error) {
	username := access.NormalizeUsername(id.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: no username", shared.ErrUnauthorized)
	}
	key := cacheKey(username, id)

	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		metrics.PrincipalCacheTotal.WithLabelValues("hit").Inc()
		return cached, nil
	case errors.Is(err, redis.ErrCacheMiss):
		metrics.PrincipalCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.PrincipalCacheTotal.WithLabelValues("error").Inc()
		s.logger.Warn("principal cache get failed", "user", username, "error", err)
	}

	return s.resolveShared(ctx, key, username, id)
}

// Refresh discards the cached principal and resolves it again.
func (s *PrincipalService) Refresh(ctx context.Context, id access.Identity) (*access.Principal, error) {
	username := access.NormalizeUsername(id.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: no username", shared.ErrUnauthorized)
	}
	key := cacheKey(username, id)

	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("principal cache delete failed", "user", username, "error", err)
	}
	s.flight.Forget(key)

	p, err := s.resolveShared(ctx, key, username, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("principal refreshed", "user", username, "groups", len(p.Groups), "admin", p.Admin)
	return p, nil
}

func (s *PrincipalService) resolveShared(ctx context.Context, key, username string, id access.Identity) (*access.Principal, error) {
	// Detached: waiters share the result of the first caller's context.
	detached := context.WithoutCancel(ctx)

	v, err, _ := s.flight.Do(key, func() (any, error) {
		p := s.resolve(detached, username, id)
		if err := s.cache.Set(detached, key, p); err != nil {
			s.logger.Warn("principal cache set failed", "user", username, "error", err)
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*access.Principal)
	return &p, nil
}

func (s *PrincipalService) resolve(ctx context.Context, username string, id access.Identity) access.Principal {
	var (
		groups []string
		source string
	)
	if id.HasGroupClaims() {
		source = "claims"
		groups = groupsFromClaims(id.GroupClaims)
	} else {
		source = s.dir.Name()
		g, err := s.dir.Groups(ctx, username)
		if err != nil {
			s.logger.Debug("directory group lookup failed", "user", username, "source", source, "error", err)
		}
		groups = g
	}
	if groups == nil {
		groups = []string{}
	}

	var ou string
	dn, err := s.dir.DistinguishedName(ctx, username)
	if err != nil {
		s.logger.Debug("directory dn lookup failed", "user", username, "error", err)
	} else {
		ou = access.OrgUnitFromDN(dn)
	}

	metrics.PrincipalResolutionsTotal.WithLabelValues(source).Inc()

	return access.Principal{
		Username:   username,
		Groups:     groups,
		OrgUnit:    ou,
		Admin:      s.admins.IsAdmin(username, groups),
		ResolvedAt: s.now().UTC(),
	}
}

// groupsFromClaims translates claim entries to group names, skipping the
// ones that do not translate.
func groupsFromClaims(claims []string) []string {
	out := make([]string, 0, len(claims))
	for _, c := range claims {
		if name, ok := access.GroupName(c); ok {
			out = append(out, name)
		}
	}
	return out
}
