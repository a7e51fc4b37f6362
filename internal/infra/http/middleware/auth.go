package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/user"
	"strings"

	"github.com/queryex/api/internal/config"
	"github.com/queryex/api/pkg/apierror"
	"github.com/queryex/api/pkg/domain/access"
	"github.com/queryex/api/pkg/jwt"
	"github.com/queryex/api/pkg/logger"
)

// Auth-related context keys.
const (
	UsernameKey                    = logger.ContextKeyUsername
	IdentityKey  logger.ContextKey = "identity"
	PrincipalKey logger.ContextKey = "principal"
)

var errNoCredentials = errors.New("no credentials")

// IdentityFunc establishes who is calling before directory resolution.
type IdentityFunc func(r *http.Request) (access.Identity, error)

// PrincipalResolver turns an identity into a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, id access.Identity) (*access.Principal, error)
}

// HeaderIdentity trusts headers set by an authenticating reverse proxy.
// GroupClaims stays nil when the groups header is absent so the directory
// is consulted instead.
func HeaderIdentity(userHeader, groupsHeader string) IdentityFunc {
	return func(r *http.Request) (access.Identity, error) {
		username := strings.TrimSpace(r.Header.Get(userHeader))
		if username == "" {
			return access.Identity{}, errNoCredentials
		}

		id := access.Identity{Username: username}
		if groupsHeader == "" {
			return id, nil
		}
		if values := r.Header.Values(groupsHeader); len(values) > 0 {
			id.GroupClaims = splitList(strings.Join(values, ","))
		}
		return id, nil
	}
}

// JWTIdentity reads an HS256 bearer token from the Authorization header.
func JWTIdentity(verifier *jwt.Verifier) IdentityFunc {
	return func(r *http.Request) (access.Identity, error) {
		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return access.Identity{}, errNoCredentials
		}
		return verifier.Verify(strings.TrimSpace(token))
	}
}

// OSIdentity serves every request as the account running the server.
func OSIdentity() IdentityFunc {
	return func(*http.Request) (access.Identity, error) {
		u, err := user.Current()
		if err != nil {
			return access.Identity{}, fmt.Errorf("current user: %w", err)
		}
		return access.Identity{Username: u.Username}, nil
	}
}

// NewIdentityFunc builds the IdentityFunc for the configured auth mode.
func NewIdentityFunc(cfg config.AuthConfig) (IdentityFunc, error) {
	switch cfg.Mode {
	case config.AuthModeHeader:
		return HeaderIdentity(cfg.UserHeader, cfg.GroupsHeader), nil
	case config.AuthModeJWT:
		return JWTIdentity(jwt.NewVerifier(jwt.Config{
			Secret:        cfg.JWTSecret,
			Issuer:        cfg.JWTIssuer,
			UsernameClaim: cfg.UsernameClaim,
			GroupsClaim:   cfg.GroupsClaim,
		})), nil
	case config.AuthModeOS:
		return OSIdentity(), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// Authenticate identifies the caller, resolves the principal and stores both
// in the request context.
func Authenticate(identify IdentityFunc, resolver PrincipalResolver, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			id, err := identify(r)
			if err != nil {
				reason := "invalid_credentials"
				switch {
				case errors.Is(err, errNoCredentials):
					reason = "missing_credentials"
				case errors.Is(err, jwt.ErrExpiredToken):
					reason = "expired_token"
				}
				RecordAuthFailure(reason)
				log.Debug("authentication failed", "reason", reason, "error", err, "request_id", requestID)
				apierror.Unauthorized("").WriteJSONWithRequestID(w, requestID)
				return
			}

			principal, err := resolver.Resolve(ctx, id)
			if err != nil {
				RecordAuthFailure("unresolved_principal")
				log.Warn("principal resolution failed", "username", id.Username, "error", err, "request_id", requestID)
				apierror.Unauthorized("").WriteJSONWithRequestID(w, requestID)
				return
			}

			ctx = context.WithValue(ctx, IdentityKey, id)
			ctx = context.WithValue(ctx, PrincipalKey, principal)
			ctx = context.WithValue(ctx, UsernameKey, principal.Username)
			noteUser(ctx, principal.Username)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the resolved principal from context.
func GetPrincipal(ctx context.Context) *access.Principal {
	if p, ok := ctx.Value(PrincipalKey).(*access.Principal); ok {
		return p
	}
	return nil
}

// GetIdentity extracts the caller identity from context.
func GetIdentity(ctx context.Context) (access.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(access.Identity)
	return id, ok
}

// GetUsername extracts the username from context.
func GetUsername(ctx context.Context) string {
	if name, ok := ctx.Value(UsernameKey).(string); ok {
		return name
	}
	return ""
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
