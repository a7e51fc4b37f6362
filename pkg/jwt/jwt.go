// Package jwt verifies HS256 bearer tokens and extracts the caller identity
// from configurable claims.
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/queryex/api/pkg/domain/access"
)

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrNoUsername   = errors.New("token has no username claim")
)

// Config configures token verification.
type Config struct {
	Secret string
	// Issuer, when set, must match the iss claim.
	Issuer string
	// UsernameClaim names the claim holding the username; "sub" is used
	// when it is absent.
	UsernameClaim string
	// GroupsClaim names the claim holding group names or DNs.
	GroupsClaim string
}

// Verifier validates tokens.
type Verifier struct {
	cfg    Config
	parser *jwt.Parser
}

// NewVerifier creates a Verifier.
func NewVerifier(cfg Config) *Verifier {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.UsernameClaim == "" {
		cfg.UsernameClaim = "preferred_username"
	}
	if cfg.GroupsClaim == "" {
		cfg.GroupsClaim = "groups"
	}
	return &Verifier{cfg: cfg, parser: jwt.NewParser(opts...)}
}

// Verify validates the token and returns the identity it carries.
// GroupClaims is nil when the token has no groups claim.
func (v *Verifier) Verify(tokenString string) (access.Identity, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(v.cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return access.Identity{}, ErrExpiredToken
		}
		return access.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	username, _ := claims[v.cfg.UsernameClaim].(string)
	if username == "" {
		username, _ = claims["sub"].(string)
	}
	if strings.TrimSpace(username) == "" {
		return access.Identity{}, ErrNoUsername
	}

	return access.Identity{
		Username:    username,
		GroupClaims: stringList(claims[v.cfg.GroupsClaim]),
	}, nil
}

// stringList reads a claim that is either a list or a comma separated
// string. Absent claims yield nil.
func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	case string:
		out := []string{}
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// GenerateToken signs an HS256 token for username with optional groups.
func GenerateToken(cfg Config, username string, groups []string, ttl time.Duration) (string, error) {
	if username == "" {
		return "", ErrNoUsername
	}
	if cfg.UsernameClaim == "" {
		cfg.UsernameClaim = "preferred_username"
	}
	if cfg.GroupsClaim == "" {
		cfg.GroupsClaim = "groups"
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":             username,
		cfg.UsernameClaim: username,
		"iat":             now.Unix(),
		"nbf":             now.Unix(),
		"exp":             now.Add(ttl).Unix(),
	}
	if cfg.Issuer != "" {
		claims["iss"] = cfg.Issuer
	}
	if groups != nil {
		claims[cfg.GroupsClaim] = groups
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}
