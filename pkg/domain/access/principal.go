package access

import (
	"strings"
	"time"
)

// Principal is the resolved identity of the current user.
type Principal struct {
	Username   string    `json:"username"`
	Groups     []string  `json:"groups"`
	OrgUnit    string    `json:"org_unit,omitempty"`
	Admin      bool      `json:"admin"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Identity is what the transport layer knows about a caller before directory
// resolution. GroupClaims is nil when the credential carried no group claims.
type Identity struct {
	Username    string
	GroupClaims []string
}

// HasGroupClaims reports whether the credential carried group claims.
func (i Identity) HasGroupClaims() bool {
	return i.GroupClaims != nil
}

// NormalizeUsername strips a "DOMAIN\" prefix and an "@realm" suffix.
func NormalizeUsername(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}
	return name
}

// AdminPolicy designates administrators by name or by group.
type AdminPolicy struct {
	Users  []string
	Groups []string
}

// IsAdmin reports whether the named user, with the given groups, is an
// administrator.
func (a AdminPolicy) IsAdmin(username string, groups []string) bool {
	return UserAllowed(username, a.Users) || GroupAllowed(groups, a.Groups)
}
