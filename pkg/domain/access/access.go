// Package access decides whether a principal may see a report.
package access

import (
	"strings"

	"golang.org/x/text/cases"
)

// Restrictions are the three independent permission axes of a report. An
// empty axis places no restriction.
type Restrictions struct {
	Users    []string `json:"users,omitempty"`
	Groups   []string `json:"groups,omitempty"`
	OrgUnits []string `json:"org_units,omitempty"`
}

// IsEmpty reports whether no axis restricts access.
func (r Restrictions) IsEmpty() bool {
	return len(r.Users) == 0 && len(r.Groups) == 0 && len(r.OrgUnits) == 0
}

// CanAccess grants access to administrators and to unrestricted reports;
// otherwise access is granted when any non-empty axis admits the principal.
func CanAccess(p *Principal, r Restrictions) bool {
	if p == nil {
		return r.IsEmpty()
	}
	if p.Admin {
		return true
	}
	if r.IsEmpty() {
		return true
	}
	return UserAllowed(p.Username, r.Users) ||
		GroupAllowed(p.Groups, r.Groups) ||
		OrgUnitAllowed(p.OrgUnit, r.OrgUnits)
}

// UserAllowed reports whether username equals one of allowed, ignoring case.
// An empty list admits nobody on this axis.
func UserAllowed(username string, allowed []string) bool {
	if username == "" {
		return false
	}
	for _, a := range allowed {
		if equalFold(username, a) {
			return true
		}
	}
	return false
}

// GroupAllowed reports whether any of groups equals one of allowed, ignoring
// case.
func GroupAllowed(groups, allowed []string) bool {
	for _, a := range allowed {
		for _, g := range groups {
			if equalFold(g, a) {
				return true
			}
		}
	}
	return false
}

// OrgUnitAllowed reports whether ou contains any of allowed as a substring,
// ignoring case. A principal without an OU never matches.
func OrgUnitAllowed(ou string, allowed []string) bool {
	if strings.TrimSpace(ou) == "" {
		return false
	}
	folder := cases.Fold()
	haystack := folder.String(ou)
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if strings.Contains(haystack, folder.String(a)) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
