package access

import "strings"

// OrgUnitFromDN returns the container part of a distinguished name, that is
// the DN without its first RDN. A DN with a single component has no OU.
func OrgUnitFromDN(dn string) string {
	escaped := false
	for i, r := range dn {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			return strings.TrimSpace(dn[i+1:])
		}
	}
	return ""
}

// GroupName extracts a display name from a group reference, which may be a
// DN ("CN=Ventas,OU=Groups,DC=corp"), a down-level name ("CORP\Ventas") or a
// plain name. ok is false when nothing usable remains.
func GroupName(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if i := strings.LastIndex(ref, `\`); i >= 0 && !strings.Contains(ref, "=") {
		ref = ref[i+1:]
	}
	if strings.Contains(ref, "=") {
		first := ref
		if i := strings.Index(ref, ","); i >= 0 {
			first = ref[:i]
		}
		key, value, found := strings.Cut(first, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "cn") {
			return "", false
		}
		ref = value
	}
	ref = strings.TrimSpace(ref)
	return ref, ref != ""
}
