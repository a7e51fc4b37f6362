package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/queryex/api/internal/config"
)

// LDAP resolves users against an LDAP or Active Directory server. Every
// lookup opens its own connection.
type LDAP struct {
	cfg    config.DirectoryConfig
	search func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error)
}

// NewLDAP creates an LDAP directory.
func NewLDAP(cfg config.DirectoryConfig) *LDAP {
	d := &LDAP{cfg: cfg}
	d.search = d.dialAndSearch
	return d
}

// Name implements Directory.
func (d *LDAP) Name() string { return "ldap" }

// Groups implements Directory.
func (d *LDAP) Groups(ctx context.Context, username string) ([]string, error) {
	entry, err := d.lookup(ctx, username, d.groupAttribute())
	if err != nil {
		return nil, err
	}

	values := entry.GetAttributeValues(d.groupAttribute())
	groups := make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := commonName(v); ok {
			groups = append(groups, name)
		}
	}
	return groups, nil
}

// DistinguishedName implements Directory.
func (d *LDAP) DistinguishedName(ctx context.Context, username string) (string, error) {
	entry, err := d.lookup(ctx, username)
	if err != nil {
		return "", err
	}
	return entry.DN, nil
}

func (d *LDAP) groupAttribute() string {
	if d.cfg.GroupAttribute == "" {
		return "memberOf"
	}
	return d.cfg.GroupAttribute
}

func (d *LDAP) lookup(ctx context.Context, username string, attrs ...string) (*ldap.Entry, error) {
	if username == "" {
		return nil, ErrUserNotFound
	}

	filter := d.cfg.UserFilter
	if filter == "" {
		filter = "(&(objectClass=user)(sAMAccountName=%s))"
	}

	req := ldap.NewSearchRequest(
		d.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, // one match expected, two detects ambiguity
		int(d.cfg.Timeout.Seconds()),
		false,
		fmt.Sprintf(filter, ldap.EscapeFilter(username)),
		append([]string{"dn"}, attrs...),
		nil,
	)

	res, err := d.search(ctx, req)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, fmt.Errorf("ldap search %q: %w", username, err)
	}
	if res == nil || len(res.Entries) == 0 {
		return nil, ErrUserNotFound
	}
	if len(res.Entries) > 1 {
		return nil, fmt.Errorf("ldap search %q: %d entries match", username, len(res.Entries))
	}
	return res.Entries[0], nil
}

func (d *LDAP) dialAndSearch(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tlsCfg := &tls.Config{
		InsecureSkipVerify: d.cfg.TLSSkipVerify, //nolint:gosec // operator opt-in
		MinVersion:         tls.VersionTLS12,
	}

	conn, err := ldap.DialURL(d.cfg.URL,
		ldap.DialWithDialer(&net.Dialer{Timeout: d.cfg.Timeout}),
		ldap.DialWithTLSConfig(tlsCfg),
	)
	if err != nil {
		return nil, fmt.Errorf("ldap dial: %w", err)
	}
	defer conn.Close()

	if d.cfg.Timeout > 0 {
		conn.SetTimeout(d.cfg.Timeout)
	}

	if d.cfg.StartTLS {
		if err := conn.StartTLS(tlsCfg); err != nil {
			return nil, fmt.Errorf("ldap starttls: %w", err)
		}
	}

	if d.cfg.BindDN != "" {
		if err := conn.Bind(d.cfg.BindDN, d.cfg.BindPassword); err != nil {
			return nil, fmt.Errorf("ldap bind: %w", err)
		}
	}

	return conn.Search(req)
}

// commonName returns the first CN of a group DN. Values that do not parse
// as a DN fall back to the plain group name rules.
func commonName(value string) (string, bool) {
	dn, err := ldap.ParseDN(value)
	if err != nil || len(dn.RDNs) == 0 {
		if strings.Contains(value, "=") {
			return "", false
		}
		name := strings.TrimSpace(value)
		return name, name != ""
	}
	for _, attr := range dn.RDNs[0].Attributes {
		if strings.EqualFold(attr.Type, "cn") && attr.Value != "" {
			return attr.Value, true
		}
	}
	return "", false
}
