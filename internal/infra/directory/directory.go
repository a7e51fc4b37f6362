// Package directory resolves group memberships and distinguished names for
// usernames from a directory service or the local account database.
package directory

import (
	"context"
	"errors"

	"github.com/queryex/api/internal/config"
	"github.com/queryex/api/pkg/logger"
)

// ErrUserNotFound is returned when the directory has no entry for a user.
var ErrUserNotFound = errors.New("directory: user not found")

// Directory looks up directory facts about a user.
type Directory interface {
	// Groups returns the display names of the groups the user belongs to.
	// Entries that cannot be translated to a name are skipped.
	Groups(ctx context.Context, username string) ([]string, error)
	// DistinguishedName returns the user's DN, or "" when the source has none.
	DistinguishedName(ctx context.Context, username string) (string, error)
	// Name identifies the source in logs and metrics.
	Name() string
}

// New returns the LDAP directory when a URL is configured and the local
// account database otherwise.
func New(cfg config.DirectoryConfig, log *logger.Logger) Directory {
	if cfg.URL != "" {
		log.Info("directory configured", "source", "ldap", "url", cfg.URL, "base_dn", cfg.BaseDN)
		return NewLDAP(cfg)
	}
	log.Info("directory configured", "source", "os")
	return NewOS()
}

// Nop is a directory with no entries.
type Nop struct{}

// Groups implements Directory.
func (Nop) Groups(context.Context, string) ([]string, error) { return nil, nil }

// DistinguishedName implements Directory.
func (Nop) DistinguishedName(context.Context, string) (string, error) { return "", nil }

// Name implements Directory.
func (Nop) Name() string { return "none" }
