package directory

import (
	"context"
	"errors"
	"fmt"
	"os/user"
)

// OS resolves users against the local account database.
type OS struct {
	lookupUser  func(string) (*user.User, error)
	lookupGroup func(string) (*user.Group, error)
}

// NewOS creates a directory backed by the local account database.
func NewOS() *OS {
	return &OS{lookupUser: user.Lookup, lookupGroup: user.LookupGroupId}
}

// Name implements Directory.
func (d *OS) Name() string { return "os" }

// Groups implements Directory. Group ids that cannot be resolved are skipped.
func (d *OS) Groups(ctx context.Context, username string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := d.lookupUser(username)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user %q: %w", username, err)
	}

	ids, err := u.GroupIds()
	if err != nil {
		return nil, fmt.Errorf("list groups of %q: %w", username, err)
	}

	groups := make([]string, 0, len(ids))
	for _, id := range ids {
		g, err := d.lookupGroup(id)
		if err != nil || g.Name == "" {
			continue
		}
		groups = append(groups, g.Name)
	}
	return groups, nil
}

// DistinguishedName implements Directory. Local accounts have no DN.
func (d *OS) DistinguishedName(context.Context, string) (string, error) {
	return "", nil
}
