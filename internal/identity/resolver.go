package identity

import (
	"context"
	"errors"

	"github.com/hawiyya/hawiyya-server/internal/account"
)

// ResolveOptions tune identity resolution.
type ResolveOptions struct {
	// Role, when set, requires the match to hold exactly this role.
	Role account.Role
	// Required turns a miss into ErrNotFound instead of found=false.
	Required bool
	// IncludeDeleted lifts the default exclusion of soft-deleted accounts.
	IncludeDeleted bool
}

// FindByEmailOrPhone resolves an account by exact email or full-phone
// match. With Required unset a miss returns found=false and no error,
// which is how uniqueness pre-checks use it.
func (s *Service) FindByEmailOrPhone(ctx context.Context, value string, opts ResolveOptions) (account.Account, bool, error) {
	a, err := s.repo.FindByEmailOrPhone(ctx, value, opts.IncludeDeleted)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			if opts.Required {
				return account.Account{}, false, ErrNotFound
			}
			return account.Account{}, false, nil
		}
		return account.Account{}, false, err
	}

	if opts.Required && opts.Role != "" && a.Role != opts.Role {
		return account.Account{}, false, ErrRoleMismatch
	}

	return a, true, nil
}
