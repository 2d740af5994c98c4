package identity

import (
	"errors"
	"fmt"

	"github.com/hawiyya/hawiyya-server/internal/account"
)

// Resolution and lifecycle errors. Role mismatch deliberately wraps
// ErrNotFound so callers cannot distinguish "wrong role" from "absent"
// and probe for account existence.
var (
	ErrNotFound     = account.ErrNotFound
	ErrRoleMismatch = fmt.Errorf("%w: role mismatch", ErrNotFound)

	ErrIdentityTaken = account.ErrDuplicateIdentity
	ErrEmailTaken    = errors.New("email already used")
	ErrPhoneTaken    = errors.New("phone already used")

	ErrIncorrectCredentials = errors.New("incorrect credentials")
	ErrNoLocalPassword      = errors.New("account has no password, use federated login")

	ErrAlreadyVerified = errors.New("already verified")
	ErrInvalidCode     = errors.New("incorrect verification code")
	ErrExpiredCode     = errors.New("expired verification code")

	ErrIncorrectOldPassword = errors.New("incorrect old password")
	ErrSamePassword         = errors.New("new password matches the old one")

	ErrAdminRoleImmutable = errors.New("admin role cannot be changed")
	ErrInvalidRole        = errors.New("unknown role")

	ErrNotificationsAlreadySeen = errors.New("notifications already seen")
	ErrNoNotifications          = errors.New("no notifications to clear")
	ErrNothingToUpdate          = errors.New("nothing to update")
	ErrNoAvatar                 = errors.New("account has no avatar")
	ErrNoAccounts               = errors.New("no accounts in this page")
)
