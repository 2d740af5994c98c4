package identity

import (
	"context"
	"strings"

	"github.com/hawiyya/hawiyya-server/internal/account"
)

// UpdateProfileInput carries optional profile changes; empty fields are
// left untouched.
type UpdateProfileInput struct {
	Name      string
	Email     string
	PhoneICC  string
	PhoneNSN  string
	AvatarURL string
}

// ProfileUpdate reports what changed. Changing email or phone un-verifies
// that channel and rotates its verification code, which is left on the
// account for the caller to deliver.
type ProfileUpdate struct {
	Account account.Account
	Changes []string
}

// UpdateProfile applies the requested changes to the account.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, in UpdateProfileInput) (ProfileUpdate, error) {
	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return ProfileUpdate{}, err
	}

	var changes []string

	if in.Name != "" && in.Name != a.Name {
		a = a.WithName(in.Name)
		changes = append(changes, "name")
	}

	if in.AvatarURL != "" && in.AvatarURL != a.AvatarURL {
		a = a.WithAvatarURL(in.AvatarURL)
		changes = append(changes, "avatar_url")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" && email != a.Email {
		if _, taken, err := s.FindByEmailOrPhone(ctx, email, ResolveOptions{}); err != nil {
			return ProfileUpdate{}, err
		} else if taken {
			return ProfileUpdate{}, ErrEmailTaken
		}
		a = a.WithEmail(email)
		if a, err = s.issueCode(a, account.PurposeEmail); err != nil {
			return ProfileUpdate{}, err
		}
		changes = append(changes, "email")
	}

	if in.PhoneICC != "" || in.PhoneNSN != "" {
		icc := in.PhoneICC
		if icc == "" {
			icc = a.Phone.ICC
		}
		nsn := in.PhoneNSN
		if nsn == "" {
			nsn = a.Phone.NSN
		}
		if icc+nsn != a.Phone.Full() {
			if _, taken, err := s.FindByEmailOrPhone(ctx, icc+nsn, ResolveOptions{}); err != nil {
				return ProfileUpdate{}, err
			} else if taken {
				return ProfileUpdate{}, ErrPhoneTaken
			}
			a = a.WithPhone(icc, nsn)
			if a, err = s.issueCode(a, account.PurposePhone); err != nil {
				return ProfileUpdate{}, err
			}
			changes = append(changes, "phone")
		}
	}

	if len(changes) == 0 {
		return ProfileUpdate{}, ErrNothingToUpdate
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return ProfileUpdate{}, err
	}
	return ProfileUpdate{Account: a, Changes: changes}, nil
}

// DeleteAvatar clears the avatar URL. Avatars stored by us (anything not
// hosted by Google) are the storage collaborator's problem to reap.
func (s *Service) DeleteAvatar(ctx context.Context, accountID string) (account.Account, error) {
	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}
	if a.AvatarURL == "" {
		return account.Account{}, ErrNoAvatar
	}
	a = a.WithAvatarURL("")
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

// SwitchLanguage toggles the display language between en and ar.
func (s *Service) SwitchLanguage(ctx context.Context, accountID string) (account.Account, error) {
	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}
	a = a.WithSwitchedLanguage()
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

// SeeNotifications marks the inbox seen and returns the entries as they
// were. When everything was already seen nothing is persisted and
// ErrNotificationsAlreadySeen is returned.
func (s *Service) SeeNotifications(ctx context.Context, accountID string) ([]account.Notification, error) {
	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	updated, allSeen, list := a.SeenNotifications()
	if allSeen {
		return nil, ErrNotificationsAlreadySeen
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, err
	}
	return list, nil
}

// ClearNotifications empties the inbox; an already-empty inbox is an
// error and nothing is persisted.
func (s *Service) ClearNotifications(ctx context.Context, accountID string) error {
	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	updated, wasEmpty := a.ClearedNotifications()
	if wasEmpty {
		return ErrNoNotifications
	}
	return s.repo.Update(ctx, updated)
}
