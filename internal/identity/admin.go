package identity

import (
	"context"

	"github.com/hawiyya/hawiyya-server/internal/account"
)

// ChangeUserRole updates the role of the account matching emailOrPhone.
// Accounts already holding the admin role are immutable through this
// path.
func (s *Service) ChangeUserRole(ctx context.Context, emailOrPhone string, role account.Role) (account.Account, error) {
	if !account.ValidRole(role) {
		return account.Account{}, ErrInvalidRole
	}
	a, _, err := s.FindByEmailOrPhone(ctx, emailOrPhone, ResolveOptions{Required: true})
	if err != nil {
		return account.Account{}, err
	}
	if a.IsAdmin() {
		return account.Account{}, ErrAdminRoleImmutable
	}
	a = a.WithRole(role)
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

// VerifyUser marks both channels verified on behalf of an admin. An
// account that is already fully verified is rejected.
func (s *Service) VerifyUser(ctx context.Context, emailOrPhone string) (account.Account, error) {
	a, _, err := s.FindByEmailOrPhone(ctx, emailOrPhone, ResolveOptions{Required: true})
	if err != nil {
		return account.Account{}, err
	}
	if a.EmailVerified && a.PhoneVerified {
		return account.Account{}, ErrAlreadyVerified
	}
	a = a.WithEmailVerified().WithPhoneVerified()
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

// AccountPage is one page of accounts ordered by request count.
type AccountPage struct {
	Accounts    []account.Account
	CurrentPage int
	TotalPages  int
}

// MostActiveUsers pages through accounts by descending request count,
// excluding the requesting admin.
func (s *Service) MostActiveUsers(ctx context.Context, adminID string, page, limit int) (AccountPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	accounts, total, err := s.repo.ListByRequests(ctx, adminID, page, limit)
	if err != nil {
		return AccountPage{}, err
	}
	if len(accounts) == 0 {
		return AccountPage{}, ErrNoAccounts
	}
	return AccountPage{
		Accounts:    accounts,
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
	}, nil
}
