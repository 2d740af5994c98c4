package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hawiyya/hawiyya-server/internal/account"
	"github.com/hawiyya/hawiyya-server/internal/credentials"
	"github.com/hawiyya/hawiyya-server/internal/googleauth"
)

// CodePolicy controls verification-code generation for one purpose.
type CodePolicy struct {
	Length int
	Window time.Duration
}

// CodePolicies maps each purpose slot to its policy.
type CodePolicies map[account.Purpose]CodePolicy

// DefaultCodePolicies returns the standard 4-digit, 10-minute policy for
// every purpose.
func DefaultCodePolicies() CodePolicies {
	policies := make(CodePolicies, len(account.Purposes))
	for _, p := range account.Purposes {
		policies[p] = CodePolicy{Length: 4, Window: 10 * time.Minute}
	}
	return policies
}

func (p CodePolicies) forPurpose(purpose account.Purpose) CodePolicy {
	if policy, ok := p[purpose]; ok && policy.Length > 0 && policy.Window > 0 {
		return policy
	}
	return CodePolicy{Length: 4, Window: 10 * time.Minute}
}

// Service owns the account lifecycle: registration, login, verification
// codes, credential rotation, and soft-delete/restore.
type Service struct {
	repo     account.Repository
	creds    *credentials.Service
	google   googleauth.Provider
	policies CodePolicies
	now      func() time.Time
}

// NewService constructs the lifecycle service.
func NewService(repo account.Repository, creds *credentials.Service, google googleauth.Provider, policies CodePolicies) *Service {
	if policies == nil {
		policies = DefaultCodePolicies()
	}
	return &Service{repo: repo, creds: creds, google: google, policies: policies, now: time.Now}
}

func (s *Service) issueCode(a account.Account, purpose account.Purpose) (account.Account, error) {
	policy := s.policies.forPurpose(purpose)
	code, err := account.GenerateCode(policy.Length)
	if err != nil {
		return account.Account{}, fmt.Errorf("generate %s code: %w", purpose, err)
	}
	return a.WithIssuedCode(purpose, code, s.now(), policy.Window), nil
}

// RegisterInput carries the data needed to create an email account.
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	PhoneICC    string
	PhoneNSN    string
	DeviceToken string
	Language    account.Language
}

// RegisterResult is the outcome of a registration attempt.
type RegisterResult struct {
	Account             account.Account
	Token               string
	IsAlreadyRegistered bool
}

// RegisterWithEmail creates an account with a local password, or returns
// the existing one when the same email+phone pair re-registers with a
// matching password.
func (s *Service) RegisterWithEmail(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phoneFull := in.PhoneICC + in.PhoneNSN

	existing, err := s.repo.FindByEmailAndPhone(ctx, email, phoneFull)
	if err == nil && credentials.ComparePassword(in.Password, existing.PasswordHash) {
		token, err := s.creds.IssueToken(existing)
		if err != nil {
			return RegisterResult{}, err
		}
		return RegisterResult{Account: existing, Token: token, IsAlreadyRegistered: true}, nil
	}
	if err != nil && !errors.Is(err, account.ErrNotFound) {
		return RegisterResult{}, err
	}

	hash, err := credentials.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	now := s.now()
	a := account.Account{
		ID:        uuid.NewString(),
		AuthType:  account.AuthTypeEmail,
		Name:      in.Name,
		Email:     email,
		Phone:     account.Phone{ICC: in.PhoneICC, NSN: in.PhoneNSN},
		Role:      account.RoleUser,
		Language:  account.LanguageEnglish,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a = a.WithPassword(hash).
		WithDeviceToken(in.DeviceToken).
		WithLanguage(in.Language).
		WithLastLogin(now)

	if a, err = s.issueCode(a, account.PurposeEmail); err != nil {
		return RegisterResult{}, err
	}
	if a, err = s.issueCode(a, account.PurposePhone); err != nil {
		return RegisterResult{}, err
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return RegisterResult{}, err
	}

	token, err := s.creds.IssueToken(a)
	if err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Account: a, Token: token}, nil
}

// GoogleRegisterInput carries the data needed to create a Google account.
type GoogleRegisterInput struct {
	GoogleToken string
	PhoneICC    string
	PhoneNSN    string
	DeviceToken string
	Language    account.Language
}

// RegisterWithGoogle exchanges the external token for a profile and
// creates an account with the email channel pre-verified. Registering a
// second time with the same Google email returns the existing account.
func (s *Service) RegisterWithGoogle(ctx context.Context, in GoogleRegisterInput) (RegisterResult, error) {
	profile, err := s.google.DecodeToken(ctx, in.GoogleToken)
	if err != nil {
		return RegisterResult{}, err
	}

	existing, found, err := s.FindByEmailOrPhone(ctx, profile.Email, ResolveOptions{})
	if err != nil {
		return RegisterResult{}, err
	}
	if found {
		token, err := s.creds.IssueToken(existing)
		if err != nil {
			return RegisterResult{}, err
		}
		return RegisterResult{Account: existing, Token: token, IsAlreadyRegistered: true}, nil
	}

	now := s.now()
	a := account.Account{
		ID:            uuid.NewString(),
		AuthType:      account.AuthTypeGoogle,
		AvatarURL:     profile.Picture,
		Name:          profile.Name,
		Email:         strings.ToLower(profile.Email),
		Phone:         account.Phone{ICC: in.PhoneICC, NSN: in.PhoneNSN},
		Role:          account.RoleUser,
		Language:      account.LanguageEnglish,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	a = a.WithDeviceToken(in.DeviceToken).
		WithLanguage(in.Language).
		WithLastLogin(now)

	if a, err = s.issueCode(a, account.PurposePhone); err != nil {
		return RegisterResult{}, err
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return RegisterResult{}, err
	}

	token, err := s.creds.IssueToken(a)
	if err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Account: a, Token: token}, nil
}

// LoginResult is the outcome of a successful authentication.
type LoginResult struct {
	Account account.Account
	Token   string
	// WasDeleted reports that the account was soft-deleted and has just
	// been restored by this login.
	WasDeleted bool
}

// LoginWithEmail authenticates by email-or-phone plus password. A
// soft-deleted account that authenticates successfully is restored.
func (s *Service) LoginWithEmail(ctx context.Context, emailOrPhone, password, deviceToken string, lang account.Language) (LoginResult, error) {
	a, err := s.repo.FindByEmailOrPhone(ctx, emailOrPhone, true)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return LoginResult{}, ErrNotFound
		}
		return LoginResult{}, err
	}

	if !a.HasPassword() {
		return LoginResult{}, ErrNoLocalPassword
	}
	if !credentials.ComparePassword(password, a.PasswordHash) {
		return LoginResult{}, ErrIncorrectCredentials
	}

	return s.completeLogin(ctx, a, deviceToken, lang)
}

// LoginWithGoogle authenticates with an external token. It never
// auto-registers: the Google email must already belong to an account.
func (s *Service) LoginWithGoogle(ctx context.Context, googleToken, deviceToken string, lang account.Language) (LoginResult, error) {
	profile, err := s.google.DecodeToken(ctx, googleToken)
	if err != nil {
		return LoginResult{}, err
	}

	a, err := s.repo.FindByEmailOrPhone(ctx, strings.ToLower(profile.Email), true)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return LoginResult{}, ErrNotFound
		}
		return LoginResult{}, err
	}

	return s.completeLogin(ctx, a, deviceToken, lang)
}

func (s *Service) completeLogin(ctx context.Context, a account.Account, deviceToken string, lang account.Language) (LoginResult, error) {
	wasDeleted := a.Deleted
	if wasDeleted {
		a = a.Restored()
	}
	a = a.WithDeviceToken(deviceToken).
		WithLanguage(lang).
		WithLastLogin(s.now())

	if err := s.repo.Update(ctx, a); err != nil {
		return LoginResult{}, err
	}

	token, err := s.creds.IssueToken(a)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Account: a, Token: token, WasDeleted: wasDeleted}, nil
}

func channelVerified(a account.Account, purpose account.Purpose) bool {
	if purpose == account.PurposePhone {
		return a.PhoneVerified
	}
	return a.EmailVerified
}

func normalizeChannel(purpose account.Purpose) account.Purpose {
	if purpose == account.PurposePhone {
		return account.PurposePhone
	}
	return account.PurposeEmail
}

// VerifyEmailOrPhone accepts a verification code for the email or phone
// channel. Re-verifying an already-verified channel is rejected, and both
// code correctness and liveness must hold.
func (s *Service) VerifyEmailOrPhone(ctx context.Context, accountID string, purpose account.Purpose, code string) (account.Account, error) {
	purpose = normalizeChannel(purpose)

	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}
	if channelVerified(a, purpose) {
		return account.Account{}, ErrAlreadyVerified
	}
	if !a.MatchesCode(purpose, code) {
		return account.Account{}, ErrInvalidCode
	}
	if !a.IsCodeLive(purpose, s.now()) {
		return account.Account{}, ErrExpiredCode
	}

	if purpose == account.PurposePhone {
		a = a.WithPhoneVerified()
	} else {
		a = a.WithEmailVerified()
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

// VerifyEmailByLink verifies the email channel through the token+code
// pair embedded in the emailed link.
func (s *Service) VerifyEmailByLink(ctx context.Context, token, code string) (account.Account, error) {
	claims, err := s.creds.VerifyToken(token)
	if err != nil {
		return account.Account{}, err
	}
	return s.VerifyEmailOrPhone(ctx, claims.Subject, account.PurposeEmail, code)
}

// ResendVerificationCode rotates the email or phone code so it can be
// delivered again. The fresh code is on the returned account.
func (s *Service) ResendVerificationCode(ctx context.Context, accountID string, purpose account.Purpose) (account.Account, error) {
	purpose = normalizeChannel(purpose)

	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}
	if channelVerified(a, purpose) {
		return account.Account{}, ErrAlreadyVerified
	}
	if a, err = s.issueCode(a, purpose); err != nil {
		return account.Account{}, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

// CodeStatus describes a stored code without consuming it, used by
// clients polling before they submit a sensitive confirmation.
type CodeStatus struct {
	IsCorrect bool              `json:"is_correct"`
	IsLive    bool              `json:"is_live"`
	Remaining account.Remaining `json:"remaining"`
}

// CheckCode reports correctness, liveness, and the remaining lifetime of
// the code stored in the purpose slot.
func (s *Service) CheckCode(ctx context.Context, accountID string, purpose account.Purpose, code string) (CodeStatus, error) {
	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return CodeStatus{}, err
	}
	now := s.now()
	return CodeStatus{
		IsCorrect: a.MatchesCode(purpose, code),
		IsLive:    a.IsCodeLive(purpose, now),
		Remaining: a.CodeRemaining(purpose, now),
	}, nil
}

// ChangePassword rotates the local password after checking the old one.
// Setting the same password again is rejected.
func (s *Service) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) (account.Account, error) {
	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}
	if !credentials.ComparePassword(oldPassword, a.PasswordHash) {
		return account.Account{}, ErrIncorrectOldPassword
	}
	if credentials.ComparePassword(newPassword, a.PasswordHash) {
		return account.Account{}, ErrSamePassword
	}
	hash, err := credentials.HashPassword(newPassword)
	if err != nil {
		return account.Account{}, err
	}
	a = a.WithPassword(hash)
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

// SendForgotPasswordCode issues a password-reset code for the account
// matching the email or phone. The code is on the returned account for
// the caller to deliver.
func (s *Service) SendForgotPasswordCode(ctx context.Context, emailOrPhone string) (account.Account, error) {
	a, _, err := s.FindByEmailOrPhone(ctx, emailOrPhone, ResolveOptions{Required: true})
	if err != nil {
		return account.Account{}, err
	}
	if a, err = s.issueCode(a, account.PurposePassword); err != nil {
		return account.Account{}, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

// ResetPasswordWithCode sets a new password proven by a live reset code.
func (s *Service) ResetPasswordWithCode(ctx context.Context, emailOrPhone, code, newPassword string) (account.Account, error) {
	a, _, err := s.FindByEmailOrPhone(ctx, emailOrPhone, ResolveOptions{Required: true})
	if err != nil {
		return account.Account{}, err
	}
	if !a.MatchesCode(account.PurposePassword, code) {
		return account.Account{}, ErrInvalidCode
	}
	if !a.IsCodeLive(account.PurposePassword, s.now()) {
		return account.Account{}, ErrExpiredCode
	}
	hash, err := credentials.HashPassword(newPassword)
	if err != nil {
		return account.Account{}, err
	}
	a = a.WithPassword(hash)
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

// RequestAccountDeletion issues a deletion-confirmation code. The account
// is not touched beyond the code slot.
func (s *Service) RequestAccountDeletion(ctx context.Context, accountID string) (account.Account, error) {
	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}
	if a, err = s.issueCode(a, account.PurposeDeletion); err != nil {
		return account.Account{}, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

// ConfirmAccountDeletion soft-deletes the account identified by the
// token once the deletion code checks out. The tombstone is reversible:
// the next successful login restores the account.
func (s *Service) ConfirmAccountDeletion(ctx context.Context, token, code string) (account.Account, error) {
	claims, err := s.creds.VerifyToken(token)
	if err != nil {
		return account.Account{}, err
	}
	a, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil || a.Deleted {
		return account.Account{}, ErrNotFound
	}
	if !a.MatchesCode(account.PurposeDeletion, code) {
		return account.Account{}, ErrInvalidCode
	}
	if !a.IsCodeLive(account.PurposeDeletion, s.now()) {
		return account.Account{}, ErrExpiredCode
	}
	a = a.MarkedDeleted()
	if err := s.repo.Update(ctx, a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}
