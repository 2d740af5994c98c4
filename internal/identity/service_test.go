package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hawiyya/hawiyya-server/internal/account"
	"github.com/hawiyya/hawiyya-server/internal/credentials"
	"github.com/hawiyya/hawiyya-server/internal/googleauth"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, account.Repository) {
	t.Helper()
	repo := account.NewMemoryRepository()
	creds := credentials.New("test-secret", "test-salt", time.Hour)
	google := &googleauth.StaticProvider{Profiles: map[string]googleauth.Profile{
		"good-token": {Email: "G.User@Example.com", Name: "G User", Picture: "https://lh3.googleusercontent.com/a/pic"},
	}}
	svc := NewService(repo, creds, google, nil)
	svc.now = func() time.Time { return testNow }
	return svc, repo
}

func register(t *testing.T, svc *Service) RegisterResult {
	t.Helper()
	result, err := svc.RegisterWithEmail(context.Background(), RegisterInput{
		Email:    "User@Example.com",
		Password: "s3cret",
		Name:     "User",
		PhoneICC: "+20",
		PhoneNSN: "1001001000",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return result
}

func TestRegisterWithEmail(t *testing.T) {
	svc, _ := newTestService(t)
	result := register(t, svc)

	a := result.Account
	if result.IsAlreadyRegistered {
		t.Fatal("fresh registration should not report already registered")
	}
	if result.Token == "" {
		t.Fatal("registration should issue a token")
	}
	if a.Email != "user@example.com" {
		t.Fatalf("email = %q, want lowercased", a.Email)
	}
	if a.Role != account.RoleUser || a.AuthType != account.AuthTypeEmail {
		t.Fatalf("role=%q authType=%q", a.Role, a.AuthType)
	}
	if a.EmailVerified || a.PhoneVerified {
		t.Fatal("fresh account must start unverified")
	}
	if a.Code(account.PurposeEmail) == "" || a.Code(account.PurposePhone) == "" {
		t.Fatal("registration must issue email and phone codes")
	}
	if a.PasswordHash == "s3cret" || a.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegisterWithEmailIdempotentOnMatchingPassword(t *testing.T) {
	svc, _ := newTestService(t)
	first := register(t, svc)

	again, err := svc.RegisterWithEmail(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "s3cret",
		Name:     "Someone Else",
		PhoneICC: "+20",
		PhoneNSN: "1001001000",
	})
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if !again.IsAlreadyRegistered {
		t.Fatal("matching re-registration should report already registered")
	}
	if again.Account.ID != first.Account.ID {
		t.Fatal("matching re-registration must return the same account")
	}
	if again.Account.Name != "User" {
		t.Fatal("re-registration must not overwrite the profile")
	}
}

func TestRegisterWithEmailWrongPasswordConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc)

	_, err := svc.RegisterWithEmail(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "different",
		Name:     "User",
		PhoneICC: "+20",
		PhoneNSN: "1001001000",
	})
	if !errors.Is(err, ErrIdentityTaken) {
		t.Fatalf("got %v, want ErrIdentityTaken", err)
	}
}

func TestRegisterWithGoogle(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.RegisterWithGoogle(context.Background(), GoogleRegisterInput{
		GoogleToken: "good-token",
		PhoneICC:    "+20",
		PhoneNSN:    "1001001000",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	a := result.Account
	if a.Email != "g.user@example.com" {
		t.Fatalf("email = %q, want lowercased profile email", a.Email)
	}
	if a.AuthType != account.AuthTypeGoogle {
		t.Fatalf("authType = %q", a.AuthType)
	}
	if !a.EmailVerified {
		t.Fatal("google email arrives verified")
	}
	if a.HasPassword() {
		t.Fatal("federated account must carry no local password")
	}
	if a.Code(account.PurposePhone) == "" {
		t.Fatal("phone code must still be issued")
	}

	again, err := svc.RegisterWithGoogle(context.Background(), GoogleRegisterInput{GoogleToken: "good-token"})
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if !again.IsAlreadyRegistered || again.Account.ID != a.ID {
		t.Fatalf("second google registration should return the existing account")
	}
}

func TestRegisterWithGoogleBadToken(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RegisterWithGoogle(context.Background(), GoogleRegisterInput{GoogleToken: "bogus"})
	if !errors.Is(err, googleauth.ErrInvalidToken) {
		t.Fatalf("got %v, want googleauth.ErrInvalidToken", err)
	}
}

func TestLoginWithEmail(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc)

	result, err := svc.LoginWithEmail(context.Background(), "user@example.com", "s3cret", "device-1", account.LanguageArabic)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.WasDeleted {
		t.Fatal("live account should not report restoration")
	}
	if result.Account.DeviceToken != "device-1" || result.Account.Language != account.LanguageArabic {
		t.Fatalf("login must rebind device and language: %+v", result.Account)
	}

	byPhone, err := svc.LoginWithEmail(context.Background(), "+201001001000", "s3cret", "", "")
	if err != nil {
		t.Fatalf("login by phone: %v", err)
	}
	if byPhone.Account.DeviceToken != "device-1" {
		t.Fatal("omitted device token must keep the previous binding")
	}
}

func TestLoginWithEmailFailures(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc)

	if _, err := svc.LoginWithEmail(context.Background(), "user@example.com", "wrong", "", ""); !errors.Is(err, ErrIncorrectCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := svc.LoginWithEmail(context.Background(), "missing@example.com", "s3cret", "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown identity: got %v", err)
	}
}

func TestLoginWithEmailRejectsFederatedAccounts(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.RegisterWithGoogle(context.Background(), GoogleRegisterInput{GoogleToken: "good-token"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.LoginWithEmail(context.Background(), "g.user@example.com", "anything", "", "")
	if !errors.Is(err, ErrNoLocalPassword) {
		t.Fatalf("got %v, want ErrNoLocalPassword", err)
	}
}

func TestLoginRestoresSoftDeletedAccount(t *testing.T) {
	svc, _ := newTestService(t)
	reg := register(t, svc)

	if _, err := svc.RequestAccountDeletion(context.Background(), reg.Account.ID); err != nil {
		t.Fatalf("request deletion: %v", err)
	}
	pending, err := svc.repo.FindByID(context.Background(), reg.Account.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := svc.ConfirmAccountDeletion(context.Background(), reg.Token, pending.Code(account.PurposeDeletion)); err != nil {
		t.Fatalf("confirm deletion: %v", err)
	}

	if _, _, err := svc.FindByEmailOrPhone(context.Background(), "user@example.com", ResolveOptions{Required: true}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted account should be hidden from resolution: %v", err)
	}

	result, err := svc.LoginWithEmail(context.Background(), "user@example.com", "s3cret", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.WasDeleted {
		t.Fatal("login should report the account was just restored")
	}
	if result.Account.Deleted {
		t.Fatal("account should be live again")
	}
	if result.Account.Code(account.PurposeDeletion) != "" {
		t.Fatal("restore must clear the deletion code")
	}

	if _, _, err := svc.FindByEmailOrPhone(context.Background(), "user@example.com", ResolveOptions{Required: true}); err != nil {
		t.Fatalf("restored account should resolve again: %v", err)
	}
}

func TestLoginWithGoogleNeverAutoRegisters(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.LoginWithGoogle(context.Background(), "good-token", "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	if _, err := svc.RegisterWithGoogle(context.Background(), GoogleRegisterInput{GoogleToken: "good-token"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.LoginWithGoogle(context.Background(), "good-token", "", ""); err != nil {
		t.Fatalf("login after register: %v", err)
	}
}

func TestVerifyEmailOrPhone(t *testing.T) {
	svc, _ := newTestService(t)
	reg := register(t, svc)
	id := reg.Account.ID

	verified, err := svc.VerifyEmailOrPhone(context.Background(), id, account.PurposeEmail, reg.Account.Code(account.PurposeEmail))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.EmailVerified {
		t.Fatal("email should be verified")
	}
	if verified.PhoneVerified {
		t.Fatal("phone must stay untouched")
	}

	if _, err := svc.VerifyEmailOrPhone(context.Background(), id, account.PurposeEmail, reg.Account.Code(account.PurposeEmail)); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("re-verify: got %v, want ErrAlreadyVerified", err)
	}
	if _, err := svc.VerifyEmailOrPhone(context.Background(), id, account.PurposePhone, "wrong"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("wrong code: got %v, want ErrInvalidCode", err)
	}

	svc.now = func() time.Time { return testNow.Add(time.Hour) }
	if _, err := svc.VerifyEmailOrPhone(context.Background(), id, account.PurposePhone, reg.Account.Code(account.PurposePhone)); !errors.Is(err, ErrExpiredCode) {
		t.Fatalf("expired code: got %v, want ErrExpiredCode", err)
	}
}

func TestVerifyEmailByLink(t *testing.T) {
	svc, _ := newTestService(t)
	reg := register(t, svc)

	a, err := svc.VerifyEmailByLink(context.Background(), reg.Token, reg.Account.Code(account.PurposeEmail))
	if err != nil {
		t.Fatalf("verify by link: %v", err)
	}
	if !a.EmailVerified {
		t.Fatal("email should be verified")
	}

	if _, err := svc.VerifyEmailByLink(context.Background(), "garbage", "0000"); !errors.Is(err, credentials.ErrInvalidToken) {
		t.Fatalf("bad token: got %v", err)
	}
}

func TestResendVerificationCode(t *testing.T) {
	svc, _ := newTestService(t)
	reg := register(t, svc)

	a, err := svc.ResendVerificationCode(context.Background(), reg.Account.ID, account.PurposePhone)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	fresh := a.Code(account.PurposePhone)
	if fresh == "" {
		t.Fatal("resend must issue a code")
	}
	if !a.IsCodeLive(account.PurposePhone, testNow.Add(9*time.Minute)) {
		t.Fatal("resent code must carry a fresh window")
	}

	if _, err := svc.VerifyEmailOrPhone(context.Background(), reg.Account.ID, account.PurposePhone, fresh); err != nil {
		t.Fatalf("verify with fresh code: %v", err)
	}
	if _, err := svc.ResendVerificationCode(context.Background(), reg.Account.ID, account.PurposePhone); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("resend after verify: got %v, want ErrAlreadyVerified", err)
	}
}

func TestCheckCode(t *testing.T) {
	svc, _ := newTestService(t)
	reg := register(t, svc)

	status, err := svc.CheckCode(context.Background(), reg.Account.ID, account.PurposeEmail, reg.Account.Code(account.PurposeEmail))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !status.IsCorrect || !status.IsLive {
		t.Fatalf("status = %+v, want correct and live", status)
	}
	if status.Remaining.Minutes != 9 && status.Remaining.Minutes != 10 {
		t.Fatalf("remaining = %+v, want roughly the full window", status.Remaining)
	}

	status, err = svc.CheckCode(context.Background(), reg.Account.ID, account.PurposeEmail, "wrong")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status.IsCorrect {
		t.Fatal("wrong code reported correct")
	}

	svc.now = func() time.Time { return testNow.Add(time.Hour) }
	status, err = svc.CheckCode(context.Background(), reg.Account.ID, account.PurposeEmail, reg.Account.Code(account.PurposeEmail))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status.IsLive || status.Remaining != (account.Remaining{}) {
		t.Fatalf("expired status = %+v", status)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	reg := register(t, svc)

	if _, err := svc.ChangePassword(context.Background(), reg.Account.ID, "wrong", "fresh"); !errors.Is(err, ErrIncorrectOldPassword) {
		t.Fatalf("wrong old password: got %v", err)
	}
	if _, err := svc.ChangePassword(context.Background(), reg.Account.ID, "s3cret", "s3cret"); !errors.Is(err, ErrSamePassword) {
		t.Fatalf("same password: got %v", err)
	}

	if _, err := svc.ChangePassword(context.Background(), reg.Account.ID, "s3cret", "fresh"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if _, err := svc.LoginWithEmail(context.Background(), "user@example.com", "fresh", "", ""); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := svc.LoginWithEmail(context.Background(), "user@example.com", "s3cret", "", ""); !errors.Is(err, ErrIncorrectCredentials) {
		t.Fatalf("login with old password: got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc)

	a, err := svc.SendForgotPasswordCode(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("send code: %v", err)
	}
	code := a.Code(account.PurposePassword)
	if code == "" {
		t.Fatal("no reset code issued")
	}

	if _, err := svc.ResetPasswordWithCode(context.Background(), "user@example.com", "wrong", "fresh"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("wrong code: got %v", err)
	}
	if _, err := svc.ResetPasswordWithCode(context.Background(), "user@example.com", code, "fresh"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := svc.LoginWithEmail(context.Background(), "user@example.com", "fresh", "", ""); err != nil {
		t.Fatalf("login after reset: %v", err)
	}

	if _, err := svc.SendForgotPasswordCode(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown identity: got %v", err)
	}
}

func TestPasswordResetExpiredCode(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc)

	a, err := svc.SendForgotPasswordCode(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("send code: %v", err)
	}

	svc.now = func() time.Time { return testNow.Add(time.Hour) }
	if _, err := svc.ResetPasswordWithCode(context.Background(), "user@example.com", a.Code(account.PurposePassword), "fresh"); !errors.Is(err, ErrExpiredCode) {
		t.Fatalf("got %v, want ErrExpiredCode", err)
	}
}

func TestAccountDeletionFlow(t *testing.T) {
	svc, _ := newTestService(t)
	reg := register(t, svc)

	a, err := svc.RequestAccountDeletion(context.Background(), reg.Account.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if a.Deleted {
		t.Fatal("requesting deletion must not delete anything yet")
	}
	code := a.Code(account.PurposeDeletion)

	if _, err := svc.ConfirmAccountDeletion(context.Background(), reg.Token, "wrong"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("wrong code: got %v", err)
	}

	deleted, err := svc.ConfirmAccountDeletion(context.Background(), reg.Token, code)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !deleted.Deleted {
		t.Fatal("account should carry the tombstone")
	}

	if _, err := svc.ConfirmAccountDeletion(context.Background(), reg.Token, code); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestResolverRoleFilter(t *testing.T) {
	svc, repo := newTestService(t)
	reg := register(t, svc)

	if _, _, err := svc.FindByEmailOrPhone(context.Background(), "user@example.com", ResolveOptions{Required: true, Role: account.RoleAdmin}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("role mismatch must look like a miss: %v", err)
	}

	if err := repo.Update(context.Background(), reg.Account.WithRole(account.RoleAdmin)); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if _, _, err := svc.FindByEmailOrPhone(context.Background(), "user@example.com", ResolveOptions{Required: true, Role: account.RoleAdmin}); err != nil {
		t.Fatalf("matching role should resolve: %v", err)
	}
}

func TestResolverOptionalMiss(t *testing.T) {
	svc, _ := newTestService(t)

	a, found, err := svc.FindByEmailOrPhone(context.Background(), "nobody@example.com", ResolveOptions{})
	if err != nil {
		t.Fatalf("optional miss must not error: %v", err)
	}
	if found || a.ID != "" {
		t.Fatalf("found=%v account=%+v, want clean miss", found, a)
	}
}
