package account

import (
	"errors"
	"strings"
	"time"
)

// AuthType records how an account first authenticated.
type AuthType string

const (
	AuthTypeEmail  AuthType = "email"
	AuthTypeGoogle AuthType = "google"
)

// Language is a supported display language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

var (
	// ErrNotFound is returned by repositories when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateIdentity is returned when a unique index on email or
	// phone is violated.
	ErrDuplicateIdentity = errors.New("email or phone already used")
)

// Phone is an ICC+NSN composite. The full number is the concatenation of
// both parts and is unique across accounts.
type Phone struct {
	ICC string `json:"icc"`
	NSN string `json:"nsn"`
}

// Full returns the complete phone number.
func (p Phone) Full() string {
	return p.ICC + p.NSN
}

// Account is the central identity entity. All mutating methods use value
// receivers and return an updated copy; a single repository call commits
// the result.
type Account struct {
	ID            string
	AuthType      AuthType
	AvatarURL     string
	Name          string
	Email         string
	Phone         Phone
	PasswordHash  string
	Role          Role
	Language      Language
	EmailVerified bool
	PhoneVerified bool
	Notifications []Notification
	DeviceToken   string
	LastLogin     time.Time
	Deleted       bool
	NoOfRequests  int
	Verification  VerificationCodes
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword reports whether the account holds a local credential.
// Accounts created through federated auth have none.
func (a Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// IsAdmin reports whether the account holds the admin role.
func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// HasGoogleAvatar reports whether the avatar is hosted by Google rather
// than our own storage.
func (a Account) HasGoogleAvatar() bool {
	return strings.Contains(a.AvatarURL, "googleusercontent.com")
}

// WithPassword returns a copy holding the given password hash.
func (a Account) WithPassword(hash string) Account {
	a.PasswordHash = hash
	return a
}

// WithName returns a copy with the name replaced.
func (a Account) WithName(name string) Account {
	a.Name = name
	return a
}

// WithEmail returns a copy with a new, unverified email.
func (a Account) WithEmail(email string) Account {
	a.Email = strings.ToLower(strings.TrimSpace(email))
	a.EmailVerified = false
	return a
}

// WithPhone returns a copy with a new, unverified phone.
func (a Account) WithPhone(icc, nsn string) Account {
	a.Phone = Phone{ICC: icc, NSN: nsn}
	a.PhoneVerified = false
	return a
}

// WithAvatarURL returns a copy with the avatar URL replaced.
func (a Account) WithAvatarURL(url string) Account {
	a.AvatarURL = url
	return a
}

// WithRole returns a copy with the role replaced.
func (a Account) WithRole(role Role) Account {
	a.Role = role
	return a
}

// WithDeviceToken returns a copy with the device token replaced. An empty
// token is ignored so clients that omit it keep their previous binding.
func (a Account) WithDeviceToken(token string) Account {
	if token == "" {
		return a
	}
	a.DeviceToken = token
	return a
}

// WithLanguage returns a copy with the display language replaced. An
// empty language is ignored.
func (a Account) WithLanguage(lang Language) Account {
	if lang == "" {
		return a
	}
	a.Language = lang
	return a
}

// WithSwitchedLanguage toggles between the two supported languages.
func (a Account) WithSwitchedLanguage() Account {
	if a.Language == LanguageEnglish {
		a.Language = LanguageArabic
	} else {
		a.Language = LanguageEnglish
	}
	return a
}

// WithEmailVerified marks the email channel verified.
func (a Account) WithEmailVerified() Account {
	a.EmailVerified = true
	return a
}

// WithPhoneVerified marks the phone channel verified.
func (a Account) WithPhoneVerified() Account {
	a.PhoneVerified = true
	return a
}

// WithLastLogin stamps the last login time.
func (a Account) WithLastLogin(at time.Time) Account {
	a.LastLogin = at
	return a
}

// MarkedDeleted returns a copy carrying the soft-delete tombstone.
func (a Account) MarkedDeleted() Account {
	a.Deleted = true
	return a
}

// Restored clears the soft-delete tombstone and any pending deletion code.
func (a Account) Restored() Account {
	a.Deleted = false
	a.Verification = a.Verification.withSlot(PurposeDeletion, CodeSlot{})
	return a
}
