package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hawiyya/hawiyya-server/internal/account"
)

// ErrInvalidToken is returned when a token fails signature or expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// HashPassword returns a bcrypt hash of the provided password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashed), err
}

// ComparePassword reports whether the candidate matches the stored hash.
// When the account has no local credential and the candidate is also
// empty, this counts as a match: federated accounts carry no password.
func ComparePassword(candidate, stored string) bool {
	if stored == "" && candidate == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
}

// Claims is the payload carried by issued tokens.
type Claims struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Fingerprint string `json:"crd"`
	jwt.RegisteredClaims
}

// Service signs and verifies account tokens. Tokens embed a fingerprint
// of the current password hash plus a server-held salt, so rotating the
// password invalidates every previously issued token.
type Service struct {
	secret []byte
	salt   string
	ttl    time.Duration
}

// New constructs a credential service.
func New(secret, salt string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), salt: salt, ttl: ttl}
}

// Fingerprint derives the credential-state fingerprint bound into tokens.
func (s *Service) Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash + s.salt))
	return hex.EncodeToString(sum[:])
}

// IssueToken signs a token for the account.
func (s *Service) IssueToken(a account.Account) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:       a.Email,
		Phone:       a.Phone.Full(),
		Fingerprint: s.Fingerprint(a.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken validates the token and returns its claims.
func (s *Service) VerifyToken(raw string) (Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}

// Matches reports whether the token's fingerprint still corresponds to
// the account's current credential state.
func (s *Service) Matches(claims Claims, a account.Account) bool {
	return claims.Fingerprint == s.Fingerprint(a.PasswordHash)
}
