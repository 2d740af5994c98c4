package account

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Purpose namespaces a verification code slot on an account.
type Purpose string

const (
	PurposeEmail    Purpose = "email"
	PurposePhone    Purpose = "phone"
	PurposePassword Purpose = "password"
	PurposeDeletion Purpose = "deletion"
)

// Purposes lists every code slot in a stable order.
var Purposes = []Purpose{PurposeEmail, PurposePhone, PurposePassword, PurposeDeletion}

// CodeSlot holds one time-boxed verification code.
type CodeSlot struct {
	Code       string    `json:"code"`
	ExpiryDate time.Time `json:"expiry_date"`
}

// VerificationCodes groups the four purpose slots of an account.
type VerificationCodes struct {
	Email    CodeSlot `json:"email"`
	Phone    CodeSlot `json:"phone"`
	Password CodeSlot `json:"password"`
	Deletion CodeSlot `json:"deletion"`
}

func (v VerificationCodes) slot(p Purpose) CodeSlot {
	switch p {
	case PurposePhone:
		return v.Phone
	case PurposePassword:
		return v.Password
	case PurposeDeletion:
		return v.Deletion
	default:
		return v.Email
	}
}

func (v VerificationCodes) withSlot(p Purpose, s CodeSlot) VerificationCodes {
	switch p {
	case PurposePhone:
		v.Phone = s
	case PurposePassword:
		v.Password = s
	case PurposeDeletion:
		v.Deletion = s
	default:
		v.Email = s
	}
	return v
}

// GenerateCode returns a uniformly random numeric code with exactly the
// requested number of digits, i.e. in [10^(n-1), 10^n).
func GenerateCode(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, low).String(), nil
}

// WithIssuedCode stores a fresh code for the purpose, overwriting any
// prior one. Expiry is window past now.
func (a Account) WithIssuedCode(p Purpose, code string, now time.Time, window time.Duration) Account {
	a.Verification = a.Verification.withSlot(p, CodeSlot{Code: code, ExpiryDate: now.Add(window)})
	return a
}

// Code returns the stored code for the purpose.
func (a Account) Code(p Purpose) string {
	return a.Verification.slot(p).Code
}

// MatchesCode reports whether the candidate equals the stored code. Expiry
// is deliberately not considered; callers must also check IsCodeLive.
func (a Account) MatchesCode(p Purpose, candidate string) bool {
	slot := a.Verification.slot(p)
	return slot.Code != "" && slot.Code == candidate
}

// IsCodeLive reports whether the stored code has not yet expired.
func (a Account) IsCodeLive(p Purpose, now time.Time) bool {
	return now.Before(a.Verification.slot(p).ExpiryDate)
}

// Remaining is a zero-clamped countdown used for client-side display.
type Remaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// CodeRemaining returns the countdown to expiry for the purpose slot.
// All fields are zero once the code has expired.
func (a Account) CodeRemaining(p Purpose, now time.Time) Remaining {
	diff := a.Verification.slot(p).ExpiryDate.Sub(now)
	if diff <= 0 {
		return Remaining{}
	}
	secs := int(diff.Seconds())
	return Remaining{
		Days:    secs / (3600 * 24),
		Hours:   (secs % (3600 * 24)) / 3600,
		Minutes: (secs % 3600) / 60,
		Seconds: secs % 60,
	}
}
