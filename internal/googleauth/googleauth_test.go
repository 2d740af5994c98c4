package googleauth

import (
	"context"
	"errors"
	"testing"
)

func TestStaticProvider(t *testing.T) {
	p := &StaticProvider{Profiles: map[string]Profile{
		"token-1": {Email: "a@example.com", Name: "A", Picture: "https://lh3.googleusercontent.com/a/pic"},
	}}

	profile, err := p.DecodeToken(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.Email != "a@example.com" {
		t.Fatalf("profile = %+v", profile)
	}

	if _, err := p.DecodeToken(context.Background(), "unknown"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("unknown token: got %v, want ErrInvalidToken", err)
	}
}

func TestHTTPProviderRejectsEmptyToken(t *testing.T) {
	if _, err := NewHTTPProvider().DecodeToken(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: got %v, want ErrInvalidToken", err)
	}
}
