package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrInvalidToken is returned when the external token cannot be decoded.
var ErrInvalidToken = errors.New("invalid google token")

// Profile is the verified identity extracted from a Google ID token.
type Profile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Provider exchanges a raw Google ID token for a verified profile.
type Provider interface {
	DecodeToken(ctx context.Context, raw string) (Profile, error)
}

const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// HTTPProvider validates tokens against Google's tokeninfo endpoint.
type HTTPProvider struct {
	client *http.Client
}

// NewHTTPProvider builds the production token decoder.
func NewHTTPProvider() *HTTPProvider {
	return &HTTPProvider{client: &http.Client{Timeout: 10 * time.Second}}
}

// DecodeToken resolves the token to a profile, failing with
// ErrInvalidToken when Google rejects it.
func (p *HTTPProvider) DecodeToken(ctx context.Context, raw string) (Profile, error) {
	if raw == "" {
		return Profile{}, ErrInvalidToken
	}
	endpoint := tokenInfoURL + "?id_token=" + url.QueryEscape(raw)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("google tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, ErrInvalidToken
	}
	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, ErrInvalidToken
	}
	if profile.Email == "" {
		return Profile{}, ErrInvalidToken
	}
	return profile, nil
}

// StaticProvider resolves tokens from a fixed map. Used by tests and dev
// mode where no real Google credentials exist.
type StaticProvider struct {
	Profiles map[string]Profile
}

// DecodeToken looks the token up in the static map.
func (p *StaticProvider) DecodeToken(_ context.Context, raw string) (Profile, error) {
	profile, ok := p.Profiles[raw]
	if !ok {
		return Profile{}, ErrInvalidToken
	}
	return profile, nil
}
