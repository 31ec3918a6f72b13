// Package osm implements the consumer side of the OpenStreetMap OAuth 2.0
// authorization-code flow. The user profile is fetched separately through
// the API client (internal/osm), since the provider issues no ID token.
package osm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAuthURL  = "https://www.openstreetmap.org/oauth2/authorize"
	DefaultTokenURL = "https://www.openstreetmap.org/oauth2/token"
)

// DefaultScopes are the scopes the editor needs: read the profile, write edits.
var DefaultScopes = []string{"read_prefs", "write_api"}

// ErrExchange is returned for any failed code exchange.
var ErrExchange = errors.New("oauth: token exchange failed")

// OAuth is the OSM OAuth 2.0 client.
type OAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURLBase  string
	TokenURL     string

	http *http.Client
}

// Config holds the values needed to build an OAuth client.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	Timeout      time.Duration
}

// New creates a new OSM OAuth client.
func New(cfg Config) *OAuth {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &OAuth{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		AuthURLBase:  cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		http:         &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether client id and secret are set.
func (o *OAuth) Configured() bool {
	return strings.TrimSpace(o.ClientID) != "" && strings.TrimSpace(o.ClientSecret) != ""
}

// AuthURL builds the authorization URL for the given state nonce.
func (o *OAuth) AuthURL(state string) (string, error) {
	u, err := url.Parse(o.AuthURLBase)
	if err != nil {
		return "", fmt.Errorf("oauth: parse auth url: %w", err)
	}
	q := u.Query()
	q.Set("client_id", o.ClientID)
	q.Set("redirect_uri", o.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(o.Scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TokenResponse is the response from the token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	CreatedAt    int64  `json:"created_at,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

// ExpiresAt returns the absolute expiry relative to now, or nil when the
// provider did not send expires_in.
func (t *TokenResponse) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	exp := now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	return &exp
}

// ExchangeCode exchanges an authorization code for an access token with a
// server-to-server form POST.
func (o *OAuth) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", o.ClientID)
	form.Set("client_secret", o.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", o.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrExchange, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrExchange, resp.StatusCode)
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", ErrExchange, err)
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("%w: %s - %s", ErrExchange, tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in response", ErrExchange)
	}
	return &tr, nil
}
