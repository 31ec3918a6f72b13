package osm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthURL(t *testing.T) {
	o := New(Config{ClientID: "cid", ClientSecret: "sec", RedirectURL: "http://127.0.0.1:5500/oauth/callback"})
	raw, err := o.AuthURL("nonce-1")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "www.openstreetmap.org", u.Host)
	require.Equal(t, "/oauth2/authorize", u.Path)
	q := u.Query()
	require.Equal(t, "cid", q.Get("client_id"))
	require.Equal(t, "http://127.0.0.1:5500/oauth/callback", q.Get("redirect_uri"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "read_prefs write_api", q.Get("scope"))
	require.Equal(t, "nonce-1", q.Get("state"))
}

func TestConfigured(t *testing.T) {
	require.False(t, New(Config{ClientID: "x"}).Configured())
	require.False(t, New(Config{ClientID: " ", ClientSecret: "y"}).Configured())
	require.True(t, New(Config{ClientID: "x", ClientSecret: "y"}).Configured())
}

func TestExchangeCode_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(b))
		require.NoError(t, err)
		require.Equal(t, "cid", form.Get("client_id"))
		require.Equal(t, "sec", form.Get("client_secret"))
		require.Equal(t, "the-code", form.Get("code"))
		require.Equal(t, "authorization_code", form.Get("grant_type"))
		require.Equal(t, "http://cb", form.Get("redirect_uri"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	o := New(Config{ClientID: "cid", ClientSecret: "sec", RedirectURL: "http://cb", TokenURL: srv.URL})
	tr, err := o.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	require.Equal(t, "at", tr.AccessToken)
	require.Equal(t, "rt", tr.RefreshToken)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, now.Add(time.Hour), *tr.ExpiresAt(now))
}

func TestExchangeCode_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-2xx": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		},
		"missing token": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"token_type":"Bearer"}`)
		},
		"provider error": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"error":"invalid_client","error_description":"nope"}`)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			o := New(Config{ClientID: "cid", ClientSecret: "sec", TokenURL: srv.URL})
			_, err := o.ExchangeCode(context.Background(), "c")
			require.ErrorIs(t, err, ErrExchange)
		})
	}
}

func TestExpiresAt_NoExpiry(t *testing.T) {
	tr := &TokenResponse{AccessToken: "x"}
	require.Nil(t, tr.ExpiresAt(time.Now()))
}
