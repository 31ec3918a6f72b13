package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/laneeditor/internal/cache"
	"github.com/dropDatabas3/laneeditor/internal/rate"
	"github.com/dropDatabas3/laneeditor/internal/session"
)

func newSessionConfig(t *testing.T) SessionConfig {
	t.Helper()
	codec, err := session.NewCookieCodec("test-secret", "", false, time.Hour)
	require.NoError(t, err)
	return SessionConfig{Store: session.NewStore(cache.NewMemory(""), nil, time.Hour), Cookie: codec}
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "abc", seen)
}

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), WithRecover())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "INTERNAL")
}

func TestWithSession_PersistsOnlyWhenUsed(t *testing.T) {
	cfg := newSessionConfig(t)

	// request anónimo sin cambios: no hay cookie
	h := WithSession(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, session.FromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, rec.Result().Cookies())

	// guardar state y volver con el cookie
	set := WithSession(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session.FromContext(r.Context()).SetState("nonce")
		_, _ = w.Write([]byte("ok"))
	}))
	rec = httptest.NewRecorder()
	set.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/authorize-start", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	var got string
	read := WithSession(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = session.FromContext(r.Context()).OAuthState
	}))
	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	req.AddCookie(cookies[0])
	read.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "nonce", got)
}

func TestWithSession_TamperedCookieStartsFresh(t *testing.T) {
	cfg := newSessionConfig(t)
	sess := session.New()
	sess.Bind(1, 2, "x", "tok", nil)
	require.NoError(t, cfg.Store.Save(context.Background(), sess))
	v, err := cfg.Cookie.Encode(sess.ID)
	require.NoError(t, err)

	var authed bool
	h := WithSession(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed = session.FromContext(r.Context()).Authenticated()
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Cookie.Name, Value: v + "x"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.False(t, authed)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Cookie.Name, Value: v})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, authed)
}

func TestRequireAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireAuth()(ok)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req = req.WithContext(session.ToContext(req.Context(), session.New()))
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "UNAUTHENTICATED")

	sess := session.New()
	sess.Bind(1, 2, "x", "tok", nil)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/history", nil)
	h.ServeHTTP(rec, req.WithContext(session.ToContext(req.Context(), sess)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	past := time.Now().Add(-time.Second)
	sess.TokenExpiresAt = &past
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(session.ToContext(req.Context(), sess)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithRateLimit(t *testing.T) {
	h := WithRateLimit(rate.NewMemoryLimiter(1, time.Minute), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/changeset/create", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/changeset/create", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// sin limiter pasa siempre
	pass := WithRateLimit(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec = httptest.NewRecorder()
	pass.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWithSecurityHeaders(t *testing.T) {
	h := WithSecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestWithSession_LoginRotatesSID(t *testing.T) {
	cfg := newSessionConfig(t)
	ctx := context.Background()

	pre := session.New()
	pre.SetState("nonce")
	require.NoError(t, cfg.Store.Save(ctx, pre))
	v, err := cfg.Cookie.Encode(pre.ID)
	require.NoError(t, err)

	h := WithSession(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		sess.TakeState()
		sess.Bind(1, 2, "x", "tok", nil)
		http.Redirect(w, r, "/", http.StatusFound)
	}))
	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Cookie.Name, Value: v})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	sid, err := cfg.Cookie.Decode(cookies[0].Value)
	require.NoError(t, err)
	require.NotEqual(t, pre.ID, sid)

	_, err = cfg.Store.Get(ctx, pre.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
	got, err := cfg.Store.Get(ctx, sid)
	require.NoError(t, err)
	require.True(t, got.Authenticated())
}

func TestWithSession_DestroyDeletesAndExpires(t *testing.T) {
	cfg := newSessionConfig(t)
	ctx := context.Background()

	sess := session.New()
	sess.Bind(1, 2, "x", "tok", nil)
	require.NoError(t, cfg.Store.Save(ctx, sess))
	v, err := cfg.Cookie.Encode(sess.ID)
	require.NoError(t, err)

	h := WithSession(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session.FromContext(r.Context()).Destroy()
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Cookie.Name, Value: v})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, cfg.Cookie.Name, cookies[0].Name)
	require.Negative(t, cookies[0].MaxAge)

	_, err = cfg.Store.Get(ctx, sess.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
}
