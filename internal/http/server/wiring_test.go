package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/laneeditor/internal/config"
	"github.com/dropDatabas3/laneeditor/internal/http/dto"
	"github.com/dropDatabas3/laneeditor/internal/metrics"
	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
	"github.com/dropDatabas3/laneeditor/internal/store"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.App.SecretKey = "server-test-secret"
	cfg.OSM.ClientID = "client"
	cfg.OSM.ClientSecret = "secret"
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Defaults()

	box, err := secretbox.FromSecret(cfg.App.SecretKey)
	require.NoError(t, err)
	st, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:", Box: box})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	_, err = st.Migrate(ctx)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, reg)
	require.NoError(t, err)

	app, err := Build(ctx, cfg, Deps{Store: st, Metrics: m})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

type browser struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
}

func (b *browser) do(method, path, body string) *httptest.ResponseRecorder {
	b.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		b.cookies = set
	}
	return rec
}

func (b *browser) authorize() string {
	b.t.Helper()
	rec := b.do(http.MethodGet, "/authorize-start", "")
	require.Equal(b.t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(b.t, err)
	require.NotEmpty(b.t, b.cookies)
	return loc.Query().Get("state")
}

func TestBuild_InfraRoutes(t *testing.T) {
	app := newTestApp(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestBuild_APIRequiresSession(t *testing.T) {
	app := newTestApp(t, nil)

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
}

func TestBuild_AuthorizeThenForgedState(t *testing.T) {
	app := newTestApp(t, nil)
	b := &browser{t: t, h: app.Handler}

	state := b.authorize()
	require.NotEmpty(t, state)

	rec := b.do(http.MethodGet, "/callback?code=abc&state=forged", "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login?message="))
}

func TestBuild_CallbackProviderErrorDropsState(t *testing.T) {
	exchanges := 0
	osmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer osmSrv.Close()

	app := newTestApp(t, func(c *config.Config) {
		c.OSM.TokenURL = osmSrv.URL + "/oauth2/token"
		c.OSM.APIBase = osmSrv.URL
	})
	b := &browser{t: t, h: app.Handler}
	state := b.authorize()

	rec := b.do(http.MethodGet, "/callback?error=access_denied&error_description=denied", "")
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/login", loc.Path)
	require.Contains(t, loc.Query().Get("message"), "access_denied")

	// el nonce ya no sirve aunque sea el correcto
	rec = b.do(http.MethodGet, "/callback?code=abc&state="+url.QueryEscape(state), "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login?message="))
	require.Zero(t, exchanges)
}

// fakeOSM atiende token, perfil y el API de ways. El way 2 no existe.
func fakeOSM(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "good-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"user-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("GET /api/0.6/user/details", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `<osm><user id="42" display_name="mapper" account_created="2020-01-01T00:00:00Z"/></osm>`)
	})
	mux.HandleFunc("GET /api/0.6/way/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `<osm><way id="`+id+`" version="3"><nd ref="10"/><nd ref="11"/><tag k="highway" v="primary"/></way></osm>`)
	})
	mux.HandleFunc("PUT /api/0.6/changeset/create", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "900")
	})
	mux.HandleFunc("PUT /api/0.6/way/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "4")
	})
	mux.HandleFunc("PUT /api/0.6/changeset/{id}/close", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBuild_LoginSubmitHistoryLogout(t *testing.T) {
	osmSrv := fakeOSM(t)
	app := newTestApp(t, func(c *config.Config) {
		c.OSM.TokenURL = osmSrv.URL + "/oauth2/token"
		c.OSM.APIBase = osmSrv.URL
	})
	b := &browser{t: t, h: app.Handler}

	state := b.authorize()
	preLogin := b.cookies

	rec := b.do(http.MethodGet, "/callback?code=good-code&state="+url.QueryEscape(state), "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
	require.NotEqual(t, preLogin[0].Value, b.cookies[0].Value)

	// el cookie previo al login no quedó autenticado
	old := &browser{t: t, h: app.Handler, cookies: preLogin}
	require.Equal(t, http.StatusUnauthorized, old.do(http.MethodGet, "/api/history", "").Code)

	rec = b.do(http.MethodPost, "/api/changeset/create",
		`{"comment":"lanes","changes":[{"way_id":1,"new_tags":{"lanes":"2"}},{"way_id":2,"new_tags":{"lanes":"2"}},{"way_id":3,"new_tags":{"lanes":"4"}}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created dto.CreateChangesetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.Success)
	require.Equal(t, int64(900), created.ChangesetID)
	require.Equal(t, 2, created.TotalUpdated)
	require.Len(t, created.UpdatedWays, 2)
	require.Len(t, created.Outcomes, 3)
	require.Equal(t, "skipped", created.Outcomes[1].Status)
	require.Equal(t, "not_found", created.Outcomes[1].Reason)
	require.Equal(t, map[string]string{"highway": "primary", "lanes": "4"}, created.UpdatedWays[1].NewTags)

	rec = b.do(http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist dto.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.Changesets, 1)
	require.Equal(t, 3, hist.Changesets[0].ChangesCount)
	require.Equal(t, "sent", hist.Changesets[0].Status)

	loggedIn := b.cookies
	rec = b.do(http.MethodGet, "/logout", "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Negative(t, rec.Result().Cookies()[0].MaxAge)

	// reusar el cookie ya deslogueado no autentica
	replay := &browser{t: t, h: app.Handler, cookies: loggedIn}
	require.Equal(t, http.StatusUnauthorized, replay.do(http.MethodGet, "/api/history", "").Code)
}
