// Package server arma el handler HTTP con todas sus dependencias.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/laneeditor/internal/cache"
	"github.com/dropDatabas3/laneeditor/internal/config"
	authctrl "github.com/dropDatabas3/laneeditor/internal/http/controllers/auth"
	csctrl "github.com/dropDatabas3/laneeditor/internal/http/controllers/changeset"
	"github.com/dropDatabas3/laneeditor/internal/http/controllers/health"
	historyctrl "github.com/dropDatabas3/laneeditor/internal/http/controllers/history"
	roadsctrl "github.com/dropDatabas3/laneeditor/internal/http/controllers/roads"
	mw "github.com/dropDatabas3/laneeditor/internal/http/middlewares"
	"github.com/dropDatabas3/laneeditor/internal/http/router"
	"github.com/dropDatabas3/laneeditor/internal/http/services"
	"github.com/dropDatabas3/laneeditor/internal/http/services/changeset"
	"github.com/dropDatabas3/laneeditor/internal/http/services/roads"
	"github.com/dropDatabas3/laneeditor/internal/metrics"
	oauthosm "github.com/dropDatabas3/laneeditor/internal/oauth/osm"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
	"github.com/dropDatabas3/laneeditor/internal/osm"
	"github.com/dropDatabas3/laneeditor/internal/overpass"
	"github.com/dropDatabas3/laneeditor/internal/rate"
	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
	"github.com/dropDatabas3/laneeditor/internal/session"
	"github.com/dropDatabas3/laneeditor/internal/store"
	_ "github.com/dropDatabas3/laneeditor/internal/store/all"
)

// Deps permite inyectar piezas ya construidas (tests). Los campos nil se
// arman desde la config.
type Deps struct {
	Store   *store.Store
	Cache   cache.Client
	Metrics *metrics.Metrics
	// Clients reemplaza la fábrica de clientes OSM.
	Clients changeset.ClientFactory
	OAuth   *oauthosm.OAuth
	Roads   roads.Loader
}

// App es el resultado del wiring.
type App struct {
	Handler http.Handler
	Store   *store.Store
	closers []func() error
}

// Close libera store y conexiones en orden inverso.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build construye el handler. No aplica migraciones: eso lo hace el CLI.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	log := logger.L().With(logger.Layer("server"), logger.Op("Build"))
	app := &App{}
	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}

	box, err := secretbox.FromSecret(cfg.App.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}

	// 1. Store
	st := deps.Store
	if st == nil {
		st, err = store.Open(ctx, store.Config{
			Driver:   cfg.Storage.Driver,
			DSN:      cfg.Storage.DSN,
			MaxConns: cfg.Storage.MaxConns,
			Box:      box,
		})
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, st.Close)
	}
	app.Store = st

	// 2. Redis compartido (sesiones y rate limit)
	var rdb *redis.Client
	if cfg.Session.Driver == "redis" || (cfg.Rate.Enabled && cfg.Redis.Addr != "") {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		app.closers = append(app.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("redis ping: %w", err))
		}
	}

	// 3. Sesiones
	cc := deps.Cache
	if cc == nil {
		cc, err = cache.New(cache.Config{Driver: cfg.Session.Driver, Prefix: cfg.Redis.Prefix, Redis: rdb})
		if err != nil {
			return fail(err)
		}
		app.closers = append(app.closers, cc.Close)
	}
	cookie, err := session.NewCookieCodec(cfg.App.SecretKey, cfg.Session.CookieName, cfg.Session.Secure || cfg.IsProd(), cfg.Session.TTL)
	if err != nil {
		return fail(err)
	}
	sessCfg := mw.SessionConfig{Store: session.NewStore(cc, box, cfg.Session.TTL), Cookie: cookie}

	// 4. Métricas
	m := deps.Metrics
	if m == nil {
		if m, err = metrics.Default(); err != nil {
			return fail(err)
		}
	}

	// 5. Clientes remotos
	newOSM := func(token string) *osm.Client {
		return osm.New(osm.Config{
			BaseURL:     cfg.OSM.APIBase,
			AccessToken: token,
			UserAgent:   cfg.OSM.UserAgent,
			Timeout:     cfg.OSM.Timeout,
			Recorder:    m,
		})
	}
	clients := deps.Clients
	if clients == nil {
		clients = func(token string) changeset.EntityClient { return newOSM(token) }
	}
	oauth := deps.OAuth
	if oauth == nil {
		oauth = oauthosm.New(oauthosm.Config{
			ClientID:     cfg.OSM.ClientID,
			ClientSecret: cfg.OSM.ClientSecret,
			RedirectURL:  cfg.OSM.RedirectURI,
			Scopes:       cfg.OSM.Scopes,
			AuthURL:      cfg.OSM.AuthURL,
			TokenURL:     cfg.OSM.TokenURL,
			Timeout:      cfg.OSM.Timeout,
		})
	}
	var loader roads.Loader = deps.Roads
	if loader == nil {
		loader = overpass.New(overpass.Config{URL: cfg.Overpass.URL, UserAgent: cfg.OSM.UserAgent, Timeout: cfg.Overpass.Timeout})
	}

	// 6. Rate limit del envío
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if rdb != nil {
			limiter = rate.NewRedisLimiter(rdb, cfg.Redis.Prefix+":rl:", cfg.Rate.MaxRequests, cfg.Rate.Window)
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.Rate.Window)
		}
	}

	// 7. Services + controllers
	svcs := services.New(services.Deps{
		OAuth: oauth,
		Profile: func(ctx context.Context, token string) (*osm.UserDetails, error) {
			return newOSM(token).UserDetails(ctx)
		},
		Users:   st.Users(),
		Ledger:  st.Ledger(),
		Clients: clients,
		Roads:   loader,
		Fetcher: func(token string) roads.WayFetcher { return newOSM(token) },
		Metrics: m,

		SubmitTimeout: cfg.Submit.Timeout,
	})

	checks := map[string]health.Pinger{"store": st, "sessions": cc}
	app.Handler = router.New(router.Deps{
		Health:        health.NewHealthController(checks),
		Auth:          authctrl.NewOAuthController(svcs.Auth),
		Changeset:     csctrl.NewChangesetController(svcs.Changeset),
		History:       historyctrl.NewHistoryController(svcs.History),
		Roads:         roadsctrl.NewRoadsController(svcs.Roads),
		Session:       sessCfg,
		Metrics:       m,
		SubmitLimiter: limiter,
	})

	log.Info("http handler built",
		logger.String("storage_driver", st.Driver()),
		logger.String("session_driver", cfg.Session.Driver),
		logger.Bool("rate_limit", limiter != nil),
	)
	return app, nil
}
