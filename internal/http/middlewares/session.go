package middlewares

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/laneeditor/internal/http/errors"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
	"github.com/dropDatabas3/laneeditor/internal/session"
)

// SessionConfig agrupa store y codec del cookie.
type SessionConfig struct {
	Store  *session.Store
	Cookie *session.CookieCodec
}

// sessionWriter persiste la sesión justo antes de que salgan los headers.
type sessionWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (s *sessionWriter) flush() {
	if !s.committed {
		s.committed = true
		s.commit()
	}
}

func (s *sessionWriter) WriteHeader(code int) {
	s.flush()
	s.ResponseWriter.WriteHeader(code)
}

func (s *sessionWriter) Write(b []byte) (int, error) {
	s.flush()
	return s.ResponseWriter.Write(b)
}

// WithSession carga la sesión del cookie firmado (o crea una nueva) y la
// guarda si cambió. Un cookie inválido o una sesión vencida dan sesión nueva.
// Las sesiones nuevas vacías no se persisten. Una sesión rotada borra su
// entrada anterior; una destruida se borra y el cookie expira.
func WithSession(cfg SessionConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.From(ctx)

			var sess *session.Session
			fresh := false
			if sid, err := cfg.Cookie.Read(r); err == nil {
				if sess, err = cfg.Store.Get(ctx, sid); err != nil && !stderrors.Is(err, session.ErrNotFound) {
					log.Warn("session load failed", logger.Err(err))
				}
			}
			if sess == nil {
				sess = session.New()
				fresh = true
			}

			sw := &sessionWriter{ResponseWriter: w}
			sw.commit = func() {
				if sess.Destroyed() {
					cfg.Cookie.Expire(w)
					for _, id := range []string{sess.PreviousID(), sess.ID} {
						if id == "" {
							continue
						}
						if err := cfg.Store.Delete(ctx, id); err != nil {
							log.Warn("session delete failed", logger.Err(err))
						}
					}
					return
				}
				if !sess.Dirty() {
					return
				}
				if fresh && sess.OAuthState == "" && !sess.Authenticated() {
					return
				}
				if err := cfg.Store.Save(ctx, sess); err != nil {
					log.Error("session save failed", logger.Err(err))
					return
				}
				if err := cfg.Cookie.Write(w, sess.ID); err != nil {
					log.Error("session cookie failed", logger.Err(err))
				}
				// sid rotado: la entrada anterior deja de existir
				if prev := sess.PreviousID(); prev != "" && !fresh {
					if err := cfg.Store.Delete(ctx, prev); err != nil {
						log.Warn("session delete failed", logger.Err(err))
					}
				}
			}

			next.ServeHTTP(sw, r.WithContext(session.ToContext(ctx, sess)))
			sw.flush()
		})
	}
}

// RequireAuth corta con 401 si la sesión no tiene un token vigente.
func RequireAuth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			if !sess.Authenticated() {
				errors.WriteError(w, errors.ErrUnauthenticated)
				return
			}
			if sess.TokenExpiresAt != nil && !time.Now().Before(*sess.TokenExpiresAt) {
				errors.WriteError(w, errors.ErrUnauthenticated.WithDetail("access token expired"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
