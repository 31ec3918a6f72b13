// Package auth contiene los controllers del login OAuth y la sesión.
package auth

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/laneeditor/internal/http/dto"
	"github.com/dropDatabas3/laneeditor/internal/http/helpers"
	svc "github.com/dropDatabas3/laneeditor/internal/http/services/auth"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
	"github.com/dropDatabas3/laneeditor/internal/session"
)

const loginPath = "/login"

// OAuthController maneja /, /login, /authorize-start, /callback y /logout.
type OAuthController struct {
	service svc.Service
}

func NewOAuthController(service svc.Service) *OAuthController {
	return &OAuthController{service: service}
}

func redirectLogin(w http.ResponseWriter, r *http.Request, message string) {
	target := loginPath
	if message != "" {
		target += "?message=" + url.QueryEscape(message)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// callbackMessage traduce los errores del flujo a un mensaje para el usuario.
func callbackMessage(err error) string {
	switch {
	case errors.Is(err, svc.ErrStateMismatch):
		return "Authorization failed: invalid state, please try again"
	case errors.Is(err, svc.ErrMissingCode):
		return "Authorization code was not received"
	case errors.Is(err, svc.ErrTokenExchange):
		return "Could not obtain an access token"
	case errors.Is(err, svc.ErrProfileFetch):
		return "Could not fetch your OpenStreetMap profile"
	case errors.Is(err, svc.ErrConfiguration):
		return "OAuth is not configured on this server"
	}
	return "Login failed, please try again"
}

// Index maneja GET /
func (c *OAuthController) Index(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	resp := dto.IndexResponse{Authenticated: sess.Authenticated()}
	if resp.Authenticated {
		resp.User = &dto.UserInfo{OSMID: sess.UserOSMID, DisplayName: sess.DisplayName}
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// Login maneja GET /login
func (c *OAuthController) Login(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{
		Message:  r.URL.Query().Get("message"),
		LoginURL: "/authorize-start",
	})
}

// AuthorizeStart maneja GET /authorize-start
func (c *OAuthController) AuthorizeStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authURL, err := c.service.BeginAuthorization(ctx, session.FromContext(ctx))
	if err != nil {
		logger.From(ctx).Error("authorization start failed",
			logger.Layer("controller"),
			logger.Op("OAuthController.AuthorizeStart"),
			logger.Err(err),
		)
		redirectLogin(w, r, callbackMessage(err))
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback maneja GET /callback?code=&state=&error=
func (c *OAuthController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	sess := session.FromContext(ctx)

	if e := q.Get("error"); e != "" {
		// el nonce se descarta igual
		sess.TakeState()
		msg := "Authorization error: " + e
		if d := q.Get("error_description"); d != "" {
			msg += " (" + d + ")"
		}
		redirectLogin(w, r, msg)
		return
	}

	if _, err := c.service.CompleteAuthorization(ctx, sess, q.Get("code"), q.Get("state")); err != nil {
		redirectLogin(w, r, callbackMessage(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout maneja GET /logout
func (c *OAuthController) Logout(w http.ResponseWriter, r *http.Request) {
	c.service.Logout(r.Context(), session.FromContext(r.Context()))
	redirectLogin(w, r, "")
}

