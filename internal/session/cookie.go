package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName es el nombre del cookie de sesión.
const DefaultCookieName = "laneeditor_session"

const cookieIssuer = "laneeditor"

// ErrInvalidCookie indica un cookie con firma inválida, expirado o sin sid.
var ErrInvalidCookie = errors.New("session: invalid cookie")

// CookieCodec firma y verifica el id de sesión.
type CookieCodec struct {
	Name   string
	Secure bool
	TTL    time.Duration

	secret []byte
	now    func() time.Time
}

// NewCookieCodec crea un codec HS256 con el SECRET_KEY de la app.
func NewCookieCodec(secret, name string, secure bool, ttl time.Duration) (*CookieCodec, error) {
	if secret == "" {
		return nil, errors.New("session: empty cookie secret")
	}
	if name == "" {
		name = DefaultCookieName
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CookieCodec{Name: name, Secure: secure, TTL: ttl, secret: []byte(secret), now: time.Now}, nil
}

type sidClaims struct {
	SID string `json:"sid"`
	jwtv5.RegisteredClaims
}

// Encode firma el sid.
func (c *CookieCodec) Encode(sid string) (string, error) {
	now := c.now().UTC()
	claims := sidClaims{
		SID: sid,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    cookieIssuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(c.TTL)),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tk.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign cookie: %w", err)
	}
	return signed, nil
}

// Decode verifica la firma y devuelve el sid.
func (c *CookieCodec) Decode(value string) (string, error) {
	var claims sidClaims
	_, err := jwtv5.ParseWithClaims(value, &claims, func(*jwtv5.Token) (any, error) {
		return c.secret, nil
	},
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(cookieIssuer),
		jwtv5.WithTimeFunc(c.now),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	if claims.SID == "" {
		return "", fmt.Errorf("%w: missing sid", ErrInvalidCookie)
	}
	return claims.SID, nil
}

// Read extrae el sid del request.
func (c *CookieCodec) Read(r *http.Request) (string, error) {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return "", ErrInvalidCookie
	}
	return c.Decode(ck.Value)
}

// Write setea el cookie de sesión.
func (c *CookieCodec) Write(w http.ResponseWriter, sid string) error {
	v, err := c.Encode(sid)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    v,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Expire borra el cookie en el navegador.
func (c *CookieCodec) Expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
