package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration indica credenciales o valores críticos faltantes. Es fatal al arrancar.
var ErrConfiguration = errors.New("configuration error")

const (
	DefaultAddr        = ":5600"
	DefaultRedirectURI = "http://127.0.0.1:5500/oauth/callback"
	DefaultAPIBase     = "https://api.openstreetmap.org"
	DefaultUserAgent   = "OSM-Lane-Editor/1.0"
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"
	DefaultDSN         = "osm_editor.db"
	DefaultCookieName  = "laneeditor_session"
)

type Config struct {
	App struct {
		// dev | prod
		Env       string `yaml:"env"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"app"`

	Server struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	OSM struct {
		ClientID     string        `yaml:"client_id"`
		ClientSecret string        `yaml:"client_secret"`
		RedirectURI  string        `yaml:"redirect_uri"`
		Scopes       []string      `yaml:"scopes"`
		APIBase      string        `yaml:"api_base"`
		AuthURL      string        `yaml:"auth_url"`
		TokenURL     string        `yaml:"token_url"`
		Timeout      time.Duration `yaml:"timeout"`
		UserAgent    string        `yaml:"user_agent"`
	} `yaml:"osm"`

	Overpass struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"overpass"`

	Storage struct {
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		MaxConns int    `yaml:"max_conns"`
	} `yaml:"storage"`

	Session struct {
		// memory | redis
		Driver     string        `yaml:"driver"`
		CookieName string        `yaml:"cookie_name"`
		TTL        time.Duration `yaml:"ttl"`
		Secure     bool          `yaml:"secure"`
	} `yaml:"session"`

	Redis struct {
		Addr   string `yaml:"addr"`
		DB     int    `yaml:"db"`
		Prefix string `yaml:"prefix"`
	} `yaml:"redis"`

	Rate struct {
		Enabled     bool          `yaml:"enabled"`
		MaxRequests int           `yaml:"max_requests"`
		Window      time.Duration `yaml:"window"`
	} `yaml:"rate"`

	Submit struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"submit"`
}

// Load lee el YAML (opcional: path vacío o inexistente arranca en blanco),
// pisa con variables de entorno y completa defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	c.ApplyEnv()
	c.Defaults()
	return &c, nil
}

// Defaults completa los valores no seteados.
func (c *Config) Defaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// debe cubrir submit.timeout
		c.Server.WriteTimeout = 3 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.OSM.RedirectURI == "" {
		c.OSM.RedirectURI = DefaultRedirectURI
	}
	if len(c.OSM.Scopes) == 0 {
		c.OSM.Scopes = []string{"read_prefs", "write_api"}
	}
	if c.OSM.APIBase == "" {
		c.OSM.APIBase = DefaultAPIBase
	}
	if c.OSM.Timeout == 0 {
		c.OSM.Timeout = 30 * time.Second
	}
	if c.OSM.UserAgent == "" {
		c.OSM.UserAgent = DefaultUserAgent
	}
	if c.Overpass.URL == "" {
		c.Overpass.URL = DefaultOverpassURL
	}
	if c.Overpass.Timeout == 0 {
		c.Overpass.Timeout = 30 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.DSN == "" && c.Storage.Driver == "sqlite" {
		c.Storage.DSN = DefaultDSN
	}
	if c.Session.Driver == "" {
		c.Session.Driver = "memory"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "laneeditor"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 10
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
	if c.Submit.Timeout == 0 {
		c.Submit.Timeout = 2 * time.Minute
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// getEnvList acepta separadores "," o espacios (OSM_SCOPES="read_prefs write_api").
func getEnvList(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	return strings.Fields(strings.ReplaceAll(s, ",", " ")), true
}

// ApplyEnv pisa los valores del YAML con variables de entorno.
func (c *Config) ApplyEnv() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SECRET_KEY"); ok {
		c.App.SecretKey = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvDur("SERVER_READ_TIMEOUT"); ok {
		c.Server.ReadTimeout = v
	}
	if v, ok := getEnvDur("SERVER_WRITE_TIMEOUT"); ok {
		c.Server.WriteTimeout = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// OSM
	if v, ok := getEnvStr("OSM_CLIENT_ID"); ok {
		c.OSM.ClientID = v
	}
	if v, ok := getEnvStr("OSM_CLIENT_SECRET"); ok {
		c.OSM.ClientSecret = v
	}
	if v, ok := getEnvStr("OSM_REDIRECT_URI"); ok {
		c.OSM.RedirectURI = v
	}
	if v, ok := getEnvList("OSM_SCOPES"); ok {
		c.OSM.Scopes = v
	}
	if v, ok := getEnvStr("OSM_API_BASE"); ok {
		c.OSM.APIBase = strings.TrimRight(v, "/")
	}
	if v, ok := getEnvStr("OSM_AUTH_URL"); ok {
		c.OSM.AuthURL = v
	}
	if v, ok := getEnvStr("OSM_TOKEN_URL"); ok {
		c.OSM.TokenURL = v
	}
	if v, ok := getEnvDur("OSM_TIMEOUT"); ok {
		c.OSM.Timeout = v
	}
	if v, ok := getEnvStr("OSM_USER_AGENT"); ok {
		c.OSM.UserAgent = v
	}

	// OVERPASS
	if v, ok := getEnvStr("OVERPASS_URL"); ok {
		c.Overpass.URL = v
	}
	if v, ok := getEnvDur("OVERPASS_TIMEOUT"); ok {
		c.Overpass.Timeout = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("STORAGE_MAX_CONNS"); ok {
		c.Storage.MaxConns = v
	}

	// SESSION / REDIS
	if v, ok := getEnvStr("SESSION_DRIVER"); ok {
		c.Session.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Session.CookieName = v
	}
	if v, ok := getEnvDur("SESSION_TTL"); ok {
		c.Session.TTL = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Redis.Prefix = v
	}

	// RATE / SUBMIT
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvDur("SUBMIT_TIMEOUT"); ok {
		c.Submit.Timeout = v
	}
}

// Validate exige credenciales OAuth y secreto de sesión, y drivers conocidos.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.OSM.ClientID) == "" {
		missing = append(missing, "OSM_CLIENT_ID")
	}
	if strings.TrimSpace(c.OSM.ClientSecret) == "" {
		missing = append(missing, "OSM_CLIENT_SECRET")
	}
	if strings.TrimSpace(c.App.SecretKey) == "" {
		missing = append(missing, "SECRET_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrConfiguration, c.Storage.Driver)
	}
	switch c.Session.Driver {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: session driver redis requires REDIS_ADDR", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown session driver %q", ErrConfiguration, c.Session.Driver)
	}
	return nil
}

// IsProd reporta si corre en modo producción.
func (c *Config) IsProd() bool { return c.App.Env == "prod" }
