package osm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://api.openstreetmap.org"
	DefaultUserAgent = "OSM-Lane-Editor/1.0"
	DefaultTimeout   = 30 * time.Second

	// maxBody limita lo que leemos de cualquier respuesta.
	maxBody = 8 << 20
)

// Nombres de operación usados en errores y métricas.
const (
	OpFetchWay       = "fetch_way"
	OpOpenChangeset  = "open_changeset"
	OpUpdateWay      = "update_way"
	OpCloseChangeset = "close_changeset"
	OpUserDetails    = "user_details"
)

// Recorder recibe el resultado de cada llamada remota (ok | not_found | error).
type Recorder interface {
	RemoteCall(op, result string)
}

// Config configura un Client. AccessToken y Timeout quedan fijos para toda su vida.
type Config struct {
	BaseURL     string
	AccessToken string
	UserAgent   string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Recorder    Recorder
}

// Client habla con el API 0.6 autenticado con un bearer token.
// Se construye uno por request; no hay estado compartido entre usuarios.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	timeout   time.Duration
	http      *http.Client
	rec       Recorder
}

// New crea un Client aplicando defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.AccessToken,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		http:      hc,
		rec:       cfg.Recorder,
	}
}

// FetchWay obtiene la versión actual de un way con sus nodos y tags.
func (c *Client) FetchWay(ctx context.Context, id int64) (*Way, error) {
	body, err := c.do(ctx, OpFetchWay, http.MethodGet, fmt.Sprintf("/api/0.6/way/%d", id), nil)
	if err != nil {
		return nil, err
	}
	way, err := DecodeWay(bytes.NewReader(body))
	if err != nil {
		return nil, &RemoteError{Op: OpFetchWay, Kind: ErrRemote, Err: err}
	}
	return way, nil
}

// OpenChangeset crea un changeset con comment, created_by y source.
// El API responde el id como texto plano.
func (c *Client) OpenChangeset(ctx context.Context, comment string) (int64, error) {
	var buf bytes.Buffer
	err := EncodeChangeset(&buf, map[string]string{
		"comment":    comment,
		"created_by": "OSM Lane Editor",
		"source":     "survey",
	})
	if err != nil {
		return 0, &RemoteError{Op: OpOpenChangeset, Kind: ErrRemote, Err: err}
	}
	body, err := c.do(ctx, OpOpenChangeset, http.MethodPut, "/api/0.6/changeset/create", &buf)
	if err != nil {
		return 0, err
	}
	return parseID(OpOpenChangeset, body)
}

// UpdateWay sube el way estampado con changesetID y su versión actual.
// Devuelve la nueva versión.
func (c *Client) UpdateWay(ctx context.Context, changesetID int64, way *Way) (int64, error) {
	payload, err := wayBytes(changesetID, way)
	if err != nil {
		return 0, &RemoteError{Op: OpUpdateWay, Kind: ErrRemote, Err: err}
	}
	body, err := c.do(ctx, OpUpdateWay, http.MethodPut, fmt.Sprintf("/api/0.6/way/%d", way.ID), bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	return parseID(OpUpdateWay, body)
}

// CloseChangeset cierra el changeset. El caller lo trata como best-effort:
// el API expira solo los changesets inactivos.
func (c *Client) CloseChangeset(ctx context.Context, changesetID int64) error {
	_, err := c.do(ctx, OpCloseChangeset, http.MethodPut, fmt.Sprintf("/api/0.6/changeset/%d/close", changesetID), nil)
	return err
}

// UserDetails devuelve el perfil del dueño del token.
func (c *Client) UserDetails(ctx context.Context) (*UserDetails, error) {
	body, err := c.do(ctx, OpUserDetails, http.MethodGet, "/api/0.6/user/details", nil)
	if err != nil {
		return nil, err
	}
	u, err := DecodeUserDetails(bytes.NewReader(body))
	if err != nil {
		return nil, &RemoteError{Op: OpUserDetails, Kind: ErrRemote, Err: err}
	}
	return u, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		c.record(op, "error")
		return nil, &RemoteError{Op: op, Kind: ErrRemote, Err: err}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "text/xml")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.record(op, "error")
		return nil, &RemoteError{Op: op, Kind: ErrRemote, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		c.record(op, "error")
		return nil, &RemoteError{Op: op, Status: resp.StatusCode, Kind: ErrRemote, Err: err}
	}

	if resp.StatusCode/100 != 2 {
		kind := ErrRemote
		result := "error"
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			kind = ErrNotFound
			result = "not_found"
		}
		c.record(op, result)
		return nil, &RemoteError{Op: op, Status: resp.StatusCode, Body: truncate(string(data), 256), Kind: kind}
	}

	c.record(op, "ok")
	return data, nil
}

func (c *Client) record(op, result string) {
	if c.rec != nil {
		c.rec.RemoteCall(op, result)
	}
}

func parseID(op string, body []byte) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, &RemoteError{Op: op, Kind: ErrRemote, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return id, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsNotFound reporta si err indica una entidad inexistente.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
