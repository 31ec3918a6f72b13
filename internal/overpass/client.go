// Package overpass carga geometrías de calles desde la Overpass API y las
// devuelve como GeoJSON (paulmach/orb) para el mapa.
package overpass

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/dropDatabas3/laneeditor/internal/osm"
)

const (
	DefaultURL     = "https://overpass-api.de/api/interpreter"
	DefaultTimeout = 30 * time.Second

	maxBody = 32 << 20
)

// ErrNotFound indica que Overpass no devolvió el way pedido.
var ErrNotFound = errors.New("overpass: way not found")

// ErrRemote indica un fallo de la Overpass API.
var ErrRemote = errors.New("overpass: remote error")

// excludedHighways no se editan en carriles.
var excludedHighways = map[string]bool{
	"footway":  true,
	"path":     true,
	"steps":    true,
	"cycleway": true,
}

// Config configura el Client.
type Config struct {
	URL        string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client consulta la Overpass API. Es seguro para uso concurrente.
type Client struct {
	url       string
	userAgent string
	http      *http.Client
}

// New crea un Client aplicando defaults.
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = osm.DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{url: cfg.URL, userAgent: cfg.UserAgent, http: hc}
}

// BBoxQuery arma la consulta de ways con highway dentro del bbox.
func BBoxQuery(b BBox) string {
	return fmt.Sprintf("[out:json][timeout:25];\n(\n  way[\"highway\"]%s;\n);\nout geom;", b.String())
}

// WayQuery arma la consulta de un way puntual.
func WayQuery(id int64) string {
	return fmt.Sprintf("[out:xml][timeout:25];\nway(%d);\nout;", id)
}

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geometry"`
}

// WaysInBBox devuelve un FeatureCollection de LineStrings. Se descartan los
// highway peatonales/ciclovías y las geometrías con menos de 2 puntos.
func (c *Client) WaysInBBox(ctx context.Context, b BBox) (*geojson.FeatureCollection, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	body, err := c.post(ctx, BBoxQuery(b))
	if err != nil {
		return nil, err
	}
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrRemote, err)
	}

	fc := geojson.NewFeatureCollection()
	for _, el := range resp.Elements {
		if el.Type != "way" || len(el.Geometry) < 2 {
			continue
		}
		if excludedHighways[el.Tags["highway"]] {
			continue
		}
		ls := make(orb.LineString, 0, len(el.Geometry))
		for _, p := range el.Geometry {
			ls = append(ls, orb.Point{p.Lon, p.Lat})
		}
		f := geojson.NewFeature(ls)
		f.ID = el.ID
		f.Properties["id"] = el.ID
		f.Properties["type"] = "way"
		tags := el.Tags
		if tags == nil {
			tags = map[string]string{}
		}
		f.Properties["tags"] = tags
		fc.Append(f)
	}
	return fc, nil
}

// Way trae un way por id. La versión por defecto es 1 si Overpass no la informa.
func (c *Client) Way(ctx context.Context, id int64) (*osm.Way, error) {
	body, err := c.post(ctx, WayQuery(id))
	if err != nil {
		return nil, err
	}
	w, err := osm.DecodeWay(bytes.NewReader(body))
	if err != nil {
		if errors.Is(err, osm.ErrMalformed) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, err
	}
	if w.Version == 0 {
		w.Version = 1
	}
	return w, nil
}

func (c *Client) post(ctx context.Context, query string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrRemote, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	}
	return data, nil
}
