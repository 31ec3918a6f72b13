// Package roads carga geometrías de calles para el mapa y ways puntuales.
package roads

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
	"github.com/dropDatabas3/laneeditor/internal/osm"
	"github.com/dropDatabas3/laneeditor/internal/overpass"
)

// ErrNotFound indica que ni Overpass ni el API conocen el way.
var ErrNotFound = errors.New("way not found")

// Loader es la fuente de geometrías (implementada por overpass.Client).
type Loader interface {
	WaysInBBox(ctx context.Context, b overpass.BBox) (*geojson.FeatureCollection, error)
	Way(ctx context.Context, id int64) (*osm.Way, error)
}

// WayFetcher es el fallback autenticado contra el API 0.6.
type WayFetcher interface {
	FetchWay(ctx context.Context, id int64) (*osm.Way, error)
}

// Deps contiene las dependencias del service roads.
type Deps struct {
	Loader  Loader
	Fetcher func(accessToken string) WayFetcher
}

type Service interface {
	InBBox(ctx context.Context, b overpass.BBox) (*geojson.FeatureCollection, error)
	// Way busca en Overpass y, si falla, en el API con el token del usuario.
	Way(ctx context.Context, accessToken string, id int64) (*osm.Way, error)
}

type roadsService struct {
	deps Deps
}

func NewService(deps Deps) Service {
	return &roadsService{deps: deps}
}

func (s *roadsService) InBBox(ctx context.Context, b overpass.BBox) (*geojson.FeatureCollection, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	fc, err := s.deps.Loader.WaysInBBox(ctx, b)
	if err != nil {
		logger.From(ctx).Warn("overpass bbox failed",
			logger.Layer("service"),
			logger.Component("roads"),
			logger.Op("InBBox"),
			logger.Err(err),
		)
		return nil, err
	}
	return fc, nil
}

func (s *roadsService) Way(ctx context.Context, accessToken string, id int64) (*osm.Way, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("roads"),
		logger.Op("Way"),
		logger.WayID(id),
	)

	w, err := s.deps.Loader.Way(ctx, id)
	if err == nil {
		return w, nil
	}
	log.Debug("overpass way lookup failed, falling back to api", logger.Err(err))

	if s.deps.Fetcher == nil || accessToken == "" {
		if errors.Is(err, overpass.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, err
	}
	w, err = s.deps.Fetcher(accessToken).FetchWay(ctx, id)
	if err != nil {
		if osm.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, err
	}
	return w, nil
}
