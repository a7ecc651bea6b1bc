// Package locate turns free-text place names and trail page links into
// coordinates for a forecast lookup.
package locate

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/grid"
)

// ErrNotFound is returned when a query or page yields no usable coordinates.
var ErrNotFound = errors.New("location not found")

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("empty location query")

// Place is a resolved location.
type Place struct {
	Coordinate grid.Coordinate
	Display    string
}

// Geocoder resolves free text to a place.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Place, error)
}

// PageLocator resolves a web page link to a place.
type PageLocator interface {
	Locate(ctx context.Context, pageURL string) (*Place, error)
}

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	Geocoder Geocoder
	Pages    PageLocator
	Logger   zerolog.Logger
}

// Resolver dispatches a raw user input to the page locator for links and to
// the geocoder for everything else.
type Resolver struct {
	geocoder Geocoder
	pages    PageLocator
	logger   zerolog.Logger
}

// NewResolver creates a new resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{
		geocoder: cfg.Geocoder,
		pages:    cfg.Pages,
		logger:   cfg.Logger,
	}
}

// Resolve returns the place for raw, which is either an http(s) link or a
// place name.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*Place, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyQuery
	}

	if IsLink(raw) && r.pages != nil {
		r.logger.Debug().Str("url", raw).Msg("resolving location from page")
		return r.pages.Locate(ctx, raw)
	}

	r.logger.Debug().Str("query", raw).Msg("geocoding location")
	return r.geocoder.Geocode(ctx, raw)
}

// IsLink reports whether s looks like an http(s) URL.
func IsLink(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
