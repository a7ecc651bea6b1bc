package locate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsetscout/sunsetscout/internal/grid"
	"github.com/sunsetscout/sunsetscout/internal/locate"
)

func servePage(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, locate.CrawlerUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newLocator(geocoder locate.Geocoder) *locate.TrailLocator {
	return locate.NewTrailLocator(locate.TrailLocatorConfig{
		Geocoder: geocoder,
		Logger:   zerolog.Nop(),
	})
}

func TestTrailLocator_MetaTags(t *testing.T) {
	page := `<html><head>
<meta name="place:location:latitude" content="37.6180">
<meta name="place:location:longitude" content="-122.4930">
<script type="application/ld+json">{"@type": "Place", "name": "Mori Point Trail", "address": {"addressLocality": "Pacifica"}, "geo": {"latitude": 1, "longitude": 1}}</script>
</head><body><h1>Ignored heading</h1></body></html>`

	server := servePage(t, http.StatusOK, page)

	place, err := newLocator(nil).Locate(context.Background(), server.URL+"/trail/us/california/mori-point-trail")
	require.NoError(t, err)

	assert.Equal(t, grid.Coordinate{Lat: 37.6180, Lng: -122.4930}, place.Coordinate)
	assert.Equal(t, "Mori Point Trail - Pacifica", place.Display)
}

func TestTrailLocator_JSONLDGeo(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">[{"@type": "BreadcrumbList"}, {"@type": "Place", "name": "Windy Hill Loop", "geo": {"latitude": "37.3715", "longitude": "-122.2250"}}]</script>
</head><body></body></html>`

	server := servePage(t, http.StatusOK, page)

	place, err := newLocator(nil).Locate(context.Background(), server.URL+"/trail/us/california/windy-hill-loop")
	require.NoError(t, err)

	assert.Equal(t, grid.Coordinate{Lat: 37.3715, Lng: -122.2250}, place.Coordinate)
	assert.Equal(t, "Windy Hill Loop", place.Display)
}

func TestTrailLocator_ContentLocationAndHeading(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">not json</script>
<script type="application/ld+json">{"contentLocation": {"geo": {"latitude": 36.4906, "longitude": -121.1825}}}</script>
</head><body><h1>  High Peaks <span>Trail</span> </h1></body></html>`

	server := servePage(t, http.StatusOK, page)

	place, err := newLocator(nil).Locate(context.Background(), server.URL+"/trail/us/california/high-peaks")
	require.NoError(t, err)

	assert.Equal(t, grid.Coordinate{Lat: 36.4906, Lng: -121.1825}, place.Coordinate)
	assert.Equal(t, "High Peaks Trail", place.Display)
}

func TestTrailLocator_SlugFallback(t *testing.T) {
	server := servePage(t, http.StatusForbidden, "blocked")

	geocoder := &stubGeocoder{place: &locate.Place{
		Coordinate: grid.Coordinate{Lat: 39.99, Lng: -105.29},
		Display:    "Royal Arch Trail, Boulder County, Colorado",
	}}

	place, err := newLocator(geocoder).Locate(context.Background(), server.URL+"/trail/us/colorado/royal-arch-trail")
	require.NoError(t, err)

	assert.Equal(t, []string{"royal arch trail, Colorado"}, geocoder.queries)
	assert.Equal(t, grid.Coordinate{Lat: 39.99, Lng: -105.29}, place.Coordinate)
	assert.Equal(t, "Royal Arch Trail, Boulder County, Colorado", place.Display)
}

func TestTrailLocator_SlugFallbackKeepsPageName(t *testing.T) {
	page := `<html><body><h1>Royal Arch</h1></body></html>`
	server := servePage(t, http.StatusOK, page)

	geocoder := &stubGeocoder{place: &locate.Place{
		Coordinate: grid.Coordinate{Lat: 39.99, Lng: -105.29},
		Display:    "from geocoder",
	}}

	place, err := newLocator(geocoder).Locate(context.Background(), server.URL+"/trail/us/co/royal-arch-trail")
	require.NoError(t, err)

	assert.Equal(t, []string{"royal arch trail, CO"}, geocoder.queries)
	assert.Equal(t, "Royal Arch", place.Display)
}

func TestTrailLocator_NotFound(t *testing.T) {
	server := servePage(t, http.StatusOK, `<html><body><p>nothing here</p></body></html>`)

	geocoder := &stubGeocoder{err: locate.ErrNotFound}

	_, err := newLocator(geocoder).Locate(context.Background(), server.URL+"/trail/us/california/ghost-trail")
	assert.ErrorIs(t, err, locate.ErrNotFound)

	_, err = newLocator(geocoder).Locate(context.Background(), server.URL+"/explore/somewhere")
	assert.ErrorIs(t, err, locate.ErrNotFound)
}

func TestSlugQuery(t *testing.T) {
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{path: "/trail/us/colorado/royal-arch-trail", want: "royal arch trail, Colorado", wantOK: true},
		{path: "/trail/us/new-mexico/la-luz-trail/", want: "la luz trail, New Mexico", wantOK: true},
		{path: "/trail/us/ca/mission-peak", want: "mission peak, CA", wantOK: true},
		{path: "/trail/us/california", wantOK: false},
		{path: "/parks/us/california/big-basin", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := locate.SlugQuery(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
