package locate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sunsetscout/sunsetscout/internal/grid"
	"github.com/sunsetscout/sunsetscout/internal/provider/resilience"
)

const (
	// TrailsName identifies the trail page fetcher in the health registry.
	TrailsName = "trailpages"

	// CrawlerUserAgent is sent when fetching trail pages. Trail sites serve
	// fully rendered HTML, including geo metadata, to search crawlers.
	CrawlerUserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

	maxPageSize = 4 << 20

	metaLatitude  = "place:location:latitude"
	metaLongitude = "place:location:longitude"

	displaySeparator = " - "
)

// TrailLocatorConfig holds configuration for the TrailLocator.
type TrailLocatorConfig struct {
	// HTTPClient fetches trail pages (optional).
	HTTPClient *resilience.Client

	// Geocoder resolves the URL slug when the page has no coordinates.
	Geocoder Geocoder

	// UserAgent overrides CrawlerUserAgent.
	UserAgent string

	Logger zerolog.Logger
}

// TrailLocator extracts a trail's coordinates and name from its web page.
type TrailLocator struct {
	httpClient *resilience.Client
	geocoder   Geocoder
	userAgent  string
	logger     zerolog.Logger
}

// NewTrailLocator creates a new trail page locator.
func NewTrailLocator(cfg TrailLocatorConfig) *TrailLocator {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpCfg := resilience.DefaultClientConfig(TrailsName)
		httpCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(httpCfg)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = CrawlerUserAgent
	}

	return &TrailLocator{
		httpClient: httpClient,
		geocoder:   cfg.Geocoder,
		userAgent:  userAgent,
		logger:     cfg.Logger,
	}
}

// Locate resolves a trail page link. Coordinates come from, in order: geo
// meta tags, JSON-LD geo data, or geocoding the trail name and region taken
// from a /trail/<country>/<region>/<name> path.
func (t *TrailLocator) Locate(ctx context.Context, pageURL string) (*Place, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	var info pageInfo
	doc, err := t.fetch(ctx, pageURL)
	if err != nil {
		t.logger.Warn().Err(err).Str("url", pageURL).Msg("failed to fetch trail page, trying url slug")
	} else {
		info = extractPageInfo(doc)
	}

	coord, display := info.coord, info.display

	if coord == nil && t.geocoder != nil {
		if query, ok := SlugQuery(u.Path); ok {
			place, err := t.geocoder.Geocode(ctx, query)
			if err != nil {
				t.logger.Debug().Err(err).Str("query", query).Msg("slug geocoding failed")
			} else {
				coord = &place.Coordinate
				if display == "" {
					display = place.Display
				}
			}
		}
	}

	if coord == nil {
		return nil, fmt.Errorf("locating %s: %w", pageURL, ErrNotFound)
	}

	if display == "" {
		display = slugTitle(u.Path)
	}

	return &Place{Coordinate: *coord, Display: display}, nil
}

func (t *TrailLocator) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return doc, nil
}

type pageInfo struct {
	coord   *grid.Coordinate
	display string
}

// extractPageInfo reads coordinates and a display name from a parsed page.
func extractPageInfo(doc *html.Node) pageInfo {
	var (
		metaLat, metaLng string
		ldBlocks         []string
		heading          string
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Meta:
				switch attr(n, "name") {
				case metaLatitude:
					metaLat = attr(n, "content")
				case metaLongitude:
					metaLng = attr(n, "content")
				}
			case atom.Script:
				if attr(n, "type") == "application/ld+json" && n.FirstChild != nil {
					ldBlocks = append(ldBlocks, n.FirstChild.Data)
				}
			case atom.H1:
				if heading == "" {
					heading = strings.Join(strings.Fields(textContent(n)), " ")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var info pageInfo

	if metaLat != "" && metaLng != "" {
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(metaLat), 64)
		lng, lngErr := strconv.ParseFloat(strings.TrimSpace(metaLng), 64)
		if latErr == nil && lngErr == nil {
			info.coord = &grid.Coordinate{Lat: lat, Lng: lng}
		}
	}

	items := decodeLinkedData(ldBlocks)

	if info.coord == nil {
		for _, item := range items {
			if c, ok := geoOf(item["geo"]); ok {
				info.coord = c
				break
			}
			if loc, ok := item["contentLocation"].(map[string]interface{}); ok {
				if c, ok := geoOf(loc["geo"]); ok {
					info.coord = c
					break
				}
			}
		}
	}

	for _, item := range items {
		name, _ := item["name"].(string)
		if name == "" {
			continue
		}
		info.display = name
		if addr, ok := item["address"].(map[string]interface{}); ok {
			if locality, _ := addr["addressLocality"].(string); locality != "" {
				info.display = name + displaySeparator + locality
			}
		}
		break
	}

	if info.display == "" {
		info.display = heading
	}

	return info
}

// decodeLinkedData flattens JSON-LD blocks into their top-level objects.
// Blocks that fail to decode are skipped.
func decodeLinkedData(blocks []string) []map[string]interface{} {
	var items []map[string]interface{}
	for _, block := range blocks {
		var v interface{}
		if err := json.Unmarshal([]byte(block), &v); err != nil {
			continue
		}
		switch ld := v.(type) {
		case map[string]interface{}:
			items = append(items, ld)
		case []interface{}:
			for _, e := range ld {
				if m, ok := e.(map[string]interface{}); ok {
					items = append(items, m)
				}
			}
		}
	}
	return items
}

func geoOf(v interface{}) (*grid.Coordinate, bool) {
	geo, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	lat, ok := toFloat(geo["latitude"])
	if !ok {
		return nil, false
	}
	lng, ok := toFloat(geo["longitude"])
	if !ok {
		return nil, false
	}
	return &grid.Coordinate{Lat: lat, Lng: lng}, true
}

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// SlugQuery builds a geocoding query from a /trail/<country>/<region>/<name>
// path, e.g. "royal arch trail, Colorado". Short region slugs are treated
// as abbreviations and upper-cased.
func SlugQuery(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 4 || parts[0] != "trail" {
		return "", false
	}

	name := strings.ReplaceAll(parts[len(parts)-1], "-", " ")
	region := parts[2]
	if len(region) <= 3 {
		region = strings.ToUpper(region)
	} else {
		region = titleCase(strings.ReplaceAll(region, "-", " "))
	}

	return name + ", " + region, true
}

func slugTitle(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	last := parts[len(parts)-1]
	return titleCase(strings.ReplaceAll(last, "-", " "))
}

// titleCase builds a fresh Caser per call; Casers are not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

var _ PageLocator = (*TrailLocator)(nil)
