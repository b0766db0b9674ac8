// Package geoip resolves client IP addresses to approximate locations.
// Lookups fail open: any resolver error yields a Brazil location so that a
// geolocation outage never blocks a login.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gestaoconhecimento/gc-auth/internal/metrics"
)

const (
	DefaultBaseURL   = "http://ip-api.com/json/"
	DefaultTimeout   = 3 * time.Second
	DefaultCacheTTL  = 24 * time.Hour
	DefaultCacheSize = 10000

	CountryCodeBrazil = "BR"

	lookupFields = "status,country,countryCode,region,city,lat,lon,isp"
)

// Location is the resolved position of an IP address
type Location struct {
	Status      string  `json:"status"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ISP         string  `json:"isp"`
}

// String formats the location as "city, region, country", skipping empty parts
func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.Region, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// IsBrazil reports whether the location is in Brazil
func (l Location) IsBrazil() bool {
	return l.CountryCode == CountryCodeBrazil
}

// localLocation is returned for loopback and private addresses
var localLocation = Location{
	Status:      "success",
	Country:     "Local",
	CountryCode: CountryCodeBrazil,
	City:        "Localhost",
}

// fallbackLocation is returned whenever a lookup fails
var fallbackLocation = Location{
	Status:      "fail",
	Country:     "Brazil",
	CountryCode: CountryCodeBrazil,
}

// Config holds resolver settings
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	CacheTTL  time.Duration
	CacheSize int
}

// Resolver looks up IP locations against an ip-api compatible HTTP endpoint
// and caches successful answers in memory.
type Resolver struct {
	client  *http.Client
	baseURL string
	cache   *expirable.LRU[string, Location]
	logger  *slog.Logger
}

// NewResolver creates a Resolver. Zero config values take the defaults.
func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	return &Resolver{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		cache:   expirable.NewLRU[string, Location](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:  logger,
	}
}

// Locate resolves ip. It never fails: private addresses resolve to a local
// Brazil location and lookup errors resolve to the Brazil fallback.
func (r *Resolver) Locate(ctx context.Context, ip string) Location {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		metrics.GeoIPLookupsTotal.WithLabelValues("fallback").Inc()
		return fallbackLocation
	}

	if isLocal(parsed) {
		metrics.GeoIPLookupsTotal.WithLabelValues("local").Inc()
		return localLocation
	}

	key := parsed.String()
	if loc, ok := r.cache.Get(key); ok {
		metrics.GeoIPLookupsTotal.WithLabelValues("cache_hit").Inc()
		return loc
	}

	loc, err := r.lookup(ctx, key)
	if err != nil {
		r.logger.Warn("geoip lookup failed, using fallback location",
			slog.String("ip_address", key),
			slog.Any("error", err))
		metrics.GeoIPLookupsTotal.WithLabelValues("fallback").Inc()
		return fallbackLocation
	}

	r.cache.Add(key, loc)
	metrics.GeoIPLookupsTotal.WithLabelValues("success").Inc()
	return loc
}

// IsFromBrazil reports whether ip resolves to Brazil. Fails open to true.
func (r *Resolver) IsFromBrazil(ctx context.Context, ip string) bool {
	return r.Locate(ctx, ip).IsBrazil()
}

func (r *Resolver) lookup(ctx context.Context, ip string) (Location, error) {
	start := time.Now()
	defer func() {
		metrics.GeoIPLookupDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	endpoint := r.baseURL + url.PathEscape(ip) + "?fields=" + lookupFields
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, fmt.Errorf("failed to build geoip request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geoip request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Location{}, fmt.Errorf("geoip api returned status %d", resp.StatusCode)
	}

	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return Location{}, fmt.Errorf("failed to decode geoip response: %w", err)
	}

	if loc.Status != "success" {
		return Location{}, fmt.Errorf("geoip lookup returned status %q", loc.Status)
	}

	return loc, nil
}

func isLocal(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}
