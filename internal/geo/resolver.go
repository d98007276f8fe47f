// Package geo turns pre-resolved request headers into the geography bundle
// stored on click events. Geography lookups happen upstream (for example at
// the CDN); this service only reads the result out of configured headers.
package geo

import (
	"net"
	"net/http"
	"strings"

	"shortlink/internal/config"
)

// Location is the resolved geography bundle for one request.
type Location struct {
	Country      *string
	City         *string
	CountryName  *string
	CountryID    *string
	ProvinceName *string
	ProvinceID   *string
	CityName     *string
	CityID       *string
}

// Resolver resolves a geography bundle from request headers.
type Resolver interface {
	Resolve(headers http.Header) Location
}

// HeaderResolver reads geography from environment-configured header names.
type HeaderResolver struct {
	cfg config.GeoHeaders

	fallbackIPHeaders []string
}

// NewHeaderResolver creates a resolver for the configured header names.
func NewHeaderResolver(cfg config.GeoHeaders) *HeaderResolver {
	var fallbacks []string
	for _, h := range strings.Split(cfg.IPFallbackHeaders, ",") {
		if h = strings.TrimSpace(h); h != "" {
			fallbacks = append(fallbacks, h)
		}
	}
	return &HeaderResolver{cfg: cfg, fallbackIPHeaders: fallbacks}
}

// Resolve reads the geography bundle out of the request headers.
func (r *HeaderResolver) Resolve(headers http.Header) Location {
	return Location{
		Country:      headerValue(headers, r.cfg.CountryHeader),
		City:         headerValue(headers, r.cfg.CityHeader),
		CountryName:  headerValue(headers, r.cfg.CountryNameHeader),
		CountryID:    headerValue(headers, r.cfg.CountryIDHeader),
		ProvinceName: headerValue(headers, r.cfg.ProvinceNameHeader),
		ProvinceID:   headerValue(headers, r.cfg.ProvinceIDHeader),
		CityName:     headerValue(headers, r.cfg.CityNameHeader),
		CityID:       headerValue(headers, r.cfg.CityIDHeader),
	}
}

// ClientIP extracts the client address: the primary header first, then the
// fallback list in order, preferring the first public address found. Comma
// lists (X-Forwarded-For chains) are walked left to right.
func (r *HeaderResolver) ClientIP(req *http.Request) string {
	headers := append([]string{r.cfg.IPHeader}, r.fallbackIPHeaders...)

	var firstCandidate string
	for _, header := range headers {
		for _, candidate := range strings.Split(req.Header.Get(header), ",") {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" {
				continue
			}
			ip := net.ParseIP(candidate)
			if ip == nil {
				continue
			}
			if firstCandidate == "" {
				firstCandidate = ip.String()
			}
			if !isPrivateIP(ip) {
				return ip.String()
			}
		}
	}

	if firstCandidate != "" {
		return firstCandidate
	}
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		return host
	}
	return req.RemoteAddr
}

func headerValue(headers http.Header, name string) *string {
	if name == "" {
		return nil
	}
	v := headers.Get(name)
	if v == "" {
		return nil
	}
	return &v
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
