package geo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink/internal/config"
)

func testConfig() config.GeoHeaders {
	return config.GeoHeaders{
		IPHeader:           "cf-connecting-ip",
		IPFallbackHeaders:  "x-forwarded-for, x-real-ip",
		CountryHeader:      "cf-ipcountry",
		CountryNameHeader:  "country_name",
		CountryIDHeader:    "country_id",
		ProvinceNameHeader: "province_name",
		ProvinceIDHeader:   "province_id",
		CityNameHeader:     "city_name",
		CityIDHeader:       "city_id",
	}
}

func TestResolve(t *testing.T) {
	r := NewHeaderResolver(testConfig())

	headers := http.Header{}
	headers.Set("cf-ipcountry", "DE")
	headers.Set("country_name", "Germany")
	headers.Set("city_name", "Berlin")

	loc := r.Resolve(headers)
	require.NotNil(t, loc.Country)
	assert.Equal(t, "DE", *loc.Country)
	require.NotNil(t, loc.CountryName)
	assert.Equal(t, "Germany", *loc.CountryName)
	require.NotNil(t, loc.CityName)
	assert.Equal(t, "Berlin", *loc.CityName)

	// Absent headers stay nil; the city header name is not even configured.
	assert.Nil(t, loc.City)
	assert.Nil(t, loc.ProvinceName)
}

func TestClientIP(t *testing.T) {
	r := NewHeaderResolver(testConfig())

	newReq := func(headers map[string]string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
		req.RemoteAddr = "192.0.2.50:4321"
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req
	}

	t.Run("primary header wins", func(t *testing.T) {
		req := newReq(map[string]string{
			"cf-connecting-ip": "203.0.113.7",
			"x-forwarded-for":  "198.51.100.1",
		})
		assert.Equal(t, "203.0.113.7", r.ClientIP(req))
	})

	t.Run("falls through to forwarded chain", func(t *testing.T) {
		req := newReq(map[string]string{"x-forwarded-for": "198.51.100.1, 10.0.0.1"})
		assert.Equal(t, "198.51.100.1", r.ClientIP(req))
	})

	t.Run("skips private addresses in the chain", func(t *testing.T) {
		req := newReq(map[string]string{"x-forwarded-for": "10.0.0.1, 198.51.100.1"})
		assert.Equal(t, "198.51.100.1", r.ClientIP(req))
	})

	t.Run("all private falls back to first candidate", func(t *testing.T) {
		req := newReq(map[string]string{"x-forwarded-for": "10.0.0.1, 172.16.0.1"})
		assert.Equal(t, "10.0.0.1", r.ClientIP(req))
	})

	t.Run("no headers uses remote addr", func(t *testing.T) {
		req := newReq(nil)
		assert.Equal(t, "192.0.2.50", r.ClientIP(req))
	})

	t.Run("garbage header values ignored", func(t *testing.T) {
		req := newReq(map[string]string{"cf-connecting-ip": "not-an-ip"})
		assert.Equal(t, "192.0.2.50", r.ClientIP(req))
	})
}
