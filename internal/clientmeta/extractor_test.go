package clientmeta

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrtrack/entity"
)

const (
	uaChromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaFirefoxLinux  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	uaIPhone        = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaIPad          = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaAndroidPhone  = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	uaGooglebot     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

type fakeGeo struct {
	loc   entity.Location
	delay time.Duration
	calls atomic.Int32
	last  atomic.Value
}

func (f *fakeGeo) Lookup(ip string) entity.Location {
	f.calls.Add(1)
	f.last.Store(ip)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.loc
}

type panicGeo struct{}

func (panicGeo) Lookup(string) entity.Location { panic("corrupt database") }

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"forwarded first entry", Request{ForwardedFor: "203.0.113.7, 10.0.0.1", RealIP: "198.51.100.1", RemoteAddr: "10.0.0.2:5555"}, "203.0.113.7"},
		{"forwarded single", Request{ForwardedFor: " 203.0.113.8 "}, "203.0.113.8"},
		{"real ip", Request{RealIP: "198.51.100.1", RemoteAddr: "10.0.0.2:5555"}, "198.51.100.1"},
		{"remote with port", Request{RemoteAddr: "192.0.2.10:40000"}, "192.0.2.10"},
		{"mapped ipv6 forwarded", Request{ForwardedFor: "::ffff:203.0.113.9"}, "203.0.113.9"},
		{"mapped ipv6 remote", Request{RemoteAddr: "[::ffff:192.0.2.11]:443"}, "192.0.2.11"},
		{"ipv6 remote", Request{RemoteAddr: "[2001:db8::1]:443"}, "2001:db8::1"},
		{"nothing", Request{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientIP(tt.req))
		})
	}
}

func TestParseUserAgent(t *testing.T) {
	t.Run("chrome desktop", func(t *testing.T) {
		b, os, d := ParseUserAgent(uaChromeWindows)
		assert.Equal(t, "Chrome", b.Name)
		assert.Equal(t, "120.0.0.0", b.Version)
		assert.Contains(t, os.Name, "Windows")
		assert.Equal(t, entity.DeviceDesktop, d.Type)
		assert.Empty(t, d.Vendor)
	})
	t.Run("firefox desktop", func(t *testing.T) {
		b, _, d := ParseUserAgent(uaFirefoxLinux)
		assert.Equal(t, "Firefox", b.Name)
		assert.Equal(t, entity.DeviceDesktop, d.Type)
	})
	t.Run("iphone", func(t *testing.T) {
		_, _, d := ParseUserAgent(uaIPhone)
		assert.Equal(t, entity.DeviceMobile, d.Type)
		assert.Equal(t, "Apple", d.Vendor)
		assert.Equal(t, "iPhone", d.Model)
	})
	t.Run("ipad", func(t *testing.T) {
		_, _, d := ParseUserAgent(uaIPad)
		assert.Equal(t, entity.DeviceTablet, d.Type)
		assert.Equal(t, "Apple", d.Vendor)
	})
	t.Run("android phone", func(t *testing.T) {
		_, _, d := ParseUserAgent(uaAndroidPhone)
		assert.Equal(t, entity.DeviceMobile, d.Type)
		assert.Equal(t, "Pixel 7", d.Model)
	})
	t.Run("crawler", func(t *testing.T) {
		_, _, d := ParseUserAgent(uaGooglebot)
		assert.Equal(t, entity.DeviceBot, d.Type)
	})
	t.Run("empty defaults to desktop", func(t *testing.T) {
		_, _, d := ParseUserAgent("")
		assert.Equal(t, entity.DeviceDesktop, d.Type)
	})
}

func TestParseUserAgent_Deterministic(t *testing.T) {
	for _, ua := range []string{uaChromeWindows, uaFirefoxLinux, uaIPhone, uaIPad, uaAndroidPhone, uaGooglebot, "", "curl/8.4.0"} {
		b1, o1, d1 := ParseUserAgent(ua)
		b2, o2, d2 := ParseUserAgent(ua)
		assert.Equal(t, b1, b2, ua)
		assert.Equal(t, o1, o2, ua)
		assert.Equal(t, d1, d2, ua)
	}
}

func TestExtract(t *testing.T) {
	geo := &fakeGeo{loc: entity.Location{Country: "Germany", CountryCode: "DE", City: "Berlin"}}
	e := New(geo, 100*time.Millisecond)

	r := httptest.NewRequest("GET", "/r/abc", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("User-Agent", uaChromeWindows)
	r.Header.Set("X-Forwarded-For", "::ffff:203.0.113.5, 10.0.0.1")
	r.Header.Set("Referer", "https://news.example.org/")

	meta := e.Extract(context.Background(), FromHTTP(r))
	require.NotNil(t, meta)
	assert.Equal(t, "203.0.113.5", meta.IP)
	assert.Equal(t, "203.0.113.5", geo.last.Load())
	assert.Equal(t, "Berlin", meta.Location.City)
	assert.Equal(t, "Chrome", meta.Browser.Name)
	assert.Equal(t, uaChromeWindows, meta.UserAgent)
	assert.Equal(t, "https://news.example.org/", meta.Referrer)
	assert.EqualValues(t, 1, geo.calls.Load())
}

func TestExtract_ReferrerFallbackHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/r/abc", nil)
	r.Header.Set("Referrer", "https://alt.example.org/")
	assert.Equal(t, "https://alt.example.org/", FromHTTP(r).Referrer)
}

func TestExtract_SlowGeoDegrades(t *testing.T) {
	geo := &fakeGeo{loc: entity.Location{City: "Late"}, delay: 500 * time.Millisecond}
	e := New(geo, 10*time.Millisecond)

	start := time.Now()
	meta := e.Extract(context.Background(), Request{RemoteAddr: "203.0.113.1:80"})
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.True(t, meta.Location.IsEmpty())
}

func TestExtract_GeoPanicDegrades(t *testing.T) {
	e := New(panicGeo{}, 50*time.Millisecond)
	meta := e.Extract(context.Background(), Request{RemoteAddr: "203.0.113.1:80"})
	assert.True(t, meta.Location.IsEmpty())
}

func TestExtract_NoGeo(t *testing.T) {
	e := New(nil, 0)
	meta := e.Extract(context.Background(), Request{RemoteAddr: "203.0.113.1:80", UserAgent: uaIPhone})
	assert.True(t, meta.Location.IsEmpty())
	assert.Equal(t, entity.DeviceMobile, meta.Device.Type)
}

func TestClientIP_Garbage(t *testing.T) {
	assert.Equal(t, "", ClientIP(Request{ForwardedFor: "unknown", RemoteAddr: "192.0.2.1:80"}))
	assert.Equal(t, "", ClientIP(Request{RemoteAddr: "pipe"}))
}

func TestExtract_OversizedHeadersTruncated(t *testing.T) {
	e := New(nil, 0)
	meta := e.Extract(context.Background(), Request{
		RemoteAddr: "203.0.113.1:80",
		UserAgent:  uaChromeWindows + strings.Repeat("x", 3000),
		Referrer:   "https://ref.example/" + strings.Repeat("é", 3000),
	})
	assert.Len(t, []rune(meta.UserAgent), MaxHeaderLength)
	assert.Len(t, []rune(meta.Referrer), MaxHeaderLength)
	assert.True(t, strings.HasPrefix(meta.UserAgent, uaChromeWindows))
}

func TestPeerIP(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		trusted int
		want    string
	}{
		{"peer only", Request{RemoteAddr: "198.51.100.7:5000"}, 0, "198.51.100.7"},
		{"forwarded ignored without proxies", Request{RemoteAddr: "198.51.100.7:5000", ForwardedFor: "10.0.0.1"}, 0, "198.51.100.7"},
		{"real ip ignored", Request{RemoteAddr: "198.51.100.7:5000", RealIP: "10.0.0.1"}, 0, "198.51.100.7"},
		{"one proxy takes right-most hop", Request{RemoteAddr: "10.1.1.1:80", ForwardedFor: "1.2.3.4, 203.0.113.9"}, 1, "203.0.113.9"},
		{"two proxies", Request{RemoteAddr: "10.1.1.1:80", ForwardedFor: "1.2.3.4, 203.0.113.9, 10.2.2.2"}, 2, "203.0.113.9"},
		{"short chain uses first hop", Request{RemoteAddr: "10.1.1.1:80", ForwardedFor: "203.0.113.9"}, 3, "203.0.113.9"},
		{"mapped peer", Request{RemoteAddr: "[::ffff:198.51.100.7]:5000"}, 0, "198.51.100.7"},
		{"garbage", Request{RemoteAddr: "pipe"}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PeerIP(tt.req, tt.trusted))
		})
	}
}
